// Package gesture maps upstream tracker events and key presses to player
// operations and serializes them onto a single goroutine.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"stereoctl.app/stereoctl/player"
)

// Action is one Controller operation that takes no arguments.
type Action int

const (
	None Action = iota
	TogglePlayPause
	ToggleFullScreen
	Play
	Pause
	Stop
	FastForward
	Rewind
	ZoomIn
	ZoomOut
	EnterFullScreen
	LeaveFullScreen
	RepeatOn
	RepeatOff
	ClosePlayer
)

var actionNames = map[Action]string{
	None:             "none",
	TogglePlayPause:  "toggle-play-pause",
	ToggleFullScreen: "toggle-fullscreen",
	Play:             "play",
	Pause:            "pause",
	Stop:             "stop",
	FastForward:      "fast-forward",
	Rewind:           "rewind",
	ZoomIn:           "zoom-in",
	ZoomOut:          "zoom-out",
	EnterFullScreen:  "enter-fullscreen",
	LeaveFullScreen:  "leave-fullscreen",
	RepeatOn:         "repeat-on",
	RepeatOff:        "repeat-off",
	ClosePlayer:      "close-player",
}

var ErrUnknownAction = errors.New("unknown action")

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction accepts the names String returns, case-insensitively.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return None, fmt.Errorf("ParseAction %q: %w", s, ErrUnknownAction)
}

// ActionNames lists every action name in sorted order.
func ActionNames() []string {
	out := make([]string, 0, len(actionNames))
	for _, name := range actionNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Apply runs the action against c.
func (a Action) Apply(ctx context.Context, c *player.Controller) error {
	switch a {
	case None:
		return nil
	case TogglePlayPause:
		return c.TogglePlayPause(ctx)
	case ToggleFullScreen:
		return c.ToggleFullScreen(ctx)
	case Play:
		return c.Play(ctx)
	case Pause:
		return c.Pause(ctx)
	case Stop:
		return c.Stop(ctx)
	case FastForward:
		return c.FastForward(ctx)
	case Rewind:
		return c.Rewind(ctx)
	case ZoomIn:
		return c.ZoomIn(ctx)
	case ZoomOut:
		return c.ZoomOut(ctx)
	case EnterFullScreen:
		return c.EnterFullScreen(ctx)
	case LeaveFullScreen:
		return c.LeaveFullScreen(ctx)
	case RepeatOn:
		return c.SetRepeat(ctx, true)
	case RepeatOff:
		return c.SetRepeat(ctx, false)
	case ClosePlayer:
		return c.ClosePlayer(ctx)
	}
	return fmt.Errorf("Apply %d: %w", int(a), ErrUnknownAction)
}

// Map binds gesture names to actions.
type Map map[string]Action

// DefaultMap is the binding used when the configuration names none.
func DefaultMap() Map {
	return Map{
		"Click":      TogglePlayPause,
		"Wave":       ToggleFullScreen,
		"SwipeLeft":  Rewind,
		"SwipeRight": FastForward,
		"SwipeUp":    ZoomIn,
		"SwipeDown":  ZoomOut,
		"Circle":     Stop,
		"RaiseHand":  Play,
	}
}

// ParseMap overlays gesture name to action name pairs on DefaultMap. A
// pair replaces any default whose name differs only in case, and binding a
// gesture to "none" removes it.
func ParseMap(raw map[string]string) (Map, error) {
	m := DefaultMap()

	gestures := make([]string, 0, len(raw))
	for g := range raw {
		gestures = append(gestures, g)
	}
	sort.Strings(gestures)

	for _, g := range gestures {
		a, err := ParseAction(raw[g])
		if err != nil {
			return nil, fmt.Errorf("gesture %q: %w", g, err)
		}
		for name := range m {
			if strings.EqualFold(name, g) {
				delete(m, name)
			}
		}
		if a != None {
			m[g] = a
		}
	}
	return m, nil
}

// Lookup finds the action bound to a gesture. Names match case-insensitively.
func (m Map) Lookup(gesture string) (Action, bool) {
	if a, ok := m[gesture]; ok {
		return a, true
	}
	for name, a := range m {
		if strings.EqualFold(name, gesture) {
			return a, true
		}
	}
	return None, false
}

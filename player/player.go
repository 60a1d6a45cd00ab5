// Package player keeps the controller's belief about the remote player and
// turns each playback transition into exactly one remote invocation.
package player

import (
	"errors"
	"fmt"
	"strings"

	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

// ZoomStep is the zoom change of one ZoomIn or ZoomOut, in percent.
const ZoomStep = 10.0

// Remote operation names.
const (
	opOpenFile           = "OpenFile"
	opOpenLeftRightFiles = "OpenLeftRightFiles"
	opSetPlaybackState   = "SetPlaybackState"
	opEnterFullscreen    = "EnterFullscreenMode"
	opLeaveFullscreen    = "LeaveFullscreenMode"
	opSetRepeat          = "SetRepeat"
	opSetZoom            = "SetZoom"
	opGetDuration        = "GetDuration"
	opClosePlayer        = "ClosePlayer"
)

// AudioMode selects the audio source for a left/right file pair.
type AudioMode uint32

const (
	NoAudio AudioMode = iota
	SeparateAudio
	LeftAudio
	RightAudio
)

var audioModeNames = map[AudioMode]string{
	NoAudio:       "none",
	SeparateAudio: "separate",
	LeftAudio:     "left",
	RightAudio:    "right",
}

func (m AudioMode) String() string {
	if s, ok := audioModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("AudioMode(%d)", uint32(m))
}

// ParseAudioMode parses none, separate, left or right.
func ParseAudioMode(s string) (AudioMode, error) {
	for m, name := range audioModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("ParseAudioMode %q: %w", s, ErrUnknownAudioMode)
}

var (
	// ErrBadArgumentCount is returned when a call would be issued with a
	// required argument missing.
	ErrBadArgumentCount = errors.New(dispatch.FormatError(dispatch.DispEBadParamCount))
	ErrUnknownAudioMode = errors.New("unknown audio mode")
)

// InconsistentStateError reports that the cached zoom argument no longer
// matches the believed zoom. No call is made when it is returned.
type InconsistentStateError struct {
	Cached   float64
	Believed float64
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("zoom argument %g does not match believed zoom %g: %s", e.Cached, e.Believed, dispatch.FormatError(e.Code()))
}

// Code returns E_ABORT.
func (e *InconsistentStateError) Code() uint32 { return dispatch.EAbort }

// Belief is what the controller believes the player is doing. It only
// changes after a successful call.
type Belief struct {
	Playing    bool
	Paused     bool
	Stopped    bool
	FullScreen bool
	Repeat     bool
	Zoom       float64
	// Duration is informational and may be stale or zero.
	Duration float64
}

// DefaultBelief is the belief before any call.
func DefaultBelief() Belief {
	return Belief{Zoom: argbank.DefaultZoom}
}

func (b Belief) String() string {
	state := "idle"
	switch {
	case b.Playing:
		state = "playing"
	case b.Paused:
		state = "paused"
	case b.Stopped:
		state = "stopped"
	}

	return fmt.Sprintf("%s fullscreen=%t repeat=%t zoom=%g%% duration=%gs", state, b.FullScreen, b.Repeat, b.Zoom, b.Duration)
}

// Notifier receives one-line status messages.
type Notifier interface {
	EmitMsg(string)
}

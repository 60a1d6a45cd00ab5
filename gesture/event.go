package gesture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names what the tracker observed.
type EventType string

const (
	SessionStart  EventType = "session_start"
	SessionEnd    EventType = "session_end"
	NoHands       EventType = "no_hands"
	FocusProgress EventType = "focus_progress"
	Gesture       EventType = "gesture"
)

// Point is a tracker position in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Event is one message from the tracker bridge.
type Event struct {
	Type     EventType `json:"type"`
	Name     string    `json:"name,omitempty"`
	Position Point     `json:"position"`
	Progress float64   `json:"progress,omitempty"`
}

// Validate checks the event type and that gestures carry a name.
func (e Event) Validate() error {
	switch e.Type {
	case SessionStart, SessionEnd, NoHands, FocusProgress:
		return nil
	case Gesture:
		if e.Name == "" {
			return fmt.Errorf("gesture event without name: %w", ErrInvalidEvent)
		}
		return nil
	}
	return fmt.Errorf("event type %q: %w", e.Type, ErrInvalidEvent)
}

// SessionState is the tracker session as last reported.
type SessionState int

const (
	NotInSession SessionState = iota
	InSession
	QuickRefocus
)

func (s SessionState) String() string {
	switch s {
	case NotInSession:
		return "not-in-session"
	case InSession:
		return "in-session"
	case QuickRefocus:
		return "quick-refocus"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session is the explicit tracker session state threaded through event
// handling.
type Session struct {
	State SessionState
	ID    string
	Since time.Time
	// Position is where the focus gesture started the session.
	Position Point
}

// Apply advances the session for a session event. It reports whether the
// state changed. Gesture and progress events leave it untouched.
func (s *Session) Apply(ev Event, now time.Time) bool {
	prev := s.State

	switch ev.Type {
	case SessionStart:
		// Returning from quick refocus resumes the same session.
		if s.State != QuickRefocus || s.ID == "" {
			s.ID = uuid.NewString()
			s.Position = ev.Position
		}
		s.State = InSession
	case SessionEnd:
		s.State = NotInSession
		s.ID = ""
	case NoHands:
		if s.State == InSession {
			s.State = QuickRefocus
		}
	default:
		return false
	}

	if s.State != prev {
		s.Since = now
		return true
	}
	return false
}

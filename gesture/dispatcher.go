package gesture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"stereoctl.app/stereoctl/player"
)

var (
	ErrInvalidEvent      = errors.New("invalid event")
	ErrNotInSession      = errors.New("gesture outside of a session")
	ErrUnmappedGesture   = errors.New("gesture not mapped")
	ErrRateLimited       = errors.New("gesture rate limited")
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

const queueSize = 32

type job struct {
	fn   func(ctx context.Context, c *player.Controller) error
	done chan error
}

// Dispatcher owns the Controller and the tracker session. Every operation
// runs on the goroutine executing Run, in submission order.
type Dispatcher struct {
	Map         Map
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	controller *player.Controller
	limiter    *rate.Limiter
	session    Session
	queue      chan job
	stopped    chan struct{}
	now        func() time.Time
}

// NewDispatcher returns a dispatcher for c. Gestures closer together than
// minInterval are dropped; zero disables the limit.
func NewDispatcher(c *player.Controller, m Map, minInterval time.Duration) *Dispatcher {
	if m == nil {
		m = DefaultMap()
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &Dispatcher{
		Map:        m,
		Logger:     zerolog.Nop(),
		controller: c,
		limiter:    rate.NewLimiter(limit, 1),
		queue:      make(chan job, queueSize),
		stopped:    make(chan struct{}),
		now:        time.Now,
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (d *Dispatcher) Log() *zerolog.Logger {
	if d.LogOutput != nil {
		d.initLogOnce.Do(func() {
			d.Logger = zerolog.New(d.LogOutput).With().Timestamp().Logger()
		})
	}
	return &d.Logger
}

// Run executes submitted work until ctx is done. It must be called exactly
// once.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-d.queue:
			j.done <- j.fn(ctx, d.controller)
		}
	}
}

// Do runs fn on the dispatcher goroutine and waits for its result.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context, c *player.Controller) error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case d.queue <- j:
	case <-d.stopped:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-d.stopped:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit runs a.
func (d *Dispatcher) Submit(ctx context.Context, a Action) error {
	return d.Do(ctx, func(ctx context.Context, c *player.Controller) error {
		d.Log().Debug().Str("Method", "Submit").Stringer("Action", a).Msg("")
		return a.Apply(ctx, c)
	})
}

// Outcome is what one tracker event did.
type Outcome struct {
	// Action is the action that ran, or None.
	Action Action
	// SessionChanged reports a session state transition.
	SessionChanged bool
	Session        SessionState
}

// HandleEvent advances the session or, for gestures during a session, runs
// the mapped action.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev Event) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return Outcome{}, err
	}

	picked := make(chan Outcome, 1)
	err := d.Do(ctx, func(ctx context.Context, c *player.Controller) error {
		if ev.Type != Gesture {
			changed := d.session.Apply(ev, d.now())
			if changed {
				d.Log().Info().Str("Method", "HandleEvent").Stringer("Session", d.session.State).Str("ID", d.session.ID).Msg("session changed")
			}
			picked <- Outcome{SessionChanged: changed, Session: d.session.State}
			return nil
		}

		if d.session.State != InSession {
			return fmt.Errorf("%s while %s: %w", ev.Name, d.session.State, ErrNotInSession)
		}

		a, ok := d.Map.Lookup(ev.Name)
		if !ok {
			return fmt.Errorf("%s: %w", ev.Name, ErrUnmappedGesture)
		}

		if !d.limiter.Allow() {
			return fmt.Errorf("%s: %w", ev.Name, ErrRateLimited)
		}

		d.Log().Debug().Str("Method", "HandleEvent").Str("Gesture", ev.Name).Stringer("Action", a).Msg("")
		picked <- Outcome{Action: a, Session: d.session.State}
		return a.Apply(ctx, c)
	})

	select {
	case out := <-picked:
		return out, err
	default:
		return Outcome{}, err
	}
}

// Snapshot returns copies of the tracker session and the controller belief
// taken in the same turn.
func (d *Dispatcher) Snapshot(ctx context.Context) (Session, player.Belief, error) {
	var (
		s Session
		b player.Belief
	)
	err := d.Do(ctx, func(_ context.Context, c *player.Controller) error {
		s = d.session
		b = c.Belief()
		return nil
	})
	if err != nil {
		return Session{}, player.Belief{}, err
	}
	return s, b, nil
}

// Session returns a copy of the tracker session.
func (d *Dispatcher) Session(ctx context.Context) (Session, error) {
	var s Session
	err := d.Do(ctx, func(context.Context, *player.Controller) error {
		s = d.session
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Belief returns a copy of the controller belief.
func (d *Dispatcher) Belief(ctx context.Context) (player.Belief, error) {
	var b player.Belief
	err := d.Do(ctx, func(_ context.Context, c *player.Controller) error {
		b = c.Belief()
		return nil
	})
	if err != nil {
		return player.Belief{}, err
	}
	return b, nil
}

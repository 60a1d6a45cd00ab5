// Package simplayer is an in-process stand-in for the stereoscopic player's
// automation object. It validates argument counts and kinds the way the real
// object does and records every call.
package simplayer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

const (
	dispEMemberNotFound  uint32 = 0x80020003
	rpcServerUnavailable uint32 = 0x800706BA
)

type operation struct {
	id     dispatch.DispID
	params []argbank.Kind
	// optional marks parameters that also accept Empty.
	optional map[int]bool
	getter   bool
}

var operations = map[string]operation{
	"OpenFile":            {id: 1, params: []argbank.Kind{argbank.String}},
	"OpenLeftRightFiles":  {id: 2, params: []argbank.Kind{argbank.String, argbank.String, argbank.String, argbank.UnsignedInt32}, optional: map[int]bool{2: true}},
	"SetPlaybackState":    {id: 3, params: []argbank.Kind{argbank.UnsignedInt32}},
	"GetPlaybackState":    {id: 4, getter: true},
	"EnterFullscreenMode": {id: 5},
	"LeaveFullscreenMode": {id: 6},
	"SetRepeat":           {id: 7, params: []argbank.Kind{argbank.Bool}},
	"SetZoom":             {id: 8, params: []argbank.Kind{argbank.Double}},
	"GetDuration":         {id: 9, getter: true},
	"ClosePlayer":         {id: 10},
}

// State is what the simulated player currently shows.
type State struct {
	File          string
	LeftFile      string
	RightFile     string
	AudioFile     string
	AudioMode     uint32
	PlaybackState uint32
	FullScreen    bool
	Repeat        bool
	Zoom          float64
	Closed        bool
}

// Call is one recorded invocation.
type Call struct {
	Operation string
	Args      []interface{}
}

// Player is the simulated automation object. The zero value is not usable;
// call New.
type Player struct {
	// Duration is reported by GetDuration once a file is open.
	Duration    float64
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	mu       sync.Mutex
	state    State
	calls    []Call
	failures map[string]uint32
	live     int
}

// New returns a stopped player with nothing open.
func New() *Player {
	return &Player{
		Duration: 5400,
		Logger:   zerolog.Nop(),
		state: State{
			PlaybackState: argbank.StateStop,
			Zoom:          argbank.DefaultZoom,
		},
		failures: make(map[string]uint32),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (p *Player) Log() *zerolog.Logger {
	if p.LogOutput != nil {
		p.initLogOnce.Do(func() {
			p.Logger = zerolog.New(p.LogOutput).With().Timestamp().Logger()
		})
	}
	return &p.Logger
}

// Fail makes every later invocation of operation fail with code. A zero
// code clears the failure.
func (p *Player) Fail(operation string, code uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if code == 0 {
		delete(p.failures, operation)
		return
	}
	p.failures[operation] = code
}

// State returns a snapshot of the player state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Calls returns the invocations received so far.
func (p *Player) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Operations returns the recorded operation names in order.
func (p *Player) Operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.Operation
	}
	return out
}

// Live returns the number of unreleased objects handed out.
func (p *Player) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Connect hands out a reference to the player.
func (p *Player) Connect(ctx context.Context) (dispatch.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, dispatch.Status(dispatch.EAbort, err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if code, ok := p.failures["Connect"]; ok {
		return nil, dispatch.Status(code, "simulated connect failure")
	}

	p.live++
	p.Log().Debug().Str("Method", "Connect").Int("Live", p.live).Msg("object handed out")
	return &object{p: p}, nil
}

// Shutdown fails if references are still outstanding.
func (p *Player) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live != 0 {
		return fmt.Errorf("simplayer shutdown: %d live references", p.live)
	}
	return nil
}

type object struct {
	p        *Player
	released bool
}

func (o *object) Resolve(_ context.Context, name string) (dispatch.DispID, error) {
	op, ok := operations[name]
	if !ok {
		return 0, dispatch.Status(dispatch.DispEUnknownName, name)
	}
	return op.id, nil
}

func (o *object) Invoke(_ context.Context, id dispatch.DispID, kind dispatch.InvokeKind, args []argbank.Slot) (dispatch.Value, error) {
	p := o.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if o.released {
		return dispatch.Empty, dispatch.Status(rpcServerUnavailable, "object released")
	}

	name, op, ok := lookup(id)
	if !ok {
		return dispatch.Empty, dispatch.Status(dispEMemberNotFound, fmt.Sprintf("dispid %d", id))
	}

	call := Call{Operation: name}
	for _, a := range args {
		call.Args = append(call.Args, a.Value())
	}
	p.calls = append(p.calls, call)

	if p.state.Closed {
		return dispatch.Empty, dispatch.Status(rpcServerUnavailable, "player closed")
	}
	if code, ok := p.failures[name]; ok {
		return dispatch.Empty, dispatch.Status(code, "simulated failure")
	}
	if op.getter != (kind&dispatch.PropertyGet != 0) {
		return dispatch.Empty, dispatch.Status(dispEMemberNotFound, name)
	}
	if err := op.check(args); err != nil {
		return dispatch.Empty, err
	}

	p.Log().Debug().Str("Method", "Invoke").Str("Operation", name).Interface("Args", call.Args).Msg("")
	return p.apply(name, args), nil
}

func (o *object) Release() {
	o.p.mu.Lock()
	defer o.p.mu.Unlock()

	if !o.released {
		o.released = true
		o.p.live--
	}
}

func lookup(id dispatch.DispID) (string, operation, bool) {
	for name, op := range operations {
		if op.id == id {
			return name, op, true
		}
	}
	return "", operation{}, false
}

func (op operation) check(args []argbank.Slot) error {
	if len(args) != len(op.params) {
		return dispatch.Status(dispatch.DispEBadParamCount, fmt.Sprintf("want %d arguments, got %d", len(op.params), len(args)))
	}
	for i, a := range args {
		if a.Kind == op.params[i] || (a.Kind == argbank.Empty && op.optional[i]) {
			continue
		}
		return dispatch.Status(dispatch.DispETypeMismatch, fmt.Sprintf("argument %d is %s, want %s", i, a.Kind, op.params[i]))
	}
	return nil
}

// apply runs with p.mu held and arguments already checked.
func (p *Player) apply(name string, args []argbank.Slot) dispatch.Value {
	s := &p.state
	switch name {
	case "OpenFile":
		s.File = args[0].Str.String()
		s.LeftFile, s.RightFile, s.AudioFile = "", "", ""
		s.PlaybackState = argbank.StatePlay
	case "OpenLeftRightFiles":
		s.File = ""
		s.LeftFile = args[0].Str.String()
		s.RightFile = args[1].Str.String()
		s.AudioFile = ""
		if args[2].Kind == argbank.String {
			s.AudioFile = args[2].Str.String()
		}
		s.AudioMode = args[3].U32
		s.PlaybackState = argbank.StatePlay
	case "SetPlaybackState":
		s.PlaybackState = args[0].U32
	case "GetPlaybackState":
		return dispatch.ValueOf(s.PlaybackState)
	case "EnterFullscreenMode":
		s.FullScreen = true
	case "LeaveFullscreenMode":
		s.FullScreen = false
	case "SetRepeat":
		s.Repeat = args[0].Bool
	case "SetZoom":
		s.Zoom = args[0].F64
	case "GetDuration":
		if s.File == "" && s.LeftFile == "" {
			return dispatch.ValueOf(0.0)
		}
		return dispatch.ValueOf(p.Duration)
	case "ClosePlayer":
		s.Closed = true
	}
	return dispatch.Empty
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"stereoctl.app/stereoctl/argbank"
)

// Handle is the single live reference a Client holds on the remote object.
// Release is idempotent.
type Handle struct {
	ID  string
	mu  sync.Mutex
	obj Object
}

// Live reports whether the handle still references the remote object.
func (h *Handle) Live() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.obj != nil
}

// Release drops the remote reference. Further releases are no-ops.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	obj := h.obj
	h.obj = nil
	h.mu.Unlock()

	if obj != nil {
		obj.Release()
	}
}

func (h *Handle) object() (Object, error) {
	if h == nil {
		return nil, ErrNotConnected
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.obj == nil {
		return nil, ErrReleased
	}
	return h.obj, nil
}

// Client drives a remote automation object through a Transport. It owns the
// argument bank every call reads its arguments from.
type Client struct {
	Transport   Transport
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	mu     sync.Mutex
	bank   *argbank.Bank
	handle *Handle
}

// NewClient returns a client with an initialized argument bank.
func NewClient(t Transport) (*Client, error) {
	b := argbank.New()
	if err := b.Initialize(); err != nil {
		return nil, fmt.Errorf("NewClient bank error: %w", err)
	}

	return &Client{
		Transport: t,
		Logger:    zerolog.Nop(),
		bank:      b,
	}, nil
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *Client) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// Bank returns the argument bank.
func (c *Client) Bank() *argbank.Bank {
	return c.bank
}

// Handle returns the current handle, nil before Connect.
func (c *Client) Handle() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Connect instantiates the remote object. A client holds at most one live
// handle at a time.
func (c *Client) Connect(ctx context.Context) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle.Live() {
		return nil, ErrAlreadyConnected
	}

	if c.Transport == nil {
		return nil, &ConnectError{Status: EFail, Err: errors.New("no transport")}
	}

	obj, err := c.Transport.Connect(ctx)
	if err != nil {
		cerr := &ConnectError{Status: CodeOf(err), Err: err}
		c.Log().Error().Str("Method", "Connect").Err(err).Msg(FormatError(cerr.Status))
		return nil, cerr
	}

	c.handle = &Handle{ID: uuid.NewString(), obj: obj}
	c.Log().Debug().Str("Method", "Connect").Str("Handle", c.handle.ID).Msg("remote object acquired")
	return c.handle, nil
}

// Invoke resolves call.Operation and invokes it with the argument window
// the descriptor names, discarding any result.
func (c *Client) Invoke(ctx context.Context, h *Handle, call CallDescriptor) error {
	_, err := c.invoke(ctx, h, call, Method)
	return err
}

// InvokeWithResult invokes a value-returning operation, typically a
// property read.
func (c *Client) InvokeWithResult(ctx context.Context, h *Handle, call CallDescriptor) (Value, error) {
	return c.invoke(ctx, h, call, Method|PropertyGet)
}

func (c *Client) invoke(ctx context.Context, h *Handle, call CallDescriptor, kind InvokeKind) (Value, error) {
	obj, err := h.object()
	if err != nil {
		return Empty, fmt.Errorf("%s: %w", call.Operation, err)
	}

	args, err := c.bank.Window(call.Start, call.Count)
	if err != nil {
		return Empty, fmt.Errorf("%s arguments: %w", call.Operation, err)
	}

	id, err := obj.Resolve(ctx, call.Operation)
	if err != nil {
		nerr := &NameResolutionError{Name: call.Operation, Status: CodeOf(err), Err: err}
		c.Log().Error().Str("Method", "Resolve").Str("Operation", call.Operation).Err(err).Msg(FormatError(nerr.Status))
		return Empty, nerr
	}

	out, err := obj.Invoke(ctx, id, kind, args)
	if err != nil {
		ierr := &InvocationError{Operation: call.Operation, Status: CodeOf(err), Err: err}
		c.Log().Error().Str("Method", "Invoke").Str("Operation", call.Operation).Int32("DispID", int32(id)).Err(err).Msg(FormatError(ierr.Status))
		return Empty, ierr
	}

	c.Log().Debug().Str("Method", "Invoke").Str("Call", call.String()).Int32("DispID", int32(id)).Msg("ok")
	return out, nil
}

// Disconnect releases h. It is safe to call more than once.
func (c *Client) Disconnect(h *Handle) {
	if h.Live() {
		c.Log().Debug().Str("Method", "Disconnect").Str("Handle", h.ID).Msg("releasing remote object")
	}
	h.Release()
}

// Shutdown releases the current handle and tears down the transport.
func (c *Client) Shutdown() error {
	c.Disconnect(c.Handle())

	if c.Transport == nil {
		return nil
	}
	if err := c.Transport.Shutdown(); err != nil {
		return fmt.Errorf("Shutdown transport error: %w", err)
	}
	return nil
}

package dispatch

import (
	"errors"
	"fmt"
)

// Well-known automation status codes.
const (
	SOK                uint32 = 0x00000000
	ENotImpl           uint32 = 0x80004001
	EAbort             uint32 = 0x80004004
	EFail              uint32 = 0x80004005
	DispETypeMismatch  uint32 = 0x80020005
	DispEUnknownName   uint32 = 0x80020006
	DispEException     uint32 = 0x80020009
	DispEBadParamCount uint32 = 0x8002000E
	RegDBEClassNotReg  uint32 = 0x80040154
	EHandle            uint32 = 0x80070006
)

var (
	ErrNotConnected     = errors.New("remote object not connected")
	ErrAlreadyConnected = errors.New("remote object already connected")
	ErrReleased         = errors.New("remote handle used after release")
	ErrValueType        = errors.New("result value has an unexpected type")
)

// FormatError renders a status code the way every diagnostic of the
// control layer reports it.
func FormatError(code uint32) string {
	return fmt.Sprintf("Operation Failed. Error code = 0x%x", code)
}

// StatusError is the error transports return when the remote side reports
// a numeric status.
type StatusError struct {
	Status uint32
	Msg    string
}

// Status builds a StatusError.
func Status(code uint32, msg string) *StatusError {
	return &StatusError{Status: code, Msg: msg}
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return FormatError(e.Status)
	}
	return e.Msg + ": " + FormatError(e.Status)
}

// Code returns the status code.
func (e *StatusError) Code() uint32 { return e.Status }

// ConnectError reports that the remote object could not be instantiated.
type ConnectError struct {
	Status uint32
	Err    error
}

func (e *ConnectError) Error() string {
	return "connect failed: " + FormatError(e.Status)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Code returns the status code.
func (e *ConnectError) Code() uint32 { return e.Status }

// NameResolutionError reports that the remote object does not know an
// operation name.
type NameResolutionError struct {
	Name   string
	Status uint32
	Err    error
}

func (e *NameResolutionError) Error() string {
	return fmt.Sprintf("resolve %q failed: %s", e.Name, FormatError(e.Status))
}

func (e *NameResolutionError) Unwrap() error { return e.Err }

// Code returns the status code.
func (e *NameResolutionError) Code() uint32 { return e.Status }

// InvocationError reports a failed call after the name was resolved.
type InvocationError struct {
	Operation string
	Status    uint32
	Err       error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %q failed: %s", e.Operation, FormatError(e.Status))
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Code returns the status code.
func (e *InvocationError) Code() uint32 { return e.Status }

// CodeOf extracts the status carried by err, or EFail when err carries none.
func CodeOf(err error) uint32 {
	if err == nil {
		return SOK
	}

	var c interface{ Code() uint32 }
	if errors.As(err, &c) {
		return c.Code()
	}

	return EFail
}

// Package dispatch is the client side of a late-bound automation protocol:
// every call resolves an operation name against the remote object and then
// invokes the resolved id with a window of pre-typed arguments.
package dispatch

import (
	"context"
	"fmt"

	"stereoctl.app/stereoctl/argbank"
)

// DispID is the id a remote object assigns to an operation name.
type DispID int32

// InvokeKind selects how the remote object treats an invocation.
type InvokeKind int16

const (
	Method      InvokeKind = 1
	PropertyGet InvokeKind = 2
)

// PlayerClassID is the class id of the stereoscopic player's automation
// object.
const PlayerClassID = "{73B28B6E-D306-4589-B032-9ED17AA4D182}"

// Transport acquires remote objects.
type Transport interface {
	// Connect instantiates the remote object.
	Connect(ctx context.Context) (Object, error)
	// Shutdown tears down the connection subsystem once no object is live.
	Shutdown() error
}

// Object is a live remote automation object.
type Object interface {
	Resolve(ctx context.Context, name string) (DispID, error)
	Invoke(ctx context.Context, id DispID, kind InvokeKind, args []argbank.Slot) (Value, error)
	Release()
}

// CallDescriptor names an operation and the argument bank window it takes.
type CallDescriptor struct {
	Operation string
	Start     int
	Count     int
}

// Call builds a descriptor with no arguments.
func Call(operation string) CallDescriptor {
	return CallDescriptor{Operation: operation}
}

// CallWith builds a descriptor reading count slots from start.
func CallWith(operation string, start, count int) CallDescriptor {
	return CallDescriptor{Operation: operation, Start: start, Count: count}
}

func (c CallDescriptor) String() string {
	if c.Count == 0 {
		return c.Operation + "()"
	}
	return fmt.Sprintf("%s(slots %d..%d)", c.Operation, c.Start, c.Start+c.Count-1)
}

// Value is the single typed value an invocation may return.
type Value struct {
	Kind argbank.Kind
	Raw  interface{}
}

// Empty is the value of calls that return nothing.
var Empty = Value{Kind: argbank.Empty}

// ValueOf tags a plain Go value.
func ValueOf(v interface{}) Value {
	switch v.(type) {
	case string:
		return Value{Kind: argbank.String, Raw: v}
	case uint32:
		return Value{Kind: argbank.UnsignedInt32, Raw: v}
	case bool:
		return Value{Kind: argbank.Bool, Raw: v}
	case float64, float32:
		return Value{Kind: argbank.Double, Raw: v}
	case nil:
		return Empty
	}
	return Value{Kind: argbank.Empty, Raw: v}
}

// Float64 converts numeric values.
func (v Value) Float64() (float64, error) {
	switch n := v.Raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("Float64 from %T: %w", v.Raw, ErrValueType)
}

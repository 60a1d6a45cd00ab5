//go:build !windows

package dispatch

import "context"

// COMTransport is only functional on Windows.
type COMTransport struct {
	ClassID string
}

// NewCOMTransport returns a transport for the given class id.
func NewCOMTransport(classID string) *COMTransport {
	return &COMTransport{ClassID: classID}
}

// Connect always fails outside Windows.
func (t *COMTransport) Connect(context.Context) (Object, error) {
	return nil, Status(ENotImpl, "COM automation requires Windows")
}

// Shutdown is a no-op outside Windows.
func (t *COMTransport) Shutdown() error { return nil }

//go:build windows

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ole "github.com/go-ole/go-ole"
	"stereoctl.app/stereoctl/argbank"
)

// COMTransport instantiates the player's automation object in-process
// through COM.
type COMTransport struct {
	ClassID string

	mu          sync.Mutex
	initialized bool
}

// NewCOMTransport returns a transport for the given class id.
func NewCOMTransport(classID string) *COMTransport {
	return &COMTransport{ClassID: classID}
}

// Connect initializes COM on first use and creates the object.
func (t *COMTransport) Connect(ctx context.Context) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Status(EAbort, err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		// Goroutines migrate between OS threads, so the object must live in
		// the multithreaded apartment. S_FALSE means it already exists.
		if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil && oleCode(err) != 1 {
			return nil, fmt.Errorf("CoInitializeEx: %w", oleStatus(err))
		}
		t.initialized = true
	}

	clsid, err := ole.CLSIDFromString(t.ClassID)
	if err != nil {
		return nil, fmt.Errorf("class id %q: %w", t.ClassID, oleStatus(err))
	}

	unk, err := ole.CreateInstance(clsid, ole.IID_IUnknown)
	if err != nil {
		return nil, fmt.Errorf("CreateInstance: %w", oleStatus(err))
	}

	disp, err := unk.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		unk.Release()
		return nil, fmt.Errorf("QueryInterface: %w", oleStatus(err))
	}

	return &comObject{unk: unk, disp: disp}, nil
}

// Shutdown uninitializes COM if Connect initialized it.
func (t *COMTransport) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		ole.CoUninitialize()
		t.initialized = false
	}
	return nil
}

type comObject struct {
	unk  *ole.IUnknown
	disp *ole.IDispatch
}

func (o *comObject) Resolve(_ context.Context, name string) (DispID, error) {
	ids, err := o.disp.GetIDsOfName([]string{name})
	if err != nil {
		return 0, oleStatus(err)
	}
	if len(ids) == 0 {
		return 0, Status(DispEUnknownName, name)
	}
	return DispID(ids[0]), nil
}

func (o *comObject) Invoke(_ context.Context, id DispID, kind InvokeKind, args []argbank.Slot) (Value, error) {
	params := comParams(args)

	result, err := o.disp.Invoke(int32(id), int16(kind), params...)
	if err != nil {
		return Empty, oleStatus(err)
	}
	if result == nil {
		return Empty, nil
	}
	defer result.Clear()

	return ValueOf(result.Value()), nil
}

func (o *comObject) Release() {
	if o.disp != nil {
		o.disp.Release()
		o.disp = nil
	}
	if o.unk != nil {
		o.unk.Release()
		o.unk = nil
	}
}

func oleCode(err error) uint32 {
	var oe *ole.OleError
	if errors.As(err, &oe) {
		return uint32(oe.Code())
	}
	return EFail
}

func oleStatus(err error) error {
	return &StatusError{Status: oleCode(err), Msg: err.Error()}
}

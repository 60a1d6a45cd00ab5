package dispatch

import (
	ole "github.com/go-ole/go-ole"
	"stereoctl.app/stereoctl/argbank"
)

// comParams converts bank slots into the values handed to IDispatch.Invoke.
// Empty slots travel as a VT_EMPTY variant by value.
func comParams(args []argbank.Slot) []interface{} {
	params := make([]interface{}, len(args))
	for i, a := range args {
		switch a.Kind {
		case argbank.String:
			// go-ole allocates the BSTR for the call and frees it afterwards.
			params[i] = a.Str.String()
		case argbank.UnsignedInt32:
			params[i] = a.U32
		case argbank.Bool:
			params[i] = a.Bool
		case argbank.Double:
			params[i] = a.F64
		default:
			params[i] = ole.NewVariant(ole.VT_EMPTY, 0)
		}
	}
	return params
}

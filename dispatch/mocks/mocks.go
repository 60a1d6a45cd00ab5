// Package mocks holds testify mocks for the dispatch interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"stereoctl.app/stereoctl/argbank"
	"stereoctl.app/stereoctl/dispatch"
)

// Transport is a mock type for the dispatch.Transport type.
type Transport struct {
	mock.Mock
}

// Connect provides a mock function with given fields: ctx
func (_m *Transport) Connect(ctx context.Context) (dispatch.Object, error) {
	ret := _m.Called(ctx)

	var r0 dispatch.Object
	if rf, ok := ret.Get(0).(func(context.Context) dispatch.Object); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(dispatch.Object)
	}

	return r0, ret.Error(1)
}

// Shutdown provides a mock function with no fields
func (_m *Transport) Shutdown() error {
	ret := _m.Called()
	return ret.Error(0)
}

// Object is a mock type for the dispatch.Object type.
type Object struct {
	mock.Mock
}

// Resolve provides a mock function with given fields: ctx, name
func (_m *Object) Resolve(ctx context.Context, name string) (dispatch.DispID, error) {
	ret := _m.Called(ctx, name)

	var r0 dispatch.DispID
	if rf, ok := ret.Get(0).(func(context.Context, string) dispatch.DispID); ok {
		r0 = rf(ctx, name)
	} else {
		r0 = ret.Get(0).(dispatch.DispID)
	}

	return r0, ret.Error(1)
}

// Invoke provides a mock function with given fields: ctx, id, kind, args
func (_m *Object) Invoke(ctx context.Context, id dispatch.DispID, kind dispatch.InvokeKind, args []argbank.Slot) (dispatch.Value, error) {
	ret := _m.Called(ctx, id, kind, args)

	var r0 dispatch.Value
	if rf, ok := ret.Get(0).(func(context.Context, dispatch.DispID, dispatch.InvokeKind, []argbank.Slot) dispatch.Value); ok {
		r0 = rf(ctx, id, kind, args)
	} else {
		r0 = ret.Get(0).(dispatch.Value)
	}

	return r0, ret.Error(1)
}

// Release provides a mock function with no fields
func (_m *Object) Release() {
	_m.Called()
}

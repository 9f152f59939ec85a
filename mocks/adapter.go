package mocks

import (
	"context"

	"github.com/armapper/arm"
	"github.com/stretchr/testify/mock"
)

// Adapter is a mock arm.Adapter
type Adapter struct {
	mock.Mock
}

func (_m *Adapter) Read(ctx context.Context, model *arm.Model, options arm.FindOptions) ([]*arm.Record, error) {
	ret := _m.Called(ctx, model, options)

	var r0 []*arm.Record
	if rf, ok := ret.Get(0).(func(context.Context, *arm.Model, arm.FindOptions) []*arm.Record); ok {
		r0 = rf(ctx, model, options)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*arm.Record)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *arm.Model, arm.FindOptions) error); ok {
		r1 = rf(ctx, model, options)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *Adapter) Create(ctx context.Context, record *arm.Record) error {
	return _m.recordCall("Create", ctx, record)
}

func (_m *Adapter) Update(ctx context.Context, record *arm.Record) error {
	return _m.recordCall("Update", ctx, record)
}

func (_m *Adapter) Delete(ctx context.Context, record *arm.Record) error {
	return _m.recordCall("Delete", ctx, record)
}

func (_m *Adapter) recordCall(method string, ctx context.Context, record *arm.Record) error {
	ret := _m.MethodCalled(method, ctx, record)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *arm.Record) error); ok {
		r0 = rf(ctx, record)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// TxAdapter is a mock adapter that also implements arm.Transactor and arm.Introspector
type TxAdapter struct {
	Adapter
}

func (_m *TxAdapter) StartTransaction(ctx context.Context) error {
	return _m.MethodCalled("StartTransaction", ctx).Error(0)
}

func (_m *TxAdapter) CommitTransaction(ctx context.Context) error {
	return _m.MethodCalled("CommitTransaction", ctx).Error(0)
}

func (_m *TxAdapter) RollbackTransaction(ctx context.Context) error {
	return _m.MethodCalled("RollbackTransaction", ctx).Error(0)
}

func (_m *TxAdapter) LastQuery() string {
	ret := _m.MethodCalled("LastQuery")

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.String(0)
	}

	return r0
}

func (_m *TxAdapter) LastResult() *arm.Result {
	ret := _m.MethodCalled("LastResult")

	var r0 *arm.Result
	if rf, ok := ret.Get(0).(func() *arm.Result); ok {
		r0 = rf()
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*arm.Result)
	}

	return r0
}

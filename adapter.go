package arm

import (
	"context"
	"fmt"
)

// Adapter reads and writes records of one external store
type Adapter interface {
	Read(ctx context.Context, model *Model, options FindOptions) ([]*Record, error)
	Create(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	Delete(ctx context.Context, record *Record) error
}

// Transactor is implemented by adapters that support transactions
type Transactor interface {
	StartTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
}

// Introspector exposes the last statement an adapter issued and its outcome
type Introspector interface {
	LastQuery() string
	LastResult() *Result
}

// Result outcome of the last statement or request
type Result struct {
	Statement    string
	RowsAffected int64
	LastInsertID int64
	StatusCode   int
	Rows         []map[string]interface{}
}

// CheckModel fails with ErrModelType unless model is registered in a registry
func CheckModel(model *Model) error {
	if model == nil || model.registry == nil {
		return fmt.Errorf("%w: model is not defined", ErrModelType)
	}
	if !model.registry.registered(model) {
		return fmt.Errorf("%w: model %s is not registered", ErrModelType, model.Name)
	}
	return nil
}

// CheckRecord fails with ErrModelType unless record belongs to a registered model
func CheckRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrModelType)
	}
	return CheckModel(record.model)
}

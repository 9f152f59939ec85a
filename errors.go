package arm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigKey config key does not exist
	ErrConfigKey = errors.New("config key does not exist")
	// ErrAdapterType value is not a usable adapter
	ErrAdapterType = errors.New("invalid adapter type")
	// ErrAdapterNotFound no adapter registered under the requested name
	ErrAdapterNotFound = errors.New("adapter not found")
	// ErrModelType argument is not a registered model or record of it
	ErrModelType = errors.New("invalid model type")
	// ErrModelNotFound no model registered under the requested name
	ErrModelNotFound = errors.New("model not found")
	// ErrModelRegistered model name already registered
	ErrModelRegistered = errors.New("model already registered")
	// ErrFieldName invalid field name
	ErrFieldName = errors.New("invalid field name")
	// ErrRelationField owner record lacks the relation key value
	ErrRelationField = errors.New("relation field does not exist")
	// ErrUnknownRelation no relation declared under the requested name
	ErrUnknownRelation = errors.New("unknown relation")
	// ErrExecute adapter failed to execute a request
	ErrExecute = errors.New("adapter execute failed")
	// ErrSQLExecute sql adapter failed to execute a statement
	ErrSQLExecute = errors.New("sql execute failed")
	// ErrNothingToWrite no persistable columns left after column filtering
	ErrNothingToWrite = errors.New("nothing to write")
	// ErrInvalidTransaction invalid transaction when you are trying to start, commit or rollback
	ErrInvalidTransaction = errors.New("no valid transaction")
	// ErrNotImplemented not implemented
	ErrNotImplemented = errors.New("not implemented")
	// ErrDuplicatedKey unique constraint violated
	ErrDuplicatedKey = errors.New("duplicated key not allowed")
	// ErrForeignKey foreign key constraint violated
	ErrForeignKey = errors.New("foreign key constraint violated")
	// ErrNotNull not null constraint violated
	ErrNotNull = errors.New("not null constraint violated")
)

// ExecuteError wraps a failure of a statement sent to a store.
//
// errors.Is matches ErrSQLExecute, the classification Kind (if any) and
// anything the underlying driver error matches.
type ExecuteError struct {
	Statement string
	Kind      error
	Err       error
}

// NewExecuteError builds an ExecuteError for a failed statement.
func NewExecuteError(statement string, kind, err error) *ExecuteError {
	return &ExecuteError{Statement: statement, Kind: kind, Err: err}
}

func (e *ExecuteError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("%v: %v", ErrSQLExecute, e.Err)
	}
	return fmt.Sprintf("%v: %v [%s]", ErrSQLExecute, e.Err, e.Statement)
}

func (e *ExecuteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSQLExecute or the error's kind.
func (e *ExecuteError) Is(target error) bool {
	if target == ErrSQLExecute {
		return true
	}
	return e.Kind != nil && target == e.Kind
}

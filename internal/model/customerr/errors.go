// Package customerr holds the error taxonomy shared by the service layer.
// Adapters map these onto user-visible messages or HTTP statuses; none of
// them is fatal to the process.
package customerr

import "github.com/pkg/errors"

// ValidationError reports bad user input: non-numeric amounts, malformed
// dates, empty required fields. Adapters recover locally by re-prompting.
type ValidationError struct {
	Err string
}

func (e *ValidationError) Error() string {
	return e.Err
}

// NotFoundError reports a record that does not exist or does not belong to
// the requesting owner. Treated as a no-op with a user-visible message.
type NotFoundError struct {
	Err string
}

func (e *NotFoundError) Error() string {
	return e.Err
}

// DataAccessError reports an unreachable store or a failed query. The
// operation aborts; no partial writes are assumed.
type DataAccessError struct {
	Err   string
	Cause error
}

func (e *DataAccessError) Error() string {
	if e.Cause != nil {
		return e.Err + ": " + e.Cause.Error()
	}
	return e.Err
}

func (e *DataAccessError) Unwrap() error {
	return e.Cause
}

// EvaluationError marks a failed budget-alert evaluation. Alerts are
// advisory, so callers display it and carry on with the primary operation.
type EvaluationError struct {
	Cause error
}

func (e *EvaluationError) Error() string {
	return "alert evaluation failed: " + e.Cause.Error()
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsDataAccess(err error) bool {
	var target *DataAccessError
	return errors.As(err, &target)
}

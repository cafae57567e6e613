package rundown

import (
	"errors"
	"fmt"
)

// UserError is an expected, operator-reportable failure: the operation was
// refused for a reason the user can understand and act on ("rundown is on
// air and cannot be removed"). User errors carry a stable code for clients,
// are logged at info level and never crash a worker.
type UserError struct {
	// Code is a stable machine-readable identifier.
	Code string

	// Message is the operator-facing description.
	Message string

	// Err is an optional underlying cause.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a UserError with a stable code and formatted message.
func NewUserError(code, format string, args ...any) *UserError {
	return &UserError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsUserError extracts a UserError from an error chain.
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

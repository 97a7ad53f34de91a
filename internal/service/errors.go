package service

import (
	"errors"
	"fmt"

	"github.com/templui/repcycle/internal/repository"
)

// ErrEmptySourceCycle is returned by Advance when there is nothing to clone.
var ErrEmptySourceCycle = errors.New("current microcycle has no goals to copy")

// ValidationError reports input rejected before any database call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error()}
}

// RemoteError wraps a failed database call. Op names the attempted operation.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

// AuthError is returned by the authentication collaborator.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authError(err error) *AuthError {
	return &AuthError{Message: err.Error(), Err: err}
}

// IsNotFound reports whether err is a remote failure caused by a missing row.
func IsNotFound(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	return errors.Is(remote.Err, repository.ErrGoalNotFound) || errors.Is(remote.Err, repository.ErrUserNotFound)
}

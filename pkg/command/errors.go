package command

import (
	"errors"
	"fmt"

	"github.com/plaenen/commandsource/pkg/validators"
)

var (
	// ErrUnsupportedCommand is returned when no handler is registered for a command.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrUnderProcessing is returned when a duplicate submission arrives while the
	// original command is still in flight under the same idempotency key.
	ErrUnderProcessing = errors.New("command currently under processing")

	// ErrNotFound is returned when a command source entry cannot be found.
	ErrNotFound = errors.New("command source entry not found")

	// ErrNotPending is returned when an approve, reject or delete targets an entry
	// that is no longer awaiting approval.
	ErrNotPending = errors.New("command source entry is not awaiting approval")

	// ErrUnauthorized is returned when the acting identity lacks permission for a command.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned when a payload fails validation. Never retried.
	ErrValidation = errors.New("validation failure")

	// ErrLockContention is the classified transient failure for concurrent
	// row-lock acquisition inside a handler.
	ErrLockContention = errors.New("could not acquire row lock")

	// ErrOptimisticLock is the classified transient failure for an
	// optimistic-locking version conflict on a mutated aggregate.
	ErrOptimisticLock = errors.New("optimistic lock version conflict")

	// ErrRollbackNotApproved is raised by a handler when the surrounding business
	// transaction must roll back because the command has not been approved yet.
	ErrRollbackNotApproved = errors.New("rollback: command not approved by checker")
)

// UnsupportedCommandError reports a handler registry miss for a named command.
type UnsupportedCommandError struct {
	CommandName string
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("unsupported command: %s", e.CommandName)
}

func (e *UnsupportedCommandError) Is(target error) bool {
	return target == ErrUnsupportedCommand
}

// UnderProcessingError reports a concurrent in-flight duplicate submission.
type UnderProcessingError struct {
	IdempotencyKey string
}

func (e *UnderProcessingError) Error() string {
	return fmt.Sprintf("command with idempotency key %q is currently under processing", e.IdempotencyKey)
}

func (e *UnderProcessingError) Is(target error) bool {
	return target == ErrUnderProcessing
}

// NoAuthorizationError reports a missing permission for the acting identity.
type NoAuthorizationError struct {
	Permission string
}

func (e *NoAuthorizationError) Error() string {
	return fmt.Sprintf("user has no authority for permission %s", e.Permission)
}

func (e *NoAuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ValidationError carries the structured per-field failures for an invalid payload.
type ValidationError struct {
	Failures []*validators.ValidationResult
}

func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return "validation errors exist"
	}
	return fmt.Sprintf("validation errors exist: %s", e.Failures[0].Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError from the failed results only.
// Returns nil when nothing failed.
func NewValidationError(results ...*validators.ValidationResult) error {
	failures := make([]*validators.ValidationResult, 0, len(results))
	for _, r := range results {
		if r != nil && !r.IsValid {
			failures = append(failures, r)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &ValidationError{Failures: failures}
}

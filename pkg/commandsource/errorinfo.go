package commandsource

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/validators"
)

// ErrorInfo is the durable, serializable form of a command failure. It is
// stored on the ERROR entry and replayed verbatim to later duplicate
// submissions under the same idempotency key.
type ErrorInfo struct {
	StatusCode int                            `json:"statusCode"`
	Code       string                         `json:"code"`
	Message    string                         `json:"message"`
	Errors     []*validators.ValidationResult `json:"errors,omitempty"`
}

// GenerateErrorInfo classifies a handler failure into its durable form.
// It must never fail itself; an unrecognized error maps to a generic 500.
func GenerateErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	var replayed *ReplayedError
	if errors.As(err, &replayed) {
		return replayed.Info
	}

	var validation *command.ValidationError
	if errors.As(err, &validation) {
		return &ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Code:       "error.msg.validation",
			Message:    validation.Error(),
			Errors:     validation.Failures,
		}
	}

	switch {
	case errors.Is(err, command.ErrUnauthorized):
		return &ErrorInfo{
			StatusCode: http.StatusForbidden,
			Code:       "error.msg.not.authorized",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrUnsupportedCommand):
		return &ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Code:       "error.msg.command.unsupported",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrNotFound):
		return &ErrorInfo{
			StatusCode: http.StatusNotFound,
			Code:       "error.msg.command.not.found",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrNotPending):
		return &ErrorInfo{
			StatusCode: http.StatusConflict,
			Code:       "error.msg.command.not.pending",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrUnderProcessing):
		return &ErrorInfo{
			StatusCode: http.StatusConflict,
			Code:       "error.msg.command.under.processing",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrOptimisticLock):
		return &ErrorInfo{
			StatusCode: http.StatusConflict,
			Code:       "error.msg.optimistic.lock",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrLockContention):
		return &ErrorInfo{
			StatusCode: http.StatusServiceUnavailable,
			Code:       "error.msg.lock.contention",
			Message:    err.Error(),
		}
	case errors.Is(err, command.ErrRollbackNotApproved):
		return &ErrorInfo{
			StatusCode: http.StatusConflict,
			Code:       "error.msg.rollback.not.approved",
			Message:    err.Error(),
		}
	}

	return &ErrorInfo{
		StatusCode: http.StatusInternalServerError,
		Code:       "error.msg.platform.unknown",
		Message:    err.Error(),
	}
}

// MarshalErrorInfo serializes an ErrorInfo for storage. Serialization of the
// classifier's own output cannot fail; the error return guards corrupted
// hand-built values.
func MarshalErrorInfo(info *ErrorInfo) (json.RawMessage, error) {
	return json.Marshal(info)
}

// UnmarshalErrorInfo deserializes a stored error payload.
func UnmarshalErrorInfo(raw json.RawMessage) (*ErrorInfo, error) {
	var info ErrorInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("unmarshal stored error info: %w", err)
	}
	return &info, nil
}

// ReplayedError surfaces a stored failure to a duplicate submission. The
// original command already failed terminally; the duplicate observes the same
// outcome without the handler running again.
type ReplayedError struct {
	IdempotencyKey string
	Info           *ErrorInfo
}

func (e *ReplayedError) Error() string {
	return fmt.Sprintf("command with idempotency key %q previously failed: %s", e.IdempotencyKey, e.Info.Message)
}

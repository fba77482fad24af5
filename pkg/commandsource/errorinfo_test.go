package commandsource_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/commandsource"
	"github.com/plaenen/commandsource/pkg/validators"
)

func TestGenerateErrorInfoClassifiesValidation(t *testing.T) {
	result := validators.NewValidationResult(false, "clientName", validators.WithMessage("clientName is required"))
	err := command.NewValidationError(result)
	require.Error(t, err)

	info := commandsource.GenerateErrorInfo(err)
	assert.Equal(t, http.StatusBadRequest, info.StatusCode)
	assert.Equal(t, "error.msg.validation", info.Code)
	require.Len(t, info.Errors, 1)
	assert.Equal(t, "clientName is required", info.Errors[0].Message)
}

func TestGenerateErrorInfoClassifiesSentinels(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
		code       string
	}{
		{"unauthorized", &command.NoAuthorizationError{Permission: "CREATE_CLIENT"}, http.StatusForbidden, "error.msg.not.authorized"},
		{"unsupported", &command.UnsupportedCommandError{CommandName: "FROB CLIENT"}, http.StatusBadRequest, "error.msg.command.unsupported"},
		{"not found", command.ErrNotFound, http.StatusNotFound, "error.msg.command.not.found"},
		{"not pending", command.ErrNotPending, http.StatusConflict, "error.msg.command.not.pending"},
		{"under processing", &command.UnderProcessingError{IdempotencyKey: "k"}, http.StatusConflict, "error.msg.command.under.processing"},
		{"optimistic lock", command.ErrOptimisticLock, http.StatusConflict, "error.msg.optimistic.lock"},
		{"lock contention", command.ErrLockContention, http.StatusServiceUnavailable, "error.msg.lock.contention"},
		{"rollback not approved", command.ErrRollbackNotApproved, http.StatusConflict, "error.msg.rollback.not.approved"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "error.msg.platform.unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := commandsource.GenerateErrorInfo(tc.err)
			require.NotNil(t, info)
			assert.Equal(t, tc.statusCode, info.StatusCode)
			assert.Equal(t, tc.code, info.Code)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestGenerateErrorInfoUnwrapsReplay(t *testing.T) {
	stored := &commandsource.ErrorInfo{StatusCode: http.StatusBadRequest, Code: "error.msg.validation", Message: "bad"}
	replay := &commandsource.ReplayedError{IdempotencyKey: "k", Info: stored}

	info := commandsource.GenerateErrorInfo(replay)
	assert.Same(t, stored, info)
}

func TestErrorInfoStorageRoundTrip(t *testing.T) {
	info := commandsource.GenerateErrorInfo(errors.New("boom"))

	raw, err := commandsource.MarshalErrorInfo(info)
	require.NoError(t, err)

	restored, err := commandsource.UnmarshalErrorInfo(raw)
	require.NoError(t, err)
	assert.Equal(t, info, restored)
}

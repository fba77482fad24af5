package command_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/validators"
)

func TestStructuredErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &command.UnsupportedCommandError{CommandName: "FROB CLIENT"}, command.ErrUnsupportedCommand)
	assert.ErrorIs(t, &command.UnderProcessingError{IdempotencyKey: "k"}, command.ErrUnderProcessing)
	assert.ErrorIs(t, &command.NoAuthorizationError{Permission: "CREATE_CLIENT"}, command.ErrUnauthorized)

	wrapped := fmt.Errorf("handler: %w", &command.UnderProcessingError{IdempotencyKey: "k"})
	assert.ErrorIs(t, wrapped, command.ErrUnderProcessing)
}

func TestNewValidationError(t *testing.T) {
	valid := validators.NewValidationResult(true, "name")
	invalid := validators.NewValidationResult(false, "amount", validators.WithMessage("amount must be positive"))

	assert.Nil(t, command.NewValidationError(valid))
	assert.Nil(t, command.NewValidationError(nil, valid))

	err := command.NewValidationError(valid, invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, command.ErrValidation)

	var validation *command.ValidationError
	require.True(t, errors.As(err, &validation))
	require.Len(t, validation.Failures, 1)
	assert.Equal(t, "amount", validation.Failures[0].FieldName)
	assert.Contains(t, err.Error(), "amount must be positive")
}

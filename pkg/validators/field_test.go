package validators_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/commandsource/pkg/validators"
)

func TestToUserFriendlyName(t *testing.T) {
	assert.Equal(t, "Office id", validators.ToUserFriendlyName("officeId"))
	assert.Equal(t, "External id", validators.ToUserFriendlyName("external_id"))
	assert.Equal(t, "Name", validators.ToUserFriendlyName("name"))
	assert.Equal(t, "", validators.ToUserFriendlyName(""))
}

func TestValidateRequired(t *testing.T) {
	result := validators.ValidateRequired("", "clientName")
	assert.False(t, result.IsValid)
	assert.Equal(t, validators.ValidationCodeRequired, result.ValidationCode)
	assert.Contains(t, result.Message, "Client name is required")

	assert.False(t, validators.ValidateRequired("   ", "clientName").IsValid)
	assert.True(t, validators.ValidateRequired("Alice", "clientName").IsValid)
}

func TestValidateStringLength(t *testing.T) {
	assert.False(t, validators.ValidateStringLength("ab", "name", 3, 10).IsValid)
	assert.False(t, validators.ValidateStringLength("abcdefghijk", "name", 3, 10).IsValid)
	assert.True(t, validators.ValidateStringLength("abcd", "name", 3, 10).IsValid)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, validators.ValidateEmail("alice@example.com", "email").IsValid)
	assert.False(t, validators.ValidateEmail("not-an-email", "email").IsValid)
	assert.False(t, validators.ValidateEmail("", "email").IsValid)
}

func TestValidateUUID(t *testing.T) {
	assert.True(t, validators.ValidateUUID("123e4567-e89b-12d3-a456-426614174000", "idempotencyKey").IsValid)
	assert.False(t, validators.ValidateUUID("not-a-uuid", "idempotencyKey").IsValid)
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.True(t, validators.ValidatePositiveAmount("120.50", "principal").IsValid)
	assert.False(t, validators.ValidatePositiveAmount("0", "principal").IsValid)
	assert.False(t, validators.ValidatePositiveAmount("-5", "principal").IsValid)
	assert.False(t, validators.ValidatePositiveAmount("abc", "principal").IsValid)
}

func TestValidationBuilderCollectsFailures(t *testing.T) {
	builder := validators.NewValidationBuilder()
	builder.Add(validators.ValidateRequired("Alice", "name"))
	builder.Add(validators.ValidatePositiveAmount("-5", "principal"))
	builder.Add(validators.ValidateStringLength("x", "externalId", 2, 10))

	grouped := builder.Build()
	require.Len(t, grouped, 3)
	assert.True(t, grouped.HasErrors())

	failures := builder.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, "principal", failures[0].FieldName)
	assert.Equal(t, "externalId", failures[1].FieldName)
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "************", validators.MaskString("abc"))
	masked := validators.MaskString("secret-token-1234")
	assert.Equal(t, "1234", masked[len(masked)-4:])
	assert.NotContains(t, masked, "secret")
}

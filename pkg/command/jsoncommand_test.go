package command_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/plaenen/commandsource/pkg/command"
)

func parseCommand(t *testing.T, payload string) *command.JSONCommand {
	t.Helper()

	w := command.NewBuilder("CREATE", "LOAN").WithEntityID(12).Build()
	cmd, err := command.NewJSONCommand(w, json.RawMessage(payload), "key-1")
	require.NoError(t, err)
	return cmd
}

func TestNewJSONCommandRejectsNonObjectPayload(t *testing.T) {
	w := command.Wrap("CREATE", "LOAN", 0, 0)

	_, err := command.NewJSONCommand(w, json.RawMessage(`[1,2,3]`), "key-1")
	assert.Error(t, err)

	// Empty payloads are fine, the command just has no parameters.
	cmd, err := command.NewJSONCommand(w, nil, "key-1")
	require.NoError(t, err)
	assert.False(t, cmd.ParameterExists("anything"))
}

func TestScalarAccessors(t *testing.T) {
	cmd := parseCommand(t, `{"name":"Alice","count":3,"active":true,"note":null}`)

	assert.Equal(t, "Alice", cmd.StringValueOfNamed("name"))
	assert.Equal(t, int64(3), cmd.Int64ValueOfNamed("count"))
	assert.True(t, cmd.BoolValueOfNamed("active"))

	// An explicit null exists but decodes to the zero value.
	assert.True(t, cmd.ParameterExists("note"))
	assert.Empty(t, cmd.StringValueOfNamed("note"))

	assert.False(t, cmd.ParameterExists("missing"))
	assert.Empty(t, cmd.StringValueOfNamed("missing"))
	assert.Zero(t, cmd.Int64ValueOfNamed("missing"))
}

func TestDecimalAccessorAcceptsNumberAndString(t *testing.T) {
	cmd := parseCommand(t, `{"principal":120.50,"rate":"7.25","bad":"x"}`)

	principal, err := cmd.DecimalValueOfNamed("principal")
	require.NoError(t, err)
	assert.True(t, principal.Equal(decimal.RequireFromString("120.50")))

	rate, err := cmd.DecimalValueOfNamed("rate")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("7.25")))

	_, err = cmd.DecimalValueOfNamed("bad")
	assert.Error(t, err)
	_, err = cmd.DecimalValueOfNamed("missing")
	assert.Error(t, err)
}

func TestDateAndLocaleParameters(t *testing.T) {
	cmd := parseCommand(t, `{"dateFormat":"02 January 2006","locale":"en-GB","submittedOnDate":"04 March 2024"}`)

	assert.Equal(t, "02 January 2006", cmd.DateFormat())

	tag, err := cmd.Locale()
	require.NoError(t, err)
	assert.Equal(t, language.BritishEnglish, tag)

	date, err := cmd.DateValueOfNamed("submittedOnDate")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), date)
}

func TestDateFormatDefaults(t *testing.T) {
	cmd := parseCommand(t, `{"submittedOnDate":"2024-03-04"}`)

	assert.Equal(t, command.DefaultDateFormat, cmd.DateFormat())

	tag, err := cmd.Locale()
	require.NoError(t, err)
	assert.Equal(t, language.Und, tag)

	date, err := cmd.DateValueOfNamed("submittedOnDate")
	require.NoError(t, err)
	assert.Equal(t, 2024, date.Year())
}

func TestMapValueOfNamed(t *testing.T) {
	cmd := parseCommand(t, `{"charges":{"fee":"10.00"}}`)

	m, err := cmd.MapValueOfNamed("charges")
	require.NoError(t, err)
	assert.Equal(t, "10.00", m["fee"])

	_, err = cmd.MapValueOfNamed("missing")
	assert.Error(t, err)
}

func TestChangeDetection(t *testing.T) {
	cmd := parseCommand(t, `{"name":"Alice","count":3,"principal":"120.50","garbled":"zz"}`)

	assert.True(t, cmd.IsChangeInStringParameterNamed("name", "Bob"))
	assert.False(t, cmd.IsChangeInStringParameterNamed("name", "Alice"))
	assert.False(t, cmd.IsChangeInStringParameterNamed("missing", "Bob"))

	assert.True(t, cmd.IsChangeInInt64ParameterNamed("count", 2))
	assert.False(t, cmd.IsChangeInInt64ParameterNamed("count", 3))

	assert.False(t, cmd.IsChangeInDecimalParameterNamed("principal", decimal.RequireFromString("120.5")))
	assert.True(t, cmd.IsChangeInDecimalParameterNamed("principal", decimal.RequireFromString("100")))
	// A malformed decimal counts as a change so validation sees it.
	assert.True(t, cmd.IsChangeInDecimalParameterNamed("garbled", decimal.Zero))
}

func TestFromExistingCommandCarriesID(t *testing.T) {
	w := command.Wrap("CREATE", "CLIENT", 0, 0)
	cmd, err := command.FromExistingCommand("cmd-9", w, json.RawMessage(`{"name":"Alice"}`), "key-1")
	require.NoError(t, err)

	assert.Equal(t, "cmd-9", cmd.CommandID())
	assert.Equal(t, "key-1", cmd.IdempotencyKey())
	assert.Equal(t, "Alice", cmd.StringValueOfNamed("name"))
}

package commandsource_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/commandsource"
)

func newTestRecord(t *testing.T, awaitingApproval bool) *commandsource.Record {
	t.Helper()

	wrapper := command.NewBuilder("CREATE", "CLIENT").
		WithOfficeID(7).
		WithJSON(json.RawMessage(`{"name":"Alice"}`)).
		Build()

	return commandsource.NewRecord("rec-1", wrapper, "default", "key-1", "maker-1", time.Now(), awaitingApproval)
}

func TestNewRecordStartsUnderProcessing(t *testing.T) {
	record := newTestRecord(t, false)

	assert.Equal(t, commandsource.StatusUnderProcessing, record.Status)
	assert.Equal(t, commandsource.ResultDirect, record.ProcessingResult)
	assert.Equal(t, "CREATE", record.ActionName)
	assert.Equal(t, "CLIENT", record.EntityName)
	assert.Equal(t, int64(7), record.OfficeID)
	assert.Equal(t, "key-1", record.IdempotencyKey)
	assert.Equal(t, "maker-1", record.MakerID)
	assert.False(t, record.IsTerminal())
}

func TestNewRecordAwaitingApproval(t *testing.T) {
	record := newTestRecord(t, true)

	assert.Equal(t, commandsource.ResultAwaitingApproval, record.ProcessingResult)
	assert.True(t, record.IsAwaitingApproval())

	// A parked entry never carries a result payload.
	err := record.MarkProcessed(json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Nil(t, record.ResultJSON)
}

func TestMarkProcessedIsTerminal(t *testing.T) {
	record := newTestRecord(t, false)

	require.NoError(t, record.MarkProcessed(json.RawMessage(`{"resourceId":42}`)))
	assert.Equal(t, commandsource.StatusProcessed, record.Status)
	assert.True(t, record.IsTerminal())

	assert.Error(t, record.MarkProcessed(json.RawMessage(`{}`)))
	assert.Error(t, record.MarkError(json.RawMessage(`{}`)))
}

func TestMarkErrorIsTerminal(t *testing.T) {
	record := newTestRecord(t, false)

	require.NoError(t, record.MarkError(json.RawMessage(`{"code":"boom"}`)))
	assert.Equal(t, commandsource.StatusError, record.Status)
	assert.True(t, record.IsTerminal())

	assert.Error(t, record.MarkProcessed(json.RawMessage(`{}`)))
}

func TestUpdateAuditCopiesResolvedIDs(t *testing.T) {
	record := newTestRecord(t, false)

	result := command.NewResultBuilder().
		WithResourceID(42).
		WithClientID(9).
		WithTransactionID("tx-1").
		Build()
	record.UpdateAudit(result)

	assert.Equal(t, int64(42), record.ResourceID)
	assert.Equal(t, int64(9), record.ClientID)
	assert.Equal(t, "tx-1", record.TransactionID)
	// Untouched linkage survives.
	assert.Equal(t, int64(7), record.OfficeID)
}

func TestWrapperRoundTrip(t *testing.T) {
	record := newTestRecord(t, false)

	wrapper := record.Wrapper()
	assert.Equal(t, "CREATE", wrapper.ActionName())
	assert.Equal(t, "CLIENT", wrapper.EntityName())
	assert.Equal(t, int64(7), wrapper.OfficeID())
	assert.Equal(t, "key-1", wrapper.IdempotencyKey())
	assert.JSONEq(t, `{"name":"Alice"}`, string(wrapper.JSON()))
}

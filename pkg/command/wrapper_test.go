package command_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plaenen/commandsource/pkg/command"
)

func TestWrap(t *testing.T) {
	w := command.Wrap("DELETE", "LOAN", 12, 3)

	assert.Equal(t, "DELETE", w.ActionName())
	assert.Equal(t, "LOAN", w.EntityName())
	assert.Equal(t, int64(12), w.EntityID())
	assert.Equal(t, int64(3), w.SubentityID())
	assert.Empty(t, w.IdempotencyKey())
}

func TestBuilderSetsAllFields(t *testing.T) {
	payload := json.RawMessage(`{"amount":"120.50"}`)
	w := command.NewBuilder("DISBURSE", "LOAN").
		WithEntityID(12).
		WithSubentityID(1).
		WithOfficeID(2).
		WithGroupID(3).
		WithClientID(4).
		WithLoanID(12).
		WithSavingsID(5).
		WithProductID(6).
		WithCreditBureauID(7).
		WithTransactionID("tx-9").
		WithJobName("EOD").
		WithHref("/loans/12/transactions").
		WithJSON(payload).
		WithIdempotencyKey("key-1").
		Build()

	assert.Equal(t, int64(12), w.EntityID())
	assert.Equal(t, int64(1), w.SubentityID())
	assert.Equal(t, int64(2), w.OfficeID())
	assert.Equal(t, int64(3), w.GroupID())
	assert.Equal(t, int64(4), w.ClientID())
	assert.Equal(t, int64(12), w.LoanID())
	assert.Equal(t, int64(5), w.SavingsID())
	assert.Equal(t, int64(6), w.ProductID())
	assert.Equal(t, int64(7), w.CreditBureauID())
	assert.Equal(t, "tx-9", w.TransactionID())
	assert.Equal(t, "EOD", w.JobName())
	assert.Equal(t, "/loans/12/transactions", w.Href())
	assert.Equal(t, payload, w.JSON())
	assert.Equal(t, "key-1", w.IdempotencyKey())
}

func TestPermissionAndCommandNames(t *testing.T) {
	w := command.Wrap("CREATE", "CLIENT", 0, 0)

	assert.Equal(t, "CREATE_CLIENT", w.TaskPermissionName())
	assert.Equal(t, "CREATE CLIENT", w.CommandName())
}

// Package commandsource holds the durable audit/idempotency record written for
// every resolved idempotency key, together with the service that owns its
// lifecycle. One record exists per (tenant, idempotency key); the uniqueness
// constraint behind that invariant is the core's sole concurrency-control
// primitive.
package commandsource

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/plaenen/commandsource/pkg/command"
)

// Status is the lifecycle status of a command source entry.
type Status string

const (
	StatusUnderProcessing Status = "UNDER_PROCESSING"
	StatusProcessed       Status = "PROCESSED"
	StatusError           Status = "ERROR"
)

// ProcessingResult tracks the maker-checker state of an entry.
type ProcessingResult string

const (
	ResultDirect           ProcessingResult = "DIRECT"
	ResultAwaitingApproval ProcessingResult = "AWAITING_APPROVAL"
	ResultApproved         ProcessingResult = "APPROVED"
	ResultRejected         ProcessingResult = "REJECTED"
)

// Record is one durable command source entry. Created UNDER_PROCESSING (or
// AWAITING_APPROVAL) at the start of an execution attempt and mutated exactly
// once more to its terminal state, either by the same attempt or by a later
// approve/reject.
type Record struct {
	ID       string
	TenantID string

	ActionName    string
	EntityName    string
	ResourceID    int64
	SubResourceID int64

	// Audit linkage copied from the wrapper, for audit querying.
	OfficeID       int64
	GroupID        int64
	ClientID       int64
	LoanID         int64
	SavingsID      int64
	ProductID      int64
	CreditBureauID int64
	TransactionID  string
	JobName        string
	Href           string

	CommandJSON    json.RawMessage
	IdempotencyKey string

	Status           Status
	ProcessingResult ProcessingResult
	ResultJSON       json.RawMessage
	ErrorJSON        json.RawMessage

	MakerID   string
	MadeOn    time.Time
	CheckerID string
	CheckedOn time.Time
}

// NewRecord builds the initial entry for one execution attempt.
// When awaitingApproval is set the entry is parked for a checker and the
// handler must not have run.
func NewRecord(id string, wrapper command.Wrapper, tenantID, idempotencyKey, makerID string, madeOn time.Time, awaitingApproval bool) *Record {
	processingResult := ResultDirect
	if awaitingApproval {
		processingResult = ResultAwaitingApproval
	}
	return &Record{
		ID:               id,
		TenantID:         tenantID,
		ActionName:       wrapper.ActionName(),
		EntityName:       wrapper.EntityName(),
		ResourceID:       wrapper.EntityID(),
		SubResourceID:    wrapper.SubentityID(),
		OfficeID:         wrapper.OfficeID(),
		GroupID:          wrapper.GroupID(),
		ClientID:         wrapper.ClientID(),
		LoanID:           wrapper.LoanID(),
		SavingsID:        wrapper.SavingsID(),
		ProductID:        wrapper.ProductID(),
		CreditBureauID:   wrapper.CreditBureauID(),
		TransactionID:    wrapper.TransactionID(),
		JobName:          wrapper.JobName(),
		Href:             wrapper.Href(),
		CommandJSON:      wrapper.JSON(),
		IdempotencyKey:   idempotencyKey,
		Status:           StatusUnderProcessing,
		ProcessingResult: processingResult,
		MakerID:          makerID,
		MadeOn:           madeOn,
	}
}

// Wrapper reconstructs the command descriptor stored on this entry, used by
// the approval replay path.
func (r *Record) Wrapper() command.Wrapper {
	return command.NewBuilder(r.ActionName, r.EntityName).
		WithEntityID(r.ResourceID).
		WithSubentityID(r.SubResourceID).
		WithOfficeID(r.OfficeID).
		WithGroupID(r.GroupID).
		WithClientID(r.ClientID).
		WithLoanID(r.LoanID).
		WithSavingsID(r.SavingsID).
		WithProductID(r.ProductID).
		WithCreditBureauID(r.CreditBureauID).
		WithTransactionID(r.TransactionID).
		WithJobName(r.JobName).
		WithHref(r.Href).
		WithJSON(r.CommandJSON).
		WithIdempotencyKey(r.IdempotencyKey).
		Build()
}

// IsTerminal reports whether the entry reached a state it can never leave.
func (r *Record) IsTerminal() bool {
	return r.Status == StatusProcessed || r.Status == StatusError || r.ProcessingResult == ResultRejected
}

// IsAwaitingApproval reports whether the entry is parked for a checker.
func (r *Record) IsAwaitingApproval() bool {
	return r.ProcessingResult == ResultAwaitingApproval
}

// UpdateAudit copies the linkage ids a handler resolved during execution back
// onto the entry, so the audit trail reflects what was actually touched.
func (r *Record) UpdateAudit(result *command.Result) {
	if result == nil {
		return
	}
	if result.ResourceID != 0 {
		r.ResourceID = result.ResourceID
	}
	if result.SubResourceID != 0 {
		r.SubResourceID = result.SubResourceID
	}
	if result.OfficeID != 0 {
		r.OfficeID = result.OfficeID
	}
	if result.GroupID != 0 {
		r.GroupID = result.GroupID
	}
	if result.ClientID != 0 {
		r.ClientID = result.ClientID
	}
	if result.LoanID != 0 {
		r.LoanID = result.LoanID
	}
	if result.SavingsID != 0 {
		r.SavingsID = result.SavingsID
	}
	if result.ProductID != 0 {
		r.ProductID = result.ProductID
	}
	if result.TransactionID != "" {
		r.TransactionID = result.TransactionID
	}
}

// MarkProcessed transitions the entry to its successful terminal state.
func (r *Record) MarkProcessed(resultJSON json.RawMessage) error {
	if r.IsTerminal() {
		return fmt.Errorf("command source entry %s is already terminal (%s/%s)", r.ID, r.Status, r.ProcessingResult)
	}
	if r.ProcessingResult == ResultAwaitingApproval {
		return fmt.Errorf("command source entry %s is awaiting approval and cannot carry a result", r.ID)
	}
	r.Status = StatusProcessed
	r.ResultJSON = resultJSON
	return nil
}

// MarkError transitions the entry to its failed terminal state.
func (r *Record) MarkError(errorJSON json.RawMessage) error {
	if r.IsTerminal() {
		return fmt.Errorf("command source entry %s is already terminal (%s/%s)", r.ID, r.Status, r.ProcessingResult)
	}
	r.Status = StatusError
	r.ErrorJSON = errorJSON
	return nil
}

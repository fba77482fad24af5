package command

// Result is the outcome of processing one command, returned to the caller and
// serialized onto the command source entry for replay of duplicate submissions.
type Result struct {
	// CommandID is the id of the command source entry backing this execution.
	CommandID string `json:"commandId,omitempty"`

	// ResourceID is the id of the resource produced or affected.
	ResourceID int64 `json:"resourceId,omitempty"`

	// SubResourceID is the id of the sub-resource affected, if any.
	SubResourceID int64 `json:"subResourceId,omitempty"`

	// Audit linkage copied onto the command source entry.
	OfficeID      int64  `json:"officeId,omitempty"`
	GroupID       int64  `json:"groupId,omitempty"`
	ClientID      int64  `json:"clientId,omitempty"`
	LoanID        int64  `json:"loanId,omitempty"`
	SavingsID     int64  `json:"savingsId,omitempty"`
	ProductID     int64  `json:"productId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`

	// Changes maps changed parameter names to their new values (possibly empty).
	Changes map[string]any `json:"changes,omitempty"`

	// RollbackTransaction signals that the business transaction succeeded
	// logically but must not be committed, e.g. a dry-run validation pass.
	RollbackTransaction bool `json:"rollbackTransaction,omitempty"`

	// FromCache marks a result served from a previously processed entry
	// instead of a fresh handler invocation. Never persisted.
	FromCache bool `json:"-"`
}

// HasChanges reports whether the handler produced a non-empty diff.
func (r *Result) HasChanges() bool {
	return len(r.Changes) > 0
}

// ResultBuilder assembles a Result.
type ResultBuilder struct {
	r Result
}

// NewResultBuilder starts an empty result.
func NewResultBuilder() *ResultBuilder {
	return &ResultBuilder{}
}

func (b *ResultBuilder) WithCommandID(id string) *ResultBuilder { b.r.CommandID = id; return b }
func (b *ResultBuilder) WithResourceID(id int64) *ResultBuilder { b.r.ResourceID = id; return b }
func (b *ResultBuilder) WithSubResourceID(id int64) *ResultBuilder { b.r.SubResourceID = id; return b }
func (b *ResultBuilder) WithOfficeID(id int64) *ResultBuilder { b.r.OfficeID = id; return b }
func (b *ResultBuilder) WithGroupID(id int64) *ResultBuilder { b.r.GroupID = id; return b }
func (b *ResultBuilder) WithClientID(id int64) *ResultBuilder { b.r.ClientID = id; return b }
func (b *ResultBuilder) WithLoanID(id int64) *ResultBuilder { b.r.LoanID = id; return b }
func (b *ResultBuilder) WithSavingsID(id int64) *ResultBuilder { b.r.SavingsID = id; return b }
func (b *ResultBuilder) WithProductID(id int64) *ResultBuilder { b.r.ProductID = id; return b }

func (b *ResultBuilder) WithTransactionID(id string) *ResultBuilder {
	b.r.TransactionID = id
	return b
}

func (b *ResultBuilder) WithChanges(changes map[string]any) *ResultBuilder {
	b.r.Changes = changes
	return b
}

func (b *ResultBuilder) WithRollbackTransaction(rollback bool) *ResultBuilder {
	b.r.RollbackTransaction = rollback
	return b
}

// Build returns the assembled result.
func (b *ResultBuilder) Build() *Result {
	r := b.r
	return &r
}

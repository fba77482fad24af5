package command

import "encoding/json"

// Wrapper is an immutable description of an intended administrative action,
// captured before the payload is parsed. It identifies the action and target
// entity together with the audit linkage ids copied onto the command source
// record, the raw payload, and an optional caller-supplied idempotency key.
//
// A Wrapper is constructed through Builder; numeric ids use zero as "not set".
type Wrapper struct {
	actionName     string
	entityName     string
	entityID       int64
	subentityID    int64
	officeID       int64
	groupID        int64
	clientID       int64
	loanID         int64
	savingsID      int64
	productID      int64
	creditBureauID int64
	transactionID  string
	jobName        string
	href           string
	json           json.RawMessage
	idempotencyKey string
}

// Wrap creates a minimal wrapper for an action on a resource.
func Wrap(actionName, entityName string, entityID, subentityID int64) Wrapper {
	return Wrapper{
		actionName:  actionName,
		entityName:  entityName,
		entityID:    entityID,
		subentityID: subentityID,
	}
}

func (w Wrapper) ActionName() string { return w.actionName }
func (w Wrapper) EntityName() string { return w.entityName }
func (w Wrapper) EntityID() int64 { return w.entityID }
func (w Wrapper) SubentityID() int64 { return w.subentityID }
func (w Wrapper) OfficeID() int64 { return w.officeID }
func (w Wrapper) GroupID() int64 { return w.groupID }
func (w Wrapper) ClientID() int64 { return w.clientID }
func (w Wrapper) LoanID() int64 { return w.loanID }
func (w Wrapper) SavingsID() int64 { return w.savingsID }
func (w Wrapper) ProductID() int64 { return w.productID }
func (w Wrapper) CreditBureauID() int64 { return w.creditBureauID }
func (w Wrapper) TransactionID() string { return w.transactionID }
func (w Wrapper) JobName() string { return w.jobName }
func (w Wrapper) Href() string { return w.href }
func (w Wrapper) JSON() json.RawMessage { return w.json }
func (w Wrapper) IdempotencyKey() string { return w.idempotencyKey }

// TaskPermissionName is the permission consulted for this command,
// e.g. "CREATE_CLIENT" for action CREATE on entity CLIENT.
func (w Wrapper) TaskPermissionName() string {
	return w.actionName + "_" + w.entityName
}

// CommandName identifies the command for error reporting.
func (w Wrapper) CommandName() string {
	return w.actionName + " " + w.entityName
}

// Builder assembles a Wrapper. Only the action and entity name are required;
// every linkage id is optional and domain specific.
type Builder struct {
	w Wrapper
}

// NewBuilder starts a wrapper for the given action and entity.
func NewBuilder(actionName, entityName string) *Builder {
	return &Builder{w: Wrapper{actionName: actionName, entityName: entityName}}
}

func (b *Builder) WithEntityID(id int64) *Builder { b.w.entityID = id; return b }
func (b *Builder) WithSubentityID(id int64) *Builder { b.w.subentityID = id; return b }
func (b *Builder) WithOfficeID(id int64) *Builder { b.w.officeID = id; return b }
func (b *Builder) WithGroupID(id int64) *Builder { b.w.groupID = id; return b }
func (b *Builder) WithClientID(id int64) *Builder { b.w.clientID = id; return b }
func (b *Builder) WithLoanID(id int64) *Builder { b.w.loanID = id; return b }
func (b *Builder) WithSavingsID(id int64) *Builder { b.w.savingsID = id; return b }
func (b *Builder) WithProductID(id int64) *Builder { b.w.productID = id; return b }
func (b *Builder) WithCreditBureauID(id int64) *Builder { b.w.creditBureauID = id; return b }
func (b *Builder) WithTransactionID(id string) *Builder { b.w.transactionID = id; return b }
func (b *Builder) WithJobName(name string) *Builder { b.w.jobName = name; return b }
func (b *Builder) WithHref(href string) *Builder { b.w.href = href; return b }

// WithJSON attaches the raw serialized payload.
func (b *Builder) WithJSON(payload json.RawMessage) *Builder {
	b.w.json = payload
	return b
}

// WithIdempotencyKey sets an explicit caller-supplied idempotency key.
func (b *Builder) WithIdempotencyKey(key string) *Builder {
	b.w.idempotencyKey = key
	return b
}

// Build returns the immutable wrapper.
func (b *Builder) Build() Wrapper {
	return b.w
}

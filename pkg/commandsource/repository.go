package commandsource

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrDuplicateKey is returned by Insert when another entry already holds the
// (tenant, idempotency key) pair. Callers re-read the winner and apply the
// replay rules to it.
var ErrDuplicateKey = errors.New("command source entry already exists for idempotency key")

// Repository is the persistence port for command source entries.
//
// The conditional mutations (ClaimForApproval, MarkRejected, DeletePending)
// report via their bool whether this caller won the transition. Exactly one
// concurrent caller observes true; that is the serialization point for
// checker actions on a pending entry.
type Repository interface {
	// Insert persists a fresh entry, failing with ErrDuplicateKey when the
	// (tenant, idempotency key) pair is already taken.
	Insert(ctx context.Context, record *Record) error

	// Update persists the mutable fields of an existing entry.
	Update(ctx context.Context, record *Record) error

	// FindByID returns the entry with the given surrogate id, or
	// command.ErrNotFound.
	FindByID(ctx context.Context, tenantID, id string) (*Record, error)

	// FindByKey returns the entry holding the idempotency key, or
	// command.ErrNotFound.
	FindByKey(ctx context.Context, tenantID, idempotencyKey string) (*Record, error)

	// ClaimForApproval atomically moves an entry from AWAITING_APPROVAL to
	// APPROVED and stamps the checker.
	ClaimForApproval(ctx context.Context, tenantID, id, checkerID string, checkedOn time.Time) (bool, error)

	// MarkRejected atomically moves an entry from AWAITING_APPROVAL to its
	// rejected terminal state, storing the rejection as the entry's error so
	// duplicates replay it.
	MarkRejected(ctx context.Context, tenantID, id, checkerID string, checkedOn time.Time, errorJSON json.RawMessage) (bool, error)

	// DeletePending removes an entry that is still AWAITING_APPROVAL,
	// releasing its idempotency key.
	DeletePending(ctx context.Context, tenantID, id string) (bool, error)

	// FindAwaitingApproval lists the entries parked for a checker, oldest
	// first.
	FindAwaitingApproval(ctx context.Context, tenantID string) ([]*Record, error)
}

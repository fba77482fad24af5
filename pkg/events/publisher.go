// Package events announces successfully processed commands to interested
// consumers. Publishing happens after the audit entry reached PROCESSED;
// replayed duplicates never publish again.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// CommandEvent describes one successfully processed command.
type CommandEvent struct {
	CommandID   string          `json:"commandId"`
	TenantID    string          `json:"tenantId"`
	EntityName  string          `json:"entityName"`
	ActionName  string          `json:"actionName"`
	ResourceID  int64           `json:"resourceId,omitempty"`
	ProcessedAt time.Time       `json:"processedAt"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Publisher announces processed commands.
type Publisher interface {
	Publish(ctx context.Context, event CommandEvent) error
}

// NoopPublisher discards events. Default when no broker is wired.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(ctx context.Context, event CommandEvent) error {
	return nil
}

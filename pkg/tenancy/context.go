// Package tenancy carries per-request ambient state (the tenant identifier and
// the idempotency-key stash) as explicit context values. There is no
// process-wide mutable state; every sub-call sees exactly what its caller put
// on the context.
package tenancy

import (
	"context"
	"fmt"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	tenantIDKey       contextKey = "tenant_id"
	idempotencyKeyKey contextKey = "idempotency_key"
)

// DefaultTenantID is used when a deployment runs single-tenant.
const DefaultTenantID = "default"

// WithTenantID adds a tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantID retrieves the tenant ID from the context
func TenantID(ctx context.Context) (string, error) {
	tenantID, ok := ctx.Value(tenantIDKey).(string)
	if !ok || tenantID == "" {
		return "", fmt.Errorf("tenant ID not found in context")
	}
	return tenantID, nil
}

// TenantIDOrDefault retrieves the tenant ID, falling back to DefaultTenantID.
func TenantIDOrDefault(ctx context.Context) string {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return DefaultTenantID
	}
	return tenantID
}

// WithIdempotencyKey stashes an idempotency key on the context. Batch
// processing uses this so every sub-request of one outer request resolves to
// the same key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyKey, key)
}

// IdempotencyKey retrieves the stashed idempotency key, if any.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyKey).(string)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

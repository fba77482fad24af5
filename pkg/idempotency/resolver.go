// Package idempotency derives the single stable key under which one logical
// command submission is deduplicated.
package idempotency

import (
	"context"

	"github.com/google/uuid"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/tenancy"
)

// Generator produces a fresh universally unique key.
type Generator func() string

// Resolver resolves the idempotency key for a command descriptor.
//
// Precedence, first match wins: the key stashed on the ambient request context,
// the key set explicitly on the wrapper, a freshly generated key. Within one
// logical request every sub-step referencing the same wrapper therefore sees
// the same key.
type Resolver struct {
	generate Generator
}

// NewResolver creates a resolver generating v4 UUIDs for fresh keys.
func NewResolver() *Resolver {
	return &Resolver{generate: uuid.NewString}
}

// NewResolverWithGenerator creates a resolver with a custom key generator.
func NewResolverWithGenerator(generate Generator) *Resolver {
	return &Resolver{generate: generate}
}

// Resolve returns the idempotency key for the wrapper.
func (r *Resolver) Resolve(ctx context.Context, wrapper command.Wrapper) string {
	if key, ok := tenancy.IdempotencyKey(ctx); ok {
		return key
	}
	if key := wrapper.IdempotencyKey(); key != "" {
		return key
	}
	return r.generate()
}

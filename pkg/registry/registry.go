// Package registry maps (entity, action) pairs to the business handlers that
// execute them. Population happens once at process start; lookup is a map
// access with a typed "unsupported command" failure on a miss.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/plaenen/commandsource/pkg/command"
)

// Handler executes the business logic for one (entity, action) pair.
// Implementations live outside the core, per business domain.
type Handler interface {
	// Process performs the command's side effect and returns its result.
	Process(ctx context.Context, cmd *command.JSONCommand) (*command.Result, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, cmd *command.JSONCommand) (*command.Result, error)

// Process implements Handler.
func (f HandlerFunc) Process(ctx context.Context, cmd *command.JSONCommand) (*command.Result, error) {
	return f(ctx, cmd)
}

type handlerKey struct {
	entityName string
	actionName string
}

// Registry is an in-memory handler registry.
type Registry struct {
	handlers map[handlerKey]Handler
	mu       sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[handlerKey]Handler)}
}

// Register registers a handler for an (entity, action) pair.
// Registering the same pair twice is a programming error.
func (r *Registry) Register(entityName, actionName string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := handlerKey{entityName: entityName, actionName: actionName}
	if _, exists := r.handlers[key]; exists {
		panic(fmt.Sprintf("handler already registered for %s %s", actionName, entityName))
	}

	r.handlers[key] = handler
}

// Handler returns the handler for a wrapper's (entity, action) pair.
// A miss is an unsupported command, not a crash.
func (r *Registry) Handler(wrapper command.Wrapper) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := handlerKey{entityName: wrapper.EntityName(), actionName: wrapper.ActionName()}
	handler, exists := r.handlers[key]
	if !exists {
		return nil, &command.UnsupportedCommandError{CommandName: wrapper.CommandName()}
	}
	return handler, nil
}

// RegisteredCommands returns the sorted "ACTION ENTITY" names known to the
// registry (for diagnostics).
func (r *Registry) RegisteredCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		names = append(names, key.actionName+" "+key.entityName)
	}
	sort.Strings(names)
	return names
}

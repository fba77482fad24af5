// Package makerchecker decides whether a command must pause for four-eyes
// approval before its handler runs.
package makerchecker

import (
	"context"
	"sync"

	"github.com/plaenen/commandsource/pkg/command"
)

// Policy gates commands behind checker approval.
type Policy interface {
	// RequiresApproval reports whether the command must be parked for a
	// checker instead of executing directly.
	RequiresApproval(ctx context.Context, wrapper command.Wrapper) bool
}

// PolicyFunc is a function adapter for Policy.
type PolicyFunc func(ctx context.Context, wrapper command.Wrapper) bool

// RequiresApproval implements Policy.
func (f PolicyFunc) RequiresApproval(ctx context.Context, wrapper command.Wrapper) bool {
	return f(ctx, wrapper)
}

// Never approves nothing; every command executes directly.
func Never() Policy {
	return PolicyFunc(func(context.Context, command.Wrapper) bool { return false })
}

// ConfigPolicy gates commands by task permission name. With the global flag
// set, every configured task requires approval; individual tasks can also be
// enabled one by one.
type ConfigPolicy struct {
	global bool
	tasks  map[string]struct{}
	mu     sync.RWMutex
}

// NewConfigPolicy creates a policy. When global is set, all tasks later added
// through RequireTask still narrow nothing; the flag alone gates everything.
func NewConfigPolicy(global bool) *ConfigPolicy {
	return &ConfigPolicy{global: global, tasks: make(map[string]struct{})}
}

// RequireTask marks one task permission (e.g. "CREATE_CLIENT") as gated.
func (p *ConfigPolicy) RequireTask(taskPermission string) *ConfigPolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[taskPermission] = struct{}{}
	return p
}

// RequiresApproval implements Policy.
func (p *ConfigPolicy) RequiresApproval(ctx context.Context, wrapper command.Wrapper) bool {
	if p.global {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, gated := p.tasks[wrapper.TaskPermissionName()]
	return gated
}

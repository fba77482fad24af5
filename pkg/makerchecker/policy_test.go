package makerchecker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/makerchecker"
)

func TestNeverPolicy(t *testing.T) {
	policy := makerchecker.Never()
	assert.False(t, policy.RequiresApproval(context.Background(), command.Wrap("CREATE", "CLIENT", 0, 0)))
}

func TestConfigPolicyGlobal(t *testing.T) {
	policy := makerchecker.NewConfigPolicy(true)
	assert.True(t, policy.RequiresApproval(context.Background(), command.Wrap("CREATE", "CLIENT", 0, 0)))
	assert.True(t, policy.RequiresApproval(context.Background(), command.Wrap("DELETE", "LOAN", 1, 0)))
}

func TestConfigPolicyPerTask(t *testing.T) {
	policy := makerchecker.NewConfigPolicy(false).RequireTask("CREATE_CLIENT")

	assert.True(t, policy.RequiresApproval(context.Background(), command.Wrap("CREATE", "CLIENT", 0, 0)))
	assert.False(t, policy.RequiresApproval(context.Background(), command.Wrap("UPDATE", "CLIENT", 1, 0)))
}

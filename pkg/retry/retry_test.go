package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/retry"
)

func TestRunSucceedsFirstAttempt(t *testing.T) {
	runner := retry.NewRunner()

	calls := 0
	err := runner.Run(context.Background(), "CREATE CLIENT", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	var retries []int
	runner := retry.NewRunner(
		retry.WithListener(func(ctx context.Context, operation string, attempt int, err error) {
			retries = append(retries, attempt)
		}),
	)

	calls := 0
	err := runner.Run(context.Background(), "CREATE CLIENT", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("handler: %w", command.ErrOptimisticLock)
	})

	// Three attempts, two retry notifications, original error surfaces.
	require.ErrorIs(t, err, command.ErrOptimisticLock)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRunRecoversMidway(t *testing.T) {
	var retries []int
	runner := retry.NewRunner(
		retry.WithListener(func(ctx context.Context, operation string, attempt int, err error) {
			retries = append(retries, attempt)
		}),
	)

	calls := 0
	err := runner.Run(context.Background(), "CREATE CLIENT", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return command.ErrLockContention
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1}, retries)
}

func TestRunNeverRetriesDeterministicFailures(t *testing.T) {
	runner := retry.NewRunner()

	calls := 0
	wantErr := errors.New("boom")
	err := runner.Run(context.Background(), "CREATE CLIENT", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestRunHonorsPerOperationPolicy(t *testing.T) {
	runner := retry.NewRunner(
		retry.WithPolicy("APPROVE CLIENT", retry.Policy{MaxAttempts: 1}),
	)

	calls := 0
	err := runner.Run(context.Background(), "APPROVE CLIENT", func(ctx context.Context) error {
		calls++
		return command.ErrLockContention
	})
	require.ErrorIs(t, err, command.ErrLockContention)
	assert.Equal(t, 1, calls)
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	runner := retry.NewRunner(
		retry.WithDefaultPolicy(retry.Policy{MaxAttempts: 5, Backoff: 50 * time.Millisecond}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := runner.Run(ctx, "CREATE CLIENT", func(ctx context.Context) error {
		calls++
		cancel()
		return command.ErrLockContention
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, retry.IsTransient(command.ErrLockContention))
	assert.True(t, retry.IsTransient(command.ErrOptimisticLock))
	assert.True(t, retry.IsTransient(command.ErrRollbackNotApproved))
	assert.False(t, retry.IsTransient(command.ErrValidation))
	assert.False(t, retry.IsTransient(errors.New("boom")))
}

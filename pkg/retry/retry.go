// Package retry re-runs operations that failed with a transient,
// concurrency-induced error. Policies are explicit and injected; nothing here
// inspects annotations or global state.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plaenen/commandsource/pkg/command"
)

// Policy bounds the retries of one operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration

	// Retryable classifies whether a failure may be retried. Nil means
	// IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy allows two retries after the first attempt, with no delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: 0}
}

// IsTransient reports whether the error is one of the transient concurrency
// failures worth retrying. Validation and authorization failures are
// deterministic and never retried.
func IsTransient(err error) bool {
	return errors.Is(err, command.ErrLockContention) ||
		errors.Is(err, command.ErrOptimisticLock) ||
		errors.Is(err, command.ErrRollbackNotApproved)
}

// Listener observes retry scheduling. attempt is the attempt that just
// failed, starting at 1.
type Listener func(ctx context.Context, operation string, attempt int, err error)

// Runner executes operations under named retry policies.
type Runner struct {
	policies map[string]Policy
	fallback Policy
	onRetry  Listener
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPolicy sets the policy for one named operation.
func WithPolicy(operation string, policy Policy) RunnerOption {
	return func(r *Runner) { r.policies[operation] = policy }
}

// WithDefaultPolicy sets the fallback policy for operations without their own.
func WithDefaultPolicy(policy Policy) RunnerOption {
	return func(r *Runner) { r.fallback = policy }
}

// WithListener registers an observer for retry scheduling.
func WithListener(listener Listener) RunnerOption {
	return func(r *Runner) { r.onRetry = listener }
}

// WithLogger sets the logger for retry warnings.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner with the default policy as fallback.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		policies: make(map[string]Policy),
		fallback: DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PolicyFor returns the policy governing the named operation.
func (r *Runner) PolicyFor(operation string) Policy {
	if policy, ok := r.policies[operation]; ok {
		return policy
	}
	return r.fallback
}

// Run executes fn under the policy for the named operation. A transient
// failure is retried up to the attempt budget; the final error is returned
// unchanged. Context cancellation stops further attempts.
func (r *Runner) Run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	policy := r.PolicyFor(operation)
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts || !retryable(err) {
			return err
		}

		r.logger.WarnContext(ctx, "retrying operation",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if r.onRetry != nil {
			r.onRetry(ctx, operation, attempt, err)
		}

		if policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.Backoff):
			}
		}
	}
}

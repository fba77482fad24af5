// Package processor wires the command pipeline together: key resolution,
// replay of stored outcomes, authentication, the maker-checker gate, the
// durable checkpoint, bounded retries around the handler and the terminal
// audit write.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/commandsource"
	"github.com/plaenen/commandsource/pkg/events"
	"github.com/plaenen/commandsource/pkg/idempotency"
	"github.com/plaenen/commandsource/pkg/makerchecker"
	"github.com/plaenen/commandsource/pkg/observability"
	"github.com/plaenen/commandsource/pkg/registry"
	"github.com/plaenen/commandsource/pkg/retry"
	"github.com/plaenen/commandsource/pkg/security"
	"github.com/plaenen/commandsource/pkg/tenancy"
	"github.com/plaenen/commandsource/pkg/validators"
)

// Processor executes commands with exactly-once effect per idempotency key.
type Processor struct {
	resolver  *idempotency.Resolver
	service   *commandsource.Service
	registry  *registry.Registry
	retries   *retry.Runner
	security  security.Context
	approvals makerchecker.Policy
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Processor.
type Option func(*Processor)

// WithResolver overrides the idempotency key resolver.
func WithResolver(resolver *idempotency.Resolver) Option {
	return func(p *Processor) { p.resolver = resolver }
}

// WithRetryRunner overrides the retry runner. A custom runner carries its own
// listener; retry metrics are only wired on the default one.
func WithRetryRunner(runner *retry.Runner) Option {
	return func(p *Processor) { p.retries = runner }
}

// WithSecurityContext sets the authentication and permission layer.
func WithSecurityContext(sc security.Context) Option {
	return func(p *Processor) { p.security = sc }
}

// WithApprovalPolicy sets the maker-checker gate.
func WithApprovalPolicy(policy makerchecker.Policy) Option {
	return func(p *Processor) { p.approvals = policy }
}

// WithPublisher sets the processed-command event publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(p *Processor) { p.publisher = publisher }
}

// WithMetrics sets the metric instruments.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) { p.tracer = tracer }
}

// New creates a Processor over the audit service and handler registry.
// Defaults: fresh UUID keys, no approval gate, pass-through security, no
// event publishing, noop metrics.
func New(service *commandsource.Service, reg *registry.Registry, opts ...Option) *Processor {
	p := &Processor{
		service:   service,
		registry:  reg,
		security:  security.SystemContext{},
		approvals: makerchecker.Never(),
		publisher: events.NoopPublisher{},
		metrics:   observability.NewNoopMetrics(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("commandsource"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = idempotency.NewResolver()
	}
	if p.retries == nil {
		p.retries = retry.NewRunner(
			retry.WithLogger(p.logger),
			retry.WithListener(func(ctx context.Context, operation string, attempt int, err error) {
				p.metrics.RecordRetry(ctx, operation, attempt)
			}),
		)
	}
	return p
}

// Execute runs one command submission end to end.
//
// A duplicate submission under an already-settled idempotency key observes
// the stored outcome without the handler running; a duplicate racing an
// in-flight original fails with ErrUnderProcessing.
func (p *Processor) Execute(ctx context.Context, wrapper command.Wrapper) (*command.Result, error) {
	commandName := wrapper.CommandName()
	ctx, span := p.tracer.Start(ctx, "commandsource.execute",
		trace.WithAttributes(
			attribute.String("command.action", wrapper.ActionName()),
			attribute.String("command.entity", wrapper.EntityName()),
		),
	)
	defer span.End()

	started := time.Now()
	result, err := p.execute(ctx, wrapper)
	if err != nil {
		span.RecordError(err)
	}
	if result == nil || !result.FromCache {
		p.metrics.RecordCommand(ctx, commandName, time.Since(started), err)
	}
	return result, err
}

func (p *Processor) execute(ctx context.Context, wrapper command.Wrapper) (*command.Result, error) {
	tenantID := tenancy.TenantIDOrDefault(ctx)
	idempotencyKey := p.resolver.Resolve(ctx, wrapper)

	existing, err := p.service.FindExisting(ctx, tenantID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return p.replay(ctx, existing)
	}

	actor, err := p.security.Authenticate(ctx, wrapper)
	if err != nil {
		return nil, err
	}

	awaitingApproval := p.approvals.RequiresApproval(ctx, wrapper)
	record, err := p.service.SaveInitial(ctx, wrapper, tenantID, idempotencyKey, actor.ID, awaitingApproval)
	if errors.Is(err, commandsource.ErrDuplicateKey) {
		// Lost the insert race; the winner's entry decides the outcome.
		winner, findErr := p.service.FindExisting(ctx, tenantID, idempotencyKey)
		if findErr != nil {
			return nil, findErr
		}
		if winner == nil {
			return nil, &command.UnderProcessingError{IdempotencyKey: idempotencyKey}
		}
		return p.replay(ctx, winner)
	}
	if err != nil {
		return nil, err
	}

	if awaitingApproval {
		p.metrics.RecordParked(ctx, wrapper.CommandName())
		p.logger.InfoContext(ctx, "command parked for approval",
			slog.String("command", wrapper.CommandName()),
			slog.String("command_id", record.ID),
		)
		return command.NewResultBuilder().
			WithCommandID(record.ID).
			WithRollbackTransaction(true).
			Build(), nil
	}

	return p.runHandler(ctx, record, wrapper, false)
}

// replay serves a duplicate submission from the stored entry.
func (p *Processor) replay(ctx context.Context, record *commandsource.Record) (*command.Result, error) {
	commandName := record.ActionName + " " + record.EntityName

	switch {
	case record.Status == commandsource.StatusProcessed:
		var result command.Result
		if len(record.ResultJSON) > 0 {
			if err := json.Unmarshal(record.ResultJSON, &result); err != nil {
				return nil, fmt.Errorf("unmarshal stored result for entry %s: %w", record.ID, err)
			}
		}
		result.CommandID = record.ID
		result.FromCache = true
		p.metrics.RecordReplay(ctx, commandName, string(record.Status))
		return &result, nil

	case record.Status == commandsource.StatusError:
		info, err := commandsource.UnmarshalErrorInfo(record.ErrorJSON)
		if err != nil {
			return nil, fmt.Errorf("unmarshal stored error for entry %s: %w", record.ID, err)
		}
		p.metrics.RecordReplay(ctx, commandName, string(record.Status))
		return nil, &commandsource.ReplayedError{IdempotencyKey: record.IdempotencyKey, Info: info}

	default:
		// UNDER_PROCESSING, including entries parked for approval. The
		// original submission owns the key until it settles.
		p.metrics.RecordConflict(ctx, commandName)
		return nil, &command.UnderProcessingError{IdempotencyKey: record.IdempotencyKey}
	}
}

// runHandler executes the registered handler under the retry policy and
// settles the entry. approved marks the checker-approved replay of a parked
// entry: the parsed command then carries the audit entry id, and a
// not-yet-approved rollback from the handler commits instead of parking the
// entry a second time.
func (p *Processor) runHandler(ctx context.Context, record *commandsource.Record, wrapper command.Wrapper, approved bool) (*command.Result, error) {
	handler, err := p.registry.Handler(wrapper)
	if err != nil {
		return nil, p.settleError(ctx, record, err)
	}

	var jsonCommand *command.JSONCommand
	if approved {
		jsonCommand, err = command.FromExistingCommand(record.ID, wrapper, record.CommandJSON, record.IdempotencyKey)
	} else {
		jsonCommand, err = command.NewJSONCommand(wrapper, record.CommandJSON, record.IdempotencyKey)
	}
	if err != nil {
		return nil, p.settleError(ctx, record, command.NewValidationError(
			validators.NewValidationResult(false, "payload",
				validators.WithMessage(err.Error()),
				validators.WithValidationCode(validators.ValidationCodeInvalid),
			),
		))
	}

	var result *command.Result
	runErr := p.retries.Run(ctx, wrapper.CommandName(), func(ctx context.Context) error {
		var handlerErr error
		result, handlerErr = handler.Process(ctx, jsonCommand)
		return handlerErr
	})
	switch {
	case runErr == nil:
	case errors.Is(runErr, command.ErrRollbackNotApproved) && !approved:
		// The handler rolled back because the command still needs a
		// checker; park the entry instead of failing it.
		if saveErr := p.service.SaveAwaitingApproval(ctx, record); saveErr != nil {
			return nil, saveErr
		}
		p.metrics.RecordParked(ctx, wrapper.CommandName())
		return command.NewResultBuilder().
			WithCommandID(record.ID).
			WithRollbackTransaction(true).
			Build(), nil
	case errors.Is(runErr, command.ErrRollbackNotApproved):
		// A checker already approved this entry; the rollback condition no
		// longer applies and the outcome commits.
		if result != nil {
			result.RollbackTransaction = false
		}
	default:
		return nil, p.settleError(ctx, record, runErr)
	}

	if result == nil {
		result = command.NewResultBuilder().Build()
	}
	result.CommandID = record.ID
	if err := p.service.SaveProcessed(ctx, record, result); err != nil {
		return nil, err
	}
	p.publishProcessed(ctx, record, result)
	return result, nil
}

// settleError persists the failure as the entry's terminal state and returns
// the original error.
func (p *Processor) settleError(ctx context.Context, record *commandsource.Record, cause error) error {
	info, err := p.service.SaveError(ctx, record, cause)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to persist command failure",
			slog.String("command_id", record.ID),
			slog.String("error", err.Error()),
		)
		return cause
	}
	p.logger.WarnContext(ctx, "command failed",
		slog.String("command_id", record.ID),
		slog.String("code", info.Code),
		slog.String("error", cause.Error()),
	)
	return cause
}

func (p *Processor) publishProcessed(ctx context.Context, record *commandsource.Record, result *command.Result) {
	if result.RollbackTransaction {
		return
	}
	event := events.CommandEvent{
		CommandID:   record.ID,
		TenantID:    record.TenantID,
		EntityName:  record.EntityName,
		ActionName:  record.ActionName,
		ResourceID:  result.ResourceID,
		ProcessedAt: p.service.Now(),
		Result:      record.ResultJSON,
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		// Publishing is best effort; the audit entry is already settled.
		p.logger.ErrorContext(ctx, "failed to publish command event",
			slog.String("command_id", record.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Approve claims a pending entry for the calling checker and runs its handler.
func (p *Processor) Approve(ctx context.Context, entryID string) (*command.Result, error) {
	tenantID := tenancy.TenantIDOrDefault(ctx)
	ctx, span := p.tracer.Start(ctx, "commandsource.approve",
		trace.WithAttributes(attribute.String("command.id", entryID)),
	)
	defer span.End()

	record, err := p.service.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	wrapper := record.Wrapper()

	checker, err := p.security.AuthenticateChecker(ctx, wrapper)
	if err != nil {
		return nil, err
	}

	record, err = p.service.ClaimForApproval(ctx, tenantID, entryID, checker.ID)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordCheckerDecision(ctx, wrapper.CommandName(), "approve")
	p.logger.InfoContext(ctx, "command approved",
		slog.String("command", wrapper.CommandName()),
		slog.String("command_id", record.ID),
		slog.String("checker_id", checker.ID),
	)

	started := time.Now()
	result, err := p.runHandler(ctx, record, wrapper, true)
	p.metrics.RecordCommand(ctx, wrapper.CommandName(), time.Since(started), err)
	return result, err
}

// Reject terminally rejects a pending entry. Later submissions under the same
// idempotency key replay the rejection.
func (p *Processor) Reject(ctx context.Context, entryID string) (string, error) {
	tenantID := tenancy.TenantIDOrDefault(ctx)

	record, err := p.service.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return "", err
	}
	wrapper := record.Wrapper()

	checker, err := p.security.AuthenticateChecker(ctx, wrapper)
	if err != nil {
		return "", err
	}

	if _, err := p.service.Reject(ctx, tenantID, entryID, checker.ID); err != nil {
		return "", err
	}
	p.metrics.RecordCheckerDecision(ctx, wrapper.CommandName(), "reject")
	p.logger.InfoContext(ctx, "command rejected",
		slog.String("command", wrapper.CommandName()),
		slog.String("command_id", entryID),
		slog.String("checker_id", checker.ID),
	)
	return entryID, nil
}

// Delete withdraws a pending entry, releasing its idempotency key. The maker
// permission of the original command authorizes the withdrawal.
func (p *Processor) Delete(ctx context.Context, entryID string) (string, error) {
	tenantID := tenancy.TenantIDOrDefault(ctx)

	record, err := p.service.FindByID(ctx, tenantID, entryID)
	if err != nil {
		return "", err
	}
	wrapper := record.Wrapper()

	if _, err := p.security.Authenticate(ctx, wrapper); err != nil {
		return "", err
	}

	if err := p.service.DeletePending(ctx, tenantID, entryID); err != nil {
		return "", err
	}
	p.metrics.RecordCheckerDecision(ctx, wrapper.CommandName(), "delete")
	p.logger.InfoContext(ctx, "pending command withdrawn",
		slog.String("command", wrapper.CommandName()),
		slog.String("command_id", entryID),
	)
	return entryID, nil
}

// Pending lists the entries awaiting approval for the ambient tenant.
func (p *Processor) Pending(ctx context.Context) ([]*commandsource.Record, error) {
	return p.service.FindAwaitingApproval(ctx, tenancy.TenantIDOrDefault(ctx))
}

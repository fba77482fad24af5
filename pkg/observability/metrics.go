// Package observability holds the metric instruments for the command
// processing pipeline.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds all metric instruments for command processing.
type Metrics struct {
	// Pipeline metrics
	CommandDuration metric.Float64Histogram
	CommandTotal    metric.Int64Counter
	CommandErrors   metric.Int64Counter

	// Idempotency metrics
	ResultReplays metric.Int64Counter
	KeyConflicts  metric.Int64Counter

	// Retry metrics
	CommandRetries metric.Int64Counter

	// Maker-checker metrics
	AwaitingApproval metric.Int64Counter
	CheckerDecisions metric.Int64Counter
}

// NewMetrics creates all metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.CommandDuration, err = meter.Float64Histogram(
		"commandsource.command.duration",
		metric.WithDescription("Command execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.duration: %w", err)
	}

	m.CommandTotal, err = meter.Int64Counter(
		"commandsource.command.total",
		metric.WithDescription("Total commands executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.total: %w", err)
	}

	m.CommandErrors, err = meter.Int64Counter(
		"commandsource.command.errors",
		metric.WithDescription("Total command failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.errors: %w", err)
	}

	m.ResultReplays, err = meter.Int64Counter(
		"commandsource.idempotency.replays",
		metric.WithDescription("Duplicate submissions answered from the stored outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating idempotency.replays: %w", err)
	}

	m.KeyConflicts, err = meter.Int64Counter(
		"commandsource.idempotency.conflicts",
		metric.WithDescription("Duplicate submissions rejected while the original was in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating idempotency.conflicts: %w", err)
	}

	m.CommandRetries, err = meter.Int64Counter(
		"commandsource.command.retries",
		metric.WithDescription("Handler attempts retried after a transient failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command.retries: %w", err)
	}

	m.AwaitingApproval, err = meter.Int64Counter(
		"commandsource.makerchecker.parked",
		metric.WithDescription("Commands parked for checker approval"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating makerchecker.parked: %w", err)
	}

	m.CheckerDecisions, err = meter.Int64Counter(
		"commandsource.makerchecker.decisions",
		metric.WithDescription("Checker approvals and rejections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating makerchecker.decisions: %w", err)
	}

	return m, nil
}

// NewNoopMetrics creates metrics that record nowhere. Default when no meter
// is wired.
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("commandsource"))
	return m
}

// RecordCommand records one command execution.
func (m *Metrics) RecordCommand(ctx context.Context, commandName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("command", commandName),
	}

	m.CommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.CommandTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil {
		errorAttrs := append(attrs, attribute.String("error_type", fmt.Sprintf("%T", err)))
		m.CommandErrors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

// RecordReplay records a duplicate submission answered from the audit log.
func (m *Metrics) RecordReplay(ctx context.Context, commandName string, stored string) {
	m.ResultReplays.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", commandName),
		attribute.String("stored_status", stored),
	))
}

// RecordConflict records a duplicate rejected while the original was in flight.
func (m *Metrics) RecordConflict(ctx context.Context, commandName string) {
	m.KeyConflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", commandName),
	))
}

// RecordRetry records one retried handler attempt.
func (m *Metrics) RecordRetry(ctx context.Context, commandName string, attempt int) {
	m.CommandRetries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", commandName),
		attribute.Int("attempt", attempt),
	))
}

// RecordParked records a command parked for approval.
func (m *Metrics) RecordParked(ctx context.Context, commandName string) {
	m.AwaitingApproval.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", commandName),
	))
}

// RecordCheckerDecision records an approve, reject or delete by a checker.
func (m *Metrics) RecordCheckerDecision(ctx context.Context, commandName, decision string) {
	m.CheckerDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", commandName),
		attribute.String("decision", decision),
	))
}

package commandsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/idgen"
)

// Service owns the lifecycle of command source entries on top of a Repository.
// It assigns surrogate ids, timestamps transitions and serializes results and
// classified errors for storage.
type Service struct {
	repo     Repository
	now      func() time.Time
	newID    func() string
	classify func(error) *ErrorInfo
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides surrogate id generation.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) { s.newID = newID }
}

// WithErrorClassifier overrides failure classification.
func WithErrorClassifier(classify func(error) *ErrorInfo) ServiceOption {
	return func(s *Service) { s.classify = classify }
}

// NewService creates a Service over the given repository.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		now:      time.Now,
		newID:    idgen.MustNewID,
		classify: GenerateErrorInfo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service's wall clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// FindExisting looks up the entry holding the idempotency key.
// Returns (nil, nil) when the key is free.
func (s *Service) FindExisting(ctx context.Context, tenantID, idempotencyKey string) (*Record, error) {
	record, err := s.repo.FindByKey(ctx, tenantID, idempotencyKey)
	if err != nil {
		if errors.Is(err, command.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find command source entry by key: %w", err)
	}
	return record, nil
}

// FindByID returns the entry with the given surrogate id.
func (s *Service) FindByID(ctx context.Context, tenantID, id string) (*Record, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// FindAwaitingApproval lists the entries parked for a checker.
func (s *Service) FindAwaitingApproval(ctx context.Context, tenantID string) ([]*Record, error) {
	return s.repo.FindAwaitingApproval(ctx, tenantID)
}

// SaveInitial persists the checkpoint entry for a fresh execution attempt and
// returns it. ErrDuplicateKey surfaces unchanged so the caller can re-read the
// concurrent winner.
func (s *Service) SaveInitial(ctx context.Context, wrapper command.Wrapper, tenantID, idempotencyKey, makerID string, awaitingApproval bool) (*Record, error) {
	record := NewRecord(s.newID(), wrapper, tenantID, idempotencyKey, makerID, s.now(), awaitingApproval)
	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SaveProcessed transitions the entry to PROCESSED with the serialized result
// and copies the handler's resolved linkage ids onto it.
func (s *Service) SaveProcessed(ctx context.Context, record *Record, result *command.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal command result: %w", err)
	}
	record.UpdateAudit(result)
	if err := record.MarkProcessed(resultJSON); err != nil {
		return err
	}
	return s.repo.Update(ctx, record)
}

// SaveAwaitingApproval parks an in-flight entry for a checker after its
// handler signalled that the surrounding transaction must roll back.
func (s *Service) SaveAwaitingApproval(ctx context.Context, record *Record) error {
	if record.IsTerminal() {
		return fmt.Errorf("command source entry %s is already terminal (%s/%s)", record.ID, record.Status, record.ProcessingResult)
	}
	record.ProcessingResult = ResultAwaitingApproval
	return s.repo.Update(ctx, record)
}

// SaveError classifies the failure, transitions the entry to ERROR and
// persists it. The classified info is returned so the caller can report it.
func (s *Service) SaveError(ctx context.Context, record *Record, cause error) (*ErrorInfo, error) {
	info := s.classify(cause)
	errorJSON, err := MarshalErrorInfo(info)
	if err != nil {
		return nil, fmt.Errorf("marshal error info: %w", err)
	}
	if err := record.MarkError(errorJSON); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return info, nil
}

// ClaimForApproval atomically claims a pending entry for the checker.
// command.ErrNotPending is returned when another checker acted first or the
// entry is not awaiting approval.
func (s *Service) ClaimForApproval(ctx context.Context, tenantID, id, checkerID string) (*Record, error) {
	checkedOn := s.now()
	claimed, err := s.repo.ClaimForApproval(ctx, tenantID, id, checkerID, checkedOn)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Distinguish a missing entry from one already decided.
		if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
			return nil, err
		}
		return nil, command.ErrNotPending
	}
	return s.repo.FindByID(ctx, tenantID, id)
}

// Reject atomically rejects a pending entry. The rejection is stored as the
// entry's error, so later submissions under the same key replay it.
func (s *Service) Reject(ctx context.Context, tenantID, id, checkerID string) (*Record, error) {
	info := &ErrorInfo{
		StatusCode: http.StatusForbidden,
		Code:       "error.msg.command.rejected",
		Message:    fmt.Sprintf("command %s was rejected by checker %s", id, checkerID),
	}
	errorJSON, err := MarshalErrorInfo(info)
	if err != nil {
		return nil, fmt.Errorf("marshal rejection info: %w", err)
	}
	rejected, err := s.repo.MarkRejected(ctx, tenantID, id, checkerID, s.now(), errorJSON)
	if err != nil {
		return nil, err
	}
	if !rejected {
		if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
			return nil, err
		}
		return nil, command.ErrNotPending
	}
	return s.repo.FindByID(ctx, tenantID, id)
}

// DeletePending withdraws a pending entry, releasing its idempotency key.
func (s *Service) DeletePending(ctx context.Context, tenantID, id string) error {
	deleted, err := s.repo.DeletePending(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !deleted {
		if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
			return err
		}
		return command.ErrNotPending
	}
	return nil
}

// GenerateErrorInfo exposes the service's failure classifier.
func (s *Service) GenerateErrorInfo(err error) *ErrorInfo {
	return s.classify(err)
}

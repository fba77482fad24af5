// Package sqlite is a SQLite-backed commandsource.Repository built on the
// pure Go driver, so the audit log needs no CGo and no external database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/plaenen/commandsource/pkg/command"
	"github.com/plaenen/commandsource/pkg/commandsource"
	"github.com/plaenen/commandsource/pkg/commandsource/sqlite/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements commandsource.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

type storeConfig struct {
	dsn          string
	maxOpenConns int
	maxIdleConns int
	walMode      bool
	autoMigrate  bool
}

func defaultStoreConfig() storeConfig {
	return storeConfig{
		dsn:          "commandsource.db",
		maxOpenConns: 25,
		maxIdleConns: 5,
		walMode:      true,
		autoMigrate:  true,
	}
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

// WithDSN sets the data source name (file path or ":memory:" for in-memory).
func WithDSN(dsn string) StoreOption {
	return func(c *storeConfig) {
		c.dsn = dsn
	}
}

// WithMemoryDatabase uses an in-memory database, for tests.
func WithMemoryDatabase() StoreOption {
	return func(c *storeConfig) {
		c.dsn = ":memory:"
	}
}

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) StoreOption {
	return func(c *storeConfig) {
		c.maxOpenConns = n
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) StoreOption {
	return func(c *storeConfig) {
		c.maxIdleConns = n
	}
}

// WithWALMode enables write-ahead logging. Recommended for file databases,
// not available for :memory:.
func WithWALMode(enabled bool) StoreOption {
	return func(c *storeConfig) {
		c.walMode = enabled
	}
}

// WithAutoMigrate runs pending migrations on startup.
func WithAutoMigrate(enabled bool) StoreOption {
	return func(c *storeConfig) {
		c.autoMigrate = enabled
	}
}

// NewStore opens (and by default migrates) a SQLite-backed store.
//
//	store, err := sqlite.NewStore(sqlite.WithMemoryDatabase())
func NewStore(opts ...StoreOption) (*Store, error) {
	config := defaultStoreConfig()
	for _, opt := range opts {
		opt(&config)
	}

	db, err := sql.Open("sqlite", config.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each :memory: connection is its own database, so force one connection.
	if config.dsn == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.maxOpenConns)
		db.SetMaxIdleConns(config.maxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db}

	if config.walMode && config.dsn != ":memory:" {
		if _, err := db.Exec(`
			PRAGMA journal_mode = WAL;
			PRAGMA synchronous = NORMAL;
			PRAGMA foreign_keys = ON;
		`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if config.autoMigrate {
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return store, nil
}

func runMigrations(db *sql.DB) error {
	m := migrate.New(db, "schema_migrations")
	if err := m.LoadFromFS(migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	return m.Up()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

const recordColumns = `id, tenant_id, action_name, entity_name, resource_id, subresource_id,
	office_id, group_id, client_id, loan_id, savings_id, product_id, credit_bureau_id,
	transaction_id, job_name, href, command_json, idempotency_key,
	status, processing_result, result_json, error_json,
	maker_id, made_on, checker_id, checked_on`

// Insert persists a fresh entry. A unique-constraint violation on
// (tenant_id, idempotency_key) surfaces as commandsource.ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, record *commandsource.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_source (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID, record.TenantID, record.ActionName, record.EntityName,
		record.ResourceID, record.SubResourceID,
		record.OfficeID, record.GroupID, record.ClientID, record.LoanID,
		record.SavingsID, record.ProductID, record.CreditBureauID,
		record.TransactionID, record.JobName, record.Href,
		nullJSON(record.CommandJSON), record.IdempotencyKey,
		string(record.Status), string(record.ProcessingResult),
		nullJSON(record.ResultJSON), nullJSON(record.ErrorJSON),
		record.MakerID, record.MadeOn.Unix(),
		record.CheckerID, unixOrZero(record.CheckedOn),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return commandsource.ErrDuplicateKey
		}
		return fmt.Errorf("insert command source entry: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an entry.
func (s *Store) Update(ctx context.Context, record *commandsource.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE command_source SET
			resource_id = ?, subresource_id = ?, office_id = ?, group_id = ?,
			client_id = ?, loan_id = ?, savings_id = ?, product_id = ?,
			transaction_id = ?,
			status = ?, processing_result = ?, result_json = ?, error_json = ?,
			checker_id = ?, checked_on = ?
		WHERE tenant_id = ? AND id = ?
	`,
		record.ResourceID, record.SubResourceID, record.OfficeID, record.GroupID,
		record.ClientID, record.LoanID, record.SavingsID, record.ProductID,
		record.TransactionID,
		string(record.Status), string(record.ProcessingResult),
		nullJSON(record.ResultJSON), nullJSON(record.ErrorJSON),
		record.CheckerID, unixOrZero(record.CheckedOn),
		record.TenantID, record.ID,
	)
	if err != nil {
		return fmt.Errorf("update command source entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return command.ErrNotFound
	}
	return nil
}

// FindByID returns the entry with the given surrogate id.
func (s *Store) FindByID(ctx context.Context, tenantID, id string) (*commandsource.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM command_source WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	return scanRecord(row)
}

// FindByKey returns the entry holding the idempotency key.
func (s *Store) FindByKey(ctx context.Context, tenantID, idempotencyKey string) (*commandsource.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM command_source WHERE tenant_id = ? AND idempotency_key = ?`,
		tenantID, idempotencyKey,
	)
	return scanRecord(row)
}

// ClaimForApproval atomically moves a pending entry to APPROVED. Exactly one
// concurrent caller observes true.
func (s *Store) ClaimForApproval(ctx context.Context, tenantID, id, checkerID string, checkedOn time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE command_source
		SET processing_result = ?, checker_id = ?, checked_on = ?
		WHERE tenant_id = ? AND id = ? AND processing_result = ?
	`,
		string(commandsource.ResultApproved), checkerID, checkedOn.Unix(),
		tenantID, id, string(commandsource.ResultAwaitingApproval),
	)
	if err != nil {
		return false, fmt.Errorf("claim command source entry for approval: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkRejected atomically moves a pending entry to its rejected terminal state.
func (s *Store) MarkRejected(ctx context.Context, tenantID, id, checkerID string, checkedOn time.Time, errorJSON json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE command_source
		SET processing_result = ?, status = ?, error_json = ?, checker_id = ?, checked_on = ?
		WHERE tenant_id = ? AND id = ? AND processing_result = ?
	`,
		string(commandsource.ResultRejected), string(commandsource.StatusError),
		nullJSON(errorJSON), checkerID, checkedOn.Unix(),
		tenantID, id, string(commandsource.ResultAwaitingApproval),
	)
	if err != nil {
		return false, fmt.Errorf("reject command source entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeletePending removes an entry still awaiting approval, releasing its key.
func (s *Store) DeletePending(ctx context.Context, tenantID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM command_source
		WHERE tenant_id = ? AND id = ? AND processing_result = ?
	`, tenantID, id, string(commandsource.ResultAwaitingApproval))
	if err != nil {
		return false, fmt.Errorf("delete pending command source entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// FindAwaitingApproval lists pending entries, oldest first.
func (s *Store) FindAwaitingApproval(ctx context.Context, tenantID string) ([]*commandsource.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM command_source
		WHERE tenant_id = ? AND processing_result = ?
		ORDER BY made_on, id
	`, tenantID, string(commandsource.ResultAwaitingApproval))
	if err != nil {
		return nil, fmt.Errorf("list pending command source entries: %w", err)
	}
	defer rows.Close()

	var records []*commandsource.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*commandsource.Record, error) {
	var (
		record      commandsource.Record
		status      string
		procResult  string
		commandJSON sql.NullString
		resultJSON  sql.NullString
		errorJSON   sql.NullString
		madeOn      int64
		checkedOn   int64
	)

	err := row.Scan(
		&record.ID, &record.TenantID, &record.ActionName, &record.EntityName,
		&record.ResourceID, &record.SubResourceID,
		&record.OfficeID, &record.GroupID, &record.ClientID, &record.LoanID,
		&record.SavingsID, &record.ProductID, &record.CreditBureauID,
		&record.TransactionID, &record.JobName, &record.Href,
		&commandJSON, &record.IdempotencyKey,
		&status, &procResult, &resultJSON, &errorJSON,
		&record.MakerID, &madeOn, &record.CheckerID, &checkedOn,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, command.ErrNotFound
		}
		return nil, fmt.Errorf("scan command source entry: %w", err)
	}

	record.Status = commandsource.Status(status)
	record.ProcessingResult = commandsource.ProcessingResult(procResult)
	if commandJSON.Valid {
		record.CommandJSON = json.RawMessage(commandJSON.String)
	}
	if resultJSON.Valid {
		record.ResultJSON = json.RawMessage(resultJSON.String)
	}
	if errorJSON.Valid {
		record.ErrorJSON = json.RawMessage(errorJSON.String)
	}
	record.MadeOn = time.Unix(madeOn, 0)
	if checkedOn != 0 {
		record.CheckedOn = time.Unix(checkedOn, 0)
	}
	return &record, nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	return sql.NullString{String: string(raw), Valid: len(raw) > 0}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Collection for every record type and accounts.Store,
  all on one database file. The domain services never see SQL.

INTERFACES IMPLEMENTED:
  generic.Collection[finance.Transaction]:   transactions
  generic.Collection[finance.Expense]:       expenses
  generic.Collection[finance.Project]:       projects
  generic.Collection[impactfund.Withdrawal]: impact_fund_withdrawals
  accounts.Store:                            users, sessions, app_config

STORAGE FORMATS:
  - Money is TEXT holding the exact decimal string
  - Calendar dates are TEXT YYYY-MM-DD
  - Timestamps are TEXT RFC3339 UTC with fixed nanosecond width
  - Optional values (stored brokerage amount, approvedAt) are NULL when unset

LIST ORDER:
  Every List returns rows in insertion order (rowid), which is the order
  ApproveAll walks.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Updates are last-write-wins.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/finhub.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := finance.NewService(store.Transactions(), store.Expenses(), store.Projects())

MIGRATION:
  Schema changes are versioned SQL files under migrations/, embedded in
  the binary and applied by golang-migrate on New().

SEE ALSO:
  - generic/store.go: Collection contract
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/finhub/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// TABLE - One generic.Collection over one table
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

type table[T generic.Record] struct {
	s       *Store
	kind    string
	name    string
	columns []string // first column is the id
	values  func(T) []any
	scan    func(scanner) (T, error)
}

var _ generic.Collection[generic.Record] = (*table[generic.Record])(nil)

func (t *table[T]) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.columns, ", "), t.name)
}

func (t *table[T]) Create(ctx context.Context, rec T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.columns, ", "), placeholders)
	if _, err := t.s.db.ExecContext(ctx, query, t.values(rec)...); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%s %s: %w", t.kind, rec.RecordID(), generic.ErrConflict)
		}
		return err
	}
	return nil
}

func (t *table[T]) Get(ctx context.Context, id string) (T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	rec, err := t.scan(t.s.db.QueryRowContext(ctx, t.selectSQL()+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, &generic.NotFoundError{Kind: t.kind, ID: id}
	}
	return rec, err
}

func (t *table[T]) List(ctx context.Context) ([]T, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	rows, err := t.s.db.QueryContext(ctx, t.selectSQL()+" ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *table[T]) Update(ctx context.Context, rec T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	sets := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns[1:] {
		sets = append(sets, c+" = ?")
	}
	values := t.values(rec)
	args := append(values[1:], values[0])
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))

	res, err := t.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return t.requireRow(res, rec.RecordID())
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	res, err := t.s.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	return t.requireRow(res, id)
}

func (t *table[T]) requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Kind: t.kind, ID: id}
	}
	return nil
}

// Reset deletes every record in one transaction. Users, sessions and the
// app config are kept. Backs the import endpoint's replace mode.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, name := range []string{"transactions", "expenses", "projects", "impact_fund_withdrawals"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d := generic.ToDecimal(ns.String)
	return &d
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

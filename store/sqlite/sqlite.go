/*
Package sqlite provides the SQLite-backed implementation of the
bookkeeping storage interfaces.

INTERFACES IMPLEMENTED:
  ledger.Store:   reads and writes over the six bookkeeping tables
  ledger.TxStore: single-transaction batch execution

SCHEMA:
  Six tables, reproduced exactly for on-disk compatibility:
    fiscal_year(pk, year, month, day, current, work_on, audit, c_time, m_time)
    month(pk, month, ord, c_time, m_time)
    field_type(pk, field, c_time, m_time)
    data(pk, value, fy1fk, fy2fk, mfk, ffk, c_time, m_time)
    report_type(pk, report, c_time, m_time)
    report_pivot(rfk, dfk)
  Timestamps are ISO-8601 strings in the Badí' epoch (badi.Now), not
  Unix time. The data.value column is untyped; SQLite's dynamic typing
  stores text, integer minor-unit currency and choice indexes as-is.

SCHEMA VERIFICATION:
  After migration the table set is compared against the expected fixed
  set. Any difference is startup-fatal (ledger.ErrSchemaMismatch): the
  store refuses to operate against a database it does not recognize.

MONTH SEEDING:
  The Badí' month catalog is seeded on open by inserting only names
  absent from a previous partial seed. Idempotent.

CONCURRENCY:
  sync.RWMutex gives the single-writer discipline the save path needs:
  the chain-extension and catalog logic are check-then-act and must not
  interleave. WithTx holds the write lock for the whole callback and
  runs every operation inside it against one database transaction.

USAGE:
  store, err := sqlite.New("./treasury.db")
  keeper := ledger.NewKeeper(store, logger)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sidrat/treasury-engine/badi"
	"github.com/sidrat/treasury-engine/fiscal"
	"github.com/sidrat/treasury-engine/ledger"
)

// expectedTables is the fixed table set the store recognizes.
var expectedTables = []string{
	"data", "field_type", "fiscal_year", "month", "report_pivot", "report_type",
}

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// now produces Badí'-epoch timestamps; swapped in tests.
	now func() string
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, now: badi.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.verifySchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.seedMonths(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed months: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fiscal_year (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL UNIQUE,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		current BOOLEAN NOT NULL DEFAULT FALSE,
		work_on BOOLEAN NOT NULL DEFAULT FALSE,
		audit BOOLEAN NOT NULL DEFAULT FALSE,
		c_time TEXT NOT NULL,
		m_time TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS month (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		month TEXT NOT NULL UNIQUE,
		ord INTEGER NOT NULL UNIQUE,
		c_time TEXT NOT NULL,
		m_time TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS field_type (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		field TEXT NOT NULL UNIQUE,
		c_time TEXT NOT NULL,
		m_time TEXT NOT NULL
	);

	-- value is deliberately untyped: text, integer minor-unit currency
	-- and radio indexes all land here.
	CREATE TABLE IF NOT EXISTS data (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		value,
		fy1fk INTEGER NOT NULL REFERENCES fiscal_year(pk),
		fy2fk INTEGER NOT NULL REFERENCES fiscal_year(pk),
		mfk INTEGER REFERENCES month(pk),
		ffk INTEGER NOT NULL REFERENCES field_type(pk),
		c_time TEXT NOT NULL,
		m_time TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_data_ffk ON data(ffk);
	CREATE INDEX IF NOT EXISTS idx_data_fy1fk ON data(fy1fk);

	CREATE TABLE IF NOT EXISTS report_type (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		report TEXT NOT NULL UNIQUE,
		c_time TEXT NOT NULL,
		m_time TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_pivot (
		rfk INTEGER NOT NULL REFERENCES report_type(pk),
		dfk INTEGER NOT NULL REFERENCES data(pk),
		PRIMARY KEY (rfk, dfk)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// verifySchema refuses to operate against a table set other than the
// expected one.
func (s *Store) verifySchema() error {
	rows, err := s.db.Query(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found = append(found, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Strings(found)
	mismatch := len(found) != len(expectedTables)
	if !mismatch {
		for i, name := range found {
			if name != expectedTables[i] {
				mismatch = true
				break
			}
		}
	}
	if mismatch {
		return fmt.Errorf("%w: found [%s]", ledger.ErrSchemaMismatch, strings.Join(found, ", "))
	}
	return nil
}

// seedMonths inserts only the month rows missing from a previous
// partial seed.
func (s *Store) seedMonths() error {
	rows, err := s.db.Query(`SELECT month FROM month`)
	if err != nil {
		return err
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	now := s.now()
	for _, m := range badi.MonthNames() {
		if present[m.Name] {
			continue
		}
		if _, err := s.db.Exec(
			`INSERT INTO month (month, ord, c_time, m_time) VALUES (?, ?, ?, ?)`,
			m.Name, m.Ordinal, now, now,
		); err != nil {
			return err
		}
	}
	return nil
}

// querier is the subset of *sql.DB and *sql.Tx the operations need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session runs the operations against either the pooled connection or a
// transaction, holding no locks of its own.
type session struct {
	q   querier
	now func() string
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

func (s *Store) CurrentFiscalYear(ctx context.Context) (*fiscal.Year, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.currentFiscalYear(ctx)
}

func (s *Store) FiscalYears(ctx context.Context, f ledger.YearFilter) ([]fiscal.Year, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.fiscalYears(ctx, f)
}

func (s *Store) EarliestYear(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.earliestYear(ctx)
}

// ApplyTransition outside WithTx wraps the statements in its own
// transaction; a failed transition never half-extends the chain.
func (s *Store) ApplyTransition(ctx context.Context, t fiscal.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := (session{tx, s.now}).applyTransition(ctx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SetYearFlags(ctx context.Context, year int, workOn, audit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db, s.now}.setYearFlags(ctx, year, workOn, audit)
}

func (s *Store) Months(ctx context.Context, f ledger.MonthFilter) ([]ledger.Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.months(ctx, f)
}

func (s *Store) FieldTypes(ctx context.Context, names []string) ([]ledger.FieldType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.fieldTypes(ctx, names)
}

func (s *Store) AddFieldTypes(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db, s.now}.addFieldTypes(ctx, names)
}

func (s *Store) Values(ctx context.Context, q ledger.ValueQuery) ([]ledger.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.values(ctx, q)
}

func (s *Store) InsertValues(ctx context.Context, rows []ledger.Insert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db, s.now}.insertValues(ctx, rows)
}

func (s *Store) UpdateValues(ctx context.Context, updates []ledger.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db, s.now}.updateValues(ctx, updates)
}

func (s *Store) PinReport(ctx context.Context, report string, dataIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s.db, s.now}.pinReport(ctx, report, dataIDs)
}

func (s *Store) ReportValues(ctx context.Context, report string) ([]ledger.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session{s.db, s.now}.reportValues(ctx, report)
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn against a Store bound to one database transaction.
// The write lock is held for the whole callback, which is the
// single-writer discipline the save path relies on.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{session{tx, s.now}}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore adapts a transaction-bound session to ledger.Store.
type txStore struct {
	s session
}

func (t *txStore) CurrentFiscalYear(ctx context.Context) (*fiscal.Year, error) {
	return t.s.currentFiscalYear(ctx)
}
func (t *txStore) FiscalYears(ctx context.Context, f ledger.YearFilter) ([]fiscal.Year, error) {
	return t.s.fiscalYears(ctx, f)
}
func (t *txStore) EarliestYear(ctx context.Context) (int, error) {
	return t.s.earliestYear(ctx)
}
func (t *txStore) ApplyTransition(ctx context.Context, tr fiscal.Transition) error {
	return t.s.applyTransition(ctx, tr)
}
func (t *txStore) SetYearFlags(ctx context.Context, year int, workOn, audit bool) error {
	return t.s.setYearFlags(ctx, year, workOn, audit)
}
func (t *txStore) Months(ctx context.Context, f ledger.MonthFilter) ([]ledger.Month, error) {
	return t.s.months(ctx, f)
}
func (t *txStore) FieldTypes(ctx context.Context, names []string) ([]ledger.FieldType, error) {
	return t.s.fieldTypes(ctx, names)
}
func (t *txStore) AddFieldTypes(ctx context.Context, names []string) error {
	return t.s.addFieldTypes(ctx, names)
}
func (t *txStore) Values(ctx context.Context, q ledger.ValueQuery) ([]ledger.Row, error) {
	return t.s.values(ctx, q)
}
func (t *txStore) InsertValues(ctx context.Context, rows []ledger.Insert) error {
	return t.s.insertValues(ctx, rows)
}
func (t *txStore) UpdateValues(ctx context.Context, updates []ledger.Update) error {
	return t.s.updateValues(ctx, updates)
}
func (t *txStore) PinReport(ctx context.Context, report string, dataIDs []int64) error {
	return t.s.pinReport(ctx, report, dataIDs)
}
func (t *txStore) ReportValues(ctx context.Context, report string) ([]ledger.Row, error) {
	return t.s.reportValues(ctx, report)
}

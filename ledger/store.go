/*
store.go - Persistence interface between the domain and the database

The Store carries every read/write the Keeper needs. store/sqlite is the
production implementation; tests use it against :memory: databases.

FAIL-FAST FILTERS:
  YearFilter allows exactly one dimension; MonthFilter at most one.
  Combining dimensions is a caller bug and returns ErrConflictingFilter
  rather than silently ANDing.

ATOMICITY:
  TxStore.WithTx runs fn against a Store bound to one database
  transaction. The whole save path (chain transition, catalog inserts,
  value inserts/updates) runs inside a single WithTx call, so a mid-batch
  failure leaves nothing applied.
*/
package ledger

import (
	"context"

	"github.com/sidrat/treasury-engine/fiscal"
)

// YearFilter selects fiscal years by exactly one dimension.
type YearFilter struct {
	Year    *int
	Month   *int
	Day     *int
	Current *bool
}

// Validate rejects filters with more than one dimension set.
func (f YearFilter) Validate() error {
	n := 0
	if f.Year != nil {
		n++
	}
	if f.Month != nil {
		n++
	}
	if f.Day != nil {
		n++
	}
	if f.Current != nil {
		n++
	}
	if n > 1 {
		return ErrConflictingFilter
	}
	return nil
}

// MonthFilter selects months by name or ordinal, not both.
type MonthFilter struct {
	Name    *string
	Ordinal *int
}

func (f MonthFilter) Validate() error {
	if f.Name != nil && f.Ordinal != nil {
		return ErrConflictingFilter
	}
	return nil
}

// ValueQuery selects transaction values for a set of fields within a
// fiscal year. A nil Month matches rows in any month (full-year
// projections); a set Month joins against the month and both year
// boundary rows.
type ValueQuery struct {
	Fields []string
	Year   int
	Month  *int
}

// Store is the read/write surface over the six bookkeeping tables.
type Store interface {
	// CurrentFiscalYear returns the row flagged current, or nil on
	// first-ever run.
	CurrentFiscalYear(ctx context.Context) (*fiscal.Year, error)

	// FiscalYears returns years matching the single-dimension filter;
	// the zero filter returns the whole chain.
	FiscalYears(ctx context.Context, f YearFilter) ([]fiscal.Year, error)

	// EarliestYear returns the lowest stored year number, 0 when the
	// chain is empty.
	EarliestYear(ctx context.Context) (int, error)

	// ApplyTransition applies a fiscal chain transition (demote,
	// promote, inserts) as a unit.
	ApplyTransition(ctx context.Context, t fiscal.Transition) error

	// SetYearFlags updates the work-on and audit flags for a year.
	SetYearFlags(ctx context.Context, year int, workOn, audit bool) error

	// Months returns seeded months matching the filter.
	Months(ctx context.Context, f MonthFilter) ([]Month, error)

	// FieldTypes returns catalog rows for the given names. An empty
	// name set is a caller bug and returns ErrEmptyFieldSet.
	FieldTypes(ctx context.Context, names []string) ([]FieldType, error)

	// AddFieldTypes appends new names to the catalog.
	AddFieldTypes(ctx context.Context, names []string) error

	// Values returns transaction values matching the query.
	Values(ctx context.Context, q ValueQuery) ([]Row, error)

	// InsertValues adds new transaction values.
	InsertValues(ctx context.Context, rows []Insert) error

	// UpdateValues replaces values in place by row id.
	UpdateValues(ctx context.Context, updates []Update) error

	// PinReport associates data rows with a named report type,
	// creating the type on first use.
	PinReport(ctx context.Context, report string, dataIDs []int64) error

	// ReportValues returns the data rows pinned to a report.
	ReportValues(ctx context.Context, report string) ([]Row, error)
}

// TxStore extends Store with one-transaction-at-a-time execution.
type TxStore interface {
	Store

	// WithTx executes fn inside a database transaction. fn's error
	// rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

/*
errors.go - Error taxonomy for the bookkeeping domain

Three classes matter to callers:
  1. User-correctable input errors: empty required fields, fiscal-year
     gaps, unparseable amounts. Surfaced as a status message; nothing is
     mutated.
  2. Integrity/schema errors: the database does not look like ours, or a
     catalog row vanished mid-update. Operator-level failures.
  3. Storage failures: the driver's errors, wrapped with context and
     rolled back by the enclosing transaction.

Use errors.Is/As against the sentinels and structured types here;
IsUserError distinguishes class 1 for HTTP status mapping.
*/
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sidrat/treasury-engine/fiscal"
	"github.com/sidrat/treasury-engine/money"
)

var (
	// ErrEmptyFieldSet is returned when a field-set query is made for
	// nothing. A query "for nothing" is a caller bug, not an empty
	// result.
	ErrEmptyFieldSet = errors.New("empty field name set")

	// ErrConflictingFilter is returned when a query combines filter
	// dimensions that must be used alone.
	ErrConflictingFilter = errors.New("conflicting query filters")

	// ErrSchemaMismatch means the on-disk table set is not the expected
	// fixed set. Startup-fatal; the store refuses to operate.
	ErrSchemaMismatch = errors.New("database schema does not match the expected table set")

	// ErrFieldMissing means a field-catalog row expected to exist was
	// not found mid-operation. Integrity failure.
	ErrFieldMissing = errors.New("field catalog entry missing")

	// ErrNoFiscalYear is returned when a non-organization panel is
	// saved before the organization panel has ever established the
	// fiscal chain.
	ErrNoFiscalYear = errors.New("no fiscal year initialized; save the organization panel first")
)

// EmptyFieldsError collects every empty required field in one save so
// the user sees them all at once.
type EmptyFieldsError struct {
	Fields []string
}

func (e *EmptyFieldsError) Error() string {
	names := append([]string(nil), e.Fields...)
	sort.Strings(names)
	return fmt.Sprintf("required fields are empty: %s", strings.Join(names, ", "))
}

// IsUserError reports whether err is correctable by the user rather
// than an integrity or storage failure.
func IsUserError(err error) bool {
	var empty *EmptyFieldsError
	var gap *fiscal.GapError
	var parse *money.ParseError
	return errors.As(err, &empty) ||
		errors.As(err, &gap) ||
		errors.As(err, &parse) ||
		errors.Is(err, ErrNoFiscalYear)
}

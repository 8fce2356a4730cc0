/*
Package ledger is the bookkeeping domain: the read/write surface over
fiscal years, months, the field catalog and per-field panel values, plus
the insert-vs-update reconciliation that keeps one value per field per
fiscal year.

KEY CONCEPTS:
  - Panel:       one logical form ("organization", "budget", "ledger")
                 collecting named fields
  - Value:       a field value tagged with its widget kind
  - Field catalog: append-only registry of every field name ever seen
  - Keeper:      the save/load orchestrator (see keeper.go)

VALUE KINDS:
  Widget kinds are a closed enumeration. Currency values are parsed to
  integer minor units before they reach storage; choice values are the
  selected index; everything else is text.

STORAGE:
  The Store interface (store.go) is implemented by store/sqlite. All
  mutating paths run under its single-writer discipline and inside one
  transaction per save.

SEE ALSO:
  - fiscal/: chain classification feeding SavePanel
  - money/: the currency codec
  - store/sqlite/: the schema
*/
package ledger

import (
	"fmt"
	"strconv"

	"github.com/sidrat/treasury-engine/money"
)

// Kind is the closed set of widget kinds a field value can carry.
type Kind int

const (
	KindText Kind = iota
	KindCurrency
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindCurrency:
		return "currency"
	case KindChoice:
		return "choice"
	default:
		return "text"
	}
}

// Value is one field's value as collected from a form.
type Value struct {
	Kind Kind
	Text string
}

// Text and Currency constructors cover most call sites; Choice carries
// the selected radio index.
func TextValue(s string) Value     { return Value{Kind: KindText, Text: s} }
func CurrencyValue(s string) Value { return Value{Kind: KindCurrency, Text: s} }
func ChoiceValue(i int) Value      { return Value{Kind: KindChoice, Text: strconv.Itoa(i)} }

// IsEmpty reports whether the value is unset. "0" is the sentinel forms
// use for untouched numeric fields.
func (v Value) IsEmpty() bool {
	return v.Text == "" || v.Text == "0"
}

// storage converts the value to what the data table stores: text stays
// text, currency becomes integer minor units, choice becomes an integer
// index.
func (v Value) storage() (any, error) {
	switch v.Kind {
	case KindCurrency:
		return money.ToStorage(v.Text)
	case KindChoice:
		i, err := strconv.Atoi(v.Text)
		if err != nil {
			return nil, fmt.Errorf("choice index %q: %w", v.Text, err)
		}
		return i, nil
	default:
		return v.Text, nil
	}
}

// PanelValues is the {field_name: value} map a form hands over on save.
type PanelValues map[string]Value

// Month is one named calendar month.
type Month struct {
	ID      int64
	Name    string
	Ordinal int
}

// FieldType is one field-catalog entry.
type FieldType struct {
	ID         int64
	Name       string
	CreatedAt  string
	ModifiedAt string
}

// Row is one stored transaction value. Year and NextYear are the fiscal
// year numbers the row is stamped with; Month is nil for rows saved
// without a month context.
type Row struct {
	ID         int64
	Field      string
	Value      any
	Year       int
	NextYear   int
	Month      *int
	CreatedAt  string
	ModifiedAt string
}

// Render formats a stored value for display under the given widget kind.
func (r Row) Render(kind Kind) string {
	switch kind {
	case KindCurrency:
		switch v := r.Value.(type) {
		case int64:
			return money.FromStorage(v)
		case int:
			return money.FromStorage(int64(v))
		}
	case KindChoice:
		switch v := r.Value.(type) {
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return fmt.Sprintf("%v", r.Value)
}

// Insert is a new row for the data table. The store resolves the year,
// next-year, month and field references to row keys.
type Insert struct {
	Field    string
	Value    any
	Year     int
	NextYear int
	Month    *int
}

// Update replaces a stored value in place, keyed by row id.
type Update struct {
	ID    int64
	Value any
}

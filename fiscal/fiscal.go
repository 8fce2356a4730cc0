/*
Package fiscal models the fiscal-year chain and decides how an entered date
extends it.

PURPOSE:
  Fiscal years form a contiguous chain with exactly one "current" entry and
  the following year always present as a placeholder. Given the date a form
  was saved with, Plan() classifies it against the known chain and produces
  the exact set of row changes (demote, promote, insert) the store must
  apply in one transaction.

CLASSIFICATION:
  FirstRun      no current year exists yet
  SameYear      entered year == current year
  NextYear      entered year == current year + 1
  PreviousYear  entered year == earliest known year - 1
  InvalidGap    anything else; rejected, nothing is mutated

The gap rule is strict: the chain is extended by exactly one year at a
time in either direction, never backfilled across a hole.

SEE ALSO:
  - badi/: the calendar the dates live in
  - store/sqlite/: applies Transitions atomically
*/
package fiscal

import (
	"fmt"

	"github.com/sidrat/treasury-engine/badi"
)

// Year is one row of the fiscal-year chain.
type Year struct {
	ID         int64
	Year       int
	Month      int // anchor date: first day of the fiscal year
	Day        int
	Current    bool
	WorkOn     bool // the year bookkeeping is actively done in
	Audit      bool // under audit
	CreatedAt  string
	ModifiedAt string
}

// Classification of an entered date against the known chain.
type Classification int

const (
	FirstRun Classification = iota
	SameYear
	NextYear
	PreviousYear
	InvalidGap
)

func (c Classification) String() string {
	switch c {
	case FirstRun:
		return "first_run"
	case SameYear:
		return "same_year"
	case NextYear:
		return "next_year"
	case PreviousYear:
		return "previous_year"
	default:
		return "invalid_gap"
	}
}

// GapError is the user-correctable rejection for dates that would leave a
// hole in the chain.
type GapError struct {
	Entered  int
	Current  int
	Earliest int
}

func (e *GapError) Error() string {
	return fmt.Sprintf("year %d is more than one year away from the known range [%d, %d+1]",
		e.Entered, e.Earliest, e.Current)
}

// YearSpec is a fiscal-year row to insert.
type YearSpec struct {
	Year    int
	Month   int
	Day     int
	Current bool
}

// Transition is the full set of chain changes for one entered date.
// Demote/Promote are year numbers (0 when unused). The store applies the
// whole transition in a single transaction or not at all.
type Transition struct {
	Classification Classification
	Demote         int // current year to flip non-current
	Promote        int // existing placeholder year to flip current
	Insert         []YearSpec
}

// Classify places an entered date against the chain without planning
// changes. current is nil on first-ever run; earliest is ignored then.
func Classify(entered badi.Date, current *Year, earliest int) Classification {
	if current == nil {
		return FirstRun
	}
	switch entered.Year {
	case current.Year:
		return SameYear
	case current.Year + 1:
		return NextYear
	case earliest - 1:
		return PreviousYear
	default:
		return InvalidGap
	}
}

// Plan classifies entered and returns the chain transition to apply.
// InvalidGap returns a *GapError and a zero transition; callers must not
// mutate anything in that case.
func Plan(entered badi.Date, current *Year, earliest int) (Transition, error) {
	c := Classify(entered, current, earliest)
	t := Transition{Classification: c}

	switch c {
	case FirstRun:
		// Seed the chain: the entered year becomes current and the next
		// year is inserted as the placeholder.
		t.Insert = []YearSpec{
			{Year: entered.Year, Month: entered.Month, Day: entered.Day, Current: true},
			{Year: entered.Year + 1, Month: entered.Month, Day: entered.Day},
		}

	case SameYear:
		// Chain already in the right shape.

	case NextYear:
		// The entered year already exists as the placeholder: promote it,
		// demote the old current year, and lay down a new placeholder.
		t.Demote = current.Year
		t.Promote = entered.Year
		t.Insert = []YearSpec{
			{Year: entered.Year + 1, Month: entered.Month, Day: entered.Day},
		}

	case PreviousYear:
		// Backfilled years never become current retroactively.
		t.Insert = []YearSpec{
			{Year: entered.Year, Month: entered.Month, Day: entered.Day},
		}

	case InvalidGap:
		return Transition{Classification: InvalidGap},
			&GapError{Entered: entered.Year, Current: current.Year, Earliest: earliest}
	}

	return t, nil
}

// IsEmpty reports whether the transition changes nothing.
func (t Transition) IsEmpty() bool {
	return t.Demote == 0 && t.Promote == 0 && len(t.Insert) == 0
}

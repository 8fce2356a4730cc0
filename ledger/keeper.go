/*
keeper.go - Panel save/load orchestration

SAVE ALGORITHM (one logical transaction):
  1. Validate: collect every empty required field into one error; the
     city-name field only warns and is skipped.
  2. Resolve the target fiscal year. The organization panel carries the
     fiscal first-day date and may extend the chain (fiscal.Plan); every
     other panel targets the currently-active year and month.
  3. Ensure the field catalog covers every incoming name.
  4. Query prior rows for these fields in the current-year context.
  5. Partition into inserts (no prior row, or prior row from another
     year) and in-place updates (prior row already in the target year).
  6. Execute the batch. Steps 2-6 run inside a single WithTx, so a
     failure anywhere leaves the chain, catalog and data untouched.

Mutating calls are serialized by the store's single-writer discipline;
the Keeper adds no locking of its own beyond the snapshot cache.
*/
package ledger

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sidrat/treasury-engine/badi"
	"github.com/sidrat/treasury-engine/fiscal"
)

// Well-known panel and field names.
const (
	PanelOrganization = "organization"

	// FieldFiscalYearFirstDay carries the Badí' date the fiscal year
	// starts on; the organization panel must include it.
	FieldFiscalYearFirstDay = "fiscal_year_first_day"

	// FieldLocationCity is the one soft field: empty logs a warning
	// instead of aborting the save.
	FieldLocationCity = "location_city_name"
)

// Keeper orchestrates panel saves and loads over a TxStore.
type Keeper struct {
	store TxStore
	log   *zap.Logger
	org   *OrgSnapshot

	today func() badi.Date
}

// NewKeeper returns a Keeper over the given store.
func NewKeeper(store TxStore, log *zap.Logger) *Keeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Keeper{
		store: store,
		log:   log,
		org:   NewOrgSnapshot(),
		today: badi.Today,
	}
}

// Organization returns the cached organization snapshot.
func (k *Keeper) Organization() *OrgSnapshot {
	return k.org
}

// Store exposes the underlying store for read-side callers.
func (k *Keeper) Store() Store {
	return k.store
}

// SavePanel persists one panel's values. See the file header for the
// algorithm; on any error no mutation is visible.
func (k *Keeper) SavePanel(ctx context.Context, panel string, values PanelValues) error {
	encoded, err := k.validate(panel, values)
	if err != nil {
		return err
	}
	if len(encoded) == 0 {
		return nil
	}

	var entered badi.Date
	if panel == PanelOrganization {
		dateVal, ok := values[FieldFiscalYearFirstDay]
		if !ok {
			return fmt.Errorf("organization panel is missing %s", FieldFiscalYearFirstDay)
		}
		entered, err = badi.ParseDate(dateVal.Text)
		if err != nil {
			return err
		}
	}

	err = k.store.WithTx(ctx, func(s Store) error {
		current, err := s.CurrentFiscalYear(ctx)
		if err != nil {
			return err
		}

		targetYear, monthOrd, err := k.resolveTarget(ctx, s, panel, entered, current)
		if err != nil {
			return err
		}

		names := fieldNames(encoded)
		if _, err := EnsureFields(ctx, s, names); err != nil {
			return err
		}

		// Prior state is read in the current-year context, not the
		// target's: a NEXT_YEAR save must see last year's rows so they
		// fall into the insert partition.
		contextYear := targetYear
		if current != nil {
			contextYear = current.Year
		}
		prior, err := s.Values(ctx, ValueQuery{Fields: names, Year: contextYear})
		if err != nil {
			return err
		}
		byField := make(map[string]Row, len(prior))
		for _, r := range prior {
			byField[r.Field] = r
		}

		var inserts []Insert
		var updates []Update
		for _, name := range names {
			value := encoded[name]
			if row, ok := byField[name]; ok && row.Year == targetYear {
				updates = append(updates, Update{ID: row.ID, Value: value})
				continue
			}
			m := monthOrd
			inserts = append(inserts, Insert{
				Field:    name,
				Value:    value,
				Year:     targetYear,
				NextYear: targetYear + 1,
				Month:    &m,
			})
		}

		if err := s.InsertValues(ctx, inserts); err != nil {
			return err
		}
		return s.UpdateValues(ctx, updates)
	})
	if err != nil {
		k.log.Error("panel save failed",
			zap.String("panel", panel),
			zap.Int("fields", len(encoded)),
			zap.Error(err))
		return err
	}

	if panel == PanelOrganization {
		flat := make(map[string]string, len(values))
		for name, v := range values {
			if v.IsEmpty() {
				continue
			}
			flat[name] = v.Text
		}
		k.org.SetMap(flat)
	}

	k.log.Info("panel saved", zap.String("panel", panel), zap.Int("fields", len(encoded)))
	return nil
}

// LoadPanel returns display-formatted values for the given fields in the
// current fiscal year. Before first run it returns an empty map.
func (k *Keeper) LoadPanel(ctx context.Context, fields map[string]Kind) (map[string]string, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyFieldSet
	}

	current, err := k.store.CurrentFiscalYear(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return map[string]string{}, nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	rows, err := k.store.Values(ctx, ValueQuery{Fields: names, Year: current.Year})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Field] = r.Render(fields[r.Field])
	}
	return out, nil
}

// validate applies step 1 and encodes the surviving values for storage.
func (k *Keeper) validate(panel string, values PanelValues) (map[string]any, error) {
	var empty []string
	encoded := make(map[string]any, len(values))

	for name, v := range values {
		if v.IsEmpty() {
			if name == FieldLocationCity {
				k.log.Warn("city name left empty; timezone display will fall back to UTC",
					zap.String("panel", panel))
				continue
			}
			empty = append(empty, name)
			continue
		}
		enc, err := v.storage()
		if err != nil {
			return nil, err
		}
		encoded[name] = enc
	}

	if len(empty) > 0 {
		sort.Strings(empty)
		return nil, &EmptyFieldsError{Fields: empty}
	}
	return encoded, nil
}

// resolveTarget applies step 2 inside the transaction. For the
// organization panel it may extend the fiscal chain; other panels
// require an established chain.
func (k *Keeper) resolveTarget(ctx context.Context, s Store, panel string, entered badi.Date, current *fiscal.Year) (int, int, error) {
	if panel != PanelOrganization {
		if current == nil {
			return 0, 0, ErrNoFiscalYear
		}
		return current.Year, k.today().Month, nil
	}

	earliest, err := s.EarliestYear(ctx)
	if err != nil {
		return 0, 0, err
	}

	transition, err := fiscal.Plan(entered, current, earliest)
	if err != nil {
		return 0, 0, err
	}
	if !transition.IsEmpty() {
		if err := s.ApplyTransition(ctx, transition); err != nil {
			return 0, 0, err
		}
		k.log.Info("fiscal chain extended",
			zap.String("classification", transition.Classification.String()),
			zap.Int("year", entered.Year))
	}
	return entered.Year, entered.Month, nil
}

func fieldNames(encoded map[string]any) []string {
	names := make([]string, 0, len(encoded))
	for name := range encoded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

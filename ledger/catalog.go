/*
catalog.go - The append-only field catalog

Every field name a form ever collects gets a catalog row before any value
referencing it is written. The catalog only grows: historical data rows
may still reference fields no current form presents, and the catalog row
is what keeps those rows query-able. Nothing here deletes.
*/
package ledger

import "context"

// Missing computes candidates minus existing. Field names are a set;
// order of the result is unspecified.
func Missing(existing, candidates []string) []string {
	known := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		known[name] = struct{}{}
	}

	var added []string
	seen := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := known[name]; !ok {
			added = append(added, name)
		}
	}
	return added
}

// EnsureFields makes the catalog contain every candidate name, inserting
// only the ones not already present. Returns what was added; an empty
// candidate set is a no-op.
func EnsureFields(ctx context.Context, s Store, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	existing, err := s.FieldTypes(ctx, candidates)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(existing))
	for i, ft := range existing {
		names[i] = ft.Name
	}

	added := Missing(names, candidates)
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.AddFieldTypes(ctx, added); err != nil {
		return nil, err
	}
	return added, nil
}

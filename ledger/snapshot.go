/*
snapshot.go - In-memory projection of organization-level constants

The organization panel's values (timezone, membership baseline, treasurer
name) are needed by every date display and report; re-querying them each
time is wasteful. OrgSnapshot caches the flattened {field: value} view.

The cache is process-local and never a source of truth: it is replaced
wholesale after every successful organization save and rebuilt from the
store, never patched field by field.
*/
package ledger

import (
	"fmt"
	"sync"
)

// OrgSnapshot is the cached flattened view of the organization panel.
// Safe for concurrent readers.
type OrgSnapshot struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewOrgSnapshot returns an empty snapshot.
func NewOrgSnapshot() *OrgSnapshot {
	return &OrgSnapshot{values: map[string]string{}}
}

// SetRows replaces the snapshot from raw query rows.
func (s *OrgSnapshot) SetRows(rows []Row) {
	flat := make(map[string]string, len(rows))
	for _, r := range rows {
		flat[r.Field] = renderRaw(r.Value)
	}
	s.replace(flat)
}

// SetMap replaces the snapshot from an already-flattened map.
func (s *OrgSnapshot) SetMap(values map[string]string) {
	flat := make(map[string]string, len(values))
	for k, v := range values {
		flat[k] = v
	}
	s.replace(flat)
}

// Get returns a copy of the current snapshot; empty before first
// population.
func (s *OrgSnapshot) Get() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Lookup returns one value and whether it is present.
func (s *OrgSnapshot) Lookup(field string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[field]
	return v, ok
}

func (s *OrgSnapshot) replace(values map[string]string) {
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
}

func renderRaw(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

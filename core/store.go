package core

import (
	"sync"
)

// RecordStore is the canonical, keyed collection of IOC records for one
// session. Exactly one record exists per distinct value at any time, in
// order of first insertion. The store is the sole owner of record lifetime;
// readers receive point-in-time copies and must re-fetch after any
// asynchronous boundary, since the store may be replaced by a fresh analysis
// in the meantime.
//
// All access goes through a single writer lock so that concurrent HTTP
// handlers observe the same single-threaded semantics the filter and facet
// passes assume.
type RecordStore struct {
	mu      sync.RWMutex
	records []IOCRecord
	index   map[string]int // value -> position in records

	// Sequence tickets order bulk mutations by issue time. A completion
	// carrying an older ticket than the last applied one is stale and
	// must be discarded, so a slow enrichment response can never clobber
	// the results of a later-issued analysis.
	nextSeq     uint64
	lastApplied uint64
}

// NewRecordStore creates an empty record store
func NewRecordStore() *RecordStore {
	return &RecordStore{
		index: make(map[string]int),
	}
}

// UpsertBare inserts a new bare record if value is absent. If a record for
// value already exists it is left untouched, enriched state included; an
// upsert never downgrades.
func (s *RecordStore) UpsertBare(value string, typ IndicatorType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[value]; exists {
		return
	}
	s.index[value] = len(s.records)
	s.records = append(s.records, IOCRecord{Value: value, Type: typ})
}

// RemoveByValue deletes the record for value. Removing an absent key is a
// no-op, not an error.
func (s *RecordStore) RemoveByValue(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[value]
	if !exists {
		return
	}
	s.records = append(s.records[:pos], s.records[pos+1:]...)
	delete(s.index, value)
	for i := pos; i < len(s.records); i++ {
		s.index[s.records[i].Value] = i
	}
}

// Clear empties the store
func (s *RecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = make(map[string]int)
}

// Len returns the number of stored records
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a point-in-time copy of the current record sequence for
// read-only consumption by the filter and facet components.
func (s *RecordStore) Snapshot() []IOCRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IOCRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record for value, if present
func (s *RecordStore) Get(value string) (IOCRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, exists := s.index[value]
	if !exists {
		return IOCRecord{}, false
	}
	return s.records[pos], true
}

// Begin issues a sequence ticket for a bulk mutation. Tickets must be taken
// when the triggering request is issued, not when its response arrives, so
// that later-issued completions win over slower earlier ones.
func (s *RecordStore) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// ReplaceAllAt bulk-replaces the entire store contents with records, used
// when a full analysis response arrives. Returns false and leaves the store
// unmodified when a mutation with a later-issued ticket has already been
// applied.
func (s *RecordStore) ReplaceAllAt(seq uint64, records []IOCRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.lastApplied {
		return false
	}
	s.lastApplied = seq

	s.records = make([]IOCRecord, 0, len(records))
	s.index = make(map[string]int, len(records))
	for _, rec := range records {
		if _, dup := s.index[rec.Value]; dup {
			continue
		}
		s.index[rec.Value] = len(s.records)
		s.records = append(s.records, rec)
	}
	return true
}

// ReplaceAll bulk-replaces the store contents, ordering the operation at
// issue time of the call itself.
func (s *RecordStore) ReplaceAll(records []IOCRecord) {
	s.ReplaceAllAt(s.Begin(), records)
}

// ApplyEnrichmentAt merges a batch of enrichment deltas into the store.
// Returns false and leaves the store unmodified when the ticket is stale.
// Deltas with no matching stored record are dropped by the reconciler.
func (s *RecordStore) ApplyEnrichmentAt(seq uint64, deltas []IOCRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.lastApplied {
		return false
	}
	s.lastApplied = seq

	s.records = MergeEnrichment(s.records, deltas)
	for i, rec := range s.records {
		s.index[rec.Value] = i
	}
	return true
}

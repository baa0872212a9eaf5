package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"triage/core"
	"triage/enrich"
	"triage/metrics"
)

// ErrBusy is returned when an analyze or enrich call is already in flight
// for this session. The flag is advisory: it protects against duplicate
// submissions from the UI, not against arbitrary concurrent callers.
var ErrBusy = errors.New("an enrichment operation is already in progress")

// ErrStale is returned when a completed analyze or enrich call was
// overtaken by a later operation and its result was discarded. The store
// keeps the newer contents.
var ErrStale = errors.New("the operation was superseded by a later request")

// Session owns the working set for one analyst: the record store, the
// collaborator client, the enrichment cache, and the editable report
// narrative. All handler and CLI access to records goes through here.
type Session struct {
	store     *core.RecordStore
	client    *enrich.Client
	cache     *enrich.Cache
	logger    *zap.SugaredLogger
	analyzing atomic.Bool
	enriching atomic.Bool

	reportMu sync.RWMutex
	report   string
}

func New(client *enrich.Client, cache *enrich.Cache, logger *zap.SugaredLogger) *Session {
	return &Session{
		store:  core.NewRecordStore(),
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// ====================
// Record management
// ====================

// AddIndicators parses raw pasted text, classifies each candidate, and
// upserts the results as bare records. Returns the number of candidates
// parsed, or ErrInputEmpty when no candidates survive parsing.
func (s *Session) AddIndicators(raw string) (int, error) {
	candidates := core.ParseIndicators(raw)
	if len(candidates) == 0 {
		return 0, enrich.ErrInputEmpty
	}
	for _, candidate := range candidates {
		typ := core.Classify(candidate)
		s.store.UpsertBare(candidate, typ)
		metrics.IndicatorsClassified.WithLabelValues(string(typ)).Inc()
	}
	return len(candidates), nil
}

func (s *Session) Remove(value string) {
	s.store.RemoveByValue(value)
}

// Clear drops every record and purges the enrichment cache; stale cache
// entries must not leak into a fresh working set.
func (s *Session) Clear() {
	s.store.Clear()
	s.cache.Purge()
}

func (s *Session) Records() []core.IOCRecord {
	return s.store.Snapshot()
}

func (s *Session) Len() int {
	return s.store.Len()
}

func (s *Session) Facets() core.Facets {
	return core.ExtractFacets(s.store.Snapshot())
}

func (s *Session) Filter(spec core.FilterSpec) []core.IOCRecord {
	return core.FilterRecords(s.store.Snapshot(), spec)
}

// ====================
// Collaborator operations
// ====================

// AnalyzeURLs submits raw URL text for backend analysis and, on success,
// replaces the working set with the returned records. The store is left
// untouched when the collaborator call fails, and a completion that was
// overtaken by a later operation is dropped.
func (s *Session) AnalyzeURLs(ctx context.Context, raw string) (string, int, error) {
	urls := core.ParseIndicators(raw)
	if len(urls) == 0 {
		return "", 0, enrich.ErrInputEmpty
	}
	if !s.analyzing.CompareAndSwap(false, true) {
		return "", 0, ErrBusy
	}
	defer s.analyzing.Store(false)

	seq := s.store.Begin()
	result, err := s.client.Analyze(ctx, urls)
	if err != nil {
		return "", 0, err
	}
	if !s.store.ReplaceAllAt(seq, result.IOCs) {
		metrics.StaleCompletionsDropped.Inc()
		s.logger.Warnw("Discarded stale analysis completion", "seq", seq)
		return "", 0, ErrStale
	}
	s.SetReport(result.Report)
	return result.Report, len(result.IOCs), nil
}

// EnrichValues enriches the named records with the selected tools and
// merges the returned deltas back into the store. Records already cached
// for the same tool selection are served locally. Values with no backing
// record are ignored; an empty selection enriches nothing.
func (s *Session) EnrichValues(ctx context.Context, values []string, tools []string) (int, error) {
	if err := enrich.ValidateTools(tools); err != nil {
		return 0, err
	}
	if !s.enriching.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer s.enriching.Store(false)

	var pending []core.IOCRecord
	var cached []core.IOCRecord
	for _, value := range values {
		rec, ok := s.store.Get(value)
		if !ok {
			continue
		}
		if hit, ok := s.cache.Get(value, tools); ok {
			metrics.EnrichmentCacheHits.Inc()
			cached = append(cached, hit)
			continue
		}
		pending = append(pending, rec)
	}
	if len(pending) == 0 && len(cached) == 0 {
		return 0, enrich.ErrInputEmpty
	}

	seq := s.store.Begin()
	deltas := cached
	if len(pending) > 0 {
		fresh, err := s.client.Enrich(ctx, pending, tools)
		if err != nil {
			return 0, err
		}
		for _, delta := range fresh {
			s.cache.Put(delta, tools)
		}
		deltas = append(deltas, fresh...)
	}
	if !s.store.ApplyEnrichmentAt(seq, deltas) {
		metrics.StaleCompletionsDropped.Inc()
		s.logger.Warnw("Discarded stale enrichment completion", "seq", seq, "deltas", len(deltas))
		return 0, ErrStale
	}
	return len(deltas), nil
}

// ====================
// Report narrative
// ====================

// Report returns the current editable narrative; analysts may rewrite it
// before exporting, so SetReport accepts arbitrary text including empty.
func (s *Session) Report() string {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	return s.report
}

func (s *Session) SetReport(report string) {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	s.report = report
}

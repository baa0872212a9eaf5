package core

// MergeEnrichment reconciles a batch of enrichment deltas into an existing
// record sequence. For each existing record, a delta with the same value
// entirely replaces it; the enrichment service echoes back all fields for
// every indicator it processed, so no field-level merging is done within a
// single record. Existing records without a matching delta pass through
// unchanged. Deltas whose value matches no existing record indicate a
// contract violation by the collaborator and are silently dropped.
//
// The output preserves the order of existing; enrichment never reorders the
// list. Pure function: neither input slice is mutated.
func MergeEnrichment(existing, deltas []IOCRecord) []IOCRecord {
	if len(deltas) == 0 {
		out := make([]IOCRecord, len(existing))
		copy(out, existing)
		return out
	}

	byValue := make(map[string]IOCRecord, len(deltas))
	for _, delta := range deltas {
		byValue[delta.Value] = delta
	}

	out := make([]IOCRecord, 0, len(existing))
	for _, rec := range existing {
		if delta, ok := byValue[rec.Value]; ok {
			out = append(out, delta)
			continue
		}
		out = append(out, rec)
	}
	return out
}

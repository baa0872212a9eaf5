package core

// FilterSpec is the multi-dimensional query evaluated against every record.
// Dimensions are ANDed together; the selected values within one dimension
// are ORed. An empty slice means "no constraint on this dimension": an unset
// filter must never exclude records.
type FilterSpec struct {
	Types           []IndicatorType `json:"types"`
	RiskLevels      []RiskLevel     `json:"risk_levels"`
	APTGroups       []string        `json:"apt_groups"`
	MalwareFamilies []string        `json:"malware_families"`
	ScoreRange      [2]float64      `json:"score_range"`
}

// DefaultFilterSpec returns the pass-through spec: no dimension constraints
// and the full score range.
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{ScoreRange: [2]float64{0, 100}}
}

// Matches reports whether a single record passes every active predicate.
// A record with absent scoring never matches a non-empty risk-level filter,
// and its effective score is 0 for the range check. The score range is
// inclusive at both ends.
func (spec FilterSpec) Matches(rec *IOCRecord) bool {
	if len(spec.Types) > 0 && !containsType(spec.Types, rec.Type) {
		return false
	}

	if len(spec.RiskLevels) > 0 {
		if rec.Scoring == nil || !containsRisk(spec.RiskLevels, rec.Scoring.RiskLevel) {
			return false
		}
	}

	score := rec.EffectiveScore()
	if score < spec.ScoreRange[0] || score > spec.ScoreRange[1] {
		return false
	}

	if len(spec.APTGroups) > 0 && !intersects(rec.APTGroups(), spec.APTGroups) {
		return false
	}
	if len(spec.MalwareFamilies) > 0 && !intersects(rec.MalwareFamilies(), spec.MalwareFamilies) {
		return false
	}

	return true
}

// FilterRecords returns the subset of records matching all active predicates
// of spec, preserving input order. Stateless; re-evaluated from the full
// snapshot on each call.
func FilterRecords(records []IOCRecord, spec FilterSpec) []IOCRecord {
	out := make([]IOCRecord, 0, len(records))
	for i := range records {
		if spec.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func containsType(set []IndicatorType, t IndicatorType) bool {
	for _, candidate := range set {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsRisk(set []RiskLevel, level RiskLevel) bool {
	for _, candidate := range set {
		if candidate == level {
			return true
		}
	}
	return false
}

// intersects reports whether the two string sets share at least one element
func intersects(have, want []string) bool {
	if len(have) == 0 {
		return false
	}
	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[w] = true
	}
	for _, h := range have {
		if wanted[h] {
			return true
		}
	}
	return false
}

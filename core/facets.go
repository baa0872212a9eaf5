package core

// Facets holds the distinct attribute values present in a record set, used
// to drive the dashboard's filter options.
type Facets struct {
	Types           []IndicatorType `json:"types"`
	RiskLevels      []RiskLevel     `json:"risk_levels"`
	APTGroups       []string        `json:"apt_groups"`
	MalwareFamilies []string        `json:"malware_families"`
}

// ExtractFacets derives filter facets from the current snapshot. Types,
// APT groups and malware families are collected in first-seen order with
// duplicates removed; absent threat_intel arrays are treated as empty. Risk
// levels are NOT derived from data: the fixed tier set is always offered,
// whether or not a level currently has matches. Pure and recomputed on
// every call.
func ExtractFacets(records []IOCRecord) Facets {
	facets := Facets{
		RiskLevels:      append([]RiskLevel(nil), FilterableRiskLevels...),
		APTGroups:       []string{},
		MalwareFamilies: []string{},
	}

	seenTypes := make(map[IndicatorType]bool)
	seenGroups := make(map[string]bool)
	seenFamilies := make(map[string]bool)

	for _, rec := range records {
		if !seenTypes[rec.Type] {
			seenTypes[rec.Type] = true
			facets.Types = append(facets.Types, rec.Type)
		}
		for _, group := range rec.APTGroups() {
			if !seenGroups[group] {
				seenGroups[group] = true
				facets.APTGroups = append(facets.APTGroups, group)
			}
		}
		for _, family := range rec.MalwareFamilies() {
			if !seenFamilies[family] {
				seenFamilies[family] = true
				facets.MalwareFamilies = append(facets.MalwareFamilies, family)
			}
		}
	}

	if facets.Types == nil {
		facets.Types = []IndicatorType{}
	}
	return facets
}

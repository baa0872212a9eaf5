package core

import (
	"encoding/json"
	"regexp"
)

// =============================================================================
// Indicator Types and Constants
// =============================================================================

// IndicatorType represents the classified type of an indicator of compromise
type IndicatorType string

const (
	IndicatorTypeIPv4    IndicatorType = "ipv4"
	IndicatorTypeURL     IndicatorType = "url"
	IndicatorTypeMD5     IndicatorType = "md5"
	IndicatorTypeSHA1    IndicatorType = "sha1"
	IndicatorTypeSHA256  IndicatorType = "sha256"
	IndicatorTypeDomain  IndicatorType = "domain"
	IndicatorTypeUnknown IndicatorType = "unknown"
)

// AllIndicatorTypes returns all valid indicator types for validation
var AllIndicatorTypes = []IndicatorType{
	IndicatorTypeIPv4, IndicatorTypeURL, IndicatorTypeMD5,
	IndicatorTypeSHA1, IndicatorTypeSHA256, IndicatorTypeDomain,
	IndicatorTypeUnknown,
}

// IsValid checks if the indicator type is valid
func (t IndicatorType) IsValid() bool {
	for _, valid := range AllIndicatorTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// RiskLevel represents the enrichment-assigned risk tier of an indicator
type RiskLevel string

const (
	RiskLevelCritical      RiskLevel = "CRITICAL"
	RiskLevelHigh          RiskLevel = "HIGH"
	RiskLevelMedium        RiskLevel = "MEDIUM"
	RiskLevelLow           RiskLevel = "LOW"
	RiskLevelInformational RiskLevel = "INFORMATIONAL"
)

// FilterableRiskLevels is the fixed, ordered set of risk levels offered as
// filter facets. Always offered in full, regardless of what the current
// record set contains.
var FilterableRiskLevels = []RiskLevel{
	RiskLevelHigh, RiskLevelMedium, RiskLevelLow, RiskLevelInformational,
}

// =============================================================================
// Indicator Classification
// =============================================================================

// Classification patterns - compiled once at package init.
// The ipv4 pattern is purely syntactic: groups of 1-3 digits are accepted
// without range-checking octets against 0-255.
var (
	ipv4Pattern   = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	urlPattern    = regexp.MustCompile(`(?i)^https?://`)
	md5Pattern    = regexp.MustCompile(`(?i)^[a-f0-9]{32}$`)
	sha1Pattern   = regexp.MustCompile(`(?i)^[a-f0-9]{40}$`)
	sha256Pattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)
	domainPattern = regexp.MustCompile(`(?i)^[a-z0-9]+([-.][a-z0-9]+)*\.[a-z]{2,}$`)
)

// classificationRule pairs a pattern with the type it assigns
type classificationRule struct {
	pattern *regexp.Regexp
	typ     IndicatorType
}

// classificationRules is evaluated in order; the first matching rule wins.
// Hash lengths are mutually exclusive so order among them is irrelevant, but
// all of them, plus ipv4 and url, must be tried before the loose domain
// grammar, which would otherwise capture bare IPs and borderline tokens.
var classificationRules = []classificationRule{
	{ipv4Pattern, IndicatorTypeIPv4},
	{urlPattern, IndicatorTypeURL},
	{md5Pattern, IndicatorTypeMD5},
	{sha1Pattern, IndicatorTypeSHA1},
	{sha256Pattern, IndicatorTypeSHA256},
	{domainPattern, IndicatorTypeDomain},
}

// Classify maps a candidate string to an indicator type using the fixed
// precedence rule set. Falls through to IndicatorTypeUnknown when no rule
// matches; unknown is a valid terminal classification, not a failure.
func Classify(candidate string) IndicatorType {
	for _, rule := range classificationRules {
		if rule.pattern.MatchString(candidate) {
			return rule.typ
		}
	}
	return IndicatorTypeUnknown
}

// =============================================================================
// IOC Record
// =============================================================================

// Scoring holds the enrichment-computed score for an indicator.
// Present on a record only once an enrichment round has returned scoring data.
type Scoring struct {
	CurrentScore   float64   `json:"current_score"`
	BaseScore      float64   `json:"base_score"`
	HoursSinceSeen *float64  `json:"hours_since_seen,omitempty"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

// Campaign is opaque pass-through data attached by enrichment; the core does
// not interpret it beyond display grouping.
type Campaign struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Created     string   `json:"created,omitempty"`
	Modified    string   `json:"modified,omitempty"`
}

// ThreatIntel holds attribution data returned by enrichment
type ThreatIntel struct {
	APTGroups          []string   `json:"apt_groups"`
	MalwareFamilies    []string   `json:"malware_families"`
	Campaigns          []Campaign `json:"campaigns"`
	IndustriesTargeted []string   `json:"industries_targeted"`
	TargetedCountries  [][]string `json:"targeted_countries"`
}

// IOCRecord is the canonical record for one indicator value. Value is the
// uniqueness key within a session and is immutable once created; Type is
// assigned at creation and never changed by merge.
type IOCRecord struct {
	Value       string        `json:"value"`
	Type        IndicatorType `json:"type"`
	Scoring     *Scoring      `json:"scoring,omitempty"`
	ThreatIntel *ThreatIntel  `json:"threat_intel,omitempty"`
	// Results maps a source tool name to that tool's raw response. The
	// payloads are opaque to the core and passed through for display.
	Results map[string]json.RawMessage `json:"results,omitempty"`
}

// Enriched reports whether an enrichment round has returned tool results
// for this record. The predicate is the results map alone: scoring or
// attribution without results does not count.
func (r *IOCRecord) Enriched() bool {
	return len(r.Results) > 0
}

// EffectiveScore returns the current score, defaulting to 0 when scoring is
// absent. Used by the filter engine's score-range predicate.
func (r *IOCRecord) EffectiveScore() float64 {
	if r.Scoring == nil {
		return 0
	}
	return r.Scoring.CurrentScore
}

// APTGroups returns the record's APT group attribution, treating an absent
// threat_intel block as empty.
func (r *IOCRecord) APTGroups() []string {
	if r.ThreatIntel == nil {
		return nil
	}
	return r.ThreatIntel.APTGroups
}

// MalwareFamilies returns the record's malware family attribution, treating
// an absent threat_intel block as empty.
func (r *IOCRecord) MalwareFamilies() []string {
	if r.ThreatIntel == nil {
		return nil
	}
	return r.ThreatIntel.MalwareFamilies
}

// NewBareRecord creates an unenriched record, classifying the value
func NewBareRecord(value string) IOCRecord {
	return IOCRecord{
		Value: value,
		Type:  Classify(value),
	}
}

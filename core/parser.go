package core

import (
	"regexp"
	"strings"
)

// indicatorSeparators matches one-or-more consecutive commas or newlines;
// a run of either counts as a single split point.
var indicatorSeparators = regexp.MustCompile(`[,\n]+`)

// ParseIndicators splits raw multi-indicator text into trimmed candidate
// strings. Empty pieces are discarded and relative order of first occurrence
// is preserved. Duplicates are NOT removed here; deduplication happens at
// record store insertion via the value key. A whitespace-only input yields
// an empty slice.
func ParseIndicators(raw string) []string {
	pieces := indicatorSeparators.Split(raw, -1)
	candidates := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}
		candidates = append(candidates, trimmed)
	}
	return candidates
}

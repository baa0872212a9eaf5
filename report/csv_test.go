package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/core"
)

func TestBuildCSV(t *testing.T) {
	enriched := core.IOCRecord{
		Value: "103.246.147.17",
		Type:  core.IndicatorTypeIPv4,
		Scoring: &core.Scoring{
			CurrentScore: 34.76,
			BaseScore:    42.45,
			RiskLevel:    core.RiskLevelMedium,
		},
		ThreatIntel: &core.ThreatIntel{
			APTGroups:       []string{"Water Gamayun"},
			MalwareFamilies: []string{"Silentprism", "Darkwisp"},
		},
		Results: map[string]json.RawMessage{"virustotal": json.RawMessage(`{}`)},
	}
	bare := core.IOCRecord{Value: "http://belaysolutions.link", Type: core.IndicatorTypeURL}

	csv := BuildCSV([]core.IOCRecord{enriched, bare})
	lines := strings.Split(csv, "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "IOC Value,Type,Risk Level,Score,APT Groups,Malware", lines[0])
	assert.Equal(t, `"103.246.147.17",IPV4,MEDIUM,34.8,"Water Gamayun","Silentprism, Darkwisp"`, lines[1])
	// Unenriched rows emit empty strings for risk level, score and associations
	assert.Equal(t, `"http://belaysolutions.link",URL,,,"",""`, lines[2])
}

func TestBuildCSV_UnknownType(t *testing.T) {
	rec := core.IOCRecord{Value: "???"}
	csv := BuildCSV([]core.IOCRecord{rec})
	assert.Contains(t, csv, `"???",UNKNOWN`)
}

func TestBuildCSV_EscapesQuotes(t *testing.T) {
	rec := core.IOCRecord{Value: `say "hi"`, Type: core.IndicatorTypeUnknown}
	csv := BuildCSV([]core.IOCRecord{rec})
	assert.Contains(t, csv, `"say ""hi""",UNKNOWN`)
}

func TestBuildCSV_Empty(t *testing.T) {
	csv := BuildCSV(nil)
	assert.Equal(t, "IOC Value,Type,Risk Level,Score,APT Groups,Malware\n", csv)
}

func TestCSVFilename(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "adhoc-ioc-enrichment-2026-08-31.csv", CSVFilename(now))
}

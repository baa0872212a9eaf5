package report

import (
	"fmt"
	"strings"
	"time"

	"triage/core"
)

// csvHeader is the fixed column set of the CSV export
var csvHeader = []string{"IOC Value", "Type", "Risk Level", "Score", "APT Groups", "Malware"}

// BuildCSV renders the record set as a CSV table. The IOC value and the
// joined association lists are always double-quoted; unenriched rows emit
// empty strings for risk level, score and associations. Rows follow the
// input order.
//
// The quoting here is part of the export contract (values and joined lists
// are quoted unconditionally), so the table is rendered directly rather
// than through encoding/csv, which quotes only when a field requires it.
func BuildCSV(records []core.IOCRecord) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteByte('\n')

	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(csvRow(&rec))
	}
	return b.String()
}

func csvRow(rec *core.IOCRecord) string {
	typ := strings.ToUpper(string(rec.Type))
	if typ == "" {
		typ = "UNKNOWN"
	}

	riskLevel := ""
	score := ""
	aptGroups := ""
	malware := ""
	if rec.Enriched() {
		if rec.Scoring != nil {
			riskLevel = string(rec.Scoring.RiskLevel)
			score = fmt.Sprintf("%.1f", rec.Scoring.CurrentScore)
		}
		aptGroups = strings.Join(rec.APTGroups(), ", ")
		malware = strings.Join(rec.MalwareFamilies(), ", ")
	}

	fields := []string{
		quote(rec.Value),
		typ,
		riskLevel,
		score,
		quote(aptGroups),
		quote(malware),
	}
	return strings.Join(fields, ",")
}

// quote wraps a field in double quotes, escaping embedded quotes
func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// CSVFilename returns the dated export filename
func CSVFilename(now time.Time) string {
	return fmt.Sprintf("adhoc-ioc-enrichment-%s.csv", now.Format("2006-01-02"))
}

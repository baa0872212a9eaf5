package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"triage/core"
)

// outputAsJSON marshals data to indented JSON on stdout
func outputAsJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// renderRecordsTable displays classified records in a formatted table
func renderRecordsTable(records []core.IOCRecord) {
	if len(records) == 0 {
		warningColor.Println("No indicators")
		return
	}

	headerColor.Println("INDICATORS")
	headerColor.Println(strings.Repeat("=", 110))
	fmt.Printf("%-50s %-8s %-15s %-8s %-25s\n",
		"Value", "Type", "Risk", "Score", "APT Groups")
	fmt.Println(strings.Repeat("-", 110))

	for i := range records {
		rec := &records[i]

		value := rec.Value
		if len(value) > 49 {
			value = value[:46] + "..."
		}

		risk := "-"
		score := "-"
		if rec.Scoring != nil {
			risk = string(rec.Scoring.RiskLevel)
			score = fmt.Sprintf("%.1f", rec.EffectiveScore())
		}

		apts := strings.Join(rec.APTGroups(), ", ")
		if len(apts) > 24 {
			apts = apts[:21] + "..."
		}

		fmt.Printf("%-50s %-8s %-15s %-8s %-25s\n",
			value, string(rec.Type), formatRisk(risk), score, apts)
	}

	fmt.Println(strings.Repeat("=", 110))
}

// formatRisk colors a risk level for terminal output
func formatRisk(risk string) string {
	switch core.RiskLevel(risk) {
	case core.RiskLevelCritical, core.RiskLevelHigh:
		return errorColor.Sprint(risk)
	case core.RiskLevelMedium:
		return warningColor.Sprint(risk)
	case core.RiskLevelLow, core.RiskLevelInformational:
		return successColor.Sprint(risk)
	default:
		return risk
	}
}

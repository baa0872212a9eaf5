package enrich

import (
	"fmt"

	"triage/core"
)

// Tool identifies one of the intelligence sources the enrichment service can
// query on our behalf.
type Tool string

const (
	ToolVirusTotal Tool = "virustotal"
	ToolAbuseIPDB  Tool = "abuseipdb"
	ToolShodan     Tool = "shodan"
	ToolAlienVault Tool = "alienvault"
	ToolIPInfo     Tool = "ipinfo"
	ToolURLScan    Tool = "urlscan"
	ToolThreatFox  Tool = "threatfox"
)

// ToolCatalog is the fixed, ordered set of selectable enrichment tools.
var ToolCatalog = []Tool{
	ToolVirusTotal, ToolAbuseIPDB, ToolShodan, ToolAlienVault,
	ToolIPInfo, ToolURLScan, ToolThreatFox,
}

// IsValid checks the tool against the fixed catalog
func (t Tool) IsValid() bool {
	for _, valid := range ToolCatalog {
		if t == valid {
			return true
		}
	}
	return false
}

// ValidateTools checks every id against the catalog before a request is
// issued; an unknown tool id is a caller error, not a collaborator one.
func ValidateTools(tools []string) error {
	if len(tools) == 0 {
		return fmt.Errorf("at least one enrichment tool is required")
	}
	for _, id := range tools {
		if !Tool(id).IsValid() {
			return fmt.Errorf("unknown enrichment tool: %s", id)
		}
	}
	return nil
}

// AnalysisResult is the response of the analyze collaborator: a narrative
// report plus the bare, unenriched records it extracted. Server-classified
// type fields are trusted as-is; the classifier is not re-run on them.
type AnalysisResult struct {
	Report string           `json:"report"`
	IOCs   []core.IOCRecord `json:"iocs"`
}

// analyzeRequest is the analyze collaborator's request body
type analyzeRequest struct {
	URLs []string `json:"urls"`
}

// enrichRequest is the enrichment collaborator's request body
type enrichRequest struct {
	IOCs    []core.IOCRecord `json:"iocs"`
	Options []string         `json:"options"`
}

// enrichEnvelope is the enrichment collaborator's success envelope.
// success=false or absent data is a hard failure.
type enrichEnvelope struct {
	Success bool             `json:"success"`
	Data    []core.IOCRecord `json:"data"`
}

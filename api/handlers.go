package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"triage/core"
	"triage/enrich"
	"triage/report"
	"triage/session"
)

// ====================
// Request/response shapes
// ====================

type analyzeRequest struct {
	URLs string `json:"urls" validate:"required"`
}

type addIOCsRequest struct {
	IOCs string `json:"iocs" validate:"required"`
}

type enrichIOCsRequest struct {
	Values  []string `json:"values" validate:"required,min=1,dive,required"`
	Options []string `json:"options" validate:"required,min=1,dive,required"`
}

type reportRequest struct {
	Report string `json:"report"`
}

type analyzeResponse struct {
	Report string           `json:"report"`
	Count  int              `json:"count"`
	IOCs   []core.IOCRecord `json:"iocs"`
}

type countResponse struct {
	Count int `json:"count"`
}

// ====================
// Helpers
// ====================

// respondJSON writes a JSON response with proper error handling
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}

// writeError logs the full error and sends the client a terse message
func (a *API) writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		a.logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
	} else {
		a.logger.Errorw(message, "status_code", statusCode)
	}
	http.Error(w, message, statusCode)
}

// decodeAndValidate parses a JSON body and runs struct validation on it
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		a.writeError(w, http.StatusBadRequest, "Request validation failed", err)
		return false
	}
	return true
}

// writeOperationError maps session and collaborator errors onto HTTP codes
func (a *API) writeOperationError(w http.ResponseWriter, err error) {
	var netErr *enrich.NetworkError
	switch {
	case errors.Is(err, enrich.ErrInputEmpty):
		a.writeError(w, http.StatusBadRequest, "No indicators found in input", err)
	case errors.Is(err, session.ErrBusy):
		a.writeError(w, http.StatusConflict, "An enrichment operation is already in progress", err)
	case errors.Is(err, session.ErrStale):
		a.writeError(w, http.StatusConflict, "The operation was superseded by a later request", err)
	case errors.Is(err, enrich.ErrEnvelopeInvalid):
		a.writeError(w, http.StatusBadGateway, "Backend returned an invalid response", err)
	case errors.As(err, &netErr):
		a.writeError(w, http.StatusBadGateway, "Backend request failed", err)
	default:
		a.writeError(w, http.StatusBadRequest, "Operation failed", err)
	}
}

// ====================
// Handlers
// ====================

// analyzeURLs submits pasted URLs for backend analysis and replaces the
// working set with the result.
func (a *API) analyzeURLs(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	narrative, n, err := a.session.AnalyzeURLs(r.Context(), req.URLs)
	if err != nil {
		a.writeOperationError(w, err)
		return
	}
	a.respondJSON(w, analyzeResponse{
		Report: narrative,
		Count:  n,
		IOCs:   a.session.Records(),
	}, http.StatusOK)
}

// addIOCs parses pasted text into classified bare records
func (a *API) addIOCs(w http.ResponseWriter, r *http.Request) {
	var req addIOCsRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	n, err := a.session.AddIndicators(req.IOCs)
	if err != nil {
		a.writeOperationError(w, err)
		return
	}
	a.respondJSON(w, countResponse{Count: n}, http.StatusOK)
}

// getIOCs returns the working set, optionally narrowed by filter query
// parameters: type, risk_level, apt_group, malware_family (comma
// separated) and score_min/score_max.
func (a *API) getIOCs(w http.ResponseWriter, r *http.Request) {
	spec, err := filterSpecFromQuery(r.URL.Query())
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid filter parameters", err)
		return
	}
	a.respondJSON(w, a.session.Filter(spec), http.StatusOK)
}

func (a *API) removeIOC(w http.ResponseWriter, r *http.Request) {
	a.session.Remove(mux.Vars(r)["value"])
	a.respondJSON(w, map[string]string{"status": "removed"}, http.StatusOK)
}

func (a *API) clearIOCs(w http.ResponseWriter, r *http.Request) {
	a.session.Clear()
	a.respondJSON(w, map[string]string{"status": "cleared"}, http.StatusOK)
}

// enrichIOCs runs the selected tools against the named records
func (a *API) enrichIOCs(w http.ResponseWriter, r *http.Request) {
	var req enrichIOCsRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	n, err := a.session.EnrichValues(r.Context(), req.Values, req.Options)
	if err != nil {
		a.writeOperationError(w, err)
		return
	}
	records := a.session.Records()
	a.respondJSON(w, map[string]interface{}{
		"enriched": n,
		"count":    len(records),
		"iocs":     records,
	}, http.StatusOK)
}

func (a *API) getFacets(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, a.session.Facets(), http.StatusOK)
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, reportRequest{Report: a.session.Report()}, http.StatusOK)
}

// putReport overwrites the editable narrative; empty text is allowed so
// analysts can discard a generated report.
func (a *API) putReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a.session.SetReport(req.Report)
	a.respondJSON(w, map[string]string{"status": "updated"}, http.StatusOK)
}

// exportCSV streams the current working set as a CSV download
func (a *API) exportCSV(w http.ResponseWriter, r *http.Request) {
	body := report.BuildCSV(a.session.Records())
	filename := report.CSVFilename(time.Now())

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		a.logger.Errorw("Failed to write CSV export", "error", err)
	}
}

// exportReport renders the current narrative into a docx via the backend
func (a *API) exportReport(w http.ResponseWriter, r *http.Request) {
	narrative := a.session.Report()
	if strings.TrimSpace(narrative) == "" {
		a.writeError(w, http.StatusBadRequest, "No report to export", nil)
		return
	}

	doc, err := a.reports.GenerateDocx(r.Context(), narrative)
	if err != nil {
		a.writeOperationError(w, err)
		return
	}

	w.Header().Set("Content-Type", report.DocxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.DocxFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		a.logger.Errorw("Failed to write report export", "error", err)
	}
}

// healthCheck reports service liveness
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, map[string]interface{}{
		"status":     "ok",
		"indicators": a.session.Len(),
	}, http.StatusOK)
}

// ====================
// Filter query parsing
// ====================

func filterSpecFromQuery(query url.Values) (core.FilterSpec, error) {
	spec := core.DefaultFilterSpec()

	for _, raw := range splitParam(query.Get("type")) {
		typ := core.IndicatorType(raw)
		if !typ.IsValid() {
			return spec, fmt.Errorf("unknown indicator type %q", raw)
		}
		spec.Types = append(spec.Types, typ)
	}
	for _, raw := range splitParam(query.Get("risk_level")) {
		spec.RiskLevels = append(spec.RiskLevels, core.RiskLevel(raw))
	}
	spec.APTGroups = splitParam(query.Get("apt_group"))
	spec.MalwareFamilies = splitParam(query.Get("malware_family"))

	if raw := query.Get("score_min"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid score_min %q", raw)
		}
		spec.ScoreRange[0] = min
	}
	if raw := query.Get("score_max"); raw != "" {
		max, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid score_max %q", raw)
		}
		spec.ScoreRange[1] = max
	}
	if spec.ScoreRange[0] > spec.ScoreRange[1] {
		return spec, fmt.Errorf("score_min %v exceeds score_max %v", spec.ScoreRange[0], spec.ScoreRange[1])
	}
	return spec, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

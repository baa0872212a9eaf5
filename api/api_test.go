package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triage/config"
	"triage/core"
	"triage/enrich"
	"triage/report"
	"triage/session"
)

type mockReportGenerator struct {
	doc []byte
	err error
}

func (m *mockReportGenerator) GenerateDocx(ctx context.Context, report string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

type apiFixture struct {
	api     *API
	mock    *enrich.MockCollaborator
	reports *mockReportGenerator
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	mock := enrich.NewMockCollaborator()
	t.Cleanup(mock.Close)

	client := enrich.NewClient(
		mock.URL()+"/analyze-urls",
		mock.URL()+"/enrich-iocs",
		"test-token",
		5*time.Second,
		zap.NewNop().Sugar(),
	)
	sess := session.New(client, enrich.NewCache(64, time.Minute), zap.NewNop().Sugar())

	cfg := &config.Config{}
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.API.RateLimit.RequestsPerSecond = 1000
	cfg.API.RateLimit.Burst = 1000

	reports := &mockReportGenerator{doc: []byte("PK\x03\x04docx-bytes")}
	a := NewAPI(sess, reports, cfg, zap.NewNop().Sugar())
	t.Cleanup(func() { a.Stop(context.Background()) })

	return &apiFixture{api: a, mock: mock, reports: reports}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) seed(t *testing.T, input string) {
	t.Helper()
	rec := f.do(t, "POST", "/api/iocs", addIOCsRequest{IOCs: input})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_AddIOCs(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "POST", "/api/iocs", addIOCsRequest{IOCs: "103.246.147.17, admin.zscloud.net"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp countResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestAPI_AddIOCs_EmptyInput(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "POST", "/api/iocs", addIOCsRequest{IOCs: " , \n "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AddIOCs_MissingField(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "POST", "/api/iocs", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetIOCs(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17, admin.zscloud.net")

	rec := f.do(t, "GET", "/api/iocs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []core.IOCRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "103.246.147.17", records[0].Value)
	assert.Equal(t, core.IndicatorTypeIPv4, records[0].Type)
}

func TestAPI_GetIOCs_FilterByType(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17, admin.zscloud.net, d41d8cd98f00b204e9800998ecf8427e")

	rec := f.do(t, "GET", "/api/iocs?type=ipv4,md5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []core.IOCRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestAPI_GetIOCs_BadFilter(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "GET", "/api/iocs?type=ipv9", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "GET", "/api/iocs?score_min=50&score_max=10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RemoveIOC_URLValue(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17,http://belaysolutions.link/path")

	// URL-valued indicators contain slashes and must survive the path match.
	rec := f.do(t, "DELETE", "/api/iocs/"+url.PathEscape("http://belaysolutions.link/path"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/api/iocs", nil)
	var records []core.IOCRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "103.246.147.17", records[0].Value)
}

func TestAPI_ClearIOCs(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17")

	rec := f.do(t, "DELETE", "/api/iocs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/api/iocs", nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAPI_Analyze(t *testing.T) {
	f := newAPIFixture(t)

	f.mock.SetAnalysis(enrich.AnalysisResult{
		Report: "Infrastructure linked to Water Gamayun.",
		IOCs:   []core.IOCRecord{core.NewBareRecord("103.246.147.17")},
	})

	rec := f.do(t, "POST", "/api/analyze", analyzeRequest{URLs: "http://belaysolutions.link"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Contains(t, resp.Report, "Water Gamayun")
	require.Len(t, resp.IOCs, 1)
}

func TestAPI_Analyze_BackendDown(t *testing.T) {
	f := newAPIFixture(t)
	f.mock.FailWith(503)

	rec := f.do(t, "POST", "/api/analyze", analyzeRequest{URLs: "http://belaysolutions.link"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPI_Enrich(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17")

	f.mock.SetEnrichment(core.IOCRecord{
		Value:   "103.246.147.17",
		Type:    core.IndicatorTypeIPv4,
		Scoring: &core.Scoring{CurrentScore: 34.76, BaseScore: 34.76, RiskLevel: core.RiskLevelMedium},
		Results: map[string]json.RawMessage{
			"virustotal": json.RawMessage(`{"malicious":10}`),
		},
	})

	rec := f.do(t, "POST", "/api/enrich", enrichIOCsRequest{
		Values:  []string{"103.246.147.17"},
		Options: []string{"virustotal"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Enriched int              `json:"enriched"`
		IOCs     []core.IOCRecord `json:"iocs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Enriched)
	require.Len(t, resp.IOCs, 1)
	assert.True(t, resp.IOCs[0].Enriched())
}

func TestAPI_Enrich_UnknownTool(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17")

	rec := f.do(t, "POST", "/api/enrich", enrichIOCsRequest{
		Values:  []string{"103.246.147.17"},
		Options: []string{"nmap"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Enrich_InvalidEnvelope(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17")
	f.mock.BreakEnvelope()

	rec := f.do(t, "POST", "/api/enrich", enrichIOCsRequest{
		Values:  []string{"103.246.147.17"},
		Options: []string{"virustotal"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPI_GetFacets(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17, admin.zscloud.net")

	rec := f.do(t, "GET", "/api/facets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var facets core.Facets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facets))
	assert.Equal(t, []core.IndicatorType{core.IndicatorTypeIPv4, core.IndicatorTypeDomain}, facets.Types)
	assert.Equal(t, core.FilterableRiskLevels, facets.RiskLevels)
}

func TestAPI_ReportRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "PUT", "/api/report", reportRequest{Report: "Edited findings."})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reportRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Edited findings.", resp.Report)
}

func TestAPI_ExportCSV(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "103.246.147.17")

	rec := f.do(t, "GET", "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "adhoc-ioc-enrichment-")
	assert.Contains(t, rec.Body.String(), "IOC Value,Type,Risk Level,Score,APT Groups,Malware")
	assert.Contains(t, rec.Body.String(), `"103.246.147.17"`)
}

func TestAPI_ExportReport(t *testing.T) {
	f := newAPIFixture(t)

	// No narrative yet: nothing to export.
	rec := f.do(t, "POST", "/api/export/report", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.do(t, "PUT", "/api/report", reportRequest{Report: "Findings."})
	rec = f.do(t, "POST", "/api/export/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.DocxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), report.DocxFilename)
	assert.Equal(t, f.reports.doc, rec.Body.Bytes())
}

func TestAPI_ExportReport_BackendFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, "PUT", "/api/report", reportRequest{Report: "Findings."})
	f.reports.err = &enrich.NetworkError{Collaborator: "report", Err: errors.New("connection refused")}

	rec := f.do(t, "POST", "/api/export/report", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPI_HealthCheck(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAPI_CORSHeaders(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest("OPTIONS", "/api/iocs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origins get no allow header.
	req = httptest.NewRequest("OPTIONS", "/api/iocs", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPI_RequestIDAssigned(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "GET", "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestAPI_RateLimit(t *testing.T) {
	f := newAPIFixture(t)
	f.api.config.API.RateLimit.RequestsPerSecond = 1
	f.api.config.API.RateLimit.Burst = 2

	var limited bool
	for i := 0; i < 10; i++ {
		rec := f.do(t, "GET", "/health", nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected at least one request to be rate limited")
}

package enrich

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"triage/core"
)

// MockCollaborator implements a mock HTTP server emulating the analyze and
// enrichment collaborators for tests.
type MockCollaborator struct {
	server *httptest.Server

	mu          sync.Mutex
	requests    []CapturedRequest
	analysis    AnalysisResult
	enrichments map[string]core.IOCRecord
	failStatus  int  // when non-zero, every call returns this status
	brokenBody  bool // when true, 2xx responses carry a malformed envelope
	denySuccess bool // when true, the enrich envelope carries success=false
}

// CapturedRequest records one request received by the mock server
type CapturedRequest struct {
	Path   string
	Body   string
	Bearer string
}

// NewMockCollaborator starts a mock collaborator server. Close it when done.
func NewMockCollaborator() *MockCollaborator {
	m := &MockCollaborator{
		enrichments: make(map[string]core.IOCRecord),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/analyze-urls", m.handleAnalyze)
	mux.HandleFunc("/enrich-iocs", m.handleEnrich)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the base URL of the mock server
func (m *MockCollaborator) URL() string {
	return m.server.URL
}

// Close shuts the mock server down
func (m *MockCollaborator) Close() {
	m.server.Close()
}

// SetAnalysis sets the canned analyze response
func (m *MockCollaborator) SetAnalysis(result AnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysis = result
}

// SetEnrichment sets the canned delta returned for one indicator value.
// Records submitted for enrichment without a canned delta are echoed back
// unchanged, matching the real collaborator's contract.
func (m *MockCollaborator) SetEnrichment(delta core.IOCRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichments[delta.Value] = delta
}

// FailWith makes every subsequent call return the given status
func (m *MockCollaborator) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

// BreakEnvelope makes 2xx responses carry a malformed envelope
func (m *MockCollaborator) BreakEnvelope() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brokenBody = true
}

// DenySuccess makes the enrich envelope report success=false
func (m *MockCollaborator) DenySuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denySuccess = true
}

// Requests returns the captured requests so far
func (m *MockCollaborator) Requests() []CapturedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CapturedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockCollaborator) capture(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	m.requests = append(m.requests, CapturedRequest{
		Path:   r.URL.Path,
		Body:   string(body),
		Bearer: r.Header.Get("Authorization"),
	})
	return body
}

func (m *MockCollaborator) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capture(r)

	if m.failStatus != 0 {
		w.WriteHeader(m.failStatus)
		return
	}
	if m.brokenBody {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"report": 12`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.analysis)
}

func (m *MockCollaborator) handleEnrich(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := m.capture(r)

	if m.failStatus != 0 {
		w.WriteHeader(m.failStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if m.brokenBody {
		_, _ = w.Write([]byte(`{"data": "not-an-array"}`))
		return
	}

	var req enrichRequest
	_ = json.Unmarshal(body, &req)

	deltas := make([]core.IOCRecord, 0, len(req.IOCs))
	for _, ioc := range req.IOCs {
		if delta, ok := m.enrichments[ioc.Value]; ok {
			deltas = append(deltas, delta)
			continue
		}
		deltas = append(deltas, ioc)
	}

	_ = json.NewEncoder(w).Encode(enrichEnvelope{
		Success: !m.denySuccess,
		Data:    deltas,
	})
}

package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triage/enrich"
)

func TestClient_GenerateDocx(t *testing.T) {
	doc := []byte("PK\x03\x04docx-bytes")
	var gotBody map[string]string
	var gotBearer string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBearer = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.Header().Set("Content-Type", DocxContentType)
		_, _ = w.Write(doc)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 5*time.Second, zap.NewNop().Sugar())
	out, err := client.GenerateDocx(context.Background(), "Findings narrative.")
	require.NoError(t, err)

	assert.Equal(t, doc, out)
	assert.Equal(t, "Bearer test-token", gotBearer)
	assert.Equal(t, "Findings narrative.", gotBody["report"])
}

func TestClient_GenerateDocx_EmptyReport(t *testing.T) {
	client := NewClient("http://localhost:0", "", time.Second, zap.NewNop().Sugar())
	_, err := client.GenerateDocx(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_GenerateDocx_BackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, zap.NewNop().Sugar())
	_, err := client.GenerateDocx(context.Background(), "Findings.")
	require.Error(t, err)

	var netErr *enrich.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusServiceUnavailable, netErr.StatusCode)
}

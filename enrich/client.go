package enrich

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"triage/core"
	"triage/metrics"
)

// envelopeSchema validates the enrichment success envelope before decoding.
// A 2xx body that fails this schema is an envelope violation, not a network
// failure, even though both surface identically to the operator.
const envelopeSchema = `{
	"type": "object",
	"required": ["success", "data"],
	"properties": {
		"success": {"type": "boolean"},
		"data": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["value"],
				"properties": {
					"value": {"type": "string"},
					"type": {"type": "string"}
				}
			}
		}
	}
}`

var envelopeSchemaLoader = gojsonschema.NewStringLoader(envelopeSchema)

// Client talks to the external analyze, enrichment and report collaborators.
// It owns a single HTTP client with enforced TLS 1.2 minimum and a request
// timeout; both calls are single request/response, no streaming or partial
// delivery.
type Client struct {
	analyzeURL string
	enrichURL  string
	authToken  string
	client     *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates a collaborator client
func NewClient(analyzeURL, enrichURL, authToken string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
	}

	return &Client{
		analyzeURL: analyzeURL,
		enrichURL:  enrichURL,
		authToken:  authToken,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

// Analyze submits raw URLs for analysis and returns the narrative report and
// the bare records the collaborator extracted. The collaborator classifies
// the indicators itself; its type fields are trusted as-is.
func (c *Client) Analyze(ctx context.Context, urls []string) (*AnalysisResult, error) {
	if len(urls) == 0 {
		return nil, ErrInputEmpty
	}

	start := time.Now()
	body, err := c.post(ctx, c.analyzeURL, analyzeRequest{URLs: urls}, "analyze")
	metrics.CollaboratorDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("analyze").Inc()
		return nil, err
	}

	var result AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.CollaboratorFailures.WithLabelValues("analyze").Inc()
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}

	c.logger.Infow("Analysis complete",
		"urls", len(urls),
		"iocs", len(result.IOCs))
	return &result, nil
}

// Enrich submits the given records and tool selection for enrichment and
// returns the delta batch. The response envelope is schema-validated before
// decoding; success=false or absent data is a hard failure.
func (c *Client) Enrich(ctx context.Context, iocs []core.IOCRecord, tools []string) ([]core.IOCRecord, error) {
	if len(iocs) == 0 {
		return nil, ErrInputEmpty
	}
	if err := ValidateTools(tools); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.post(ctx, c.enrichURL, enrichRequest{IOCs: iocs, Options: tools}, "enrich")
	metrics.CollaboratorDuration.WithLabelValues("enrich").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("enrich").Inc()
		return nil, err
	}

	validation, err := gojsonschema.Validate(envelopeSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("enrich").Inc()
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}
	if !validation.Valid() {
		metrics.CollaboratorFailures.WithLabelValues("enrich").Inc()
		c.logger.Warnw("Enrichment envelope failed schema validation",
			"errors", validation.Errors())
		return nil, ErrEnvelopeInvalid
	}

	var envelope enrichEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		metrics.CollaboratorFailures.WithLabelValues("enrich").Inc()
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}
	if !envelope.Success {
		metrics.CollaboratorFailures.WithLabelValues("enrich").Inc()
		return nil, fmt.Errorf("%w: success=false", ErrEnvelopeInvalid)
	}

	metrics.EnrichmentRequests.WithLabelValues("ok").Inc()
	c.logger.Infow("Enrichment complete",
		"requested", len(iocs),
		"returned", len(envelope.Data),
		"tools", tools)
	return envelope.Data, nil
}

// post issues one JSON request/response round trip to a collaborator
func (c *Client) post(ctx context.Context, url string, payload interface{}, collaborator string) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", collaborator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", collaborator, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Collaborator: collaborator, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debugw("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Collaborator: collaborator, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Collaborator: collaborator, Err: err}
	}
	return body, nil
}

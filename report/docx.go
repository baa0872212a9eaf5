package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"triage/enrich"
	"triage/metrics"
)

// DocxFilename is the fixed content-disposition filename of the generated
// report document.
const DocxFilename = "threat-intel-report.docx"

// DocxContentType is the MIME type of the generated document
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Client talks to the external report generation collaborator, which turns
// the narrative report text into a .docx document. Pure pass-through: the
// document is streamed back to the caller unmodified.
type Client struct {
	url       string
	authToken string
	client    *http.Client
	logger    *zap.SugaredLogger
}

// NewClient creates a report generation client
func NewClient(url, authToken string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	return &Client{
		url:       url,
		authToken: authToken,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		logger: logger,
	}
}

// GenerateDocx submits the report text and returns the binary document.
// Any non-2xx status or transport failure is a retryable network failure.
func (c *Client) GenerateDocx(ctx context.Context, report string) ([]byte, error) {
	if report == "" {
		return nil, fmt.Errorf("report text is empty")
	}

	payload, err := json.Marshal(map[string]string{"report": report})
	if err != nil {
		return nil, fmt.Errorf("failed to encode report request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.CollaboratorDuration.WithLabelValues("report").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("report").Inc()
		return nil, &enrich.NetworkError{Collaborator: "report", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debugw("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CollaboratorFailures.WithLabelValues("report").Inc()
		return nil, &enrich.NetworkError{Collaborator: "report", StatusCode: resp.StatusCode}
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("report").Inc()
		return nil, &enrich.NetworkError{Collaborator: "report", Err: err}
	}

	c.logger.Infow("Report document generated", "bytes", len(doc))
	return doc, nil
}

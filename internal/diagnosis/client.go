package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avelier/scancine/internal/observability"
)

// Client submits encoded studies to an analysis endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	log      *observability.Logger
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, log *observability.Logger) *Client {
	if log == nil {
		log = observability.Nop()
	}
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// Submit POSTs the submission as JSON and decodes the returned record.
func (c *Client) Submit(ctx context.Context, sub Submission) (*DiagnosisRecord, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting study: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	var rec DiagnosisRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding diagnosis record: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("analysis endpoint returned record without id")
	}

	c.log.DiagnosisReceived(rec.ID, string(rec.Status))
	return &rec, nil
}

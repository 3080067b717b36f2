// Package queryservice is the HTTP client of the xtplay query service.
package queryservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xtdb/xtdocs/internal/domain/playground"
	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

type request struct {
	Txs   []playground.TxBatch `json:"txs"`
	Query string               `json:"query"`
}

// Client posts transaction batches and a query to the query service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *logging.ChanneledLogger
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *logging.ChanneledLogger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Invoke runs the batches and query. Non-2xx answers are returned as a
// Response with OK false; only transport failures are errors.
func (c *Client) Invoke(ctx context.Context, batches []playground.TxBatch, query string) (*playground.Response, error) {
	if batches == nil {
		batches = []playground.TxBatch{}
	}
	payload, err := json.Marshal(request{Txs: batches, Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Query().Warn("Query service unreachable", "endpoint", c.endpoint, "error", err.Error())
		return nil, fmt.Errorf("query service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read query service response: %w", err)
	}

	c.logger.Query().Debug("Query service responded",
		"status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	return &playground.Response{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Body:   body,
	}, nil
}

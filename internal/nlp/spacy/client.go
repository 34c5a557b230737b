// Package spacy talks to a spaCy-style entity extraction HTTP service.
package spacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"docverify-backend/internal/nlp"
)

// Client implements nlp.Client against an HTTP entity service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the service at baseURL.
func NewClient(baseURL string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("NLP_SERVICE_URL is required")
	}
	timeout := 15 * time.Second
	if raw := strings.TrimSpace(os.Getenv("NLP_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type entitiesRequest struct {
	Text string `json:"text"`
}

type entitiesResponse struct {
	Entities []nlp.Entity `json:"entities"`
	Error    string       `json:"error,omitempty"`
}

// Entities posts the text to the service and returns its entities.
func (c *Client) Entities(ctx context.Context, text string) ([]nlp.Entity, error) {
	if text == "" {
		return nil, nil
	}

	payload, err := json.Marshal(entitiesRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode entities request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/entities", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build entities request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlp service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("nlp service read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nlp service status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
	}

	var decoded entitiesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("nlp service decode: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("nlp service error: %s", decoded.Error)
	}
	return decoded.Entities, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ nlp.Client = (*Client)(nil)

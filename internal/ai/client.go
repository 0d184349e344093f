// Package ai reaches the external suggestion generator over HTTP.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client posts a graph summary to a suggestion endpoint and returns its text
type Client struct {
	Endpoint string
	APIKey   string
	Model    string
	HTTP     *http.Client
}

// NewClient creates a client; timeout <= 0 uses 60s
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		APIKey:   apiKey,
		Model:    model,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model        string          `json:"model,omitempty"`
	Instructions string          `json:"instructions"`
	Summary      json.RawMessage `json:"summary"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate sends instructions and summary and returns the generated text.
// A JSON body with a "text" field is unwrapped; any other body is returned as is.
func (c *Client) Generate(ctx context.Context, instructions string, summary []byte) (string, error) {
	if c.Endpoint == "" {
		return "", fmt.Errorf("ai endpoint not configured")
	}

	b, err := json.Marshal(generateRequest{Model: c.Model, Instructions: instructions, Summary: summary})
	if err != nil {
		return "", fmt.Errorf("ai encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai generate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("ai read: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ai error (status %d)", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Text != "" {
		return out.Text, nil
	}
	return string(body), nil
}

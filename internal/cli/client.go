package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/intentbot/internal/models"
)

// Client talks to a running intentbot server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for serverURL with a request timeout.
func NewClient(serverURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(serverURL, "/"),
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

// Chat sends one message.
func (c *Client) Chat(ctx context.Context, message string) (*models.ChatResponse, error) {
	var out models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat", models.ChatRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches server status.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload asks the server to reload its snapshot and returns the new snapshot ID.
func (c *Client) Reload(ctx context.Context) (string, error) {
	var out map[string]string
	if err := c.do(ctx, http.MethodPost, "/api/v1/reload", nil, &out); err != nil {
		return "", err
	}
	return out["snapshot_id"], nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

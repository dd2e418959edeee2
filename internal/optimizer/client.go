// Package optimizer talks to the external induction optimizer service.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"optimetro.kochimetro.org/internal/logging"
)

const (
	DefaultTimeout  = 30 * time.Second
	maxResponseSize = 8 << 20
)

var (
	ErrNotConfigured = errors.New("induction api url not configured")
	ErrNoReply       = errors.New("upstream chat returned no reply")
)

// StatusError is returned when the optimizer answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("optimizer request %s failed: %d", e.Path, e.StatusCode)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a client for the optimizer at baseURL. An empty baseURL
// yields a client whose proxy calls return ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Component(slog.Default(), "optimizer"),
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Close releases idle upstream connections.
func (c *Client) Close() {
	if c != nil {
		c.httpClient.CloseIdleConnections()
	}
}

// RunInduction asks the optimizer for a fresh induction plan.
func (c *Client) RunInduction(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/induction/run", json.RawMessage(`{}`))
}

// Train triggers a retraining of the optimizer's models.
func (c *Client) Train(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/api/train", nil)
}

func (c *Client) Conflicts(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/conflicts", nil)
}

func (c *Client) Stations(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/stations", nil)
}

// DemandForecast forwards body unchanged. A nil body is sent as {}.
func (c *Client) DemandForecast(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = json.RawMessage(`{}`)
	}
	return c.do(ctx, http.MethodPost, "/api/demand/forecast", body)
}

type chatRequest struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// Chat asks the optimizer's assistant. It returns ErrNoReply when the
// response carries no string reply.
func (c *Client) Chat(ctx context.Context, message, role string) (string, error) {
	body, err := json.Marshal(chatRequest{Message: message, Role: role})
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, http.MethodPost, "/chat", body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Reply *string `json:"reply"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Reply == nil {
		return "", ErrNoReply
	}
	return *resp.Reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating optimizer request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogError(c.logger, "optimizer request failed", err, slog.String("path", path))
		return nil, fmt.Errorf("optimizer request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		err := &StatusError{Path: path, StatusCode: resp.StatusCode}
		logging.LogError(c.logger, "optimizer request failed", err, slog.String("path", path))
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("error reading optimizer response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("optimizer response for %s is not valid JSON", path)
	}

	c.logger.Debug("optimizer request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))
	return raw, nil
}

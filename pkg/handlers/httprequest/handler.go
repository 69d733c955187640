// Package httprequest provides the HTTP request action handler. It issues a
// single outbound request per node execution, with an opt-in retry knob for
// transient failures.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

const Subtype = "http_request"

const (
	defaultTimeout = 30 * time.Second
	maxAttempts    = 10
)

// Config holds the per-node settings. All string fields arrive with template
// expressions already resolved.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
	Retries RetryConfig
}

// RetryConfig controls re-attempts on transient failures. Attempts counts the
// initial request, so the default of 1 means no retry at all.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// HTTPError reports a response with a 4xx or 5xx status. Client errors are
// never retried.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Handler performs HTTP requests through an injected client.
type Handler struct {
	client protocol.HTTPDoer
}

// NewHandler creates an HTTP request handler using the given client.
func NewHandler(client protocol.HTTPDoer) *Handler {
	return &Handler{client: client}
}

// Execute issues the request and returns {status_code, headers, body} plus a
// parsed "json" key when the response body is valid JSON. A non-2xx/3xx
// status or transport failure is a node error.
func (h *Handler) Execute(ctx context.Context, req protocol.Request) (map[string]any, error) {
	cfg, err := parseConfig(req.Config)
	if err != nil {
		return nil, protocol.NewActionError(Subtype, err)
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.Retries.Attempts; attempt++ {
		if attempt > 1 {
			req.Logger.Warn("retrying HTTP request",
				"url", cfg.URL, "attempt", attempt, "last_error", lastErr)

			select {
			case <-time.After(cfg.Retries.Delay):
			case <-ctx.Done():
				return nil, protocol.NewActionError(Subtype, ctx.Err())
			}
		}

		result, err := h.perform(ctx, cfg)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Client errors will not improve on retry.
		httpErr := &HTTPError{}
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, protocol.NewActionError(Subtype,
		fmt.Errorf("request failed after %d attempt(s): %w", cfg.Retries.Attempts, lastErr))
}

func (h *Handler) perform(ctx context.Context, cfg Config) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var body io.Reader
	if cfg.Body != "" {
		body = strings.NewReader(cfg.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range cfg.Headers {
		httpReq.Header.Set(key, value)
	}

	if cfg.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     flattenHeaders(resp.Header),
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}

func parseConfig(raw map[string]any) (Config, error) {
	cfg := Config{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: defaultTimeout,
		Retries: RetryConfig{Attempts: 1, Delay: time.Second},
	}

	url, ok := raw["url"].(string)
	if !ok || url == "" {
		return cfg, errors.New("missing required field 'url'")
	}

	cfg.URL = url

	if method, ok := raw["method"].(string); ok {
		cfg.Method = strings.ToUpper(method)
	}

	if headers, ok := raw["headers"].(map[string]any); ok {
		for k, v := range headers {
			if str, ok := v.(string); ok {
				cfg.Headers[k] = str
			}
		}
	}

	if body, ok := raw["body"].(string); ok {
		cfg.Body = body
	}

	if timeout, ok := asInt(raw["timeout"]); ok && timeout > 0 {
		cfg.Timeout = time.Duration(timeout) * time.Second
	}

	if retries, ok := raw["retries"].(map[string]any); ok {
		if attempts, ok := asInt(retries["attempts"]); ok {
			if attempts < 1 || attempts > maxAttempts {
				return cfg, fmt.Errorf("retries.attempts must be between 1 and %d", maxAttempts)
			}

			cfg.Retries.Attempts = attempts
		}

		if delay, ok := asInt(retries["delay"]); ok && delay >= 0 {
			cfg.Retries.Delay = time.Duration(delay) * time.Millisecond
		}
	}

	return cfg, nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func flattenHeaders(header http.Header) map[string]any {
	out := make(map[string]any, len(header))
	for key := range header {
		out[key] = header.Get(key)
	}

	return out
}

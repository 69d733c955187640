package httprequest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

type stubDoer struct {
	responses []*http.Response
	errs      []error
	requests  []*http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)

	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}

	var resp *http.Response
	if i < len(s.responses) {
		resp = s.responses[i]
	}

	return resp, err
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testRequest(config map[string]any) protocol.Request {
	return protocol.Request{
		ExecutionID: "exec-1",
		NodeID:      "fetch",
		Subtype:     Subtype,
		Config:      config,
		Logger:      slog.New(slog.DiscardHandler),
	}
}

func TestExecuteSuccess(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{response(200, `{"id": 42}`)}}
	h := NewHandler(doer)

	out, err := h.Execute(context.Background(), testRequest(map[string]any{
		"url":     "https://api.example.com/users/42",
		"headers": map[string]any{"Authorization": "Bearer token"},
	}))
	require.NoError(t, err)

	assert.Equal(t, 200, out["status_code"])
	assert.Equal(t, `{"id": 42}`, out["body"])
	assert.Equal(t, map[string]any{"id": float64(42)}, out["json"])

	require.Len(t, doer.requests, 1)
	assert.Equal(t, http.MethodGet, doer.requests[0].Method)
	assert.Equal(t, "Bearer token", doer.requests[0].Header.Get("Authorization"))
}

func TestExecutePostBody(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{response(201, `ok`)}}
	h := NewHandler(doer)

	out, err := h.Execute(context.Background(), testRequest(map[string]any{
		"url":    "https://api.example.com/users",
		"method": "post",
		"body":   `{"name": "ada"}`,
	}))
	require.NoError(t, err)
	assert.Equal(t, 201, out["status_code"])
	_, hasJSON := out["json"]
	assert.False(t, hasJSON)

	require.Len(t, doer.requests, 1)
	assert.Equal(t, http.MethodPost, doer.requests[0].Method)
	assert.Equal(t, "application/json", doer.requests[0].Header.Get("Content-Type"))
}

func TestExecuteMissingURL(t *testing.T) {
	h := NewHandler(&stubDoer{})

	_, err := h.Execute(context.Background(), testRequest(map[string]any{}))
	require.Error(t, err)

	actionErr := &protocol.ActionError{}
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, Subtype, actionErr.Subtype)
}

func TestExecuteErrorStatus(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{response(503, "unavailable")}}
	h := NewHandler(doer)

	_, err := h.Execute(context.Background(), testRequest(map[string]any{
		"url": "https://api.example.com/flaky",
	}))
	require.Error(t, err)

	httpErr := &HTTPError{}
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.StatusCode)

	// No retry config means a single attempt.
	assert.Len(t, doer.requests, 1)
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{
		response(500, "boom"),
		response(500, "boom"),
		response(200, `{"ok": true}`),
	}}
	h := NewHandler(doer)

	out, err := h.Execute(context.Background(), testRequest(map[string]any{
		"url":     "https://api.example.com/flaky",
		"retries": map[string]any{"attempts": float64(3), "delay": float64(0)},
	}))
	require.NoError(t, err)
	assert.Equal(t, 200, out["status_code"])
	assert.Len(t, doer.requests, 3)
}

func TestExecuteNoRetryOnClientError(t *testing.T) {
	doer := &stubDoer{responses: []*http.Response{response(404, "not found")}}
	h := NewHandler(doer)

	_, err := h.Execute(context.Background(), testRequest(map[string]any{
		"url":     "https://api.example.com/missing",
		"retries": map[string]any{"attempts": float64(5), "delay": float64(0)},
	}))
	require.Error(t, err)
	assert.Len(t, doer.requests, 1)
}

func TestExecuteTransportError(t *testing.T) {
	doer := &stubDoer{errs: []error{errors.New("connection refused")}}
	h := NewHandler(doer)

	_, err := h.Execute(context.Background(), testRequest(map[string]any{
		"url": "https://api.example.com/down",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestParseConfigRetryBounds(t *testing.T) {
	_, err := parseConfig(map[string]any{
		"url":     "https://example.com",
		"retries": map[string]any{"attempts": float64(50)},
	})
	require.Error(t, err)
}

func TestFactory(t *testing.T) {
	f := NewFactory(http.DefaultClient)

	h, err := f.Create(nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, Subtype, f.Subtype())
	assert.Contains(t, f.Schema()["required"], "url")
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multichat/internal/backend"
	"multichat/internal/chatclient"
	"multichat/internal/core"
	"multichat/internal/observability"
)

func okBackend() *mockBackend {
	return &mockBackend{resp: &backend.Response{StatusCode: http.StatusOK, Body: []byte(`{"responses":[]}`)}}
}

// panickingBackend stands in for a backend client with a bug.
type panickingBackend struct{}

func (panickingBackend) Prompt(context.Context, core.SubmissionRequest) (*backend.Response, error) {
	panic("backend client bug")
}

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func postChat(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates request ID when missing", func(t *testing.T) {
		mock := okBackend()
		srv := New(&stubCatalog{}, mock, nil)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, postChat(`{"prompt":"Hi","model_ids":["a"]}`))

		got := rec.Header().Get("X-Request-ID")
		require.Len(t, got, 36, "expected a UUID")
		assert.Equal(t, got, mock.requestID, "the ID is forwarded to the backend")
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		mock := okBackend()
		srv := New(&stubCatalog{}, mock, nil)

		req := postChat(`{"prompt":"Hi","model_ids":["a"]}`)
		req.Header.Set("X-Request-ID", "my-custom-id")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, "my-custom-id", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "my-custom-id", mock.requestID)
	})
}

func TestRoutes(t *testing.T) {
	srv := New(&stubCatalog{models: []core.ModelInfo{{ID: "a", Name: "A"}}}, okBackend(), nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/", want: http.StatusOK},
		{method: http.MethodGet, path: "/health", want: http.StatusOK},
		{method: http.MethodGet, path: "/chat/", want: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/metrics", want: http.StatusNotFound},
		{method: http.MethodGet, path: "/static/app.wasm", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestErrorResponsesUseErrorShape(t *testing.T) {
	srv := New(&stubCatalog{}, okBackend(), &Config{BodySizeLimit: "1K"})
	large := `{"prompt":"` + strings.Repeat("x", 2048) + `","model_ids":["a"]}`

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{name: "unknown route", req: httptest.NewRequest(http.MethodGet, "/nope", nil), want: http.StatusNotFound},
		{name: "wrong method", req: httptest.NewRequest(http.MethodGet, "/chat/", nil), want: http.StatusMethodNotAllowed},
		{name: "body over limit", req: postChat(large), want: http.StatusRequestEntityTooLarge},
		{
			// no Content-Length, so the limit trips while the handler decodes
			name: "streamed body over limit",
			req:  httptest.NewRequest(http.MethodPost, "/chat/", io.MultiReader(strings.NewReader(large))),
			want: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req)

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body, "message")
		})
	}

	t.Run("HEAD gets no body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestPanicIsRecoveredAndLoggedAsError(t *testing.T) {
	logs := captureLogs(t)
	srv := New(&stubCatalog{}, panickingBackend{}, nil)

	req := postChat(`{"prompt":"Hi","model_ids":["a"]}`)
	req.Header.Set("X-Request-ID", "panic-req")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"an unexpected error occurred"}`, rec.Body.String())

	var sawPanic, sawRequest bool
	for _, r := range logRecords(t, logs) {
		switch r["msg"] {
		case "panic recovered":
			sawPanic = true
			assert.Equal(t, "ERROR", r["level"])
			assert.Equal(t, "panic-req", r["request_id"])
			assert.Contains(t, r["error"], "backend client bug")
			assert.NotEmpty(t, r["stack"])
		case "request failed":
			sawRequest = true
			assert.Equal(t, "ERROR", r["level"])
			assert.EqualValues(t, http.StatusInternalServerError, r["status"])
		case "request":
			t.Errorf("5xx request logged at %v", r["level"])
		}
	}
	assert.True(t, sawPanic, "panic not logged")
	assert.True(t, sawRequest, "failed request not logged")
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		path     string
	}{
		{name: "default path", endpoint: "", path: "/metrics"},
		{name: "custom path", endpoint: "/monitoring/metrics", path: "/monitoring/metrics"},
		{name: "path is cleaned", endpoint: "/ops/../prom", path: "/prom"},
		{name: "cannot shadow chat route", endpoint: "/chat/", path: "/metrics"},
		{name: "cannot shadow static files", endpoint: "/static/m", path: "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			srv := New(&stubCatalog{}, okBackend(), &Config{
				MetricsEnabled:  true,
				MetricsEndpoint: tt.endpoint,
				Metrics:         observability.NewMetrics(reg),
				Gatherer:        reg,
			})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "multichat_")
		})
	}
}

func TestMetricsRecordProxyOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := New(&stubCatalog{}, okBackend(), &Config{
		MetricsEnabled: true,
		Metrics:        observability.NewMetrics(reg),
		Gatherer:       reg,
	})

	srv.ServeHTTP(httptest.NewRecorder(), postChat(`{"prompt":"Hi","model_ids":["a"]}`))
	srv.ServeHTTP(httptest.NewRecorder(), postChat(`{"prompt":""}`))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `multichat_proxy_requests_total{outcome="relayed"} 1`)
	assert.Contains(t, body, `multichat_proxy_requests_total{outcome="invalid"} 1`)
}

func TestBodyLimit(t *testing.T) {
	mock := okBackend()
	srv := New(&stubCatalog{}, mock, &Config{BodySizeLimit: "1K"})

	large := `{"prompt":"` + strings.Repeat("x", 2048) + `","model_ids":["a"]}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, postChat(large))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, mock.calls())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, postChat(`{"prompt":"Hi","model_ids":["a"]}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wasm_exec.js"), []byte("// runtime"), 0o644))

	srv := New(&stubCatalog{}, okBackend(), &Config{StaticDir: dir})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/wasm_exec.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "// runtime", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/../go.mod", nil))
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestMissingStaticDirIsLogged(t *testing.T) {
	logs := captureLogs(t)
	missing := filepath.Join(t.TempDir(), "static")

	New(&stubCatalog{}, okBackend(), &Config{StaticDir: missing})

	var warned bool
	for _, r := range logRecords(t, logs) {
		if r["dir"] == missing {
			warned = true
			assert.Equal(t, "WARN", r["level"])
			assert.Contains(t, r["msg"], "make wasm")
		}
	}
	assert.True(t, warned)

	logs.Reset()
	New(&stubCatalog{}, okBackend(), &Config{StaticDir: t.TempDir()})
	assert.Empty(t, logRecords(t, logs))
}

// TestChatRoundTrip drives the whole path: the chat client posts to the
// frontend server, which forwards to a stub model backend.
func TestChatRoundTrip(t *testing.T) {
	modelBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/prompt/" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"prompt":"Hello","model_ids":["a","b"]}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prompt":"Hello","responses":[
			{"model_id":"a","model_name":"Model A","success":true,"response":"Hi from A"},
			{"model_id":"b","model_name":"Model B","success":false,"response":"Error: timeout"}
		]}`))
	}))
	defer modelBackend.Close()

	frontend := httptest.NewServer(New(
		&stubCatalog{},
		backend.New(backend.Config{BaseURL: modelBackend.URL + "/api"}, modelBackend.Client()),
		nil,
	))
	defer frontend.Close()

	client := chatclient.New(frontend.URL+"/chat/", frontend.Client())
	result, err := client.Submit(context.Background(), core.SubmissionRequest{
		Prompt:   "Hello",
		ModelIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	require.Equal(t, core.ResultOutcomes, result.Kind)
	require.Len(t, result.Outcomes, 2)
	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, "Hi from A", result.Outcomes[0].Body())
	assert.False(t, result.Outcomes[1].Success)
	assert.Equal(t, "Model B", result.Outcomes[1].Label())
}

func TestChatRoundTrip_BackendDown(t *testing.T) {
	modelBackend := httptest.NewServer(http.NotFoundHandler())
	url := modelBackend.URL
	modelBackend.Close()

	frontend := httptest.NewServer(New(&stubCatalog{}, backend.New(backend.Config{BaseURL: url}, nil), nil))
	defer frontend.Close()

	result, err := chatclient.New(frontend.URL+"/chat/", frontend.Client()).Submit(context.Background(), core.SubmissionRequest{
		Prompt:   "Hello",
		ModelIDs: []string{"a"},
	})
	require.NoError(t, err)

	assert.Equal(t, core.ResultGlobalError, result.Kind)
	assert.True(t, strings.HasPrefix(result.Message, "Backend connection error"))
}

func TestChatRoundTrip_PromptOverBodyLimit(t *testing.T) {
	mock := okBackend()
	frontend := httptest.NewServer(New(&stubCatalog{}, mock, &Config{BodySizeLimit: "1K"}))
	defer frontend.Close()

	result, err := chatclient.New(frontend.URL+"/chat/", frontend.Client()).Submit(context.Background(), core.SubmissionRequest{
		Prompt:   strings.Repeat("x", 4096),
		ModelIDs: []string{"a"},
	})
	require.NoError(t, err)

	assert.Equal(t, core.ResultGlobalError, result.Kind)
	assert.Equal(t, "Request Entity Too Large", result.Message)
	assert.Zero(t, mock.calls())
}

func TestChatRoundTrip_HandlerPanic(t *testing.T) {
	captureLogs(t)
	frontend := httptest.NewServer(New(&stubCatalog{}, panickingBackend{}, nil))
	defer frontend.Close()

	result, err := chatclient.New(frontend.URL+"/chat/", frontend.Client()).Submit(context.Background(), core.SubmissionRequest{
		Prompt:   "Hello",
		ModelIDs: []string{"a"},
	})
	require.NoError(t, err)

	assert.Equal(t, core.ResultGlobalError, result.Kind)
	assert.Equal(t, "an unexpected error occurred", result.Message)
}

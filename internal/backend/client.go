// Package backend talks to the model backend service: the prompt fan-out
// endpoint and the model catalog.
//
// Requests are never retried. A retried prompt would re-run every selected
// model, so a failure is reported to the caller once and the caller decides.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"multichat/internal/core"
	"multichat/internal/httpclient"
)

const (
	promptEndpoint = "/prompt/"
	modelsEndpoint = "/models/"
)

// Config holds configuration for the backend client.
type Config struct {
	// BaseURL is the backend API root, e.g. "http://localhost:8001/api".
	BaseURL string

	// PromptTimeout bounds a whole prompt fan-out. Zero means no limit.
	PromptTimeout time.Duration

	// ModelsTimeout bounds a catalog fetch. Zero means no limit.
	ModelsTimeout time.Duration
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     any // JSON marshaled if not nil
	Headers  map[string]string
}

// Response is the backend's raw reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client is the backend API client.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a backend client. A nil httpClient uses the shared default.
func New(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		httpClient: httpClient,
		config:     config,
	}
}

// BaseURL returns the backend API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Prompt forwards a submission to the backend and returns its reply
// untouched, whatever the status code. The error is non-nil only when the
// backend could not be reached or its body could not be read.
func (c *Client) Prompt(ctx context.Context, req core.SubmissionRequest) (*Response, error) {
	ctx, cancel := withTimeout(ctx, c.config.PromptTimeout)
	defer cancel()

	headers := map[string]string{"Accept": "application/json"}
	if id := core.GetRequestID(ctx); id != "" {
		headers["X-Request-ID"] = id
	}

	return c.Do(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: promptEndpoint,
		Body:     req,
		Headers:  headers,
	})
}

// Models fetches the catalog of models the backend can run.
func (c *Client) Models(ctx context.Context) ([]core.ModelInfo, error) {
	ctx, cancel := withTimeout(ctx, c.config.ModelsTimeout)
	defer cancel()

	resp, err := c.Do(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: modelsEndpoint,
		Headers:  map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend models: unexpected status %d", resp.StatusCode)
	}

	var models []core.ModelInfo
	if err := json.Unmarshal(resp.Body, &models); err != nil {
		return nil, fmt.Errorf("backend models: failed to decode response: %w", err)
	}
	return models, nil
}

// Do executes a single request and returns the raw response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.doRequest(httpReq)
}

func (c *Client) doRequest(httpReq *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, core.NewBackendUnavailableError(err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

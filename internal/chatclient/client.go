// Package chatclient issues submissions to the chat endpoint and classifies
// the JSON reply into a core.SubmissionResult.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"multichat/internal/core"
	"multichat/internal/httpclient"
)

// DefaultEndpoint is the frontend server's chat route.
const DefaultEndpoint = "http://localhost:8000/chat/"

// Client posts SubmissionRequests to a single endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// New creates a client for endpoint. A nil httpClient uses the shared default.
func New(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
	}
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit sends exactly one POST and waits for it to resolve. The HTTP status
// is not consulted: the body alone decides the result. Any failure to send,
// read or decode is returned as a *core.TransportError.
func (c *Client) Submit(ctx context.Context, req core.SubmissionRequest) (core.SubmissionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return core.SubmissionResult{}, core.NewTransportError("encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return core.SubmissionResult{}, core.NewTransportError("build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	requestID := core.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.SubmissionResult{}, core.NewTransportError("send request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.SubmissionResult{}, core.NewTransportError("read response", err)
	}

	return ParseResult(data)
}

var (
	errInvalidJSON     = errors.New("response is not valid JSON")
	errNotObject       = errors.New("response is not a JSON object")
	errResponsesShape  = errors.New("responses is not an array")
	errOutcomeNotEntry = errors.New("responses entry is not an object")
)

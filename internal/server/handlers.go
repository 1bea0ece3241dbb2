// Package server provides the frontend HTTP server: the page shell, the chat
// proxy the controller submits to, and the operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"

	"multichat/internal/backend"
	"multichat/internal/core"
	"multichat/internal/observability"
)

// Catalog lists the models offered on the page.
type Catalog interface {
	List(ctx context.Context) []core.ModelInfo
}

// Backend forwards a submission to the model backend.
type Backend interface {
	Prompt(ctx context.Context, req core.SubmissionRequest) (*backend.Response, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	catalog Catalog
	backend Backend
	metrics *observability.Metrics
}

// NewHandler creates the handlers. metrics may be nil.
func NewHandler(catalog Catalog, backend Backend, metrics *observability.Metrics) *Handler {
	return &Handler{
		catalog: catalog,
		backend: backend,
		metrics: metrics,
	}
}

// indexData is the page template's input.
type indexData struct {
	Models    []core.ModelInfo
	MaxModels int
}

// Index handles GET /
func (h *Handler) Index(c echo.Context) error {
	models := h.catalog.List(c.Request().Context())
	return c.Render(http.StatusOK, indexTemplate, indexData{
		Models:    models,
		MaxModels: core.MaxModels,
	})
}

// chatRequest is the proxy's input. Fields are decoded loosely so that a
// wrong-typed field reads as missing rather than as malformed JSON.
type chatRequest struct {
	Prompt   json.RawMessage `json:"prompt"`
	ModelIDs json.RawMessage `json:"model_ids"`
}

// Chat handles POST /chat/
func (h *Handler) Chat(c echo.Context) error {
	start := time.Now()

	req, err := decodeChatRequest(c)
	if err != nil {
		h.metrics.ObserveProxy(observability.OutcomeInvalid, time.Since(start))
		return handleError(c, err)
	}

	resp, err := h.backend.Prompt(c.Request().Context(), req)
	if err != nil {
		h.metrics.ObserveProxy(observability.OutcomeBackendError, time.Since(start))
		slog.Warn("backend prompt failed",
			"request_id", core.GetRequestID(c.Request().Context()),
			"error", err,
		)
		return handleError(c, err)
	}

	if !gjson.ValidBytes(resp.Body) {
		h.metrics.ObserveProxy(observability.OutcomeBackendError, time.Since(start))
		slog.Warn("backend returned a non-JSON body",
			"request_id", core.GetRequestID(c.Request().Context()),
			"status", resp.StatusCode,
			"content_type", resp.ContentType,
		)
		return handleError(c, core.NewBackendResponseError(nil))
	}

	h.metrics.ObserveProxy(observability.OutcomeRelayed, time.Since(start))
	return c.Blob(resp.StatusCode, echo.MIMEApplicationJSON, resp.Body)
}

func decodeChatRequest(c echo.Context) (core.SubmissionRequest, error) {
	var raw chatRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		var httpErr *echo.HTTPError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &httpErr):
			// body limit tripped while streaming a request without Content-Length
			return core.SubmissionRequest{}, httpErr
		case errors.As(err, &typeErr):
			return core.SubmissionRequest{}, core.NewInvalidRequestError("Prompt and model selection required", err)
		default:
			return core.SubmissionRequest{}, core.NewInvalidRequestError("Invalid JSON", err)
		}
	}

	var req core.SubmissionRequest
	if json.Unmarshal(raw.Prompt, &req.Prompt) != nil || json.Unmarshal(raw.ModelIDs, &req.ModelIDs) != nil ||
		req.Prompt == "" || len(req.ModelIDs) == 0 {
		return core.SubmissionRequest{}, core.NewInvalidRequestError("Prompt and model selection required", nil)
	}
	return req, nil
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError writes err in the flat {"error": "..."} shape the controller
// reads as a global error.
func handleError(c echo.Context, err error) error {
	status, body := errorResponse(err)
	return c.JSON(status, body)
}

// errorHandler replaces echo's default so that errors raised outside the
// handlers (body limit, recovered panics, unknown routes) share the same shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		slog.Error("failed to write error response",
			"request_id", core.GetRequestID(c.Request().Context()),
			"status", status,
			"error", writeErr,
		)
	}
}

func errorResponse(err error) (int, map[string]string) {
	var proxyErr *core.ProxyError
	if errors.As(err, &proxyErr) {
		return proxyErr.HTTPStatusCode(), proxyErr.ToJSON()
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, map[string]string{"error": httpErrorMessage(httpErr)}
	}

	// Anything else (including recovered panics) stays opaque to clients.
	return http.StatusInternalServerError, map[string]string{
		"error": "an unexpected error occurred",
	}
}

func httpErrorMessage(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok && msg != "" {
		return msg
	}
	if text := http.StatusText(err.Code); text != "" {
		return text
	}
	return "request failed"
}

package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"multichat/internal/core"
	"multichat/internal/observability"
)

const (
	defaultMetricsPath   = "/metrics"
	defaultBodySizeLimit = "1M"
	indexTemplate        = "index.html"
	requestIDHeader      = "X-Request-ID"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MetricsEnabled  bool   // Whether to expose the Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit   string // echo size syntax (default: 1M)
	StaticDir       string // Directory served under /static/; empty disables it

	// Metrics records proxy and catalog outcomes. May be nil.
	Metrics *observability.Metrics
	// Gatherer backs the metrics endpoint (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer
}

// New creates a new HTTP server
func New(catalog Catalog, backend Backend, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newTemplateRenderer()
	e.HTTPErrorHandler = errorHandler

	handler := NewHandler(catalog, backend, cfg.Metrics)

	// Global middleware stack (order matters)
	e.Use(requestID())
	e.Use(requestLogger())
	e.Use(recoverer())

	bodySizeLimit := cfg.BodySizeLimit
	if bodySizeLimit == "" {
		bodySizeLimit = defaultBodySizeLimit
	}
	e.Use(middleware.BodyLimit(bodySizeLimit))

	e.GET("/", handler.Index)
	e.POST("/chat/", handler.Chat)
	e.GET("/health", handler.Health)

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err != nil || !info.IsDir() {
			slog.Warn("static directory not found, the page will load without its controller (run make wasm)",
				"dir", cfg.StaticDir,
			)
		}
		e.Static("/static", cfg.StaticDir)
	}

	if cfg.MetricsEnabled {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET(metricsPath(cfg.MetricsEndpoint), echo.WrapHandler(observability.Handler(gatherer)))
	}

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// metricsPath normalizes the configured path and refuses ones that would
// shadow an application route.
func metricsPath(configured string) string {
	if configured == "" {
		return defaultMetricsPath
	}
	p := path.Clean("/" + configured)
	switch {
	case p == "/", p == "/health", p == "/chat", p == "/static",
		strings.HasPrefix(p, "/chat/"), strings.HasPrefix(p, "/static/"):
		slog.Warn("metrics endpoint collides with an application route, using default",
			"configured", configured,
			"endpoint", defaultMetricsPath,
		)
		return defaultMetricsPath
	}
	return p
}

// requestID propagates the caller's X-Request-ID, or assigns one, and makes
// it available to handlers through the request context.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, id)
			c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			switch {
			case v.Error != nil:
				slog.Error("request failed", append(attrs, "error", v.Error)...)
			case v.Status >= http.StatusInternalServerError:
				// recovered panics are answered before reaching here, leaving only the status
				slog.Error("request failed", attrs...)
			default:
				slog.Info("request", attrs...)
			}
			return nil
		},
	})
}

// recoverer turns a handler panic into a 500 and logs it, stack included,
// through slog rather than echo's own logger.
func recoverer() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.Error("panic recovered",
				"request_id", core.GetRequestID(c.Request().Context()),
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"error", err,
				"stack", string(stack),
			)
			return err
		},
	})
}

// templateRenderer adapts html/template to echo.Renderer.
type templateRenderer struct {
	templates *template.Template
}

func newTemplateRenderer() *templateRenderer {
	return &templateRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

func (r *templateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

package server

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"gochat/internal/core"
	"gochat/internal/observability"
	_ "gochat/internal/server/docs"
)

// DefaultBodySizeLimit caps request bodies.
const DefaultBodySizeLimit = "1M"

const defaultMetricsPath = "/metrics"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey       string // Optional: bearer key required on /v1 routes
	MetricsEnabled  bool
	MetricsEndpoint string // default: /metrics
	BodySizeLimit   string // echo size notation, default 1M
	SwaggerEnabled  bool   // serves the API docs under /swagger/
}

// New creates the HTTP surface for a chat session.
//
// @title       gochat API
// @version     1.0
// @description Chat session engine: ask questions, read the session and list models.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in          header
// @name        Authorization
// @description Master key as "Bearer <key>"
func New(deps Deps, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(deps)

	authSkipPaths := []string{"/health"}
	metricsPath := metricsPathFor(cfg)
	if cfg.MetricsEnabled {
		authSkipPaths = append(authSkipPaths, metricsPath)
	}

	bodyLimit := cfg.BodySizeLimit
	if bodyLimit == "" {
		bodyLimit = DefaultBodySizeLimit
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(middleware.BodyLimit(bodyLimit))
	if cfg.MetricsEnabled {
		e.Use(observability.Middleware())
	}
	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths))
	}

	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := e.Group("/v1")
	v1.GET("/session", handler.Session)
	v1.POST("/ask", handler.Ask)
	v1.DELETE("/exchanges", handler.ClearExchanges)
	v1.GET("/models", handler.ListModels)

	return &Server{echo: e, handler: handler}
}

// metricsPathFor normalizes the metrics path and keeps it out of the /v1 tree.
func metricsPathFor(cfg *Config) string {
	if cfg.MetricsEndpoint == "" {
		return defaultMetricsPath
	}
	p := path.Clean("/" + cfg.MetricsEndpoint)
	if p == "/" || p == "/health" || p == "/v1" || strings.HasPrefix(p, "/v1/") {
		return defaultMetricsPath
	}
	return p
}

// requestContext copies the request ID into the request context so
// provider calls forward it upstream.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 2 * time.Second

// HealthCheck reports whether a dependency the service needs is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Error is the body returned when a check fails.
type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Server exposes the operational endpoints of the service. Orders and
// workflows are driven through commands and jobs, not over HTTP.
type Server struct {
	checks []HealthCheck
}

// NewServer creates a server whose readiness endpoint runs the given checks.
func NewServer(checks ...HealthCheck) *Server {
	return &Server{checks: checks}
}

// Register mounts the health endpoints on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.Health)
	e.GET("/ready", s.Ready)
}

// Health handles GET /health - the process is up.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Healthy")
}

// Ready handles GET /ready - every dependency answered within the timeout.
func (s *Server) Ready(ctx echo.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), readinessTimeout)
	defer cancel()

	results := make(map[string]string, len(s.checks))
	healthy := true
	for _, c := range s.checks {
		if err := c.Check(reqCtx); err != nil {
			results[c.Name] = err.Error()
			healthy = false
			continue
		}
		results[c.Name] = "ok"
	}

	if !healthy {
		return ctx.JSON(http.StatusServiceUnavailable, Error{
			Code:    http.StatusServiceUnavailable,
			Message: "Dependencies are not ready",
			Checks:  results,
		})
	}
	return ctx.JSON(http.StatusOK, results)
}

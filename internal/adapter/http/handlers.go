package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// Check reports whether one backing service is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	checks map[string]Check
}

// NewHandler takes the dependencies /health probes, keyed by the name they
// are reported under.
func NewHandler(checks map[string]Check) *Handler { return &Handler{checks: checks} }

type healthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health answers 200 while every dependency responds and 503 otherwise.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	out := healthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339Nano)}
	code := http.StatusOK
	if len(h.checks) > 0 {
		out.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			out.Checks[name] = err.Error()
			out.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		out.Checks[name] = "ok"
	}
	return c.JSON(code, out)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers load balancer probes.  Ping checks the storage
// backend; it is nil for the in-memory driver.
type HealthHandler struct {
	Driver string
	Ping   func(ctx context.Context) error
}

// Health returns 200 with the storage driver, or 503 when the database
// does not answer within two seconds.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "storage": h.Driver})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "storage": h.Driver})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pond-seat-booking/internal/availability"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/layout"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// PondReader loads ponds for layout rendering.
type PondReader interface {
	GetPond(ctx context.Context, id uint64) (*model.Pond, error)
}

// PondHandler serves the public seat map and availability endpoints.
type PondHandler struct {
	Ponds PondReader
	Calc  *availability.Calculator
	Log   *logger.Logger
	Now   func() time.Time
}

type layoutResponse struct {
	PondID         uint64 `json:"pond_id"`
	Name           string `json:"name"`
	BookingEnabled bool   `json:"booking_enabled"`
	// CapacityMismatch is set when the seat distribution does not add up to
	// the declared capacity; the distribution wins.
	CapacityMismatch bool `json:"capacity_mismatch,omitempty"`
	layout.Layout
}

// Layout handles GET /v1/ponds/:id/layout.
func (h *PondHandler) Layout(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid pond id")
	}
	p, err := h.Ponds.GetPond(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return respondError(c, h.Log, domain.New(domain.ErrResourceNotFound, "handler.Layout", "pond not found").With("pond_id", id))
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, layoutResponse{
		PondID:           p.ID,
		Name:             p.Name,
		BookingEnabled:   p.BookingEnabled,
		CapacityMismatch: p.CapacityMismatch(),
		Layout:           layout.ForPond(*p),
	})
}

// Availability handles GET /v1/ponds/:id/availability?date=&slot=.
func (h *PondHandler) Availability(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid pond id")
	}
	slot, err := strconv.ParseUint(c.QueryParam("slot"), 10, 64)
	if err != nil || slot == 0 {
		return badRequest(c, "slot is required")
	}
	a, err := h.Calc.PondSeats(c.Request().Context(), id, h.date(c), slot)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Slots handles GET /v1/ponds/:id/slots?date=.
func (h *PondHandler) Slots(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid pond id")
	}
	list, err := h.Calc.PondSlots(c.Request().Context(), id, h.date(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pond_id": id, "slots": list})
}

// EventAvailability handles GET /v1/events/:id/availability.
func (h *PondHandler) EventAvailability(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	a, err := h.Calc.EventSeats(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// date defaults to today in the calculator's zone.
func (h *PondHandler) date(c echo.Context) string {
	if d := c.QueryParam("date"); d != "" {
		return d
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return model.DayKey(now(), h.Calc.Loc)
}

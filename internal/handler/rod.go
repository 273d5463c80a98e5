package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/middleware"
	"github.com/iliyamo/pond-seat-booking/internal/rod"
)

// RodHandler issues and checks rod tags at the weighing station.
type RodHandler struct {
	Workflow *rod.Workflow
	Log      *logger.Logger
}

// Issue handles POST /v1/rods.
func (h *RodHandler) Issue(c echo.Context) error {
	var body struct {
		SeatCredential string `json:"seat_credential"`
		StationID      string `json:"station_id"`
		Replacement    bool   `json:"replacement"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.SeatCredential == "" {
		return badRequest(c, "seat_credential is required")
	}
	tag, err := h.Workflow.IssueRod(c.Request().Context(), body.SeatCredential, body.StationID, body.Replacement, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, tag)
}

// Validate handles POST /v1/rods/validate.
func (h *RodHandler) Validate(c echo.Context) error {
	var body struct {
		Credential string `json:"credential"`
	}
	if err := c.Bind(&body); err != nil || body.Credential == "" {
		return badRequest(c, "credential is required")
	}
	v, err := h.Workflow.ValidateRod(c.Request().Context(), body.Credential)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// History handles POST /v1/rods/history; the seat credential travels in
// the body so it does not end up in access logs.
func (h *RodHandler) History(c echo.Context) error {
	var body struct {
		SeatCredential string `json:"seat_credential"`
	}
	if err := c.Bind(&body); err != nil || body.SeatCredential == "" {
		return badRequest(c, "seat_credential is required")
	}
	tags, err := h.Workflow.History(c.Request().Context(), body.SeatCredential)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tags": tags})
}

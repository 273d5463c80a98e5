package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pond-seat-booking/internal/ledger"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/middleware"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/sharing"
)

// BookingHandler exposes booking creation, lookup, cancellation and seat
// sharing.  Customers may only touch their own bookings; operators and
// admins may touch any.
type BookingHandler struct {
	Ledger  *ledger.Ledger
	Sharing *sharing.Service
	Log     *logger.Logger
}

// Create handles POST /v1/bookings.  The owner is the authenticated user.
func (h *BookingHandler) Create(c echo.Context) error {
	var req ledger.Request
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.OwnerID = middleware.UserID(c)
	b, err := h.Ledger.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil || b == nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /v1/bookings/:id.  Open check-ins are voided and
// active rod tags retired along with the booking.
func (h *BookingHandler) Delete(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil || b == nil {
		return err
	}
	res, err := h.Ledger.DeleteBooking(c.Request().Context(), b.ID, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":      res.Booking.ID,
		"voided_checkins": res.VoidedCheckIns,
		"retired_rods":    res.DeactivatedRod,
	})
}

// AssignSeat handles PUT /v1/bookings/:id/seats/:number/assignee with a
// body of {"identity": "..."}.
func (h *BookingHandler) AssignSeat(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n <= 0 {
		return badRequest(c, "invalid seat number")
	}
	var body struct {
		Identity string `json:"identity"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.owned(c)
	if err != nil || b == nil {
		return err
	}
	seat, err := h.Sharing.AssignSeat(c.Request().Context(), b.ID, n, body.Identity, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, seat)
}

// owned loads the booking in :id and checks the caller may act on it.  A
// nil booking with a nil error means the response was already written.
func (h *BookingHandler) owned(c echo.Context) (*model.Booking, error) {
	b, err := h.Ledger.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, respondError(c, h.Log, err)
	}
	if !middleware.IsStaff(c) && b.OwnerID != middleware.UserID(c) {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return b, nil
}

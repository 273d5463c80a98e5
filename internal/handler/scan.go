package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pond-seat-booking/internal/checkin"
	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/middleware"
)

// ScanHandler serves the gate scanner.  Validation endpoints always
// answer 200 with the classification; the action endpoints answer with an
// error status plus the classification when the scan is rejected.
type ScanHandler struct {
	Validator *checkin.Validator
	Machine   *checkin.StateMachine
	Log       *logger.Logger
}

type scanRequest struct {
	Credential string `json:"credential"`
	Notes      string `json:"notes"`
}

var errNoCredential = errors.New("credential is required")

func bindScan(c echo.Context) (scanRequest, error) {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return req, errors.New("invalid request body")
	}
	req.Credential = strings.TrimSpace(req.Credential)
	if req.Credential == "" {
		return req, errNoCredential
	}
	return req, nil
}

// ValidateCheckIn handles POST /v1/scan/checkin/validate.
func (h *ScanHandler) ValidateCheckIn(c echo.Context) error {
	req, err := bindScan(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.Validator.ValidateForCheckIn(c.Request().Context(), req.Credential, middleware.UserID(c))
	if err != nil {
		return h.scanError(c, nil, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ValidateCheckOut handles POST /v1/scan/checkout/validate.
func (h *ScanHandler) ValidateCheckOut(c echo.Context) error {
	req, err := bindScan(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.Validator.ValidateForCheckOut(c.Request().Context(), req.Credential, middleware.UserID(c))
	if err != nil {
		return h.scanError(c, nil, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckIn handles POST /v1/scan/checkin.
func (h *ScanHandler) CheckIn(c echo.Context) error {
	req, err := bindScan(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	rec, res, err := h.Machine.CheckIn(c.Request().Context(), req.Credential, middleware.UserID(c), req.Notes)
	if err != nil {
		return h.scanError(c, res, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"record": rec, "scan": res})
}

// CheckOut handles POST /v1/scan/checkout.
func (h *ScanHandler) CheckOut(c echo.Context) error {
	req, err := bindScan(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	rec, res, err := h.Machine.CheckOutByCredential(c.Request().Context(), req.Credential, middleware.UserID(c))
	if err != nil {
		return h.scanError(c, res, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"record": rec, "scan": res})
}

// CheckOutRecord handles POST /v1/checkins/:id/checkout.
func (h *ScanHandler) CheckOutRecord(c echo.Context) error {
	rec, err := h.Machine.CheckOut(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// NoShow handles POST /v1/bookings/:id/no-show.  With {"seat_number": n}
// a single seat is marked; without it every seat that never checked in.
func (h *ScanHandler) NoShow(c echo.Context) error {
	var body struct {
		SeatNumber int `json:"seat_number"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, id, op := c.Request().Context(), c.Param("id"), middleware.UserID(c)
	if body.SeatNumber > 0 {
		rec, err := h.Machine.MarkNoShow(ctx, id, body.SeatNumber, op)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, rec)
	}
	recs, err := h.Machine.MarkBookingNoShow(ctx, id, op)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": id, "records": recs})
}

// History handles GET /v1/bookings/:id/checkins.
func (h *ScanHandler) History(c echo.Context) error {
	recs, err := h.Machine.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": c.Param("id"), "records": recs})
}

func (h *ScanHandler) scanError(c echo.Context, res *checkin.Result, err error) error {
	if res == nil {
		if errors.Is(err, credential.ErrMalformed) || errors.Is(err, credential.ErrWrongClass) {
			h.Log.LogSecurity("bad_credential", middleware.UserID(c)+": "+err.Error())
		}
		return respondError(c, h.Log, err)
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		return respondError(c, h.Log, err)
	}
	return c.JSON(statusFor(de.Kind), echo.Map{"error": string(de.Kind), "message": de.Message, "scan": res})
}

package handler // handler contains the HTTP handlers of the /v1 API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
)

// statusFor maps domain kinds to HTTP status codes.
func statusFor(k domain.Kind) int {
	switch k {
	case domain.ErrResourceNotFound:
		return http.StatusNotFound
	case domain.ErrCapacityExceeded, domain.ErrInvalidState, domain.ErrAlreadyProcessed, domain.ErrInvalidResource:
		return http.StatusConflict
	case domain.ErrTemporalViolation:
		return http.StatusUnprocessableEntity
	case domain.ErrInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON.  Domain errors keep their message and
// details; anything else is logged and reported as an internal error.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	if errors.Is(err, credential.ErrMalformed) || errors.Is(err, credential.ErrWrongClass) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": string(domain.ErrInvalidInput), "message": err.Error()})
	}
	var de *domain.Error
	if errors.As(err, &de) {
		body := echo.Map{"error": string(de.Kind), "message": de.Message}
		if len(de.Details) > 0 {
			body["details"] = de.Details
		}
		return c.JSON(statusFor(de.Kind), body)
	}
	if k := domain.KindOf(err); k != "" {
		return c.JSON(statusFor(k), echo.Map{"error": string(k), "message": err.Error()})
	}
	log.Error("HTTP", c.Request().Method+" "+c.Path()+": "+err.Error())
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": string(domain.ErrInvalidInput), "message": msg})
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

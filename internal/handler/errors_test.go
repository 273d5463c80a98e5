package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
)

func TestStatusFor(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.ErrResourceNotFound:  http.StatusNotFound,
		domain.ErrCapacityExceeded:  http.StatusConflict,
		domain.ErrInvalidState:      http.StatusConflict,
		domain.ErrAlreadyProcessed:  http.StatusConflict,
		domain.ErrInvalidResource:   http.StatusConflict,
		domain.ErrTemporalViolation: http.StatusUnprocessableEntity,
		domain.ErrInvalidInput:      http.StatusBadRequest,
		domain.Kind("other"):        http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, statusFor(k), string(k))
	}
}

func respond(err error) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = respondError(c, logger.Nop(), err)
	return rec
}

func TestRespondError(t *testing.T) {
	rec := respond(fmt.Errorf("wrapped: %w", domain.New(domain.ErrTemporalViolation, "op", "too early").With("window", "08:45-12:00")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"temporal_violation","message":"too early","details":{"window":"08:45-12:00"}}`, rec.Body.String())

	rec = respond(fmt.Errorf("parse: %w", credential.ErrMalformed))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = respond(errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

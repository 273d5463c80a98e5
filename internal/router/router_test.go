package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/availability"
	"github.com/iliyamo/pond-seat-booking/internal/checkin"
	"github.com/iliyamo/pond-seat-booking/internal/config"
	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/handler"
	"github.com/iliyamo/pond-seat-booking/internal/ledger"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
	"github.com/iliyamo/pond-seat-booking/internal/rod"
	"github.com/iliyamo/pond-seat-booking/internal/sharing"
)

const jwtSecret = "router-test"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }

	store := repository.NewMemoryStore()
	store.PutPond(model.Pond{
		ID: 1, Name: "North", Capacity: 4, Shape: model.ShapeSquare, Distribution: [4]int{1, 1, 1, 1},
		BookingEnabled: true, PricePerSeat: decimal.NewFromInt(10),
	})
	slot, err := model.NewTimeSlot(1, "Morning", "09:00 - 12:00")
	require.NoError(t, err)
	store.PutTimeSlot(slot)

	iss, err := credential.NewIssuer("router-credentials")
	require.NoError(t, err)
	log := logger.Nop()

	led := ledger.New(store, iss, nil, log, time.UTC)
	led.Now = now
	v := checkin.NewValidator(store, iss, time.UTC)
	v.Now = now
	share := sharing.New(store, nil, log, time.UTC)
	share.Now = now

	e := echo.New()
	RegisterRoutes(e, Deps{
		JWTSecret: jwtSecret,
		RateLimit: config.RateLimitConfig{Enabled: false},
		Cache:     config.CacheConfig{Enabled: false},
		Log:       log,
		Health:    &handler.HealthHandler{Driver: "memory"},
		Ponds:     &handler.PondHandler{Ponds: store, Calc: availability.NewCalculator(store, time.UTC), Log: log, Now: now},
		Bookings:  &handler.BookingHandler{Ledger: led, Sharing: share, Log: log},
		Scans:     &handler.ScanHandler{Validator: v, Machine: checkin.NewStateMachine(store, v, nil, log), Log: log},
		Rods:      &handler.RodHandler{Workflow: rod.NewWorkflow(store, iss, v, nil, log), Log: log},
	})
	return &api{t: t, e: e}
}

func (a *api) token(sub, role string) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(a.t, err)
	return s
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestPublicEndpoints(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/v1/ponds/1/layout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lay struct {
		Name      string `json:"name"`
		Positions []struct {
			Number int `json:"number"`
		} `json:"positions"`
	}
	decode(t, rec, &lay)
	assert.Equal(t, "North", lay.Name)
	assert.Len(t, lay.Positions, 4)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/ponds/9/layout", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/ponds/1/availability", "", nil).Code)

	rec = a.do(http.MethodGet, "/v1/ponds/1/availability?date=2026-10-19&slot=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var av availability.Availability
	decode(t, rec, &av)
	assert.Equal(t, 4, av.Available)

	rec = a.do(http.MethodGet, "/v1/ponds/1/slots", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2026-10-19"`)
}

func TestBookingScanAndRodFlow(t *testing.T) {
	a := newAPI(t)
	cust := a.token("cust-1", "CUSTOMER")
	other := a.token("cust-2", "CUSTOMER")
	op := a.token("op-1", "OPERATOR")

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/v1/bookings", "", nil).Code)

	rec := a.do(http.MethodPost, "/v1/bookings", cust, echo.Map{"pond_id": 1, "date": "2026-10-19", "time_slot_id": 1, "seats": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b model.Booking
	decode(t, rec, &b)
	require.Len(t, b.Seats, 2)
	assert.Equal(t, "cust-1", b.OwnerID)
	path := "/v1/bookings/" + b.ID
	cred := b.Seats[0].Credential

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, path, other, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, path, op, nil).Code)

	rec = a.do(http.MethodPost, "/v1/bookings", cust, echo.Map{"pond_id": 1, "date": "2026-10-19", "time_slot_id": 1, "seats": 3})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity_exceeded")

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/scan/checkin", cust, echo.Map{"credential": cred}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/scan/checkin", op, echo.Map{"credential": "garbage"}).Code)

	rec = a.do(http.MethodPost, "/v1/scan/checkin/validate", op, echo.Map{"credential": cred})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"valid"`)

	rec = a.do(http.MethodPost, "/v1/scan/checkin", op, echo.Map{"credential": cred})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/scan/checkin", op, echo.Map{"credential": cred})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"alreadyCheckedIn"`)

	rec = a.do(http.MethodPost, "/v1/rods", op, echo.Map{"seat_credential": cred, "station_id": "w1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tag model.RodTag
	decode(t, rec, &tag)
	assert.Equal(t, 1, tag.Version)

	rec = a.do(http.MethodPost, "/v1/rods/validate", op, echo.Map{"credential": tag.Credential})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPut, path+"/seats/1/assignee", cust, echo.Map{"identity": "friend"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(http.MethodPut, path+"/seats/2/assignee", cust, echo.Map{"identity": "friend"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, path+"/checkins", op, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodDelete, path, cust, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var del struct {
		Voided  int `json:"voided_checkins"`
		Retired int `json:"retired_rods"`
	}
	decode(t, rec, &del)
	assert.Equal(t, 1, del.Voided)
	assert.Equal(t, 1, del.Retired)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, path, cust, nil).Code)
}

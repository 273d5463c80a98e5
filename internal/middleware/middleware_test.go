package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/config"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
)

const secret = "test-secret"

func bearer(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func protected(roles ...string) *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": Role(c), "staff": IsStaff(c)})
	}, JWTAuth(secret), RequireRole(roles...))
	return e
}

func get(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	e := protected(RoleOperator)
	rec := get(e, "/me", bearer(t, jwt.MapClaims{"sub": "op-7", "role": "operator", "exp": time.Now().Add(time.Hour).Unix()}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "op-7", body["user"])
	assert.Equal(t, RoleOperator, body["role"])
	assert.Equal(t, true, body["staff"])
}

func TestJWTAuthRejects(t *testing.T) {
	e := protected(RoleOperator)
	future := time.Now().Add(time.Hour).Unix()

	assert.Equal(t, http.StatusUnauthorized, get(e, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "/me", "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(e, "/me", bearer(t, jwt.MapClaims{"sub": "op", "role": RoleOperator, "exp": time.Now().Add(-time.Minute).Unix()})).Code)
	assert.Equal(t, http.StatusUnauthorized,
		get(e, "/me", bearer(t, jwt.MapClaims{"sub": "op", "role": RoleOperator})).Code, "exp is required")
	assert.Equal(t, http.StatusForbidden,
		get(e, "/me", bearer(t, jwt.MapClaims{"sub": "cust", "role": RoleCustomer, "exp": future})).Code)
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/scan", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, nil, logger.Nop()))

	assert.Equal(t, http.StatusNoContent, get(e, "/scan", "").Code)
	assert.Equal(t, http.StatusNoContent, get(e, "/scan", "").Code)
	rec := get(e, "/scan", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "layout", MaxBodyBytes: 1 << 10,
	}
}

func keyFor(cfg config.CacheConfig, path string) string {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
	return cacheKeyFrom(cfg, c)
}

func TestRedisCacheMissStores(t *testing.T) {
	cfg := cacheCfg()
	rdb, mock := redismock.NewClientMock()
	body := []byte(`{"seats":4}`)
	payload, err := json.Marshal(cachedResponse{Status: http.StatusOK, ContentType: echo.MIMEApplicationJSON, Body: body})
	require.NoError(t, err)

	key := keyFor(cfg, "/v1/ponds/1/layout")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, payload, time.Minute).SetVal("OK")

	e := echo.New()
	e.GET("/v1/ponds/:id/layout", func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
	}, NewRedisCache(cfg, rdb, logger.Nop()))

	rec := get(e, "/v1/ponds/1/layout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, string(body), rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheHitSkipsHandler(t *testing.T) {
	cfg := cacheCfg()
	rdb, mock := redismock.NewClientMock()
	payload, err := json.Marshal(cachedResponse{Status: http.StatusOK, ContentType: echo.MIMEApplicationJSON, Body: []byte(`{"cached":true}`)})
	require.NoError(t, err)
	mock.ExpectGet(keyFor(cfg, "/v1/ponds/2/layout")).SetVal(string(payload))

	called := false
	e := echo.New()
	e.GET("/v1/ponds/:id/layout", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}, NewRedisCache(cfg, rdb, logger.Nop()))

	rec := get(e, "/v1/ponds/2/layout", "")
	assert.False(t, called)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"cached":true}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/pond-seat-booking/internal/config"
	"github.com/iliyamo/pond-seat-booking/internal/handler"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/middleware"
)

// Deps carries everything the routes need.  Redis may be nil.
type Deps struct {
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *logger.Logger

	Health   *handler.HealthHandler
	Ponds    *handler.PondHandler
	Bookings *handler.BookingHandler
	Scans    *handler.ScanHandler
	Rods     *handler.RodHandler
}

// RegisterRoutes registers the probes and the public, customer and
// operator groups under /v1.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerPublic(e, d)
	registerCustomer(e, d)
	registerOperator(e, d)
}

// registerPublic exposes seat maps and availability to guests.  Only the
// layout is cached; availability changes with every booking.
func registerPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1")
	g.GET("/ponds/:id/layout", d.Ponds.Layout, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
	g.GET("/ponds/:id/availability", d.Ponds.Availability)
	g.GET("/ponds/:id/slots", d.Ponds.Slots)
	g.GET("/events/:id/availability", d.Ponds.EventAvailability)
}

// registerCustomer registers booking endpoints.  Staff roles are accepted
// so the front desk can book and cancel on behalf of walk-ins.
func registerCustomer(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RoleOperator, middleware.RoleAdmin),
	)
	limited := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	g.POST("/bookings", d.Bookings.Create, limited)
	g.GET("/bookings/:id", d.Bookings.Get)
	g.DELETE("/bookings/:id", d.Bookings.Delete)
	g.PUT("/bookings/:id/seats/:number/assignee", d.Bookings.AssignSeat)
}

// registerOperator registers the gate and weighing station endpoints.
func registerOperator(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleOperator, middleware.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
	)
	g.POST("/scan/checkin/validate", d.Scans.ValidateCheckIn)
	g.POST("/scan/checkin", d.Scans.CheckIn)
	g.POST("/scan/checkout/validate", d.Scans.ValidateCheckOut)
	g.POST("/scan/checkout", d.Scans.CheckOut)
	g.POST("/checkins/:id/checkout", d.Scans.CheckOutRecord)
	g.POST("/bookings/:id/no-show", d.Scans.NoShow)
	g.GET("/bookings/:id/checkins", d.Scans.History)

	g.POST("/rods", d.Rods.Issue)
	g.POST("/rods/validate", d.Rods.Validate)
	g.POST("/rods/history", d.Rods.History)
}

package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/pond-seat-booking/internal/logger"
)

// RequestLogger writes one API line per request through log.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/healthz" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			status := v.Status
			if v.Error != nil {
				if he, ok := v.Error.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			log.LogAPI(v.Method, v.URIPath, strconv.Itoa(status), v.Latency.Round(time.Microsecond).String())
			return nil
		},
	})
}

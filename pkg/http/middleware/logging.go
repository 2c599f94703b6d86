package middleware

import (
	"time"

	applogger "github.com/wrenwealth/Archantum/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one structured line per request.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			if l != nil {
				req := c.Request()
				l.Debug("http: request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.Int("status", c.Response().Status),
					applogger.Duration("took", time.Since(start)))
			}
			return err
		}
	}
}

package httpcontroller

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tagwise/tagwise/internal/logger"
)

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.RequestIDMiddleware)
	s.Echo.Use(s.TelemetryMiddleware)
}

// RequestIDMiddleware assigns a short request ID when the client sent none.
func (s *Server) RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)
		return next(c)
	}
}

// TelemetryMiddleware records request metrics and logs each request at
// debug level. Metrics are keyed by route pattern, not raw path.
func (s *Server) TelemetryMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// Let the error handler write the response so the status is known.
			c.Error(err)
		}
		elapsed := time.Since(start)
		status := c.Response().Status

		if s.Metrics != nil {
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			s.Metrics.HTTP.RecordHTTPRequest(c.Request().Method, path, status, elapsed.Seconds())
		}

		s.log.Debug("request served",
			logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			logger.String("method", c.Request().Method),
			logger.String("path", c.Request().URL.Path),
			logger.Int("status", status),
			logger.Duration("elapsed", elapsed))
		return nil
	}
}

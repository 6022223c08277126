package httpcontroller

import (
	"github.com/labstack/echo/v4"
)

// initRoutes registers the API routes.
func (s *Server) initRoutes() {
	api := s.Echo.Group("/api/v1")

	api.GET("/health", s.GetHealth)

	users := api.Group("/users/:user")
	users.GET("/queue", s.GetQueue)
	users.POST("/annotations/:instance", s.SubmitAnnotation)
	users.GET("/annotations/:instance", s.GetAnnotation)

	api.GET("/instances/:instance", s.GetInstance)

	al := api.Group("/activelearning")
	al.POST("/run", s.TriggerPass)
	al.GET("/status", s.GetStatus)
	al.GET("/selection/:instance", s.GetSelection)

	if s.Metrics != nil && s.Settings.WebServer.MetricsEnabled {
		s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}
}

package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// healthHandler handles GET /api/health.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &HealthResponse{
		Status:            "healthy",
		Providers:         s.providers,
		ActiveConnections: s.connManager.ActiveConnections(),
	})
}

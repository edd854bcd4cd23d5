package api

import (
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler handles GET /ws/:session_id by upgrading to a WebSocket and
// streaming the session's events. HandleConnection blocks until the client
// disconnects.
func (s *Server) wsHandler(c *echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is handled at the proxy layer
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrade failed: "+err.Error())
	}

	s.connManager.HandleConnection(c.Request().Context(), conn, sessionID)
	return nil
}

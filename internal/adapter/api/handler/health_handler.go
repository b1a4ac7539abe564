package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ConnectionCounter reports how many users hold an open websocket.
type ConnectionCounter interface {
	ConnectedUsers() int
}

type HealthHandler struct {
	storeBackend string
	connections  ConnectionCounter
}

var healthHandler *HealthHandler

func NewHealthHandler(storeBackend string, connections ConnectionCounter) *HealthHandler {
	return &HealthHandler{
		storeBackend: storeBackend,
		connections:  connections,
	}
}

func SetupHealthHandler(storeBackend string, connections ConnectionCounter) {
	healthHandler = NewHealthHandler(storeBackend, connections)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	status := map[string]interface{}{
		"status": "Server is running",
		"store":  h.storeBackend,
		"time":   time.Now().Format(time.RFC3339),
	}
	if h.connections != nil {
		status["connected_users"] = h.connections.ConnectedUsers()
	}
	return c.JSON(http.StatusOK, status)
}

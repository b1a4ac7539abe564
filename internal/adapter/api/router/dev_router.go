package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
)

// SetupDevRouter mounts the token minting endpoint when AUTH_MODE=dev.
func SetupDevRouter(e *echo.Echo, authMode string) {
	if authMode != "dev" {
		return
	}
	devTokenHandler := handler.GetDevTokenHandler()
	if devTokenHandler == nil {
		return
	}

	e.POST("/_dev/token", devTokenHandler.GenerateToken)
}

package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

func SetupPresenceRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	presenceHandler := handler.GetPresenceHandler()

	presence := e.Group("/v1/presence")
	presence.Use(authMiddleware.Authenticate)

	presence.POST("", presenceHandler.Update)
	presence.GET("/:uid", presenceHandler.Get)
}

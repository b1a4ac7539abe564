package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

func SetupFollowRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	followHandler := handler.GetFollowHandler()

	users := e.Group("/v1/users/:uid")
	users.Use(authMiddleware.Authenticate)

	users.POST("/follow", followHandler.Follow)
	users.POST("/follow-back", followHandler.FollowBack)
}

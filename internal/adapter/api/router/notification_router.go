package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

func SetupNotificationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	notificationHandler := handler.GetNotificationHandler()

	notifications := e.Group("/v1/notifications")
	notifications.Use(authMiddleware.Authenticate)

	notifications.GET("", notificationHandler.List)
	notifications.POST("", notificationHandler.Create, rateLimiter.RateLimitMiddleware())
	notifications.PUT("/:id/read", notificationHandler.MarkRead)
	notifications.GET("/:id/follow-back", notificationHandler.FollowBackState)
}

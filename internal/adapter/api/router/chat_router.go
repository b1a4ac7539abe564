package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/handler"
	"chatterbox/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	chatHandler := handler.GetChatHandler()

	conversations := e.Group("/v1/conversations/:peer")
	conversations.Use(rateLimiter.RateLimitMiddleware())
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("/messages", chatHandler.SendMessage)
	conversations.GET("/messages", chatHandler.GetMessages)
	conversations.GET("/messages/:id", chatHandler.GetMessage)
	conversations.POST("/messages/:id/seen", chatHandler.MarkSeen)
	conversations.PUT("/messages/:id/reactions", chatHandler.React)
	conversations.GET("/messages/:id/reactions", chatHandler.GetReactions)
}

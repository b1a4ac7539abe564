package router

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter) {
	SetupChatRouter(e, authMiddleware, rateLimiter)
	SetupPresenceRouter(e, authMiddleware)
	SetupNotificationRouter(e, authMiddleware, rateLimiter)
	SetupFollowRouter(e, authMiddleware)
	SetupHealthRouter(e)
}

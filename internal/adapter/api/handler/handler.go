package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
)

var (
	chatHandler         *ChatHandler
	presenceHandler     *PresenceHandler
	notificationHandler *NotificationHandler
	followHandler       *FollowHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	deliveryUseCase *usecase.DeliveryUseCase,
	reactionUseCase *usecase.ReactionUseCase,
	presenceUseCase *usecase.PresenceUseCase,
	typingDebouncer *usecase.TypingDebouncer,
	notificationUseCase *usecase.NotificationUseCase,
	followUseCase *usecase.FollowUseCase,
) {
	chatHandler = NewChatHandler(chatUseCase, deliveryUseCase, reactionUseCase)
	presenceHandler = NewPresenceHandler(presenceUseCase, typingDebouncer)
	notificationHandler = NewNotificationHandler(notificationUseCase)
	followHandler = NewFollowHandler(followUseCase)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetPresenceHandler() *PresenceHandler {
	return presenceHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}

func GetFollowHandler() *FollowHandler {
	return followHandler
}

func currentSession(c echo.Context) (entity.Session, error) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return entity.Session{}, errors.Unauthorized("Authentication required", nil)
	}
	return session, nil
}

// peerParam reads :peer and rejects a conversation with oneself.
func peerParam(c echo.Context, session entity.Session) (string, error) {
	peerID := c.Param("peer")
	if peerID == "" {
		return "", errors.InvalidArgument("peer id is required")
	}
	if peerID == session.UserID {
		return "", errors.InvalidArgument("cannot open a conversation with yourself")
	}
	return peerID, nil
}

package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
	"chatterbox/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

// createNotificationRequest is posted by collaborating services (feed,
// comments) on behalf of the authenticated actor.
type createNotificationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Kind        string `json:"kind" validate:"required,oneof=like comment follow"`
	PostID      string `json:"post_id"`
	CommentText string `json:"comment_text" validate:"max=2000"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	notifications, err := h.notificationUseCase.List(c.Request().Context(), session.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	if c.QueryParam("unread") == "true" {
		unread := make([]entity.Notification, 0, len(notifications))
		for _, n := range notifications {
			if !n.Read {
				unread = append(unread, n)
			}
		}
		notifications = unread
	}

	page := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.PageOf(notifications, page), int64(len(notifications)), page.Page, page.PageSize)
}

func (h *NotificationHandler) Create(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createNotificationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidArgument("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	var payload *entity.NotificationPayload
	if req.PostID != "" || req.CommentText != "" {
		payload = &entity.NotificationPayload{PostID: req.PostID, CommentText: req.CommentText}
	}

	notification, err := h.notificationUseCase.Notify(c.Request().Context(), usecase.NotifyInput{
		RecipientID: req.RecipientID,
		Kind:        entity.NotificationKind(req.Kind),
		Sender:      session,
		Payload:     payload,
	})
	if err != nil {
		return response.Error(c, err)
	}
	if notification == nil {
		return response.Success(c, map[string]bool{"skipped": true})
	}

	return response.Created(c, notification)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.notificationUseCase.MarkRead(c.Request().Context(), session, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"read": true})
}

func (h *NotificationHandler) FollowBackState(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	following, err := h.notificationUseCase.FollowBackState(c.Request().Context(), session, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"following": following})
}

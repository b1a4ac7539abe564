package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/usecase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
)

type PresenceHandler struct {
	presenceUseCase *usecase.PresenceUseCase
	typingDebouncer *usecase.TypingDebouncer
}

func NewPresenceHandler(presenceUseCase *usecase.PresenceUseCase, typingDebouncer *usecase.TypingDebouncer) *PresenceHandler {
	return &PresenceHandler{
		presenceUseCase: presenceUseCase,
		typingDebouncer: typingDebouncer,
	}
}

type presenceRequest struct {
	Action string `json:"action" validate:"required,oneof=focus blur typing offline"`
}

// Update applies a presence signal from a client that is not on a websocket.
func (h *PresenceHandler) Update(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req presenceRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidArgument("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	switch req.Action {
	case "focus":
		err = h.presenceUseCase.Focus(ctx, session.UserID)
	case "blur":
		err = h.presenceUseCase.Blur(ctx, session.UserID)
	case "typing":
		err = h.typingDebouncer.Keystroke(ctx, session.UserID)
	case "offline":
		h.typingDebouncer.Stop(session.UserID)
		err = h.presenceUseCase.SetOffline(ctx, session.UserID)
	}
	if err != nil {
		return response.Error(c, err)
	}

	presence, err := h.presenceUseCase.Current(ctx, session.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, presence)
}

func (h *PresenceHandler) Get(c echo.Context) error {
	if _, err := currentSession(c); err != nil {
		return response.Error(c, err)
	}

	presence, err := h.presenceUseCase.Current(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, presence)
}

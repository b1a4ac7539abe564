package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/usecase"
	"chatterbox/pkg/response"
)

type FollowHandler struct {
	followUseCase *usecase.FollowUseCase
}

func NewFollowHandler(followUseCase *usecase.FollowUseCase) *FollowHandler {
	return &FollowHandler{
		followUseCase: followUseCase,
	}
}

func (h *FollowHandler) Follow(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	created, err := h.followUseCase.Follow(c.Request().Context(), session, c.Param("uid"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"following": true, "created": created})
}

func (h *FollowHandler) FollowBack(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}

	created, err := h.followUseCase.FollowBack(c.Request().Context(), session, c.Param("uid"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"following": true, "created": created})
}

package handler

import (
	"github.com/labstack/echo/v4"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/infrastructure/firebase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
)

type DevTokenHandler struct {
	issuer *firebase.DevTokenIssuer
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(issuer *firebase.DevTokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{
		issuer: issuer,
	}
}

func SetupDevTokenHandler(issuer *firebase.DevTokenIssuer) {
	devTokenHandler = NewDevTokenHandler(issuer)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devTokenRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`
}

// GenerateToken signs a token for any user id. Only mounted with AUTH_MODE=dev.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.InvalidArgument("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	session := entity.Session{UserID: req.UserID, DisplayName: req.DisplayName, AvatarRef: req.AvatarRef}
	token, err := h.issuer.Issue(session)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  session,
	})
}

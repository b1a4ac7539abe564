package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/infrastructure/firebase"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/response"
)

const sessionKey = "session"

type AuthMiddleware struct {
	verifier firebase.TokenVerifier
}

func NewAuthMiddleware(verifier firebase.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate requires a bearer token, or a ?token= query parameter for
// websocket upgrades, and stores the caller's Session on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := extractToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		session, err := m.verifier.Verify(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set(sessionKey, session)
		c.Set("uid", session.UserID)
		return next(c)
	}
}

func extractToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// SessionFrom returns the Session set by Authenticate.
func SessionFrom(c echo.Context) (entity.Session, bool) {
	session, ok := c.Get(sessionKey).(entity.Session)
	return session, ok && session.UserID != ""
}

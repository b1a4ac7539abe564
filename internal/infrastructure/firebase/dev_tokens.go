package firebase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

// DevTokenIssuer signs and verifies HS256 tokens for AUTH_MODE=dev, so the
// service can run without a Firebase project.
type DevTokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

type devClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

func NewDevTokenIssuer(secret string, expiry time.Duration) *DevTokenIssuer {
	return &DevTokenIssuer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (d *DevTokenIssuer) Issue(session entity.Session) (string, error) {
	if session.UserID == "" {
		return "", errors.InvalidArgument("user id is required")
	}

	now := d.now()
	claims := devClaims{
		Name:    session.DisplayName,
		Picture: session.AvatarRef,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d.expiry)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
}

func (d *DevTokenIssuer) Verify(ctx context.Context, token string) (entity.Session, error) {
	var claims devClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return d.secret, nil
	})
	if err != nil {
		return entity.Session{}, errors.Unauthorized("Invalid or expired token", err)
	}
	if claims.Subject == "" {
		return entity.Session{}, errors.Unauthorized("Invalid or expired token", fmt.Errorf("token has no subject"))
	}

	return entity.Session{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		AvatarRef:   claims.Picture,
	}, nil
}

package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

// TokenVerifier turns a bearer token into the caller's Session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (entity.Session, error)
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// Verify checks a Firebase ID token and reads the profile claims the client
// SDK puts on it.
func (f *FirebaseAuthClient) Verify(ctx context.Context, token string) (entity.Session, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return entity.Session{}, errors.Unauthorized("Invalid or expired token", err)
	}

	return sessionFromClaims(result.UID, result.Claims), nil
}

func sessionFromClaims(uid string, claims map[string]interface{}) entity.Session {
	session := entity.Session{UserID: uid}
	if name, ok := claims["name"].(string); ok {
		session.DisplayName = name
	}
	if picture, ok := claims["picture"].(string); ok {
		session.AvatarRef = picture
	}
	return session
}

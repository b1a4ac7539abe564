package firebase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

func TestDevTokenRoundTrip(t *testing.T) {
	issuer := NewDevTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue(entity.Session{UserID: "alice", DisplayName: "Alice", AvatarRef: "https://img/a.png"})
	require.NoError(t, err)

	session, err := issuer.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.UserID)
	assert.Equal(t, "Alice", session.DisplayName)
	assert.Equal(t, "https://img/a.png", session.AvatarRef)
}

func TestDevTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewDevTokenIssuer("secret", time.Hour)
	token, _ := issuer.Issue(entity.Session{UserID: "alice"})

	_, err := NewDevTokenIssuer("other", time.Hour).Verify(context.Background(), token)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	expired := NewDevTokenIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _ := expired.Issue(entity.Session{UserID: "alice"})
	_, err = issuer.Verify(context.Background(), old)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestIssueRequiresUser(t *testing.T) {
	_, err := NewDevTokenIssuer("secret", time.Hour).Issue(entity.Session{})
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

func TestSessionFromClaims(t *testing.T) {
	s := sessionFromClaims("u1", map[string]interface{}{"name": "Una", "picture": "p.png", "email": "x"})
	assert.Equal(t, entity.Session{UserID: "u1", DisplayName: "Una", AvatarRef: "p.png"}, s)

	s = sessionFromClaims("u2", nil)
	assert.Equal(t, "Someone", s.Name())
}

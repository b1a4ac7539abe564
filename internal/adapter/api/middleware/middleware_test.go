package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
	"chatterbox/internal/infrastructure/firebase"
)

func whoami(c echo.Context) error {
	session, ok := SessionFrom(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.String(http.StatusOK, session.UserID+"/"+session.DisplayName)
}

func TestAuthenticate(t *testing.T) {
	issuer := firebase.NewDevTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(entity.Session{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", whoami, NewAuthMiddleware(issuer).Authenticate)

	tests := []struct {
		name   string
		header string
		query  string
		code   int
		body   string
	}{
		{name: "bearer header", header: "Bearer " + token, code: http.StatusOK, body: "alice/Alice"},
		{name: "query token", query: "?token=" + token, code: http.StatusOK, body: "alice/Alice"},
		{name: "missing", code: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, code: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", code: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rl.RateLimitMiddleware())

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)

	blocked := hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit("10.0.0.2").Code, "limits are per IP")

	rl.Cleanup(0)
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

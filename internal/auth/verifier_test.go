package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwire/pkg/apperror"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, "chatwire")

	credential := signToken(t, jwt.MapClaims{
		"sub": "user_abc",
		"sid": "sess_1",
		"iss": "chatwire",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	principal, err := v.Verify(credential)
	require.NoError(t, err)
	assert.Equal(t, "user_abc", principal.UserID)
	assert.Equal(t, "sess_1", principal.SessionID)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewJWTVerifier(testSecret, "chatwire")

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"expired":   signToken(t, jwt.MapClaims{"sub": "u", "iss": "chatwire", "exp": time.Now().Add(-time.Hour).Unix()}),
		"wrong iss": signToken(t, jwt.MapClaims{"sub": "u", "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix()}),
		"no sub":    signToken(t, jwt.MapClaims{"iss": "chatwire", "exp": time.Now().Add(time.Hour).Unix()}),
		"no exp":    signToken(t, jwt.MapClaims{"sub": "u", "iss": "chatwire"}),
	}

	for name, credential := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(credential)
			assert.True(t, apperror.IsCode(err, apperror.CodeUnauthenticated))
		})
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewJWTVerifier("other-secret", "chatwire")

	credential := signToken(t, jwt.MapClaims{
		"sub": "u",
		"iss": "chatwire",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(credential)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthenticated))
}

func TestMiddlewareInjectsPrincipal(t *testing.T) {
	v := NewJWTVerifier(testSecret, "chatwire")
	m := NewMiddleware(v)

	credential := signToken(t, jwt.MapClaims{
		"sub": "user_abc",
		"iss": "chatwire",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	var got Principal
	handler := m.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
	}))

	// Authorization header.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+credential)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user_abc", got.UserID)

	// Query-param fallback for websocket handshakes.
	got = Principal{}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ws?token="+credential, nil)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user_abc", got.UserID)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	m := NewMiddleware(NewJWTVerifier(testSecret, "chatwire"))

	called := false
	handler := m.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called, "core handlers must never see unauthenticated requests")
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"chatwire/pkg/apperror"
)

type contextKey string

const principalKey contextKey = "principal"

type Middleware struct {
	verifier Verifier
}

func NewMiddleware(v Verifier) *Middleware {
	return &Middleware{verifier: v}
}

// Handle rejects unauthenticated requests and injects the Principal into
// the request context. The token is read from the Authorization header,
// falling back to the "token" query param for websocket handshakes, where
// browsers cannot set headers.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := ""

		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				credential = strings.TrimSpace(parts[1])
			}
		}
		if credential == "" {
			credential = r.URL.Query().Get("token")
		}

		principal, err := m.verifier.Verify(credential)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"code":    string(apperror.CodeUnauthenticated),
				"message": apperror.MessageOf(err),
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the verified principal placed by the middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

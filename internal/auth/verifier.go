package auth

import (
	"chatwire/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the verified identity attached to every core operation.
type Principal struct {
	UserID    string
	SessionID string
	Claims    map[string]any
}

// Verifier turns an opaque bearer credential into a Principal. The core
// never inspects credential internals; swapping the token scheme means
// swapping this implementation.
type Verifier interface {
	Verify(credential string) (Principal, error)
}

type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(credential string) (Principal, error) {
	if credential == "" {
		return Principal{}, apperror.Unauthorized("missing authentication token")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperror.Unauthorized("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Principal{}, apperror.Wrap(apperror.CodeUnauthenticated, "invalid token", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, apperror.Unauthorized("token has no subject")
	}

	sid, _ := claims["sid"].(string)
	return Principal{UserID: sub, SessionID: sid, Claims: claims}, nil
}

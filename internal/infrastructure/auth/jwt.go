// Package auth verifies bearer credentials. Tokens are HMAC-signed JWTs whose
// subject is the user id.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

var ErrUnauthenticated = errors.New("auth: invalid or missing credentials")

type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator verifies tokens signed with secret. When issuer is
// non-empty the iss claim must match it.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Verify parses token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}
	return sub, nil
}

// Issue signs a token for userID. Used by tests and local tooling.
func (a *Authenticator) Issue(userID string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = userID
	if a.issuer != "" && claims.Issuer == "" {
		claims.Issuer = a.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// TokenFrom reads the token from the Authorization header, falling back to
// the token query parameter for websocket clients that cannot set headers.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid token and stores the user id
// under UserIDKey.
func RequireAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := a.Verify(TokenFrom(c.Request))
		if err != nil {
			log.Debug().Str("module", "auth").Err(err).Msg("request rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id stored by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

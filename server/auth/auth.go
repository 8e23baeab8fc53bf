// Package auth authenticates API callers with HS256 bearer tokens.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
	"github.com/hrygo/focuspilot/server/internal/observability"
)

const (
	// UserIDHeader identifies the caller in dev mode when no secret is set.
	UserIDHeader = "X-User-ID"
	issuer       = "focuspilot"
)

type contextKey int

// UserIDContextKey is the key of the authenticated user id.
const UserIDContextKey contextKey = iota

// Authenticator validates bearer tokens. The subject claim is the user id.
type Authenticator struct {
	secret      []byte
	allowHeader bool
	now         func() time.Time
}

// NewAuthenticator creates an authenticator. An empty secret in dev mode
// trusts the X-User-ID header; an empty secret otherwise rejects everything.
func NewAuthenticator(secret string, devMode bool) *Authenticator {
	return &Authenticator{
		secret:      []byte(secret),
		allowHeader: secret == "" && devMode,
		now:         time.Now,
	}
}

// IssueToken signs a token for userID valid for ttl.
func (a *Authenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("no signing secret configured")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Authenticate returns the user id carried by the request credentials.
func (a *Authenticator) Authenticate(authHeader, userIDHeader string) (string, error) {
	if a.allowHeader {
		if id := strings.TrimSpace(userIDHeader); id != "" {
			return id, nil
		}
		return "", aierrors.Unauthorized("missing " + UserIDHeader + " header")
	}
	if len(a.secret) == 0 {
		return "", aierrors.Unauthorized("authentication is not configured")
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", aierrors.Unauthorized("missing bearer token")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", &aierrors.AIError{Code: aierrors.ErrCodeUnauthorized, Message: "invalid token", Cause: err}
	}
	if claims.Subject == "" {
		return "", aierrors.Unauthorized("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests and stores the user id in
// the request context.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			userID, err := a.Authenticate(req.Header.Get(echo.HeaderAuthorization), req.Header.Get(UserIDHeader))
			if err != nil {
				return err
			}
			if rc, ok := observability.FromContext(req.Context()); ok {
				rc.UserID = userID
			}
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), UserIDContextKey, userID)))
			return next(c)
		}
	}
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok && id != ""
}

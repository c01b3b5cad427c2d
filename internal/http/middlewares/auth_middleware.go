package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/storefront/internal/actorctx"
	"github.com/geocoder89/storefront/internal/auth"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserLookup
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// WithRevalidation makes the gate confirm the token's user still exists on
// every request instead of trusting the token payload until it expires.
func (m *AuthMiddleware) WithRevalidation(users UserLookup) *AuthMiddleware {
	cp := *m
	cp.users = users
	return &cp
}

const bearerPrefix = "Bearer "

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Access denied. No token provided")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Access denied. No token provided")
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		identity := claims.Identity()

		if m.users != nil {
			cctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			u, err := m.users.GetByID(cctx, identity.ID)
			cancel()

			if errors.Is(err, user.ErrNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Token is valid but user not found")
				return
			}
			if err != nil {
				slog.Default().ErrorContext(c.Request.Context(), "auth revalidation failed", "err", err)
				abortWithError(c, http.StatusInternalServerError, "internal_error", "Could not verify identity")
				return
			}
			identity = u.Identity()
		}

		// Stash identity on both the gin context and the request context
		c.Set(CtxIdentity, identity)
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), identity))

		c.Next()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return user.Identity{}, false
	}
	id, ok := v.(user.Identity)
	return id, ok && id.ID != ""
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFromContext(c)
	return id.ID, ok
}

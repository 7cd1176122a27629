package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timehacker/api/internal/constants"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/model"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

// AuthenticatedIdentity is what handlers know about the caller
type AuthenticatedIdentity struct {
	ID    uuid.UUID
	Email string
}

// IdentityResolver is satisfied by *service.AuthService
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, accessToken string) (*model.User, error)
}

type JWTMiddleware struct {
	resolver IdentityResolver
}

func NewJWTMiddleware(resolver IdentityResolver) *JWTMiddleware {
	return &JWTMiddleware{resolver: resolver}
}

// RequireAuth rejects the request unless it carries a valid bearer token
// of an active user: 401 for anything wrong with the token, 403 for a
// disabled account.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithFunction(c.Request.Context(), "middleware", "RequireAuth")

		token, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			logger.WarnWithContext(ctx, "Missing or malformed Authorization header").
				String("path", c.Request.URL.Path).
				String("method", c.Request.Method).
				Log()
			AbortWithError(c, apperrors.ErrUnauthenticated)
			return
		}

		user, err := m.resolver.ResolveIdentity(ctx, token)
		if err != nil {
			logger.WarnWithContext(ctx, "Access token rejected").
				String("path", c.Request.URL.Path).
				String("reason", apperrors.GetErrorCode(err)).
				Log()
			AbortWithError(c, err)
			return
		}

		setIdentity(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func (m *JWTMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			c.Next()
			return
		}

		ctx := ctxutil.WithFunction(c.Request.Context(), "middleware", "OptionalAuth")
		user, err := m.resolver.ResolveIdentity(ctx, token)
		if err != nil {
			logger.DebugWithContext(ctx, "Ignoring unusable credentials").
				String("reason", apperrors.GetErrorCode(err)).
				Log()
			c.Next()
			return
		}

		setIdentity(c, user)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireAuth or OptionalAuth
func CurrentIdentity(c *gin.Context) (AuthenticatedIdentity, bool) {
	v, ok := c.Get(constants.GinKeyIdentity)
	if !ok {
		return AuthenticatedIdentity{}, false
	}
	identity, ok := v.(AuthenticatedIdentity)
	return identity, ok
}

func setIdentity(c *gin.Context, user *model.User) {
	identity := AuthenticatedIdentity{ID: user.ID, Email: user.Email}
	c.Set(constants.GinKeyIdentity, identity)

	ctx := ctxutil.WithUserID(c.Request.Context(), user.ID)
	ctx = ctxutil.WithValue(ctx, ctxutil.IdentityKey, identity)
	c.Request = c.Request.WithContext(ctx)
}

// bearerToken accepts exactly "<scheme> <token>" with a case-insensitive
// bearer scheme.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.AuthSchemeBearer) || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/middleware"
	"github.com/timehacker/api/pkg/logger"
)

// respondError logs err at a level matching its status and writes the
// error body.
func respondError(ctx context.Context, c *gin.Context, message string, err error) {
	status := apperrors.ToHTTPStatus(err)

	entry := logger.WarnWithContext
	if status >= http.StatusInternalServerError {
		entry = logger.ErrorWithContext
	}
	entry(ctx, message).
		String("code", apperrors.GetErrorCode(err)).
		Int("status_code", status).
		Err(err).
		Log()

	middleware.AbortWithError(c, err)
}

// identity returns the caller set by RequireAuth. Routes without it are
// wired wrong, so a miss is answered with 401 rather than a panic.
func identity(ctx context.Context, c *gin.Context) (middleware.AuthenticatedIdentity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(ctx, c, "Protected route reached without identity", apperrors.ErrUnauthenticated)
	}
	return id, ok
}

// bindBody returns the body decoded by the validation middleware
func bindBody[T any](ctx context.Context, c *gin.Context) (*T, bool) {
	req, ok := middleware.ValidatedBody[T](c)
	if !ok {
		respondError(ctx, c, "Route reached without validated body", apperrors.ErrInternal)
	}
	return req, ok
}

// pathID parses a uuid path parameter. An unparseable id cannot name an
// existing row and is reported as not found.
func pathID(ctx context.Context, c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(ctx, c, "Malformed resource id", apperrors.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/timehacker/api/internal/errors"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
	"github.com/timehacker/api/pkg/validation"
)

const (
	validatedBodyKey = "validated_body"
	maxBodyBytes     = 1 << 20
)

type ValidationMiddleware struct {
	validate *validator.Validate
}

func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{validate: validation.New()}
}

// ValidateRequestBody decodes the JSON body into factory() and validates
// its binding tags. The result is read back with ValidatedBody. An empty
// body decodes as {}.
func (m *ValidationMiddleware) ValidateRequestBody(factory func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithFunction(c.Request.Context(), "middleware", "ValidateRequestBody")

		var bodyBytes []byte
		if c.Request.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
			if err != nil {
				logger.WarnWithContext(ctx, "Failed to read request body").Err(err).Log()
				AbortWithError(c, apperrors.WrapError(apperrors.ErrValidation, errors.New("request body could not be read")))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			bodyBytes = []byte("{}")
		}

		request := factory()
		if err := json.Unmarshal(bodyBytes, request); err != nil {
			logger.WarnWithContext(ctx, "JSON unmarshaling failed").
				String("path", c.Request.URL.Path).
				Int("body_size", len(bodyBytes)).
				Err(err).
				Log()
			AbortWithError(c, apperrors.WrapError(apperrors.ErrValidation, errors.New("request body is not valid JSON")))
			return
		}

		if err := m.validate.Struct(request); err != nil {
			fields := validation.FieldErrors(err)
			if fields == nil {
				logger.ErrorWithContext(ctx, "Validator misconfigured").Err(err).Log()
				AbortWithError(c, apperrors.WrapError(apperrors.ErrInternal, err))
				return
			}

			logger.WarnWithContext(ctx, "Request validation failed").
				String("path", c.Request.URL.Path).
				Int("error_count", len(fields)).
				Log()
			AbortWithError(c, apperrors.WrapError(apperrors.ErrValidation, FieldErrors(fields)))
			return
		}

		c.Set(validatedBodyKey, request)
		c.Next()
	}
}

// ValidatedBody returns the request decoded by ValidateRequestBody
func ValidatedBody[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(validatedBodyKey)
	if !ok {
		return nil, false
	}
	req, ok := v.(*T)
	return req, ok
}

package middleware

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/constants"
	apperrors "github.com/timehacker/api/internal/errors"
)

// FieldErrors carries per-field validation messages to the response body
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

// ErrorBody builds the JSON body for err. Internal causes never reach the
// client; validation causes are written by this codebase and do.
func ErrorBody(err error) map[string]any {
	status := apperrors.ToHTTPStatus(err)
	code := apperrors.GetErrorCode(err)

	var details any = apperrors.GetErrorMessage(err)
	if code == apperrors.CodeValidation {
		var fields FieldErrors
		if errors.As(err, &fields) {
			details = fields
		} else if de := apperrors.GetDomainError(err); de != nil && de.Err != nil {
			details = de.Err.Error()
		}
	}

	return constants.BuildCodedErrorResponse(code, statusSummary(status), details)
}

// AbortWithError writes err and stops the handler chain
func AbortWithError(c *gin.Context, err error) {
	if apperrors.ToHTTPStatus(err) == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(apperrors.ToHTTPStatus(err), ErrorBody(err))
}

func statusSummary(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return constants.MsgUnauthorized
	case http.StatusForbidden:
		return constants.MsgForbidden
	case http.StatusNotFound:
		return constants.MsgNotFound
	case http.StatusUnprocessableEntity:
		return constants.MsgValidationFailed
	case http.StatusTooManyRequests:
		return constants.MsgTooManyRequests
	case http.StatusServiceUnavailable:
		return constants.MsgServiceUnavailable
	case http.StatusInternalServerError:
		return constants.MsgInternalError
	default:
		return constants.MsgBadRequest
	}
}

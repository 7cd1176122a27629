package constants

// HTTP Header Names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderUserAgent     = "User-Agent"
	HeaderXRequestID    = "X-Request-ID"
	HeaderRetryAfter    = "Retry-After"
)

// Authorization scheme accepted by the identity middleware
const AuthSchemeBearer = "bearer"

// Common HTTP Error Messages
const (
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Forbidden"
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgValidationFailed   = "Validation failed"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgTooManyRequests    = "Too many requests"
)

// Auth flow messages
const (
	MsgLogoutSuccess        = "Logged out successfully"
	MsgResetRequested       = "If the email is registered, a password reset link has been sent"
	MsgPasswordResetSuccess = "Password has been reset successfully"
)

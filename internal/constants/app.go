package constants

// Application Information
const (
	AppName    = "TimeHacker API"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Redis Key Prefixes
const (
	KeyPrefix          = "timehacker:"
	KeyRateLimitPrefix = KeyPrefix + "ratelimit:"
)

// Token types carried in the "type" claim
const (
	TokenTypeAccess = "access"
	TokenTypeBearer = "bearer"
)

// Notification purposes published to the mail queue
const (
	PurposePasswordReset = "password_reset"
)

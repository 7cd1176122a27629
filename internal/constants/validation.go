package constants

// Field Length Limits
const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxEmailLength    = 255
	MaxTitleLength    = 500
	MaxNameLength     = 100
	MaxURLLength      = 2048
)

// Token material sizes in random bytes
const (
	TokenLookupBytes = 9
	TokenSecretBytes = 32
)

// Pomodoro defaults used when a user has no stored settings yet
const (
	DefaultWorkTime               = 25
	DefaultShortBreakTime         = 5
	DefaultLongBreakTime          = 15
	DefaultSessionsUntilLongBreak = 4
	MaxPomodoroSessionsListed     = 50
)

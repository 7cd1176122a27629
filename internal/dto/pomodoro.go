package dto

import (
	"time"

	"github.com/google/uuid"
)

// Pomodoro payloads keep the camelCase keys the web client already sends.

type CreatePomodoroSessionRequest struct {
	Title       string `json:"title" binding:"required,max=500"`
	Duration    int    `json:"duration" binding:"required,min=1,max=1440"`
	CompletedAt string `json:"completedAt" binding:"required"`
}

type PomodoroSessionResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Duration    int        `json:"duration"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PomodoroSettings struct {
	WorkTime               int `json:"workTime" binding:"required,min=1,max=180"`
	ShortBreakTime         int `json:"shortBreakTime" binding:"required,min=1,max=60"`
	LongBreakTime          int `json:"longBreakTime" binding:"required,min=1,max=120"`
	SessionsUntilLongBreak int `json:"sessionsUntilLongBreak" binding:"required,min=1,max=12"`
}

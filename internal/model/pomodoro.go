package model

import (
	"time"

	"github.com/google/uuid"
)

type PomodoroSession struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;index;not null"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Title       string     `gorm:"column:title;size:500;not null"`
	Duration    int        `gorm:"column:duration;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at;index"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

func (PomodoroSession) TableName() string { return "pomodoro_sessions" }

type PomodoroSettings struct {
	ID                     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID                 uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	User                   *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	WorkTime               int       `gorm:"column:work_time;default:25;not null"`
	ShortBreakTime         int       `gorm:"column:short_break_time;default:5;not null"`
	LongBreakTime          int       `gorm:"column:long_break_time;default:15;not null"`
	SessionsUntilLongBreak int       `gorm:"column:sessions_until_long_break;default:4;not null"`
	CreatedAt              time.Time `gorm:"column:created_at;not null"`
	UpdatedAt              time.Time `gorm:"column:updated_at;not null"`
}

func (PomodoroSettings) TableName() string { return "pomodoro_settings" }

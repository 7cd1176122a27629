package model

import (
	"time"

	"github.com/google/uuid"
)

type Todo struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;index;not null"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Title       string     `gorm:"column:title;size:500;not null"`
	Description *string    `gorm:"column:description;type:text"`
	IsCompleted bool       `gorm:"column:is_completed;default:false;not null"`
	StartAt     *time.Time `gorm:"column:start_at"`
	EndAt       *time.Time `gorm:"column:end_at"`
	AllDay      bool       `gorm:"column:all_day;default:false;not null"`
	Color       *string    `gorm:"column:color;size:32"`
	CreatedAt   time.Time  `gorm:"column:created_at;index;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

func (Todo) TableName() string { return "todos" }

package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTodoRequest struct {
	Title       string     `json:"title" binding:"required,max=500"`
	Description *string    `json:"description"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      bool       `json:"all_day"`
	Color       *string    `json:"color" binding:"omitempty,max=32"`
}

type UpdateTodoRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=500"`
	Description *string    `json:"description"`
	IsCompleted *bool      `json:"is_completed"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      *bool      `json:"all_day"`
	Color       *string    `json:"color" binding:"omitempty,max=32"`
}

type TodoResponse struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      bool       `json:"all_day"`
	Color       *string    `json:"color"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

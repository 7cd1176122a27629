package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"column:email;size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	IsVerified   bool      `gorm:"column:is_verified;default:false;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (User) TableName() string { return "users" }

// Profile shares its primary key with the owning user.
type Profile struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	User      *User     `gorm:"foreignKey:ID;references:ID;constraint:OnDelete:CASCADE"`
	Name      *string   `gorm:"column:name;size:100"`
	School    *string   `gorm:"column:school;size:100"`
	Avatar    *string   `gorm:"column:avatar;size:2048"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Profile) TableName() string { return "profiles" }

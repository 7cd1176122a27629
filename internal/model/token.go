package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken stores only the bcrypt hash of the secret half of a refresh
// token. LookupID is the public half and narrows the bcrypt scan to one row.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;index;not null"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	LookupID  string    `gorm:"column:lookup_id;size:32;index"`
	TokenHash string    `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;index;not null"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	LookupID  string    `gorm:"column:lookup_id;size:32;index"`
	TokenHash string    `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null"`
	Used      bool      `gorm:"column:used;default:false;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

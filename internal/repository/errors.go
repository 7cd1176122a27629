package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrTokenAlreadyUsed = errors.New("reset token already used")
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure,
// whether gorm translated it or the raw driver error surfaced.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

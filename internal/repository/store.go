package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timehacker/api/internal/model"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
	"gorm.io/gorm"
)

type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// RefreshTokens lists candidates for bcrypt verification. ListActive only
// returns rows whose lookup id equals lookupID.
type RefreshTokens interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	ListActive(ctx context.Context, lookupID string, now time.Time) ([]model.RefreshToken, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.RefreshToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ResetTokens interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	ListUsable(ctx context.Context, lookupID string, now time.Time) ([]model.PasswordResetToken, error)
	// MarkUsed flips used from false to true and returns ErrTokenAlreadyUsed
	// when another caller got there first.
	MarkUsed(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Profiles interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	Create(ctx context.Context, profile *model.Profile) error
	Save(ctx context.Context, profile *model.Profile) error
}

type Todos interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Todo, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Todo, error)
	Create(ctx context.Context, todo *model.Todo) error
	Save(ctx context.Context, todo *model.Todo) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type Pomodoros interface {
	ListSessions(ctx context.Context, userID uuid.UUID, limit int) ([]model.PomodoroSession, error)
	CreateSession(ctx context.Context, session *model.PomodoroSession) error
	DeleteSession(ctx context.Context, userID, id uuid.UUID) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error)
	SaveSettings(ctx context.Context, settings *model.PomodoroSettings) error
}

// Store is the single persistence handle passed to services. Every
// repository it hands out shares the same connection or transaction.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	ResetTokens() ResetTokens
	Profiles() Profiles
	Todos() Todos
	Pomodoros() Pomodoros

	// WithinTransaction runs fn against a Store bound to one transaction.
	// It commits when fn returns nil and rolls back on error, panic or
	// context cancellation.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() Users                 { return NewUserRepository(s.db) }
func (s *GormStore) RefreshTokens() RefreshTokens { return NewRefreshTokenRepository(s.db) }
func (s *GormStore) ResetTokens() ResetTokens     { return NewResetTokenRepository(s.db) }
func (s *GormStore) Profiles() Profiles           { return NewProfileRepository(s.db) }
func (s *GormStore) Todos() Todos                 { return NewTodoRepository(s.db) }
func (s *GormStore) Pomodoros() Pomodoros         { return NewPomodoroRepository(s.db) }

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "WithinTransaction")

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before transaction").
			Err(err).
			Log()
		return err
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
	duration := time.Since(start)

	if err != nil {
		logger.DebugWithContext(ctx, "Transaction rolled back").
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Transaction committed").
		Duration(duration).
		Log()
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

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

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "UserRepository.GetByID")

	start := time.Now()
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	duration := time.Since(start)

	if err != nil {
		if isNotFound(err) {
			logger.DebugWithContext(ctx, "User not found").
				String("id", id.String()).
				Duration(duration).
				Log()
			return nil, ErrNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get user by id").
			String("id", id.String()).
			Duration(duration).
			Err(err).
			Log()
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// GetByEmail matches the address exactly as stored. Callers normalise case
// before both insert and lookup.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "UserRepository.GetByEmail")

	start := time.Now()
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	duration := time.Since(start)

	if err != nil {
		if isNotFound(err) {
			logger.DebugWithContext(ctx, "User not found by email").
				Duration(duration).
				Log()
			return nil, ErrNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get user by email").
			Duration(duration).
			Err(err).
			Log()
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	logger.DebugWithContext(ctx, "User fetched by email").
		String("user_id", user.ID.String()).
		Duration(duration).
		Log()
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "UserRepository.Create")

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Create(user).Error
	duration := time.Since(start)

	if err != nil {
		if isUniqueViolation(err) {
			logger.WarnWithContext(ctx, "Duplicate email on user insert").
				Duration(duration).
				Log()
			return ErrDuplicateEmail
		}
		logger.ErrorWithContext(ctx, "Failed to create user").
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("create user: %w", err)
	}

	logger.InfoWithContext(ctx, "User created").
		String("user_id", user.ID.String()).
		Duration(duration).
		Log()
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "UserRepository.UpdatePassword")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update password").
			String("user_id", id.String()).
			Duration(duration).
			Err(result.Error).
			Log()
		return fmt.Errorf("update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	logger.DebugWithContext(ctx, "Password hash updated").
		String("user_id", id.String()).
		Duration(duration).
		Log()
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "UserRepository.SetActive")

	// map form so that false is written rather than skipped as a zero value
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user status").
			String("user_id", id.String()).
			Err(result.Error).
			Log()
		return fmt.Errorf("set active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	logger.InfoWithContext(ctx, "User status changed").
		String("user_id", id.String()).
		Bool("active", active).
		Log()
	return nil
}

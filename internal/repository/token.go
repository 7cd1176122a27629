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

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "RefreshTokenRepository.Create")

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Create(token).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to store refresh token").
			String("user_id", token.UserID.String()).
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("create refresh token: %w", err)
	}

	logger.DebugWithContext(ctx, "Refresh token stored").
		String("user_id", token.UserID.String()).
		Duration(duration).
		Log()
	return nil
}

func (r *RefreshTokenRepository) ListActive(ctx context.Context, lookupID string, now time.Time) ([]model.RefreshToken, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "RefreshTokenRepository.ListActive")

	start := time.Now()
	var tokens []model.RefreshToken
	err := r.db.WithContext(ctx).
		Where("lookup_id = ? AND expires_at > ?", lookupID, now).
		Find(&tokens).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list refresh tokens").
			Duration(duration).
			Err(err).
			Log()
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}

	logger.DebugWithContext(ctx, "Refresh token candidates loaded").
		Int("count", len(tokens)).
		Duration(duration).
		Log()
	return tokens, nil
}

func (r *RefreshTokenRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.RefreshToken, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "RefreshTokenRepository.ListActiveByUser")

	var tokens []model.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Find(&tokens).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list user refresh tokens").
			String("user_id", userID.String()).
			Err(err).
			Log()
		return nil, fmt.Errorf("list user refresh tokens: %w", err)
	}
	return tokens, nil
}

// Delete removes one token. ErrNotFound means a concurrent caller already
// consumed it.
func (r *RefreshTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "RefreshTokenRepository.Delete")

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete refresh token").
			String("token_id", id.String()).
			Err(result.Error).
			Log()
		return fmt.Errorf("delete refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "RefreshTokenRepository.DeleteAllForUser")

	start := time.Now()
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshToken{})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke user refresh tokens").
			String("user_id", userID.String()).
			Duration(duration).
			Err(result.Error).
			Log()
		return 0, fmt.Errorf("delete user refresh tokens: %w", result.Error)
	}

	logger.DebugWithContext(ctx, "User refresh tokens revoked").
		String("user_id", userID.String()).
		Int64("count", result.RowsAffected).
		Duration(duration).
		Log()
	return result.RowsAffected, nil
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "RefreshTokenRepository.DeleteExpired")

	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to purge expired refresh tokens").
			Err(result.Error).
			Log()
		return 0, fmt.Errorf("delete expired refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

type ResetTokenRepository struct {
	db *gorm.DB
}

func NewResetTokenRepository(db *gorm.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token *model.PasswordResetToken) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "ResetTokenRepository.Create")

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Create(token).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to store reset token").
			String("user_id", token.UserID.String()).
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("create reset token: %w", err)
	}

	logger.DebugWithContext(ctx, "Reset token stored").
		String("user_id", token.UserID.String()).
		Duration(duration).
		Log()
	return nil
}

func (r *ResetTokenRepository) ListUsable(ctx context.Context, lookupID string, now time.Time) ([]model.PasswordResetToken, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ResetTokenRepository.ListUsable")

	start := time.Now()
	var tokens []model.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("lookup_id = ? AND used = ? AND expires_at > ?", lookupID, false, now).
		Find(&tokens).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list reset tokens").
			Duration(duration).
			Err(err).
			Log()
		return nil, fmt.Errorf("list reset tokens: %w", err)
	}

	logger.DebugWithContext(ctx, "Reset token candidates loaded").
		Int("count", len(tokens)).
		Duration(duration).
		Log()
	return tokens, nil
}

func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "ResetTokenRepository.MarkUsed")

	result := r.db.WithContext(ctx).
		Model(&model.PasswordResetToken{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark reset token used").
			String("token_id", id.String()).
			Err(result.Error).
			Log()
		return fmt.Errorf("mark reset token used: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "Reset token consumed concurrently").
			String("token_id", id.String()).
			Log()
		return ErrTokenAlreadyUsed
	}
	return nil
}

func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ResetTokenRepository.DeleteExpired")

	result := r.db.WithContext(ctx).
		Where("expires_at <= ? OR used = ?", now, true).
		Delete(&model.PasswordResetToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to purge reset tokens").
			Err(result.Error).
			Log()
		return 0, fmt.Errorf("delete expired reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

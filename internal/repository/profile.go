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

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "ProfileRepository.Get")

	var profile model.Profile
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get profile").
			String("user_id", userID.String()).
			Err(err).
			Log()
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "ProfileRepository.Create")

	start := time.Now()
	err := r.db.WithContext(ctx).Omit("User").Create(profile).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create profile").
			String("user_id", profile.ID.String()).
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("create profile: %w", err)
	}

	logger.DebugWithContext(ctx, "Profile created").
		String("user_id", profile.ID.String()).
		Duration(duration).
		Log()
	return nil
}

// Save writes the editable columns, including nil ones.
func (r *ProfileRepository) Save(ctx context.Context, profile *model.Profile) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "ProfileRepository.Save")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(profile).
		Select("name", "school", "avatar", "updated_at").
		Updates(profile)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update profile").
			String("user_id", profile.ID.String()).
			Duration(duration).
			Err(result.Error).
			Log()
		return fmt.Errorf("update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	logger.DebugWithContext(ctx, "Profile updated").
		String("user_id", profile.ID.String()).
		Duration(duration).
		Log()
	return nil
}

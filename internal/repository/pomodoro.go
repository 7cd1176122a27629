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
	"gorm.io/gorm/clause"
)

type PomodoroRepository struct {
	db *gorm.DB
}

func NewPomodoroRepository(db *gorm.DB) *PomodoroRepository {
	return &PomodoroRepository{db: db}
}

func (r *PomodoroRepository) ListSessions(ctx context.Context, userID uuid.UUID, limit int) ([]model.PomodoroSession, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "PomodoroRepository.ListSessions")

	start := time.Now()
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC NULLS LAST").
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessions []model.PomodoroSession
	err := query.Find(&sessions).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list pomodoro sessions").
			Duration(duration).
			Err(err).
			Log()
		return nil, fmt.Errorf("list pomodoro sessions: %w", err)
	}
	return sessions, nil
}

func (r *PomodoroRepository) CreateSession(ctx context.Context, session *model.PomodoroSession) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "PomodoroRepository.CreateSession")

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Omit("User").Create(session).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to record pomodoro session").
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("create pomodoro session: %w", err)
	}

	logger.DebugWithContext(ctx, "Pomodoro session recorded").
		String("session_id", session.ID.String()).
		Int("duration_minutes", session.Duration).
		Duration(duration).
		Log()
	return nil
}

func (r *PomodoroRepository) DeleteSession(ctx context.Context, userID, id uuid.UUID) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "PomodoroRepository.DeleteSession")

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.PomodoroSession{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete pomodoro session").
			String("session_id", id.String()).
			Err(result.Error).
			Log()
		return fmt.Errorf("delete pomodoro session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PomodoroRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "PomodoroRepository.GetSettings")

	var settings model.PomodoroSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get pomodoro settings").
			Err(err).
			Log()
		return nil, fmt.Errorf("get pomodoro settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings upserts on user_id so two first reads racing to create the
// default row converge on one.
func (r *PomodoroRepository) SaveSettings(ctx context.Context, settings *model.PomodoroSettings) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "PomodoroRepository.SaveSettings")

	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}

	start := time.Now()
	err := r.db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"work_time", "short_break_time", "long_break_time",
				"sessions_until_long_break", "updated_at",
			}),
		}).
		Create(settings).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to save pomodoro settings").
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("save pomodoro settings: %w", err)
	}
	return nil
}

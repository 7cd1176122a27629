package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timehacker/api/internal/constants"
	"github.com/timehacker/api/internal/dto"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/model"
	"github.com/timehacker/api/internal/repository"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

// completedAtLayouts are tried in order. Browsers send RFC 3339 with
// milliseconds; older clients omit the zone.
var completedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type PomodoroService struct {
	store repository.Store
}

func NewPomodoroService(store repository.Store) *PomodoroService {
	return &PomodoroService{store: store}
}

func (s *PomodoroService) ListSessions(ctx context.Context, userID uuid.UUID) ([]dto.PomodoroSessionResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "PomodoroService.ListSessions")

	sessions, err := s.store.Pomodoros().ListSessions(ctx, userID, constants.MaxPomodoroSessionsListed)
	if err != nil {
		return nil, internalError(ctx, "Failed to list pomodoro sessions", err)
	}

	out := make([]dto.PomodoroSessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	return out, nil
}

func (s *PomodoroService) CreateSession(ctx context.Context, userID uuid.UUID, req dto.CreatePomodoroSessionRequest) (*dto.PomodoroSessionResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "PomodoroService.CreateSession")

	completedAt, err := parseCompletedAt(req.CompletedAt)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrValidation, err)
	}

	session := &model.PomodoroSession{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       req.Title,
		Duration:    req.Duration,
		CompletedAt: &completedAt,
	}
	if err := s.store.Pomodoros().CreateSession(ctx, session); err != nil {
		return nil, internalError(ctx, "Failed to record pomodoro session", err)
	}

	logger.InfoWithContext(ctx, "Pomodoro session recorded").
		String("session_id", session.ID.String()).
		Int("duration", session.Duration).
		Log()

	resp := toSessionResponse(session)
	return &resp, nil
}

func (s *PomodoroService) DeleteSession(ctx context.Context, userID, id uuid.UUID) error {
	ctx = ctxutil.WithFunction(ctx, "service", "PomodoroService.DeleteSession")

	if err := s.store.Pomodoros().DeleteSession(ctx, userID, id); err != nil {
		return mapNotFound(ctx, "Failed to delete pomodoro session", err)
	}
	return nil
}

// GetSettings returns stored settings, creating the defaults on first read
func (s *PomodoroService) GetSettings(ctx context.Context, userID uuid.UUID) (*dto.PomodoroSettings, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "PomodoroService.GetSettings")

	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toSettingsDTO(settings), nil
}

func (s *PomodoroService) UpdateSettings(ctx context.Context, userID uuid.UUID, req dto.PomodoroSettings) (*dto.PomodoroSettings, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "PomodoroService.UpdateSettings")

	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings.WorkTime = req.WorkTime
	settings.ShortBreakTime = req.ShortBreakTime
	settings.LongBreakTime = req.LongBreakTime
	settings.SessionsUntilLongBreak = req.SessionsUntilLongBreak

	if err := s.store.Pomodoros().SaveSettings(ctx, settings); err != nil {
		return nil, internalError(ctx, "Failed to save pomodoro settings", err)
	}

	logger.InfoWithContext(ctx, "Pomodoro settings updated").
		Int("work_time", settings.WorkTime).
		Log()
	return toSettingsDTO(settings), nil
}

func (s *PomodoroService) loadSettings(ctx context.Context, userID uuid.UUID) (*model.PomodoroSettings, error) {
	settings, err := s.store.Pomodoros().GetSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalError(ctx, "Failed to load pomodoro settings", err)
	}

	settings = &model.PomodoroSettings{
		ID:                     uuid.New(),
		UserID:                 userID,
		WorkTime:               constants.DefaultWorkTime,
		ShortBreakTime:         constants.DefaultShortBreakTime,
		LongBreakTime:          constants.DefaultLongBreakTime,
		SessionsUntilLongBreak: constants.DefaultSessionsUntilLongBreak,
	}
	if err := s.store.Pomodoros().SaveSettings(ctx, settings); err != nil {
		return nil, internalError(ctx, "Failed to create default pomodoro settings", err)
	}
	// a concurrent first read may have won the upsert
	stored, err := s.store.Pomodoros().GetSettings(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "Failed to reload pomodoro settings", err)
	}
	return stored, nil
}

func parseCompletedAt(value string) (time.Time, error) {
	for _, layout := range completedAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("completedAt %q is not an ISO 8601 timestamp", value)
}

func toSessionResponse(p *model.PomodoroSession) dto.PomodoroSessionResponse {
	return dto.PomodoroSessionResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Title:       p.Title,
		Duration:    p.Duration,
		Completed:   p.CompletedAt != nil,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toSettingsDTO(p *model.PomodoroSettings) *dto.PomodoroSettings {
	return &dto.PomodoroSettings{
		WorkTime:               p.WorkTime,
		ShortBreakTime:         p.ShortBreakTime,
		LongBreakTime:          p.LongBreakTime,
		SessionsUntilLongBreak: p.SessionsUntilLongBreak,
	}
}

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timehacker/api/internal/dto"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/model"
	"github.com/timehacker/api/internal/repository"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

type TodoService struct {
	store repository.Store
}

func NewTodoService(store repository.Store) *TodoService {
	return &TodoService{store: store}
}

func (s *TodoService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]dto.TodoResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "TodoService.List")

	todos, err := s.store.Todos().List(ctx, userID, limit, offset)
	if err != nil {
		return nil, internalError(ctx, "Failed to list todos", err)
	}

	out := make([]dto.TodoResponse, 0, len(todos))
	for i := range todos {
		out = append(out, toTodoResponse(&todos[i]))
	}
	return out, nil
}

func (s *TodoService) Get(ctx context.Context, userID, id uuid.UUID) (*dto.TodoResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "TodoService.Get")

	todo, err := s.store.Todos().Get(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(ctx, "Failed to get todo", err)
	}
	resp := toTodoResponse(todo)
	return &resp, nil
}

func (s *TodoService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateTodoRequest) (*dto.TodoResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "TodoService.Create")

	if err := validateSchedule(req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt)); err != nil {
		return nil, err
	}

	todo := &model.Todo{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		AllDay:      req.AllDay,
		Color:       req.Color,
	}
	if err := s.store.Todos().Create(ctx, todo); err != nil {
		return nil, internalError(ctx, "Failed to create todo", err)
	}

	logger.InfoWithContext(ctx, "Todo created").
		String("todo_id", todo.ID.String()).
		Log()

	resp := toTodoResponse(todo)
	return &resp, nil
}

// Update is a partial update over the fields present in req
func (s *TodoService) Update(ctx context.Context, userID, id uuid.UUID, req dto.UpdateTodoRequest) (*dto.TodoResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "TodoService.Update")

	todo, err := s.store.Todos().Get(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(ctx, "Failed to load todo", err)
	}

	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Description != nil {
		todo.Description = req.Description
	}
	if req.IsCompleted != nil {
		todo.IsCompleted = *req.IsCompleted
	}
	if req.StartAt != nil {
		todo.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		todo.EndAt = req.EndAt
	}
	if req.AllDay != nil {
		todo.AllDay = *req.AllDay
	}
	if req.Color != nil {
		todo.Color = req.Color
	}

	if err := validateSchedule(todo.StartAt != nil && todo.EndAt != nil && todo.EndAt.Before(*todo.StartAt)); err != nil {
		return nil, err
	}

	if err := s.store.Todos().Save(ctx, todo); err != nil {
		return nil, mapNotFound(ctx, "Failed to update todo", err)
	}

	resp := toTodoResponse(todo)
	return &resp, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx = ctxutil.WithFunction(ctx, "service", "TodoService.Delete")

	if err := s.store.Todos().Delete(ctx, userID, id); err != nil {
		return mapNotFound(ctx, "Failed to delete todo", err)
	}

	logger.InfoWithContext(ctx, "Todo deleted").
		String("todo_id", id.String()).
		Log()
	return nil
}

func validateSchedule(endBeforeStart bool) error {
	if endBeforeStart {
		return apperrors.WrapError(apperrors.ErrValidation, errors.New("end_at must not be before start_at"))
	}
	return nil
}

// mapNotFound turns an ownership miss into a 404 and anything else into a
// logged internal error.
func mapNotFound(ctx context.Context, message string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrNotFound
	}
	return internalError(ctx, message, err)
}

func toTodoResponse(t *model.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		StartAt:     t.StartAt,
		EndAt:       t.EndAt,
		AllDay:      t.AllDay,
		Color:       t.Color,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

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

type TodoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// List returns the owner's todos newest first. A non-positive limit
// returns every row.
func (r *TodoRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Todo, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "TodoRepository.List")

	start := time.Now()
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var todos []model.Todo
	err := query.Find(&todos).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list todos").
			Duration(duration).
			Err(err).
			Log()
		return nil, fmt.Errorf("list todos: %w", err)
	}

	logger.DebugWithContext(ctx, "Todos listed").
		Int("count", len(todos)).
		Duration(duration).
		Log()
	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, userID, id uuid.UUID) (*model.Todo, error) {
	ctx = ctxutil.WithFunction(ctx, "repository", "TodoRepository.Get")

	var todo model.Todo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&todo).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		logger.ErrorWithContext(ctx, "Failed to get todo").
			String("todo_id", id.String()).
			Err(err).
			Log()
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return &todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "TodoRepository.Create")

	if todo.ID == uuid.Nil {
		todo.ID = uuid.New()
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Omit("User").Create(todo).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create todo").
			Duration(duration).
			Err(err).
			Log()
		return fmt.Errorf("create todo: %w", err)
	}

	logger.DebugWithContext(ctx, "Todo created").
		String("todo_id", todo.ID.String()).
		Duration(duration).
		Log()
	return nil
}

func (r *TodoRepository) Save(ctx context.Context, todo *model.Todo) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "TodoRepository.Save")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(todo).
		Where("user_id = ?", todo.UserID).
		Select("title", "description", "is_completed", "start_at", "end_at", "all_day", "color", "updated_at").
		Updates(todo)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update todo").
			String("todo_id", todo.ID.String()).
			Duration(duration).
			Err(result.Error).
			Log()
		return fmt.Errorf("update todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TodoRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx = ctxutil.WithFunction(ctx, "repository", "TodoRepository.Delete")

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Todo{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete todo").
			String("todo_id", id.String()).
			Err(result.Error).
			Log()
		return fmt.Errorf("delete todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	logger.DebugWithContext(ctx, "Todo deleted").
		String("todo_id", id.String()).
		Log()
	return nil
}

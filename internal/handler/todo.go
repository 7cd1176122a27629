package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/constants"
	"github.com/timehacker/api/internal/dto"
	"github.com/timehacker/api/internal/service"
	ctxutil "github.com/timehacker/api/pkg/context"
)

type TodoHandler struct {
	todoService *service.TodoService
}

func NewTodoHandler(todoService *service.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// List returns every todo of the caller, newest first. Paging applies only
// when the client asks for it with ?limit.
func (h *TodoHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListTodos")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}

	limit, offset := 0, 0
	if _, paged := c.GetQuery(constants.QueryParamLimit); paged {
		params := constants.ParsePaginationParams(c)
		limit, offset = params.Limit, params.Offset
	}

	todos, err := h.todoService.List(ctx, id.ID, limit, offset)
	if err != nil {
		respondError(ctx, c, "Failed to list todos", err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetTodo")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	todoID, ok := pathID(ctx, c, "id")
	if !ok {
		return
	}

	todo, err := h.todoService.Get(ctx, id.ID, todoID)
	if err != nil {
		respondError(ctx, c, "Failed to get todo", err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateTodo")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.CreateTodoRequest](ctx, c)
	if !ok {
		return
	}

	todo, err := h.todoService.Create(ctx, id.ID, *req)
	if err != nil {
		respondError(ctx, c, "Failed to create todo", err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateTodo")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	todoID, ok := pathID(ctx, c, "id")
	if !ok {
		return
	}
	req, ok := bindBody[dto.UpdateTodoRequest](ctx, c)
	if !ok {
		return
	}

	todo, err := h.todoService.Update(ctx, id.ID, todoID, *req)
	if err != nil {
		respondError(ctx, c, "Failed to update todo", err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeleteTodo")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	todoID, ok := pathID(ctx, c, "id")
	if !ok {
		return
	}

	if err := h.todoService.Delete(ctx, id.ID, todoID); err != nil {
		respondError(ctx, c, "Failed to delete todo", err)
		return
	}
	c.Status(http.StatusNoContent)
}

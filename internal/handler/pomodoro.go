package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/dto"
	"github.com/timehacker/api/internal/service"
	ctxutil "github.com/timehacker/api/pkg/context"
)

type PomodoroHandler struct {
	pomodoroService *service.PomodoroService
}

func NewPomodoroHandler(pomodoroService *service.PomodoroService) *PomodoroHandler {
	return &PomodoroHandler{pomodoroService: pomodoroService}
}

func (h *PomodoroHandler) ListSessions(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListPomodoroSessions")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}

	sessions, err := h.pomodoroService.ListSessions(ctx, id.ID)
	if err != nil {
		respondError(ctx, c, "Failed to list pomodoro sessions", err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *PomodoroHandler) CreateSession(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreatePomodoroSession")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.CreatePomodoroSessionRequest](ctx, c)
	if !ok {
		return
	}

	session, err := h.pomodoroService.CreateSession(ctx, id.ID, *req)
	if err != nil {
		respondError(ctx, c, "Failed to record pomodoro session", err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *PomodoroHandler) DeleteSession(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeletePomodoroSession")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, c, "id")
	if !ok {
		return
	}

	if err := h.pomodoroService.DeleteSession(ctx, id.ID, sessionID); err != nil {
		respondError(ctx, c, "Failed to delete pomodoro session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PomodoroHandler) GetSettings(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetPomodoroSettings")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}

	settings, err := h.pomodoroService.GetSettings(ctx, id.ID)
	if err != nil {
		respondError(ctx, c, "Failed to get pomodoro settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *PomodoroHandler) UpdateSettings(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdatePomodoroSettings")

	id, ok := identity(ctx, c)
	if !ok {
		return
	}
	req, ok := bindBody[dto.PomodoroSettings](ctx, c)
	if !ok {
		return
	}

	settings, err := h.pomodoroService.UpdateSettings(ctx, id.ID, *req)
	if err != nil {
		respondError(ctx, c, "Failed to update pomodoro settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

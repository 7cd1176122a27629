package router

import (
	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/dto"
)

func (r *Router) pomodoroRoutes(version *gin.RouterGroup) {
	pomodoro := version.Group("/pomodoro")
	pomodoro.Use(r.jwtMw.RequireAuth())
	{
		pomodoro.GET("/sessions", r.pomodoroHandler.ListSessions)
		pomodoro.POST("/sessions",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.CreatePomodoroSessionRequest{} }),
			r.pomodoroHandler.CreateSession,
		)
		pomodoro.DELETE("/sessions/:id", r.pomodoroHandler.DeleteSession)

		pomodoro.GET("/settings", r.pomodoroHandler.GetSettings)
		pomodoro.PUT("/settings",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.PomodoroSettings{} }),
			r.pomodoroHandler.UpdateSettings,
		)
	}
}

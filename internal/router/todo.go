package router

import (
	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/dto"
)

func (r *Router) todoRoutes(version *gin.RouterGroup) {
	todos := version.Group("/todos")
	todos.Use(r.jwtMw.RequireAuth())
	{
		todos.GET("", r.todoHandler.List)
		todos.POST("",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.CreateTodoRequest{} }),
			r.todoHandler.Create,
		)
		todos.GET("/:id", r.todoHandler.Get)
		todos.PUT("/:id",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.UpdateTodoRequest{} }),
			r.todoHandler.Update,
		)
		todos.DELETE("/:id", r.todoHandler.Delete)
	}
}

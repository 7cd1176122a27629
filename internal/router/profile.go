package router

import (
	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/dto"
)

func (r *Router) profileRoutes(version *gin.RouterGroup) {
	profile := version.Group("/profile")
	profile.Use(r.jwtMw.RequireAuth())
	{
		profile.GET("", r.profileHandler.Get)
		profile.PUT("",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.UpdateProfileRequest{} }),
			r.profileHandler.Update,
		)
	}
}

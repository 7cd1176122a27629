package router

import (
	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/dto"
	"github.com/timehacker/api/internal/middleware"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	// Public routes that accept credentials are rate limited per client
	// and route.
	version.POST("/register",
		middleware.RateLimit(r.limiter, "register"),
		r.validMw.ValidateRequestBody(func() interface{} { return &dto.RegisterRequest{} }),
		r.authHandler.Register,
	)
	version.POST("/token",
		middleware.RateLimit(r.limiter, "token"),
		r.validMw.ValidateRequestBody(func() interface{} { return &dto.LoginRequest{} }),
		r.authHandler.Token,
	)
	version.POST("/forgot-password",
		middleware.RateLimit(r.limiter, "forgot_password"),
		r.validMw.ValidateRequestBody(func() interface{} { return &dto.PasswordResetRequest{} }),
		r.authHandler.ForgotPassword,
	)
	version.POST("/reset-password",
		middleware.RateLimit(r.limiter, "reset_password"),
		r.validMw.ValidateRequestBody(func() interface{} { return &dto.PasswordResetConfirm{} }),
		r.authHandler.ResetPassword,
	)

	version.POST("/refresh",
		middleware.RateLimit(r.limiter, "refresh"),
		r.validMw.ValidateRequestBody(func() interface{} { return &dto.RefreshTokenRequest{} }),
		r.authHandler.Refresh,
	)
	version.POST("/logout",
		middleware.RateLimit(r.limiter, "logout"),
		r.jwtMw.OptionalAuth(),
		r.validMw.ValidateRequestBody(func() interface{} { return &dto.LogoutRequest{} }),
		r.authHandler.Logout,
	)

	protected := version.Group("")
	protected.Use(r.jwtMw.RequireAuth())
	{
		protected.POST("/logout/all", r.authHandler.LogoutAll)
	}
}

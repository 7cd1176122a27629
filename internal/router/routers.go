package router

import (
	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/config"
	"github.com/timehacker/api/internal/handler"
	"github.com/timehacker/api/internal/middleware"
)

type Router struct {
	authHandler     *handler.AuthHandler
	profileHandler  *handler.ProfileHandler
	todoHandler     *handler.TodoHandler
	pomodoroHandler *handler.PomodoroHandler
	healthHandler   *handler.HealthHandler

	validMw *middleware.ValidationMiddleware
	jwtMw   *middleware.JWTMiddleware
	limiter middleware.Limiter
	Config  *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	profile *handler.ProfileHandler,
	todo *handler.TodoHandler,
	pomodoro *handler.PomodoroHandler,
	health *handler.HealthHandler,

	validMw *middleware.ValidationMiddleware,
	jwtMw *middleware.JWTMiddleware,
	limiter middleware.Limiter,
	config *config.Config,
) *Router {
	return &Router{
		authHandler:     auth,
		profileHandler:  profile,
		todoHandler:     todo,
		pomodoroHandler: pomodoro,
		healthHandler:   health,

		validMw: validMw,
		jwtMw:   jwtMw,
		limiter: limiter,
		Config:  config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RequestResponseMiddleware())
	router.Use(middleware.SecurityLoggingMiddleware())
	router.Use(middleware.CORS(r.Config.App.AllowedOrigins))
	router.Use(middleware.ContextMiddleware(r.Config.App.Timeout))

	router.GET("/", r.healthHandler.BasicHealth)

	// The frontend talks to the bare paths; /api/v1 is kept for
	// clients that expect a versioned prefix.
	r.mount(&router.RouterGroup)
	r.mount(router.Group("/api/v1"))

	return router
}

func (r *Router) mount(rg *gin.RouterGroup) {
	rg.GET("/health", r.healthHandler.HealthCheck)

	r.authRoutes(rg)
	r.profileRoutes(rg)
	r.todoRoutes(rg)
	r.pomodoroRoutes(rg)
}

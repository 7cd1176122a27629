package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/timehacker/api/config"
	"github.com/timehacker/api/internal/handler"
	"github.com/timehacker/api/internal/middleware"
	"github.com/timehacker/api/internal/repository"
	"github.com/timehacker/api/internal/router"
	"github.com/timehacker/api/internal/service"
	"github.com/timehacker/api/pkg/circuit"
	"github.com/timehacker/api/pkg/database"
	"github.com/timehacker/api/pkg/health"
	"github.com/timehacker/api/pkg/logger"
	"github.com/timehacker/api/pkg/notify"
	"github.com/timehacker/api/pkg/pool"
	"github.com/timehacker/api/pkg/redis"
	"go.uber.org/zap"
)

const purgeInterval = time.Hour

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", config.App.Version),
		zap.String("db_driver", config.Database.Driver),
	)

	monitor := health.NewMonitor(30*time.Second, log)

	// Store
	var store repository.Store
	if config.Database.Driver == "memory" {
		log.Warn("Using in-memory store, data is lost on restart")
		store = repository.NewMemoryStore()
	} else {
		db, err := database.NewPostgresDB(config)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.CloseDB(db)

		if err := database.AutoMigrate(db); err != nil {
			log.Fatal("Failed to run database migrations", zap.Error(err))
		}
		log.Info("Database migrated successfully")

		store = repository.NewGormStore(db)
	}
	monitor.Register("database", true, store.Ping)

	redisClient, err := redis.NewClient(config)
	if err != nil {
		log.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()
	if redisClient.IsEnabled() {
		monitor.Register("redis", false, redisClient.Ping)
	}

	// Services
	poolConfig := pool.DefaultPoolConfig()
	poolConfig.Size = config.Security.HashWorkers
	hashPool := pool.NewWorkerPool(poolConfig, log.Named("hash_pool"))
	defer hashPool.Close()

	hasher := service.NewBcryptHasher(config.Security.BcryptCost, hashPool)
	jwtService, err := service.NewJWTService(config.JWT, hasher)
	if err != nil {
		log.Fatal("Failed to initialize token service", zap.Error(err))
	}

	var notifier service.ResetNotifier = service.LogNotifier{}
	if config.RabbitMQ.Enabled {
		links, err := service.NewLinkBuilder(config.RabbitMQ.ResetLinkTemplate)
		if err != nil {
			log.Fatal("Invalid reset link template", zap.Error(err))
		}

		publisher, err := notify.NewPublisher(config.RabbitMQ.URL, config.RabbitMQ.Queue, log.Named("notify"))
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()

		breaker := circuit.NewBreaker("rabbitmq", circuit.DefaultConfig(), log)
		notifier = service.NewQueueNotifier(publisher, links, breaker)
		monitor.Register("rabbitmq", false, publisher.Ping)
	}

	authService := service.NewAuthService(store, hasher, jwtService, notifier, service.AuthOptions{
		RefreshRotation: config.JWT.RefreshRotation,
		SiteURL:         config.App.SiteURL,
		AllowedSiteURLs: config.App.AllowedOrigins,
	})
	profileService := service.NewProfileService(store)
	todoService := service.NewTodoService(store)
	pomodoroService := service.NewPomodoroService(store)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService)
	todoHandler := handler.NewTodoHandler(todoService)
	pomodoroHandler := handler.NewPomodoroHandler(pomodoroService)
	healthHandler := handler.NewHealthHandler(monitor, config.App.Name, config.App.Version)

	// Middleware
	validationMiddleware := middleware.NewValidationMiddleware()
	jwtMiddleware := middleware.NewJWTMiddleware(authService)
	limiter := middleware.NewLimiter(
		redisClient,
		config.RateLimit.Request,
		time.Duration(config.RateLimit.Duration)*time.Second,
	)

	r := router.NewRouter(
		authHandler,
		profileHandler,
		todoHandler,
		pomodoroHandler,
		healthHandler,

		validationMiddleware,
		jwtMiddleware,
		limiter,
		config,
	).SetupRoutes()

	monitor.Start()
	defer monitor.Stop()

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go purgeExpiredTokens(janitorCtx, authService, purgeInterval)

	srv := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Resource usage at shutdown",
		zap.Any("hash_pool", hashPool.Stats()),
		zap.Any("redis", redisClient.Stats()),
	)
	log.Info("Server exited")
}

// purgeExpiredTokens deletes dead refresh and reset rows until ctx ends
func purgeExpiredTokens(ctx context.Context, auth *service.AuthService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.PurgeExpiredTokens(ctx); err != nil {
				logger.GetLogger().Warn("Expired token purge failed", zap.Error(err))
			}
		}
	}
}

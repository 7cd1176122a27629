package database

import (
	"fmt"
	"time"

	"github.com/timehacker/api/internal/model"
	"github.com/timehacker/api/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table owned by the service in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Profile{},
		&model.RefreshToken{},
		&model.PasswordResetToken{},
		&model.Todo{},
		&model.PomodoroSession{},
		&model.PomodoroSettings{},
	}
}

// AutoMigrate creates or updates the schema, then the partial indexes gorm
// tags cannot express.
func AutoMigrate(db *gorm.DB) error {
	start := time.Now()

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := CreateIndexes(db); err != nil {
		return err
	}

	logger.GetLogger().Info("Database migrated",
		zap.Int("tables", len(Models())),
		zap.Duration("migration_time", time.Since(start)),
	)
	return nil
}

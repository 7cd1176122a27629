package database

import (
	"fmt"

	"github.com/timehacker/api/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// indexStatements cover the hot token and listing queries
var indexStatements = []string{
	// refresh lookup: lookup_id = ? AND expires_at > now()
	"CREATE INDEX IF NOT EXISTS idx_refresh_tokens_lookup_expires ON refresh_tokens(lookup_id, expires_at);",
	// reset lookup only ever considers unused rows
	"CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_lookup_unused ON password_reset_tokens(lookup_id, expires_at) WHERE used = false;",
	"CREATE INDEX IF NOT EXISTS idx_todos_user_created ON todos(user_id, created_at DESC);",
	"CREATE INDEX IF NOT EXISTS idx_pomodoro_sessions_user_completed ON pomodoro_sessions(user_id, completed_at DESC NULLS LAST, created_at DESC);",
}

// CreateIndexes applies indexStatements. Every statement is idempotent.
func CreateIndexes(db *gorm.DB) error {
	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			logger.GetLogger().Error("Failed to create index",
				zap.String("statement", stmt),
				zap.Error(err),
			)
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

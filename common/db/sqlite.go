package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lyzr/raffle/common/logger"
	_ "modernc.org/sqlite"
)

// SQLite wraps a database/sql handle on an embedded SQLite file
type SQLite struct {
	*sql.DB
	log *logger.Logger
}

// OpenSQLite opens (creating if needed) the SQLite file at path and applies
// the embedded migrations.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// Single writer connection; transactions hold it until commit.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := ApplyMigrations(ctx, sqlDB, sqliteMigrations); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info("sqlite store opened", "path", path)

	return &SQLite{DB: sqlDB, log: log}, nil
}

// Close closes the SQLite handle
func (s *SQLite) Close() {
	s.log.Info("closing sqlite store")
	if err := s.DB.Close(); err != nil {
		s.log.Warn("sqlite close failed", "error", err)
	}
}

// Health checks database health
func (s *SQLite) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return s.DB.PingContext(ctx)
}

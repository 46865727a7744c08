// Package persistence opens the database pool configured for the service.
package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/config"
	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/db"
)

// Provide creates the database pool used by repositories.
func Provide(cfg config.DatabaseConfig, log *logger.Logger) (*db.Pool, func() error, error) {
	switch cfg.Driver {
	case "", "sqlite":
		writerConn, err := db.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		writer := sqlx.NewDb(writerConn, db.DriverSQLite)
		// WAL mode is set by the first writer statement; the reader opens afterwards.
		if err := writer.Ping(); err != nil {
			_ = writer.Close()
			return nil, nil, fmt.Errorf("failed to ping sqlite database: %w", err)
		}
		readerConn, err := db.OpenSQLiteReader(cfg.Path)
		if err != nil {
			_ = writer.Close()
			return nil, nil, fmt.Errorf("failed to open sqlite reader: %w", err)
		}
		pool := db.NewPool(writer, sqlx.NewDb(readerConn, db.DriverSQLite))
		if log != nil {
			log.Info("Database initialized", zap.String("db_path", cfg.Path), zap.String("db_driver", "sqlite"))
		}
		cleanup := func() error {
			// PRAGMA optimize refreshes planner statistics cheaply on close.
			_, _ = writer.Exec("PRAGMA optimize")
			return pool.Close()
		}
		return pool, cleanup, nil
	case "postgres":
		conn, err := db.OpenPostgres(context.Background(), cfg.DSN(), db.PostgresOptions{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		x := sqlx.NewDb(conn, db.DriverPostgres)
		pool := db.NewPool(x, x)
		if log != nil {
			log.Info("Database initialized",
				zap.String("db_host", cfg.Host),
				zap.String("db_name", cfg.DBName),
				zap.String("db_driver", "postgres"))
		}
		return pool, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

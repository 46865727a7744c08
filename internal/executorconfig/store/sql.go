package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kandev/executorconfig/internal/db"
	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/pkg/executor"
)

// schemaStatements are run one by one; %s is the timestamp column type.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS executor_config_scratch (
		context_id TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		updated_at %s NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS executor_config_last_used (
		scope TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		updated_at %s NOT NULL
	)`,
}

type configRow struct {
	Key       string    `db:"cfg_key"`
	Config    string    `db:"config"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLRepository implements Repository on SQLite or PostgreSQL through sqlx.
type SQLRepository struct {
	pool *db.Pool
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository creates the repository and its tables.
func NewSQLRepository(pool *db.Pool) (*SQLRepository, error) {
	repo := &SQLRepository{pool: pool}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

func (r *SQLRepository) initSchema() error {
	timestampType := "DATETIME"
	if db.IsPostgres(r.pool.DriverName()) {
		timestampType = "TIMESTAMPTZ"
	}
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Writer().Exec(fmt.Sprintf(stmt, timestampType)); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLRepository) GetScratch(ctx context.Context, contextID string) (*models.ScratchConfig, error) {
	row, err := r.get(ctx, `SELECT context_id AS cfg_key, config, updated_at FROM executor_config_scratch WHERE context_id = ?`, contextID)
	if err != nil {
		return nil, err
	}
	return &models.ScratchConfig{ContextID: row.Key, Config: row.config, UpdatedAt: row.UpdatedAt}, nil
}

func (r *SQLRepository) UpsertScratch(ctx context.Context, scratch *models.ScratchConfig) error {
	if scratch.UpdatedAt.IsZero() {
		scratch.UpdatedAt = time.Now().UTC()
	}
	return r.upsert(ctx, `
		INSERT INTO executor_config_scratch (context_id, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (context_id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at
	`, scratch.ContextID, scratch.Config, scratch.UpdatedAt)
}

func (r *SQLRepository) DeleteScratch(ctx context.Context, contextID string) error {
	query := r.pool.Writer().Rebind(`DELETE FROM executor_config_scratch WHERE context_id = ?`)
	if _, err := r.pool.Writer().ExecContext(ctx, query, contextID); err != nil {
		return fmt.Errorf("failed to delete scratch config: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetLastUsed(ctx context.Context, scope string) (*models.LastUsedConfig, error) {
	row, err := r.get(ctx, `SELECT scope AS cfg_key, config, updated_at FROM executor_config_last_used WHERE scope = ?`, scope)
	if err != nil {
		return nil, err
	}
	return &models.LastUsedConfig{Scope: row.Key, Config: row.config, UpdatedAt: row.UpdatedAt}, nil
}

func (r *SQLRepository) SetLastUsed(ctx context.Context, lastUsed *models.LastUsedConfig) error {
	if lastUsed.UpdatedAt.IsZero() {
		lastUsed.UpdatedAt = time.Now().UTC()
	}
	return r.upsert(ctx, `
		INSERT INTO executor_config_last_used (scope, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (scope) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at
	`, lastUsed.Scope, lastUsed.Config, lastUsed.UpdatedAt)
}

func (r *SQLRepository) Close() error {
	return nil
}

type decodedRow struct {
	configRow
	config executor.Config
}

func (r *SQLRepository) get(ctx context.Context, query string, key string) (*decodedRow, error) {
	reader := r.pool.Reader()
	var row configRow
	if err := sqlx.GetContext(ctx, reader, &row, reader.Rebind(query), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query executor config: %w", err)
	}
	out := &decodedRow{configRow: row}
	if err := json.Unmarshal([]byte(row.Config), &out.config); err != nil {
		return nil, fmt.Errorf("failed to decode stored executor config: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) upsert(ctx context.Context, query, key string, cfg executor.Config, updatedAt time.Time) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode executor config: %w", err)
	}
	writer := r.pool.Writer()
	if _, err := writer.ExecContext(ctx, writer.Rebind(query), key, string(data), updatedAt); err != nil {
		return fmt.Errorf("failed to store executor config: %w", err)
	}
	return nil
}

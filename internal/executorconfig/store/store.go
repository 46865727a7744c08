package store

import (
	"context"
	"errors"

	"github.com/kandev/executorconfig/internal/executorconfig/models"
)

// ErrNotFound is returned when no stored config exists for the key.
var ErrNotFound = errors.New("executor config not found")

// Repository stores scratch drafts per compose context and last-used configs
// per scope.
type Repository interface {
	GetScratch(ctx context.Context, contextID string) (*models.ScratchConfig, error)
	UpsertScratch(ctx context.Context, scratch *models.ScratchConfig) error
	DeleteScratch(ctx context.Context, contextID string) error
	GetLastUsed(ctx context.Context, scope string) (*models.LastUsedConfig, error)
	SetLastUsed(ctx context.Context, lastUsed *models.LastUsedConfig) error
	Close() error
}

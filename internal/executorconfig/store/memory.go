package store

import (
	"context"
	"sync"
	"time"

	"github.com/kandev/executorconfig/internal/executorconfig/models"
)

// MemoryRepository keeps configs in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	scratch  map[string]models.ScratchConfig
	lastUsed map[string]models.LastUsedConfig
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		scratch:  make(map[string]models.ScratchConfig),
		lastUsed: make(map[string]models.LastUsedConfig),
	}
}

func (r *MemoryRepository) GetScratch(_ context.Context, contextID string) (*models.ScratchConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scratch[contextID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) UpsertScratch(_ context.Context, scratch *models.ScratchConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if scratch.UpdatedAt.IsZero() {
		scratch.UpdatedAt = time.Now().UTC()
	}
	r.scratch[scratch.ContextID] = *scratch
	return nil
}

func (r *MemoryRepository) DeleteScratch(_ context.Context, contextID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scratch, contextID)
	return nil
}

func (r *MemoryRepository) GetLastUsed(_ context.Context, scope string) (*models.LastUsedConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lastUsed[scope]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (r *MemoryRepository) SetLastUsed(_ context.Context, lastUsed *models.LastUsedConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lastUsed.UpdatedAt.IsZero() {
		lastUsed.UpdatedAt = time.Now().UTC()
	}
	r.lastUsed[lastUsed.Scope] = *lastUsed
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

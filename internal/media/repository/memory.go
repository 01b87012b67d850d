package repository

import (
	"context"
	"sync"

	"github.com/romariotrain/media-pipeline/internal/media/assetid"
	"github.com/romariotrain/media-pipeline/internal/media/models"
)

// MemoryRepository is an in-memory AssetRepository for tests and local runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	data   map[string]*models.Asset
	events []models.DomainEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data: make(map[string]*models.Asset),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, a *models.Asset) error {
	return r.CreateWithEvent(ctx, a, nil)
}

func (r *MemoryRepository) CreateWithEvent(ctx context.Context, a *models.Asset, event models.DomainEvent) error {
	if a == nil || !assetid.IsValid(a.ID) {
		return models.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[a.ID]; exists {
		return models.ErrConflict
	}

	// Defensive copy so the caller cannot mutate the stored record.
	cp := *a
	r.data[a.ID] = &cp
	if event != nil {
		r.events = append(r.events, event)
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	if id == "" {
		return nil, models.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// Events returns the domain events recorded alongside creates.
func (r *MemoryRepository) Events() []models.DomainEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

package repository

import (
	"context"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

type AssetRepository interface {
	Create(ctx context.Context, a *models.Asset) error
	// CreateWithEvent persists the asset and records the domain event in
	// the same transaction, so the metadata record and its outbox entry
	// cannot diverge.
	CreateWithEvent(ctx context.Context, a *models.Asset, event models.DomainEvent) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	Delete(ctx context.Context, id string) error
}

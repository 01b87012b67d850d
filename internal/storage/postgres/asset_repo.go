package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

type AssetRepo struct {
	db     *sqlx.DB
	outbox *OutboxRepo
}

func NewAssetRepo(db *sqlx.DB, outbox *OutboxRepo) *AssetRepo {
	return &AssetRepo{db: db, outbox: outbox}
}

type assetRow struct {
	ID          string    `db:"id"`
	OwnerID     uuid.UUID `db:"owner_id"`
	Category    string    `db:"category"`
	StoragePath string    `db:"storage_path"`
	MimeType    string    `db:"mime_type"`
	SizeBytes   int64     `db:"size_bytes"`
	AccessLevel string    `db:"access_level"`
	Tags        []byte    `db:"tags"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r assetRow) toModel() (*models.Asset, error) {
	a := &models.Asset{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Category:    r.Category,
		StoragePath: r.StoragePath,
		MimeType:    r.MimeType,
		SizeBytes:   r.SizeBytes,
		AccessLevel: models.AccessLevel(r.AccessLevel),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Tags) > 0 {
		if err := json.Unmarshal(r.Tags, &a.Tags); err != nil {
			return nil, fmt.Errorf("asset tags decode: %w", err)
		}
	}
	return a, nil
}

const insertAssetQuery = `
	INSERT INTO assets (id, owner_id, category, storage_path, mime_type, size_bytes, access_level, tags, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func (r *AssetRepo) Create(ctx context.Context, a *models.Asset) error {
	tags, err := tagsJSON(a.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertAssetQuery,
		a.ID, a.OwnerID, a.Category, a.StoragePath, a.MimeType, a.SizeBytes, a.AccessLevel, tags, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("asset create: %w", err)
	}
	return nil
}

// CreateWithEvent inserts the asset and its outbox event atomically, so a
// recorded asset always has its AssetUploaded event queued.
func (r *AssetRepo) CreateWithEvent(ctx context.Context, a *models.Asset, event models.DomainEvent) error {
	if event == nil {
		return r.Create(ctx, a)
	}
	tags, err := tagsJSON(a.Tags)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertAssetQuery,
		a.ID, a.OwnerID, a.Category, a.StoragePath, a.MimeType, a.SizeBytes, a.AccessLevel, tags, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return fmt.Errorf("asset create: %w", err)
	}
	if err := r.outbox.Add(ctx, tx, event); err != nil {
		return fmt.Errorf("add outbox: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *AssetRepo) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	const q = `
		SELECT id, owner_id, category, storage_path, mime_type, size_bytes, access_level, tags, created_at, updated_at
		FROM assets
		WHERE id = $1
	`
	var row assetRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("asset get by id: %w", err)
	}
	return row.toModel()
}

func (r *AssetRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM assets WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("asset delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func tagsJSON(tags map[string]string) ([]byte, error) {
	if len(tags) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("asset tags encode: %w", err)
	}
	return b, nil
}

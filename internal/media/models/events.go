package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// AssetUploaded is recorded in the outbox when an upload fully succeeds
// (bytes durable and metadata written).
type AssetUploaded struct {
	eventID     uuid.UUID
	assetID     string
	ownerID     uuid.UUID
	storagePath string
	mimeType    string
	sizeBytes   int64
	occurredAt  time.Time
}

func NewAssetUploaded(assetID string, ownerID uuid.UUID, storagePath, mimeType string, sizeBytes int64) *AssetUploaded {
	return &AssetUploaded{
		eventID:     uuid.New(),
		assetID:     assetID,
		ownerID:     ownerID,
		storagePath: storagePath,
		mimeType:    mimeType,
		sizeBytes:   sizeBytes,
		occurredAt:  time.Now(),
	}
}

func (e *AssetUploaded) EventID() uuid.UUID    { return e.eventID }
func (e *AssetUploaded) EventType() string     { return "AssetUploaded" }
func (e *AssetUploaded) AggregateID() string   { return e.assetID }
func (e *AssetUploaded) OccurredAt() time.Time { return e.occurredAt }
func (e *AssetUploaded) OwnerID() uuid.UUID    { return e.ownerID }
func (e *AssetUploaded) StoragePath() string   { return e.storagePath }

func (e *AssetUploaded) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID     uuid.UUID `json:"event_id"`
		AssetID     string    `json:"asset_id"`
		OwnerID     uuid.UUID `json:"owner_id"`
		StoragePath string    `json:"storage_path"`
		MimeType    string    `json:"mime_type"`
		SizeBytes   int64     `json:"size_bytes"`
		OccurredAt  time.Time `json:"occurred_at"`
	}{
		EventID:     e.eventID,
		AssetID:     e.assetID,
		OwnerID:     e.ownerID,
		StoragePath: e.storagePath,
		MimeType:    e.mimeType,
		SizeBytes:   e.sizeBytes,
		OccurredAt:  e.occurredAt,
	})
}

// Package upload is the single gateway for turning validated files into
// durable objects with addressable metadata records. All feature areas
// (avatars, posts, stories, chat) go through it, parameterized by Context.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/media/assetid"
	"github.com/romariotrain/media-pipeline/internal/media/domain"
	"github.com/romariotrain/media-pipeline/internal/media/models"
	"github.com/romariotrain/media-pipeline/internal/media/repository"
	"github.com/romariotrain/media-pipeline/internal/media/validate"
	"github.com/romariotrain/media-pipeline/internal/platform/metrics"
)

var (
	ErrStorageWrite     = fmt.Errorf("%w: storage write failed", models.ErrTransientIO)
	ErrMetadataWrite    = fmt.Errorf("%w: metadata write failed", models.ErrTransientIO)
	ErrMalformedAssetID = fmt.Errorf("%w: malformed asset id", models.ErrMalformed)
	ErrBatchFailed      = errors.New("batch upload failed")
)

// FailureCode is the caller-facing failure taxonomy.
type FailureCode string

const (
	CodeInvalidFile      FailureCode = "invalid_file"
	CodeTooLarge         FailureCode = "too_large"
	CodeUnsupportedType  FailureCode = "unsupported_type"
	CodeStorageWrite     FailureCode = "storage_write_failed"
	CodeMetadataWrite    FailureCode = "metadata_write_failed"
	CodeMalformedAssetID FailureCode = "malformed_asset_id"
	CodeUnknown          FailureCode = "unknown"
)

// Classify maps an upload error to its failure code.
func Classify(err error) FailureCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, validate.ErrTooLarge):
		return CodeTooLarge
	case errors.Is(err, validate.ErrUnsupportedType):
		return CodeUnsupportedType
	case errors.Is(err, ErrMalformedAssetID):
		return CodeMalformedAssetID
	case errors.Is(err, ErrStorageWrite):
		return CodeStorageWrite
	case errors.Is(err, ErrMetadataWrite):
		return CodeMetadataWrite
	case errors.Is(err, models.ErrInvalidInput):
		return CodeInvalidFile
	default:
		return CodeUnknown
	}
}

// ObjectStore is the object-storage collaborator.
type ObjectStore interface {
	Put(ctx context.Context, storagePath string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, storagePaths []string) error
	PublicURL(storagePath string) string
}

// Context carries the per-feature upload parameters: target category
// (storage prefix), owner, access level to assign, validation limits and
// caller-supplied tags for the metadata record.
type Context struct {
	Category    string
	OwnerID     uuid.UUID
	AccessLevel models.AccessLevel
	Validation  validate.Context
	Tags        map[string]string
}

// Result is the success payload. Downstream consumers key exclusively off
// AssetID; URL is the publicly fetchable address of the stored bytes.
type Result struct {
	AssetID     string
	URL         string
	StoragePath string
}

// Gateway validates, stores and records media files.
type Gateway struct {
	store   ObjectStore
	repo    repository.AssetRepository
	log     zerolog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
	idGen   func() string
	keyRand func() string
}

func New(store ObjectStore, repo repository.AssetRepository, log zerolog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		store:   store,
		repo:    repo,
		log:     log.With().Str("component", "upload_gateway").Logger(),
		metrics: m,
		clock:   time.Now,
		idGen:   assetid.New,
		keyRand: func() string { return strings.ReplaceAll(uuid.New().String(), "-", "")[:8] },
	}
}

// Upload runs a single file through validate -> store -> record. On any
// failure the job is terminal and nothing half-applied remains: a metadata
// failure after a durable write triggers a compensating delete of the blob.
// Transient failures are surfaced once and never retried here; the caller
// retries by creating a new job.
func (g *Gateway) Upload(ctx context.Context, file validate.File, uc Context) (*Result, error) {
	return g.Run(ctx, NewJob(file, nil), uc)
}

// Run drives an existing job, so callers that need progress updates can
// attach an onChange observer before starting.
func (g *Gateway) Run(ctx context.Context, job *Job, uc Context) (*Result, error) {
	if status := job.Snapshot().Status; status == domain.UploadSucceeded || status == domain.UploadFailed {
		// A finished job never runs again; rejecting it here keeps the
		// upload metrics to attempts that actually ran.
		return nil, fmt.Errorf("%w: upload job already %s", domain.ErrInvalidTransition, status)
	}
	start := g.clock()
	res, err := g.run(ctx, job, uc)
	elapsed := g.clock().Sub(start).Seconds()
	if err != nil {
		job.fail(err)
		g.metrics.ObserveUpload("failed", 0, elapsed)
		g.log.Warn().Err(err).
			Str("category", uc.Category).
			Str("file", job.file.Name).
			Str("code", string(Classify(err))).
			Msg("upload failed")
		return nil, err
	}
	job.succeed(res)
	g.metrics.ObserveUpload("succeeded", int64(len(job.file.Data)), elapsed)
	g.log.Info().
		Str("asset_id", res.AssetID).
		Str("storage_path", res.StoragePath).
		Str("category", uc.Category).
		Msg("upload succeeded")
	return res, nil
}

func (g *Gateway) run(ctx context.Context, job *Job, uc Context) (*Result, error) {
	if err := job.transition(domain.UploadValidating); err != nil {
		return nil, err
	}
	if err := validate.Validate(job.file, uc.Validation); err != nil {
		// Rejected before any network call.
		return nil, err
	}
	mime := validate.DetectMime(job.file)

	if err := job.transition(domain.UploadUploading); err != nil {
		return nil, err
	}

	key := g.storageKey(uc, job.file.Name, mime)
	size := int64(len(job.file.Data))
	// The storage transport has no native progress signal: the synthetic
	// ramp tracks body consumption up to 90 and only the confirmed write
	// moves it further.
	body := newProgressReader(job.file.Data, func(pct int) { job.setProgress(pct) })
	if err := g.store.Put(ctx, key, body, size, mime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	id := g.idGen()
	if !assetid.IsValid(id) {
		// Bytes are durable but unaddressable; remove them rather than
		// leave an orphan.
		g.compensate(ctx, key)
		return nil, fmt.Errorf("%w: %q", ErrMalformedAssetID, id)
	}

	now := g.clock()
	asset := &models.Asset{
		ID:          id,
		OwnerID:     uc.OwnerID,
		Category:    uc.Category,
		StoragePath: key,
		MimeType:    mime,
		SizeBytes:   size,
		AccessLevel: uc.AccessLevel,
		Tags:        uc.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	event := models.NewAssetUploaded(id, uc.OwnerID, key, mime, size)
	if err := g.repo.CreateWithEvent(ctx, asset, event); err != nil {
		g.compensate(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrMetadataWrite, err)
	}

	return &Result{
		AssetID:     id,
		URL:         g.store.PublicURL(key),
		StoragePath: key,
	}, nil
}

// compensate removes an already-written object whose metadata record never
// materialized. Best effort: a failed delete is logged, not surfaced.
func (g *Gateway) compensate(ctx context.Context, key string) {
	if err := g.store.Remove(ctx, []string{key}); err != nil {
		g.log.Error().Err(err).Str("storage_path", key).Msg("compensating delete failed, orphaned blob")
	}
}

// storageKey derives a collision-resistant object key. The client-supplied
// filename contributes only its extension, never path segments.
func (g *Gateway) storageKey(uc Context, filename, mime string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if !validExt(ext) {
		ext = ""
		if mt := mimetype.Lookup(mime); mt != nil {
			ext = mt.Extension()
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s/%d_%s%s", uc.Category, uc.OwnerID, g.clock().UnixNano(), g.keyRand(), ext)
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

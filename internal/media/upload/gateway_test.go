package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/media-pipeline/internal/media/assetid"
	"github.com/romariotrain/media-pipeline/internal/media/domain"
	"github.com/romariotrain/media-pipeline/internal/media/models"
	"github.com/romariotrain/media-pipeline/internal/media/validate"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func imageContext(owner uuid.UUID) Context {
	return Context{
		Category:    "posts",
		OwnerID:     owner,
		AccessLevel: models.AccessPublic,
		Validation:  validate.Context{AllowedTypes: []string{"image/*"}, MaxBytes: 1 << 20},
	}
}

// drainBody makes the Put mock consume the upload body the way a real
// transport would, which is what drives the progress ramp.
func drainBody(args mock.Arguments) {
	_, _ = io.Copy(io.Discard, args.Get(2).(io.Reader))
}

func newTestGateway(st *StoreMock, rp *RepoMock) (*Gateway, time.Time, string) {
	g := New(st, rp, zerolog.Nop(), nil)
	fixedTime := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fixedID := assetid.New()
	g.clock = func() time.Time { return fixedTime }
	g.idGen = func() string { return fixedID }
	g.keyRand = func() string { return "abcd1234" }
	return g, fixedTime, fixedID
}

func TestUpload_Success(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	rp := new(RepoMock)
	g, fixedTime, fixedID := newTestGateway(st, rp)

	owner := uuid.New()
	uc := imageContext(owner)
	uc.Tags = map[string]string{"post_id": "42"}
	file := validate.File{Name: "photo.png", Size: int64(len(pngBytes)), Data: pngBytes}

	wantKey := fmt.Sprintf("posts/%s/%d_abcd1234.png", owner, fixedTime.UnixNano())
	st.On("Put", mock.Anything, wantKey, mock.Anything, int64(len(pngBytes)), "image/png").
		Run(drainBody).Return(nil).Once()
	st.On("PublicURL", wantKey).Return("https://media.example.com/assets/" + wantKey).Once()

	var persisted *models.Asset
	var event models.DomainEvent
	rp.On("CreateWithEvent", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*models.Asset)
			event = args.Get(2).(models.DomainEvent)
		}).
		Return(nil).Once()

	res, err := g.Upload(ctx, file, uc)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, fixedID, res.AssetID)
	assert.Equal(t, wantKey, res.StoragePath)
	assert.Equal(t, "https://media.example.com/assets/"+wantKey, res.URL)

	require.NotNil(t, persisted)
	assert.Equal(t, fixedID, persisted.ID)
	assert.Equal(t, owner, persisted.OwnerID)
	assert.Equal(t, "posts", persisted.Category)
	assert.Equal(t, wantKey, persisted.StoragePath)
	assert.Equal(t, "image/png", persisted.MimeType)
	assert.Equal(t, int64(len(pngBytes)), persisted.SizeBytes)
	assert.Equal(t, models.AccessPublic, persisted.AccessLevel)
	assert.Equal(t, map[string]string{"post_id": "42"}, persisted.Tags)
	assert.Equal(t, fixedTime, persisted.CreatedAt)

	require.NotNil(t, event)
	assert.Equal(t, fixedID, event.AggregateID())

	st.AssertExpectations(t)
	rp.AssertExpectations(t)
}

func TestUpload_ValidationFailureSkipsStore(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	file := validate.File{Name: "notes.txt", Size: 10, ContentType: "text/plain", Data: []byte("plain text")}

	_, err := g.Upload(context.Background(), file, imageContext(uuid.New()))
	require.ErrorIs(t, err, validate.ErrUnsupportedType)
	assert.Equal(t, CodeUnsupportedType, Classify(err))

	// Rejected files never reach storage or metadata.
	st.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rp.AssertNotCalled(t, "CreateWithEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_StorageFailure(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).Once()

	file := validate.File{Name: "photo.png", Size: int64(len(pngBytes)), Data: pngBytes}
	_, err := g.Upload(context.Background(), file, imageContext(uuid.New()))

	require.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, models.ErrTransientIO)
	assert.Equal(t, CodeStorageWrite, Classify(err))

	// Nothing durable exists, so there is nothing to compensate.
	st.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	rp.AssertNotCalled(t, "CreateWithEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_MetadataFailureCompensates(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, fixedTime, _ := newTestGateway(st, rp)

	owner := uuid.New()
	wantKey := fmt.Sprintf("posts/%s/%d_abcd1234.png", owner, fixedTime.UnixNano())

	st.On("Put", mock.Anything, wantKey, mock.Anything, mock.Anything, mock.Anything).
		Run(drainBody).Return(nil).Once()
	rp.On("CreateWithEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("db down")).Once()
	// The durable blob must be deleted once metadata fails.
	st.On("Remove", mock.Anything, []string{wantKey}).Return(nil).Once()

	file := validate.File{Name: "photo.png", Size: int64(len(pngBytes)), Data: pngBytes}
	_, err := g.Upload(context.Background(), file, imageContext(owner))

	require.ErrorIs(t, err, ErrMetadataWrite)
	assert.Equal(t, CodeMetadataWrite, Classify(err))
	st.AssertExpectations(t)
	rp.AssertExpectations(t)
}

func TestUpload_CompensationFailureStillSurfacesMetadataError(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(drainBody).Return(nil).Once()
	rp.On("CreateWithEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("db down")).Once()
	st.On("Remove", mock.Anything, mock.Anything).Return(errors.New("also down")).Once()

	file := validate.File{Name: "photo.png", Size: int64(len(pngBytes)), Data: pngBytes}
	_, err := g.Upload(context.Background(), file, imageContext(uuid.New()))

	require.ErrorIs(t, err, ErrMetadataWrite)
}

func TestUpload_MalformedAssetIDCompensates(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, fixedTime, _ := newTestGateway(st, rp)
	g.idGen = func() string { return "not-a-valid-id" }

	owner := uuid.New()
	wantKey := fmt.Sprintf("posts/%s/%d_abcd1234.png", owner, fixedTime.UnixNano())

	st.On("Put", mock.Anything, wantKey, mock.Anything, mock.Anything, mock.Anything).
		Run(drainBody).Return(nil).Once()
	st.On("Remove", mock.Anything, []string{wantKey}).Return(nil).Once()

	file := validate.File{Name: "photo.png", Size: int64(len(pngBytes)), Data: pngBytes}
	_, err := g.Upload(context.Background(), file, imageContext(owner))

	require.ErrorIs(t, err, ErrMalformedAssetID)
	assert.ErrorIs(t, err, models.ErrMalformed)
	assert.Equal(t, CodeMalformedAssetID, Classify(err))

	// A record keyed by a malformed id must never be written.
	rp.AssertNotCalled(t, "CreateWithEvent", mock.Anything, mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestRun_ProgressIsMonotonicAndConfirmationGated(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(drainBody).Return(nil).Once()
	st.On("PublicURL", mock.Anything).Return("https://media.example.com/a").Once()
	rp.On("CreateWithEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	var snaps []Snapshot
	file := validate.File{Name: "photo.png", Size: int64(len(pngBytes)), Data: pngBytes}
	job := NewJob(file, func(s Snapshot) { snaps = append(snaps, s) })

	_, err := g.Run(context.Background(), job, imageContext(uuid.New()))
	require.NoError(t, err)

	require.NotEmpty(t, snaps)
	last := 0
	for _, s := range snaps {
		require.GreaterOrEqual(t, s.Progress, last, "progress moved backwards")
		last = s.Progress
		if s.Status != domain.UploadSucceeded {
			// Only the confirmed write may push progress past 90.
			require.LessOrEqual(t, s.Progress, 90)
		}
	}

	final := snaps[len(snaps)-1]
	assert.Equal(t, domain.UploadSucceeded, final.Status)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Result)
}

func TestRun_FailureIsTerminal(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	file := validate.File{Name: "empty.png"}
	job := NewJob(file, nil)

	_, err := g.Run(context.Background(), job, imageContext(uuid.New()))
	require.Error(t, err)

	snap := job.Snapshot()
	assert.Equal(t, domain.UploadFailed, snap.Status)
	require.Error(t, snap.Err)

	// A terminal job cannot be re-driven; retrying means a new job. The
	// rejection happens before any timing or metrics observation, so the
	// clock must not even be consulted.
	var clockCalls int
	g.clock = func() time.Time {
		clockCalls++
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
	_, err = g.Run(context.Background(), job, imageContext(uuid.New()))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.UploadFailed, job.Snapshot().Status)
	assert.Zero(t, clockCalls)
}

func TestUploadBatch_MixedOutcome(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(drainBody).Return(nil).Twice()
	st.On("PublicURL", mock.Anything).Return("https://media.example.com/a").Twice()
	rp.On("CreateWithEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	files := []validate.File{
		{Name: "one.png", Size: int64(len(pngBytes)), Data: pngBytes},
		{Name: "two.txt", Size: 9, ContentType: "text/plain", Data: []byte("some text")},
		{Name: "three.png", Size: int64(len(pngBytes)), Data: pngBytes},
	}

	batch, err := g.UploadBatch(context.Background(), files, imageContext(uuid.New()))
	require.ErrorIs(t, err, ErrBatchFailed)
	require.NotNil(t, batch)

	// All files are attempted even after a failure.
	assert.False(t, batch.Succeeded())
	assert.Len(t, batch.Results, 2)
	require.Len(t, batch.Failed, 1)
	assert.Equal(t, "two.txt", batch.Failed[0].Name)
	assert.Equal(t, CodeUnsupportedType, batch.Failed[0].Code)
	st.AssertExpectations(t)
}

func TestUploadBatch_AllSucceed(t *testing.T) {
	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	st.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(drainBody).Return(nil).Twice()
	st.On("PublicURL", mock.Anything).Return("https://media.example.com/a").Twice()
	rp.On("CreateWithEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	files := []validate.File{
		{Name: "one.png", Size: int64(len(pngBytes)), Data: pngBytes},
		{Name: "two.png", Size: int64(len(pngBytes)), Data: pngBytes},
	}

	batch, err := g.UploadBatch(context.Background(), files, imageContext(uuid.New()))
	require.NoError(t, err)
	assert.True(t, batch.Succeeded())
	assert.Len(t, batch.Results, 2)
}

func TestStorageKey_ExtensionHandling(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mime     string
		wantExt  string
	}{
		{name: "filename extension", filename: "clip.mp4", mime: "video/mp4", wantExt: ".mp4"},
		{name: "uppercase lowered", filename: "PHOTO.PNG", mime: "image/png", wantExt: ".png"},
		{name: "no extension falls back to mime", filename: "photo", mime: "image/png", wantExt: ".png"},
		{name: "path segments stripped", filename: "../../etc/passwd.png", mime: "image/png", wantExt: ".png"},
		{name: "suspicious extension replaced", filename: "file.exe!", mime: "image/jpeg", wantExt: ".jpg"},
		{name: "nothing to go on", filename: "blob", mime: "application/x-unknown-thing", wantExt: ".bin"},
	}

	st := new(StoreMock)
	rp := new(RepoMock)
	g, _, _ := newTestGateway(st, rp)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := g.storageKey(imageContext(uuid.New()), tt.filename, tt.mime)
			assert.True(t, len(key) > len(tt.wantExt) && key[len(key)-len(tt.wantExt):] == tt.wantExt,
				"key %q does not end in %q", key, tt.wantExt)
			// The client filename must never contribute path segments.
			assert.NotContains(t, key, "..")
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "too large", err: fmt.Errorf("wrap: %w", validate.ErrTooLarge), want: CodeTooLarge},
		{name: "unsupported type", err: validate.ErrUnsupportedType, want: CodeUnsupportedType},
		{name: "empty file", err: validate.ErrEmptyFile, want: CodeInvalidFile},
		{name: "storage", err: fmt.Errorf("wrap: %w", ErrStorageWrite), want: CodeStorageWrite},
		{name: "metadata", err: ErrMetadataWrite, want: CodeMetadataWrite},
		{name: "malformed id", err: ErrMalformedAssetID, want: CodeMalformedAssetID},
		{name: "anything else", err: errors.New("boom"), want: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/media/access"
	"github.com/romariotrain/media-pipeline/internal/media/models"
	"github.com/romariotrain/media-pipeline/internal/media/repository"
	"github.com/romariotrain/media-pipeline/internal/media/resolve"
	"github.com/romariotrain/media-pipeline/internal/media/upload"
	"github.com/romariotrain/media-pipeline/internal/media/validate"
)

const maxMultipartMemory = 32 << 20

type Handler struct {
	gateway  *upload.Gateway
	repo     repository.AssetRepository
	resolver *resolve.Resolver
	gate     *access.Gate
	log      zerolog.Logger
}

func New(gateway *upload.Gateway, repo repository.AssetRepository, resolver *resolve.Resolver, gate *access.Gate, log zerolog.Logger) *Handler {
	return &Handler{
		gateway:  gateway,
		repo:     repo,
		resolver: resolver,
		gate:     gate,
		log:      log.With().Str("component", "httpapi").Logger(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadMedia accepts one or more files in the "file" multipart field.
// Multiple files follow batch semantics: the request fails as a whole if
// any file fails, with the per-file breakdown in the response.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeErrorJSON(w, http.StatusBadRequest, "missing file")
		return
	}

	ownerID, err := uuid.Parse(r.FormValue("owner_id"))
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid owner_id")
		return
	}
	category := strings.TrimSpace(r.FormValue("category"))
	if category == "" {
		category = "posts"
	}
	level := models.AccessLevel(r.FormValue("access_level"))
	if level == "" {
		level = models.AccessPublic
	}

	uc := upload.Context{
		Category:    category,
		OwnerID:     ownerID,
		AccessLevel: level,
		Validation:  validationFor(category),
	}

	files := make([]validate.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		files = append(files, f)
	}

	if len(files) == 1 {
		res, err := h.gateway.Upload(r.Context(), files[0], uc)
		if err != nil {
			writeUploadError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUploadResponse(res))
		return
	}

	batch, err := h.gateway.UploadBatch(r.Context(), files, uc)
	resp := BatchUploadResponse{}
	for _, r := range batch.Results {
		resp.Results = append(resp.Results, toUploadResponse(r))
	}
	for _, f := range batch.Failed {
		resp.Failed = append(resp.Failed, BatchFailure{Name: f.Name, Code: string(f.Code)})
	}
	if err != nil {
		writeJSON(w, batchStatus(batch.Failed), resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetSource resolves a stored asset into a playable source for the viewer
// identified by X-Viewer-ID. Negative and errored access decisions map to
// distinct 403 bodies so clients can tell "upgrade to unlock" from "try
// again".
func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			writeErrorJSON(w, http.StatusNotFound, "not found")
		case errors.Is(err, models.ErrInvalidInput):
			writeErrorJSON(w, http.StatusBadRequest, "invalid id")
		default:
			writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	viewer := access.Viewer{}
	if raw := r.Header.Get("X-Viewer-ID"); raw != "" {
		vid, err := uuid.Parse(raw)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid viewer id")
			return
		}
		viewer.ID = vid
	}

	decision := h.gate.Check(r.Context(), access.Content{OwnerID: asset.OwnerID, Level: asset.AccessLevel}, viewer)
	if !decision.CanAccess {
		writeJSON(w, http.StatusForbidden, ErrorResponse{
			Error:     "access denied",
			Reason:    decision.Reason,
			Retryable: decision.Errored,
		})
		return
	}

	src, err := h.resolver.Resolve(referenceFor(asset))
	if err != nil {
		if errors.Is(err, models.ErrNoPlayableSource) {
			writeErrorJSON(w, http.StatusUnprocessableEntity, "no playable source")
			return
		}
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, SourceResponse{
		URL:       src.URL,
		Kind:      string(src.Kind),
		Thumbnail: src.Thumbnail,
	})
}

// referenceFor builds the media reference for a stored asset: the storage
// path plus the kind implied by the recorded MIME type.
func referenceFor(a *models.Asset) models.MediaReference {
	ref := models.MediaReference{URL: a.StoragePath}
	switch {
	case strings.HasPrefix(a.MimeType, "video/"):
		ref.Kind = models.Video
	case strings.HasPrefix(a.MimeType, "audio/"):
		ref.Kind = models.Audio
	case strings.HasPrefix(a.MimeType, "image/"):
		ref.Kind = models.Image
	}
	return ref
}

func validationFor(category string) validate.Context {
	switch category {
	case "avatars":
		return validate.Avatar()
	case "stories":
		return validate.Story()
	default:
		return validate.Post()
	}
}

func readPart(fh *multipart.FileHeader) (validate.File, error) {
	f, err := fh.Open()
	if err != nil {
		return validate.File{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return validate.File{}, err
	}
	return validate.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	code := upload.Classify(err)
	writeJSON(w, statusFor(code), ErrorResponse{Error: err.Error(), Reason: string(code)})
}

func statusFor(code upload.FailureCode) int {
	switch code {
	case upload.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case upload.CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	case upload.CodeInvalidFile:
		return http.StatusBadRequest
	case upload.CodeStorageWrite, upload.CodeMetadataWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// batchStatus maps a failed batch to the status of its most frequent
// failure code, so a batch of storage failures surfaces as an upstream
// error rather than a client one.
func batchStatus(failed []upload.BatchItemError) int {
	counts := make(map[upload.FailureCode]int, len(failed))
	var top upload.FailureCode
	for _, f := range failed {
		counts[f.Code]++
		if top == "" || counts[f.Code] > counts[top] {
			top = f.Code
		}
	}
	return statusFor(top)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

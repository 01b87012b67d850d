package playback

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

const correctorMaxBytes = 32 << 20

// HTTPCorrector implements the content-type correction fallback: it fetches
// the raw bytes and re-wraps them as a locally constructed data URL under
// the sniffed MIME type, for storage backends that serve media with a wrong
// or generic Content-Type. Failures here are expected and non-fatal; the
// controller falls back to the original URL.
type HTTPCorrector struct {
	client *http.Client
}

func NewHTTPCorrector(timeout time.Duration) *HTTPCorrector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCorrector{client: &http.Client{Timeout: timeout}}
}

func (h *HTTPCorrector) Correct(ctx context.Context, src models.PlayableSource) (models.PlayableSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return models.PlayableSource{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return models.PlayableSource{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return models.PlayableSource{}, fmt.Errorf("fetch for correction: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, correctorMaxBytes+1))
	if err != nil {
		return models.PlayableSource{}, err
	}
	if len(data) == 0 || len(data) > correctorMaxBytes {
		return models.PlayableSource{}, fmt.Errorf("body size unsuitable for correction: %d bytes", len(data))
	}

	mime := mimetype.Detect(data).String()
	out := src
	out.URL = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	return out, nil
}

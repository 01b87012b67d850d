// Package resolve turns loosely typed media references from any feature
// area into one canonical playable source. Resolution is pure: it is safe
// to call again on every playback retry.
package resolve

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

// URLExpander turns a storage-relative path into an absolute, publicly
// fetchable URL. The S3 store satisfies this.
type URLExpander interface {
	PublicURL(storagePath string) string
}

// Resolver extracts a canonical URL and media kind from a MediaReference.
type Resolver struct {
	expander URLExpander
}

func New(expander URLExpander) *Resolver {
	return &Resolver{expander: expander}
}

// Resolve probes the reference's fields in priority order and classifies
// the first candidate found. References with no extractable URL fail with
// models.ErrNoPlayableSource so callers render an explicit error state
// instead of an empty player.
func (r *Resolver) Resolve(ref models.MediaReference) (models.PlayableSource, error) {
	candidate, hint := extract(ref)
	if candidate == "" {
		return models.PlayableSource{}, models.ErrNoPlayableSource
	}

	if r.expander != nil && !isAbsolute(candidate) {
		candidate = r.expander.PublicURL(candidate)
	}

	kind := ref.Kind
	if kind == "" {
		kind = hint
	}
	if kind == "" {
		kind = classifyByExtension(candidate)
	}

	return models.PlayableSource{
		URL:       candidate,
		Kind:      kind,
		Thumbnail: ref.Thumbnail,
	}, nil
}

// extract applies the ordered extraction strategies: bare string, explicit
// video URL, explicit audio URL, media URL array (first non-empty), generic
// URL field. The hint carries the kind implied by the matched field.
func extract(ref models.MediaReference) (candidate string, hint models.MediaKind) {
	if s := strings.TrimSpace(ref.Raw); s != "" {
		return s, ""
	}
	if s := strings.TrimSpace(ref.VideoURL); s != "" {
		return s, models.Video
	}
	if s := strings.TrimSpace(ref.AudioURL); s != "" {
		return s, models.Audio
	}
	for _, u := range ref.MediaURLs {
		if s := strings.TrimSpace(u); s != "" {
			return s, ""
		}
	}
	if s := strings.TrimSpace(ref.URL); s != "" {
		return s, ""
	}
	return "", ""
}

func isAbsolute(candidate string) bool {
	u, err := url.Parse(candidate)
	return err == nil && u.Scheme != "" && u.Host != ""
}

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".avi": true, ".m4v": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true, ".aac": true, ".flac": true,
}

// classifyByExtension infers the media kind from the URL path suffix.
// Unknown extensions default to Image; players treat Unknown as "attempt
// image rendering, surface an explicit error on failure".
func classifyByExtension(rawURL string) models.MediaKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.Unknown
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch {
	case ext == "":
		return models.Unknown
	case videoExtensions[ext]:
		return models.Video
	case audioExtensions[ext]:
		return models.Audio
	default:
		return models.Image
	}
}

// CacheBust returns a copy of src whose URL carries a retry-specific query
// parameter so intermediate caches and CDNs are bypassed on re-fetch. It is
// the only place a resolved URL is perturbed; attempt 0 returns src as is.
func CacheBust(src models.PlayableSource, attempt int) models.PlayableSource {
	if attempt <= 0 {
		return src
	}
	sep := "?"
	if strings.Contains(src.URL, "?") {
		sep = "&"
	}
	out := src
	out.URL = fmt.Sprintf("%s%sretry=%d", src.URL, sep, attempt)
	return out
}

// Package validate holds the pure pre-upload checks: MIME allow-list per
// calling context, size ceiling, and an advisory video duration probe.
// Nothing here performs I/O.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

var (
	ErrEmptyFile       = fmt.Errorf("%w: file is empty", models.ErrInvalidInput)
	ErrTooLarge        = fmt.Errorf("%w: file too large", models.ErrInvalidInput)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported media type", models.ErrInvalidInput)
	ErrTooLong         = fmt.Errorf("%w: video too long", models.ErrInvalidInput)
)

// File is the candidate being validated. Data carries the file content; the
// sniffer only needs the leading bytes, the probe may read further.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// Context parameterizes validation per calling feature. AllowedTypes entries
// are exact MIME types or families with a trailing wildcard ("image/*").
type Context struct {
	AllowedTypes     []string
	MaxBytes         int64
	MaxVideoDuration time.Duration
}

// Avatar allows images only, 5 MB.
func Avatar() Context {
	return Context{
		AllowedTypes: []string{"image/*"},
		MaxBytes:     5 << 20,
	}
}

// Post allows images and short-form video, 100 MB.
func Post() Context {
	return Context{
		AllowedTypes:     []string{"image/*", "video/*"},
		MaxBytes:         100 << 20,
		MaxVideoDuration: 5 * time.Minute,
	}
}

// Story allows images and short video, 50 MB.
func Story() Context {
	return Context{
		AllowedTypes:     []string{"image/*", "video/*"},
		MaxBytes:         50 << 20,
		MaxVideoDuration: time.Minute,
	}
}

// Validate runs all checks for the given context. It is deterministic for
// the same file metadata and content.
func Validate(f File, c Context) error {
	if f.Size <= 0 && len(f.Data) == 0 {
		return ErrEmptyFile
	}
	size := f.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	if c.MaxBytes > 0 && size > c.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, c.MaxBytes)
	}

	mime := DetectMime(f)
	if !typeAllowed(mime, c.AllowedTypes) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	if strings.HasPrefix(mime, "video/") && c.MaxVideoDuration > 0 {
		// Advisory: "can't determine" passes, only a confidently
		// implausible duration rejects.
		if d, ok := probeMP4Duration(f.Data); ok && d > c.MaxVideoDuration {
			return fmt.Errorf("%w: %s exceeds %s", ErrTooLong, d, c.MaxVideoDuration)
		}
	}
	return nil
}

// DetectMime prefers content sniffing over the caller-declared type and
// falls back to the declaration when there is nothing to sniff.
func DetectMime(f File) string {
	if len(f.Data) > 0 {
		if mt := mimetype.Detect(f.Data); mt.String() != "application/octet-stream" {
			return mt.String()
		}
	}
	if f.ContentType != "" {
		// Strip parameters like "; charset=utf-8".
		return strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0])
	}
	return "application/octet-stream"
}

func typeAllowed(mime string, allowed []string) bool {
	for _, a := range allowed {
		if fam, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(mime, fam+"/") {
				return true
			}
			continue
		}
		if mime == a {
			return true
		}
	}
	return false
}

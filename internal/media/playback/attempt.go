package playback

import (
	"github.com/romariotrain/media-pipeline/internal/media/domain"
	"github.com/romariotrain/media-pipeline/internal/media/models"
)

// Attempt is the value object for one playback attempt. The controller
// replaces it wholesale on every change instead of mutating fields, and
// every async effect is tagged with Generation so stale callbacks cannot
// touch a newer attempt.
type Attempt struct {
	Generation uint64
	Source     models.PlayableSource
	RetryCount int
	MaxRetries int
	State      domain.PlaybackState
	Muted      bool
	Err        error
}

// Exhausted reports whether automatic retries are spent.
func (a Attempt) Exhausted() bool {
	return a.State == domain.PlaybackErrored && a.RetryCount >= a.MaxRetries
}

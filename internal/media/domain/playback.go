package domain

import "fmt"

// PlaybackState is the lifecycle of one playback attempt against a bound
// media element. Errored is terminal for the attempt once retries are
// exhausted; before that it may loop back to Loading via retry.
type PlaybackState string

const (
	PlaybackLoading   PlaybackState = "loading"
	PlaybackBuffering PlaybackState = "buffering"
	PlaybackPlaying   PlaybackState = "playing"
	PlaybackStalled   PlaybackState = "stalled"
	PlaybackErrored   PlaybackState = "errored"
)

func CanPlaybackTransition(from, to PlaybackState) bool {
	switch from {
	case PlaybackLoading:
		return to == PlaybackBuffering || to == PlaybackPlaying || to == PlaybackStalled || to == PlaybackErrored
	case PlaybackBuffering:
		return to == PlaybackPlaying || to == PlaybackStalled || to == PlaybackErrored
	case PlaybackPlaying:
		return to == PlaybackBuffering || to == PlaybackErrored
	case PlaybackStalled:
		return to == PlaybackPlaying || to == PlaybackErrored
	case PlaybackErrored:
		// Only a retry (explicit or automatic) restarts the cycle.
		return to == PlaybackLoading
	default:
		return false
	}
}

func ValidatePlaybackTransition(from, to PlaybackState) error {
	if from == to {
		return nil
	}
	if !CanPlaybackTransition(from, to) {
		return fmt.Errorf("%w: playback %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

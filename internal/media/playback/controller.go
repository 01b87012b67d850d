// Package playback owns the lifecycle of one playback attempt against a
// native media element: load, stall detection, error, retry with a fresh
// resolve, terminal failure. It never hangs silently: every path ends in
// Playing, a retry, or an explicit Errored state.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/media/domain"
	"github.com/romariotrain/media-pipeline/internal/media/models"
	"github.com/romariotrain/media-pipeline/internal/media/resolve"
	"github.com/romariotrain/media-pipeline/internal/platform/metrics"
)

const (
	DefaultMaxRetries   = 3
	DefaultStallTimeout = 6 * time.Second
	maxRetryDelay       = 3 * time.Second
)

// Element is the native media element binding. Load begins fetching the
// URL; the element reports its signals back through the Handle it was
// given. Signals must be delivered asynchronously, never from inside Load.
// Play returns an error when the platform rejects playback (e.g. autoplay
// with sound).
type Element interface {
	Load(url string, h Handle)
	Play(muted bool) error
	Stop()
}

// Resolver re-resolves the bound reference on every retry.
type Resolver interface {
	Resolve(ref models.MediaReference) (models.PlayableSource, error)
}

// Corrector optionally re-wraps the raw bytes under an inferred content
// type. Purely best effort: a failed correction falls back to the original
// source and is never a terminal error.
type Corrector interface {
	Correct(ctx context.Context, src models.PlayableSource) (models.PlayableSource, error)
}

// Handle tags element signals with the attempt generation that armed them.
// Signals from a superseded attempt are discarded by the controller.
type Handle struct {
	c   *Controller
	gen uint64
}

func (h Handle) Loaded()           { h.c.onLoaded(h.gen) }
func (h Handle) Playing()          { h.c.onPlaying(h.gen) }
func (h Handle) Waiting()          { h.c.onWaiting(h.gen) }
func (h Handle) Ended()            { h.c.onEnded(h.gen) }
func (h Handle) Errored(err error) { h.c.onError(h.gen, err) }

type Config struct {
	MaxRetries   int
	StallTimeout time.Duration
	AutoPlay     bool
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// Controller drives one Element. It exclusively owns the element between
// Bind and the next Bind or Close; timers and listeners of a prior attempt
// are torn down before a new attempt starts.
type Controller struct {
	resolver  Resolver
	corrector Corrector
	element   Element
	cfg       Config
	log       zerolog.Logger

	mu              sync.Mutex
	ctx             context.Context
	ref             models.MediaReference
	attempt         Attempt
	generation      uint64
	correctionTried bool
	stallTimer      *time.Timer
	retryTimer      *time.Timer
	onChange        func(Attempt)

	// retryDelay exists so tests do not wait on real backoff.
	retryDelay func(retry int) time.Duration
}

func NewController(resolver Resolver, element Element, cfg Config) *Controller {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = DefaultStallTimeout
	}
	return &Controller{
		resolver:   resolver,
		element:    element,
		cfg:        cfg,
		log:        cfg.Logger.With().Str("component", "playback_controller").Logger(),
		ctx:        context.Background(),
		retryDelay: defaultRetryDelay,
	}
}

// WithCorrector installs the optional content-type correction step.
func (c *Controller) WithCorrector(cor Corrector) *Controller {
	c.corrector = cor
	return c
}

// OnChange registers an observer invoked with a copy of the attempt after
// every state change. The callback runs with the controller locked and
// must not call back into it.
func (c *Controller) OnChange(fn func(Attempt)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Attempt returns a copy of the current attempt.
func (c *Controller) Attempt() Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Bind discards any prior attempt and starts a fresh one for ref. ctx is
// the owning surface's lifetime; corrections and logging stop with it.
func (c *Controller) Bind(ctx context.Context, ref models.MediaReference) {
	c.mu.Lock()
	c.teardownLocked()
	c.ctx = ctx
	c.ref = ref
	c.correctionTried = false
	gen := c.generation
	c.startAttemptLocked(gen, 0)
	c.mu.Unlock()
}

// RetryManually resets the retry budget after exhaustion and repeats the
// cycle. It is a no-op unless the current attempt is terminally errored.
func (c *Controller) RetryManually() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attempt.Exhausted() {
		return
	}
	c.teardownLocked()
	c.correctionTried = false
	c.startAttemptLocked(c.generation, 0)
}

// Close tears the controller down; the element is stopped and no stale
// timer can fire into a future binding.
func (c *Controller) Close() {
	c.mu.Lock()
	c.teardownLocked()
	c.mu.Unlock()
	c.element.Stop()
}

// teardownLocked invalidates the current generation and stops all pending
// timers. Must run before any new attempt starts.
func (c *Controller) teardownLocked() {
	c.generation++
	if c.stallTimer != nil {
		c.stallTimer.Stop()
		c.stallTimer = nil
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// startAttemptLocked resolves the bound reference and binds the result to
// the element in Loading state. retryCount carries over across automatic
// retries of the same reference.
func (c *Controller) startAttemptLocked(gen uint64, retryCount int) {
	src, err := c.resolver.Resolve(c.ref)
	if err != nil {
		// Unresolvable references are invalid input, not retryable.
		c.cfg.Metrics.IncResolution("failed")
		c.attempt = Attempt{
			Generation: gen,
			RetryCount: c.cfg.MaxRetries,
			MaxRetries: c.cfg.MaxRetries,
			State:      domain.PlaybackErrored,
			Err:        err,
		}
		c.log.Warn().Err(err).Msg("reference did not resolve")
		c.notifyLocked()
		return
	}
	c.cfg.Metrics.IncResolution("resolved")
	src = resolve.CacheBust(src, retryCount)

	c.attempt = Attempt{
		Generation: gen,
		Source:     src,
		RetryCount: retryCount,
		MaxRetries: c.cfg.MaxRetries,
		State:      domain.PlaybackLoading,
	}
	c.armStallTimerLocked(gen)
	c.notifyLocked()
	c.element.Load(src.URL, Handle{c: c, gen: gen})
}

func (c *Controller) armStallTimerLocked(gen uint64) {
	if c.stallTimer != nil {
		c.stallTimer.Stop()
	}
	c.stallTimer = time.AfterFunc(c.cfg.StallTimeout, func() { c.onStallTimeout(gen) })
}

func (c *Controller) onLoaded(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.clearStallTimerLocked()
	c.transitionLocked(domain.PlaybackPlaying)
	autoPlay := c.cfg.AutoPlay
	c.mu.Unlock()

	if !autoPlay {
		return
	}
	if err := c.element.Play(false); err != nil {
		// Platform rejected autoplay with sound; muted autoplay is the
		// documented fallback, not a silent failure.
		if err2 := c.element.Play(true); err2 != nil {
			c.onError(gen, fmt.Errorf("autoplay rejected: %w", err2))
			return
		}
		c.mu.Lock()
		if gen == c.generation {
			a := c.attempt
			a.Muted = true
			c.attempt = a
			c.log.Debug().Str("url", a.Source.URL).Msg("fell back to muted autoplay")
			c.notifyLocked()
		}
		c.mu.Unlock()
	}
}

func (c *Controller) onPlaying(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.clearStallTimerLocked()
	c.transitionLocked(domain.PlaybackPlaying)
}

func (c *Controller) onWaiting(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if c.attempt.State != domain.PlaybackPlaying {
		// Waiting during the initial load is covered by the stall timer.
		return
	}
	c.transitionLocked(domain.PlaybackBuffering)
	c.armStallTimerLocked(gen)
}

func (c *Controller) onEnded(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.clearStallTimerLocked()
}

// onStallTimeout fires when no load or playing signal arrived in time. The
// attempt passes through Stalled and then escalates through the standard
// error path, no native error event required.
func (c *Controller) onStallTimeout(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.cfg.Metrics.IncPlaybackStall()
	c.transitionLocked(domain.PlaybackStalled)
	c.log.Warn().
		Str("url", c.attempt.Source.URL).
		Dur("timeout", c.cfg.StallTimeout).
		Msg("playback stalled")
	c.mu.Unlock()

	c.onError(gen, fmt.Errorf("%w: no progress within %s", models.ErrTransientIO, c.cfg.StallTimeout))
}

func (c *Controller) onError(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.clearStallTimerLocked()
	c.transitionLocked(domain.PlaybackErrored)

	// Content-type correction gets one shot per binding, before any error
	// consumes the retry budget. Either outcome re-loads without counting
	// as a retry: the corrected source on success, the original on failure.
	if c.corrector != nil && !c.correctionTried {
		c.correctionTried = true
		ctx := c.ctx
		src := c.attempt.Source
		c.mu.Unlock()

		corrected, err := c.corrector.Correct(ctx, src)
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.log.Debug().Err(err).Msg("content-type correction failed, falling back to original url")
			corrected = src
		}
		a := c.attempt
		a.Source = corrected
		a.State = domain.PlaybackLoading
		c.attempt = a
		c.armStallTimerLocked(gen)
		c.notifyLocked()
		c.mu.Unlock()
		c.element.Load(corrected.URL, Handle{c: c, gen: gen})
		return
	}

	if c.attempt.RetryCount >= c.attempt.MaxRetries {
		a := c.attempt
		a.Err = fmt.Errorf("%w: after %d retries: %v", models.ErrExhausted, a.RetryCount, cause)
		c.attempt = a
		c.log.Error().Err(cause).Int("retries", a.RetryCount).Msg("playback exhausted, manual retry required")
		c.notifyLocked()
		c.mu.Unlock()
		return
	}

	nextRetry := c.attempt.RetryCount + 1
	delay := c.retryDelay(nextRetry)
	c.cfg.Metrics.IncPlaybackRetry()
	c.log.Info().
		Err(cause).
		Int("retry", nextRetry).
		Dur("delay", delay).
		Msg("scheduling playback retry")
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation {
			return
		}
		// Fresh resolve of the same reference; CacheBust makes the URL
		// bypass intermediate caches.
		c.startAttemptLocked(gen, nextRetry)
	})
	c.mu.Unlock()
}

func (c *Controller) clearStallTimerLocked() {
	if c.stallTimer != nil {
		c.stallTimer.Stop()
		c.stallTimer = nil
	}
}

func (c *Controller) transitionLocked(to domain.PlaybackState) {
	if c.attempt.State == to {
		return
	}
	if err := domain.ValidatePlaybackTransition(c.attempt.State, to); err != nil {
		// Signals can arrive in odd orders from flaky elements; an
		// illegal transition is dropped, not applied.
		c.log.Debug().Err(err).Msg("dropping illegal playback transition")
		return
	}
	a := c.attempt
	a.State = to
	c.attempt = a
	c.notifyLocked()
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.attempt)
	}
}

// defaultRetryDelay is the capped linear backoff: min(1s * retry, 3s).
func defaultRetryDelay(retry int) time.Duration {
	d := time.Duration(retry) * time.Second
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

package playback

import (
	"context"
	"sync"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

// elementStub records loads and hands the armed Handle back to the test,
// which then drives signals the way a real media element would.
type elementStub struct {
	mu       sync.Mutex
	loads    []string
	handles  []Handle
	playErr  error // returned for unmuted Play
	mutedErr error // returned for muted Play
	plays    []bool
	stops    int
}

func (e *elementStub) Load(url string, h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads = append(e.loads, url)
	e.handles = append(e.handles, h)
}

func (e *elementStub) Play(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plays = append(e.plays, muted)
	if muted {
		return e.mutedErr
	}
	return e.playErr
}

func (e *elementStub) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
}

func (e *elementStub) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

func (e *elementStub) loadAt(i int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads[i]
}

func (e *elementStub) lastHandle() Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[len(e.handles)-1]
}

type resolverStub struct {
	mu    sync.Mutex
	src   models.PlayableSource
	err   error
	calls int
}

func (r *resolverStub) Resolve(ref models.MediaReference) (models.PlayableSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return models.PlayableSource{}, r.err
	}
	return r.src, nil
}

func (r *resolverStub) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type correctorStub struct {
	mu        sync.Mutex
	corrected models.PlayableSource
	err       error
	calls     int
}

func (c *correctorStub) Correct(_ context.Context, src models.PlayableSource) (models.PlayableSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return models.PlayableSource{}, c.err
	}
	return c.corrected, nil
}

func (c *correctorStub) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// stateRecorder collects every attempt change. The OnChange callback runs
// with the controller locked, so it only appends.
type stateRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *stateRecorder) record(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *stateRecorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, string(a.State))
	}
	return out
}

package upload

import (
	"sync"

	"github.com/romariotrain/media-pipeline/internal/media/domain"
	"github.com/romariotrain/media-pipeline/internal/media/validate"
)

// Snapshot is a point-in-time view of a job, safe to hand to UI code.
type Snapshot struct {
	Status   domain.UploadStatus
	Progress int
	Result   *Result
	Err      error
}

// Job tracks one upload from file selection to a terminal state. Only the
// gateway mutates it; progress is monotonically non-decreasing and the
// terminal states are final. Retrying means creating a new Job.
type Job struct {
	file validate.File

	mu       sync.Mutex
	status   domain.UploadStatus
	progress int
	result   *Result
	err      error
	onChange func(Snapshot)
}

// NewJob creates an idle job for the given file. onChange, if non-nil, is
// invoked after every visible state or progress change.
func NewJob(file validate.File, onChange func(Snapshot)) *Job {
	return &Job{
		file:     file,
		status:   domain.UploadIdle,
		onChange: onChange,
	}
}

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Snapshot {
	return Snapshot{
		Status:   j.status,
		Progress: j.progress,
		Result:   j.result,
		Err:      j.err,
	}
}

func (j *Job) transition(to domain.UploadStatus) error {
	j.mu.Lock()
	if err := domain.ValidateUploadTransition(j.status, to); err != nil {
		j.mu.Unlock()
		return err
	}
	j.status = to
	snap := j.snapshotLocked()
	j.mu.Unlock()
	j.notify(snap)
	return nil
}

// setProgress clamps to 0..100 and never moves backwards.
func (j *Job) setProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	j.mu.Lock()
	if p <= j.progress {
		j.mu.Unlock()
		return
	}
	j.progress = p
	snap := j.snapshotLocked()
	j.mu.Unlock()
	j.notify(snap)
}

func (j *Job) succeed(res *Result) {
	j.mu.Lock()
	if j.terminalLocked() {
		j.mu.Unlock()
		return
	}
	j.status = domain.UploadSucceeded
	j.progress = 100
	j.result = res
	snap := j.snapshotLocked()
	j.mu.Unlock()
	j.notify(snap)
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	if j.terminalLocked() {
		j.mu.Unlock()
		return
	}
	j.status = domain.UploadFailed
	j.err = err
	snap := j.snapshotLocked()
	j.mu.Unlock()
	j.notify(snap)
}

func (j *Job) terminalLocked() bool {
	return j.status == domain.UploadSucceeded || j.status == domain.UploadFailed
}

func (j *Job) notify(snap Snapshot) {
	if j.onChange != nil {
		j.onChange(snap)
	}
}

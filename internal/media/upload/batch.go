package upload

import (
	"context"
	"fmt"

	"github.com/romariotrain/media-pipeline/internal/media/validate"
)

// BatchItemError names a file that failed within a batch.
type BatchItemError struct {
	Name string
	Code FailureCode
	Err  error
}

// BatchResult reports a batch as a whole. A batch succeeds only if every
// file succeeded; a mixed outcome is a failure and is never silently
// partially applied by callers.
type BatchResult struct {
	Results []*Result
	Failed  []BatchItemError
}

func (b *BatchResult) Succeeded() bool {
	return len(b.Failed) == 0
}

// UploadBatch processes files strictly sequentially so per-file progress
// stays monotonic and comprehensible. All files are attempted; the error is
// ErrBatchFailed when any of them failed, with the per-file breakdown in
// the returned BatchResult.
func (g *Gateway) UploadBatch(ctx context.Context, files []validate.File, uc Context) (*BatchResult, error) {
	batch := &BatchResult{}
	for _, f := range files {
		res, err := g.Upload(ctx, f, uc)
		if err != nil {
			batch.Failed = append(batch.Failed, BatchItemError{
				Name: f.Name,
				Code: Classify(err),
				Err:  err,
			})
			continue
		}
		batch.Results = append(batch.Results, res)
	}
	if !batch.Succeeded() {
		return batch, fmt.Errorf("%w: %d of %d files failed", ErrBatchFailed, len(batch.Failed), len(files))
	}
	return batch, nil
}

package domain

import "fmt"

// UploadStatus is the lifecycle of one upload job. Succeeded and Failed are
// terminal: retrying an upload means creating a new job.
type UploadStatus string

const (
	UploadIdle       UploadStatus = "idle"
	UploadValidating UploadStatus = "validating"
	UploadUploading  UploadStatus = "uploading"
	UploadSucceeded  UploadStatus = "succeeded"
	UploadFailed     UploadStatus = "failed"
)

func CanUploadTransition(from, to UploadStatus) bool {
	switch from {
	case UploadIdle:
		return to == UploadValidating || to == UploadFailed
	case UploadValidating:
		return to == UploadUploading || to == UploadFailed
	case UploadUploading:
		return to == UploadSucceeded || to == UploadFailed
	case UploadSucceeded:
		return false
	case UploadFailed:
		return false
	default:
		return false
	}
}

func ValidateUploadTransition(from, to UploadStatus) error {
	if from == to {
		return nil
	}
	if !CanUploadTransition(from, to) {
		return fmt.Errorf("%w: upload %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

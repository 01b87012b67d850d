package models

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTransientIO      = errors.New("transient io failure")
	ErrPermissionDenied = errors.New("permission denied")
	ErrMalformed        = errors.New("malformed")
	ErrExhausted        = errors.New("retries exhausted")
	ErrNoPlayableSource = errors.New("no playable source")
)

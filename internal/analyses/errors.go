package analyses

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidInput          = errors.New("invalid input")
	ErrJobClosed             = errors.New("job is closed")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

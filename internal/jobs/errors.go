package jobs

import "errors"

var (
	ErrNotFound     = errors.New("job not found")
	ErrForbidden    = errors.New("not allowed to modify this job")
	ErrInvalidInput = errors.New("invalid job input")
	ErrClosed       = errors.New("job is closed")
)

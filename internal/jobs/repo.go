package jobs

import (
	"context"
	"time"
)

// Repo defines persistence operations for jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	List(ctx context.Context, filter ListFilter) ([]Job, error)
	Update(ctx context.Context, job Job) error
	Close(ctx context.Context, jobID string, at time.Time) error
}

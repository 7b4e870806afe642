package analyses

import (
	"context"
	"time"

	"ats-backend/internal/scoring"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	MarkProcessing(ctx context.Context, analysisID string) error
	Complete(ctx context.Context, analysisID string, result scoring.Result, completedAt time.Time) error
	Fail(ctx context.Context, analysisID, message string, completedAt time.Time) error
	ListByCandidate(ctx context.Context, candidateID string, limit, offset int) ([]Analysis, error)
	// ListByJob returns completed analyses first, highest score first.
	ListByJob(ctx context.Context, jobID string) ([]Analysis, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// clampListLimit applies the default page size and the upper bound.
func clampListLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

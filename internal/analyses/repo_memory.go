package analyses

import (
	"context"
	"sort"
	"sync"
	"time"

	"ats-backend/internal/scoring"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[analysis.ID] = analysis
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// MarkProcessing moves a queued analysis to processing. Terminal analyses
// are reported as ErrNotFound.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, analysisID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok || (analysis.Status != StatusQueued && analysis.Status != StatusProcessing) {
		return ErrNotFound
	}
	analysis.Status = StatusProcessing
	r.byID[analysisID] = analysis
	return nil
}

// Complete stores the scoring result.
func (r *MemoryRepo) Complete(ctx context.Context, analysisID string, result scoring.Result, completedAt time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) {
		score := result.OverallScore
		a.Status = StatusCompleted
		a.OverallScore = &score
		a.ModelVersion = result.ModelVersion
		a.Result = &result
		a.ErrorMessage = ""
		a.CompletedAt = &completedAt
	})
}

// Fail records a failure message.
func (r *MemoryRepo) Fail(ctx context.Context, analysisID, message string, completedAt time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) {
		a.Status = StatusFailed
		a.ErrorMessage = message
		a.CompletedAt = &completedAt
	})
}

// ListByCandidate returns a candidate's analyses newest first.
func (r *MemoryRepo) ListByCandidate(ctx context.Context, candidateID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Analysis, 0)
	for _, a := range r.byID {
		if a.CandidateID == candidateID {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	offset = max(offset, 0)
	if offset >= len(out) {
		return []Analysis{}, nil
	}
	end := min(offset+clampListLimit(limit), len(out))
	return out[offset:end], nil
}

// ListByJob returns a job's analyses in ranking order.
func (r *MemoryRepo) ListByJob(ctx context.Context, jobID string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Analysis, 0)
	for _, a := range r.byID {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sortRanked(out)
	return out, nil
}

func (r *MemoryRepo) update(ctx context.Context, analysisID string, fn func(*Analysis)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	fn(&analysis)
	r.byID[analysisID] = analysis
	return nil
}

// sortRanked orders completed analyses by score descending, earlier
// submissions winning ties, with unscored analyses last.
func sortRanked(list []Analysis) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.OverallScore == nil) != (b.OverallScore == nil) {
			return a.OverallScore != nil
		}
		if a.OverallScore != nil && *a.OverallScore != *b.OverallScore {
			return *a.OverallScore > *b.OverallScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

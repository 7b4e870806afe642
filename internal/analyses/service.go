package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ats-backend/internal/jobs"
	"ats-backend/internal/queue"
	"ats-backend/internal/scoring"
	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/storage/object"
	"ats-backend/internal/shared/telemetry"
)

// JobReader loads the job an analysis is scored against.
type JobReader interface {
	Get(ctx context.Context, jobID string) (jobs.Job, error)
}

// Scorer runs the scoring pipeline. *scoring.Analyzer satisfies it.
type Scorer interface {
	Analyze(ctx context.Context, resumeText string, job *scoring.JobRequirements) scoring.Result
}

// Service contains business logic for analyses.
type Service struct {
	Repo   Repo
	Jobs   JobReader
	Scorer Scorer
	// Queue receives async analyses. When nil they complete in-process.
	Queue queue.Client
	// Store archives uploaded resume files. Optional.
	Store object.Store
	Now   func() time.Time
}

// Submit scores resumeText against an open job. Synchronous submissions
// return a completed record; async ones return it queued.
func (s *Service) Submit(ctx context.Context, jobID, candidateID, resumeText, fileName string, async bool) (Analysis, error) {
	if strings.TrimSpace(candidateID) == "" {
		return Analysis{}, fmt.Errorf("%w: candidate id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(resumeText) == "" {
		return Analysis{}, fmt.Errorf("%w: resume text is empty", ErrInvalidInput)
	}
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return Analysis{}, err
	}
	if !job.IsOpen() {
		return Analysis{}, ErrJobClosed
	}

	analysis := Analysis{
		ID:             uuid.NewString(),
		JobID:          job.ID,
		CandidateID:    candidateID,
		ResumeFileName: strings.TrimSpace(fileName),
		ResumeText:     resumeText,
		Status:         StatusQueued,
		CreatedAt:      s.now(),
	}

	if !async {
		result := s.score(ctx, analysis, job)
		completedAt := s.now()
		score := result.OverallScore
		analysis.Status = StatusCompleted
		analysis.OverallScore = &score
		analysis.ModelVersion = result.ModelVersion
		analysis.Result = &result
		analysis.CompletedAt = &completedAt
		if err := s.Repo.Create(ctx, analysis); err != nil {
			return Analysis{}, fmt.Errorf("store analysis: %w", err)
		}
		s.recordCompletion(ctx, analysis, result, analysis.CreatedAt, completedAt, "submitted->completed")
		return analysis, nil
	}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("store analysis: %w", err)
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"job_id":            analysis.JobID,
		"candidate_id":      analysis.CandidateID,
		"status":            StatusQueued,
		"status_transition": "submitted->queued",
	})

	if s.Queue == nil {
		go func(ctx context.Context, id string) {
			if err := s.ProcessAnalysis(ctx, id); err != nil {
				telemetry.Error("analysis.process_failed", map[string]any{
					"request_id":  requestIDFromContext(ctx),
					"analysis_id": id,
					"error":       err.Error(),
				})
			}
		}(backgroundWithRequestID(ctx), analysis.ID)
		return analysis, nil
	}

	msg := queue.NewMessage(analysis.ID, requestIDFromContext(ctx), s.now())
	if err := s.Queue.Send(ctx, msg); err != nil {
		s.failAnalysis(ctx, analysis, fmt.Errorf("enqueue: %w", err), nil)
		return Analysis{}, fmt.Errorf("enqueue analysis %s: %w", analysis.ID, err)
	}
	return analysis, nil
}

// ProcessAnalysis moves a queued analysis through processing to a terminal
// state. Terminal analyses are left untouched so redelivered messages are
// harmless. The returned error is non-nil only when the outcome could not
// be stored.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) (err error) {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup %s: %w", analysisID, err)
	}
	if analysis.Terminal() {
		telemetry.Info("analysis.skipped", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"status":      analysis.Status,
		})
		return nil
	}

	startedAt := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = s.failAnalysis(ctx, analysis, fmt.Errorf("panic: %v", r), &startedAt)
		}
	}()

	if err := s.Repo.MarkProcessing(ctx, analysisID); err != nil {
		return fmt.Errorf("set processing %s: %w", analysisID, err)
	}
	analysis.Status = StatusProcessing
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"job_id":            analysis.JobID,
		"candidate_id":      analysis.CandidateID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	job, err := s.loadJob(ctx, analysis.JobID)
	if err != nil {
		return s.failAnalysis(ctx, analysis, fmt.Errorf("job lookup id=%s: %w", analysis.JobID, err), &startedAt)
	}

	result := s.score(ctx, analysis, job)
	completedAt := s.now()
	if err := s.Repo.Complete(ctx, analysisID, result, completedAt); err != nil {
		return fmt.Errorf("set analysis result %s: %w", analysisID, err)
	}
	s.recordCompletion(ctx, analysis, result, startedAt, completedAt, "processing->completed")
	return nil
}

// Score runs the pipeline without persisting anything.
func (s *Service) Score(ctx context.Context, resumeText string, job *scoring.JobRequirements) scoring.Result {
	result := s.Scorer.Analyze(ctx, resumeText, job)
	if result.IsFallback() {
		metrics.IncAnalysisFallback()
	}
	return result
}

// Get returns an analysis visible to actor: its candidate, the recruiter
// who owns the job, or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Principal, analysisID string) (Analysis, error) {
	if strings.TrimSpace(analysisID) == "" {
		return Analysis{}, ErrNotFound
	}
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if actor.IsAdmin() || analysis.CandidateID == actor.ID {
		return analysis, nil
	}
	if actor.IsRecruiter() {
		job, err := s.loadJob(ctx, analysis.JobID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Analysis{}, err
		}
		if err == nil && jobs.CanManage(actor, job) {
			return analysis, nil
		}
	}
	return Analysis{}, ErrForbidden
}

// ListMine returns the caller's own analyses newest first.
func (s *Service) ListMine(ctx context.Context, actor auth.Principal, limit, offset int) ([]Analysis, error) {
	if actor.ID == "" {
		return nil, ErrForbidden
	}
	return s.Repo.ListByCandidate(ctx, actor.ID, limit, offset)
}

// ListForJob returns the job's analyses ranked by overall score.
func (s *Service) ListForJob(ctx context.Context, actor auth.Principal, jobID string) ([]Analysis, jobs.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, jobs.Job{}, err
	}
	if !jobs.CanManage(actor, job) {
		return nil, jobs.Job{}, ErrForbidden
	}
	list, err := s.Repo.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, jobs.Job{}, err
	}
	return list, job, nil
}

func (s *Service) loadJob(ctx context.Context, jobID string) (jobs.Job, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		return jobs.Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return job, err
}

func (s *Service) score(ctx context.Context, analysis Analysis, job jobs.Job) scoring.Result {
	req := job.Requirements()
	result := s.Scorer.Analyze(ctx, analysis.ResumeText, &req)
	if result.IsFallback() {
		metrics.IncAnalysisFallback()
		telemetry.Warn("analysis.fallback", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"job_id":      analysis.JobID,
		})
	}
	return result
}

func (s *Service) recordCompletion(ctx context.Context, analysis Analysis, result scoring.Result, startedAt, completedAt time.Time, transition string) {
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"job_id":            analysis.JobID,
		"candidate_id":      analysis.CandidateID,
		"status":            StatusCompleted,
		"status_transition": transition,
		"overall_score":     result.OverallScore,
		"model_version":     result.ModelVersion,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

func (s *Service) failAnalysis(ctx context.Context, analysis Analysis, cause error, startedAt *time.Time) error {
	msg := sanitizeError(cause)
	completedAt := s.now()
	updateErr := s.Repo.Fail(context.WithoutCancel(ctx), analysis.ID, msg, completedAt)
	if updateErr != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"analysis_id": analysis.ID,
			"error":       updateErr.Error(),
			"cause":       msg,
		})
	}
	metrics.IncAnalysisFailed()
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"job_id":            analysis.JobID,
		"candidate_id":      analysis.CandidateID,
		"status":            StatusFailed,
		"status_transition": analysis.Status + "->failed",
		"error":             msg,
	}
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(*startedAt, completedAt))
		fields["duration_ms"] = durationMs(*startedAt, completedAt)
	}
	telemetry.Info("analysis.status", fields)
	if updateErr != nil {
		return fmt.Errorf("set failed %s: %w", analysis.ID, updateErr)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

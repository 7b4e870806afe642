package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ats-backend/internal/scoring"
	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/telemetry"
)

// Service contains business logic for job postings.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// Create stores a new open job owned by the calling recruiter.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (Job, error) {
	if !actor.IsRecruiter() && !actor.IsAdmin() {
		return Job{}, ErrForbidden
	}
	level, err := normalizeInput(&in)
	if err != nil {
		return Job{}, err
	}

	now := s.now()
	job := Job{
		ID:              uuid.NewString(),
		RecruiterID:     actor.ID,
		Title:           in.Title,
		Company:         in.Company,
		Description:     in.Description,
		RequiredSkills:  in.RequiredSkills,
		PreferredSkills: in.PreferredSkills,
		ExperienceLevel: level,
		Qualifications:  in.Qualifications,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	telemetry.Info("job.created", map[string]any{
		"job_id":       job.ID,
		"recruiter_id": job.RecruiterID,
		"level":        string(job.ExperienceLevel),
	})
	return job, nil
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, jobID string) (Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return Job{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, jobID)
}

// List returns jobs matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	return s.Repo.List(ctx, filter)
}

// Update replaces the writable fields of a job. Only its recruiter or an
// admin may do so.
func (s *Service) Update(ctx context.Context, actor auth.Principal, jobID string, in Input) (Job, error) {
	job, err := s.authorize(ctx, actor, jobID)
	if err != nil {
		return Job{}, err
	}
	level, err := normalizeInput(&in)
	if err != nil {
		return Job{}, err
	}

	job.Title = in.Title
	job.Company = in.Company
	job.Description = in.Description
	job.RequiredSkills = in.RequiredSkills
	job.PreferredSkills = in.PreferredSkills
	job.ExperienceLevel = level
	job.Qualifications = in.Qualifications
	job.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, job); err != nil {
		return Job{}, fmt.Errorf("update job %s: %w", jobID, err)
	}
	return job, nil
}

// Close stops a job from accepting new analyses.
func (s *Service) Close(ctx context.Context, actor auth.Principal, jobID string) (Job, error) {
	job, err := s.authorize(ctx, actor, jobID)
	if err != nil {
		return Job{}, err
	}
	if !job.IsOpen() {
		return job, nil
	}
	now := s.now()
	if err := s.Repo.Close(ctx, jobID, now); err != nil {
		return Job{}, fmt.Errorf("close job %s: %w", jobID, err)
	}
	job.Status = StatusClosed
	job.UpdatedAt = now
	telemetry.Info("job.closed", map[string]any{
		"job_id":   job.ID,
		"actor_id": actor.ID,
	})
	return job, nil
}

// CanManage reports whether actor may modify job or view its candidates.
func CanManage(actor auth.Principal, job Job) bool {
	return actor.IsAdmin() || (actor.IsRecruiter() && actor.ID == job.RecruiterID)
}

func (s *Service) authorize(ctx context.Context, actor auth.Principal, jobID string) (Job, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if !CanManage(actor, job) {
		return Job{}, ErrForbidden
	}
	return job, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func normalizeInput(in *Input) (scoring.ExperienceLevel, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return "", fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	level, err := scoring.ParseExperienceLevel(in.ExperienceLevel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	in.RequiredSkills = cleanList(in.RequiredSkills)
	in.PreferredSkills = cleanList(in.PreferredSkills)
	in.Qualifications = cleanList(in.Qualifications)
	return level, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package analyses

import (
	"time"

	"ats-backend/internal/scoring"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis is one resume scored against one job.
type Analysis struct {
	ID             string          `json:"id"`
	JobID          string          `json:"jobId"`
	CandidateID    string          `json:"candidateId"`
	ResumeFileName string          `json:"resumeFileName,omitempty"`
	ResumeText     string          `json:"-"`
	Status         string          `json:"status"`
	OverallScore   *int            `json:"overallScore,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	Result         *scoring.Result `json:"result,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

// Terminal reports whether the analysis will not change status again.
func (a Analysis) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}

// SubmitRequest is the JSON body for submitting a resume to a job.
type SubmitRequest struct {
	ResumeText     string `json:"resumeText" binding:"required,max=200000"`
	ResumeFileName string `json:"resumeFileName" binding:"max=255"`
}

// ScoreRequest is the body of the stateless scoring endpoint.
type ScoreRequest struct {
	ResumeText string                   `json:"resumeText" binding:"required,max=200000"`
	Job        *scoring.JobRequirements `json:"job"`
}

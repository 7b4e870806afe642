package jobs

import (
	"time"

	"ats-backend/internal/scoring"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Job is a posting candidates are scored against.
type Job struct {
	ID              string                  `json:"id"`
	RecruiterID     string                  `json:"recruiterId"`
	Title           string                  `json:"title"`
	Company         string                  `json:"company"`
	Description     string                  `json:"description"`
	RequiredSkills  []string                `json:"requiredSkills"`
	PreferredSkills []string                `json:"preferredSkills"`
	ExperienceLevel scoring.ExperienceLevel `json:"experienceLevel"`
	Qualifications  []string                `json:"qualifications"`
	Status          string                  `json:"status"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// Requirements returns the scoring view of the job.
func (j Job) Requirements() scoring.JobRequirements {
	return scoring.JobRequirements{
		Description:     j.Description,
		RequiredSkills:  append([]string(nil), j.RequiredSkills...),
		PreferredSkills: append([]string(nil), j.PreferredSkills...),
		ExperienceLevel: j.ExperienceLevel,
		Qualifications:  append([]string(nil), j.Qualifications...),
	}
}

// IsOpen reports whether the job accepts new applications.
func (j Job) IsOpen() bool { return j.Status == StatusOpen }

// Input is the writable part of a job.
type Input struct {
	Title           string   `json:"title" binding:"required,max=200"`
	Company         string   `json:"company" binding:"max=200"`
	Description     string   `json:"description" binding:"required,max=20000"`
	RequiredSkills  []string `json:"requiredSkills" binding:"max=50,dive,required,max=100"`
	PreferredSkills []string `json:"preferredSkills" binding:"max=50,dive,required,max=100"`
	ExperienceLevel string   `json:"experienceLevel" binding:"required,experiencelevel"`
	Qualifications  []string `json:"qualifications" binding:"max=20,dive,max=500"`
}

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	RecruiterID string
	Status      string
	Limit       int
	Offset      int
}

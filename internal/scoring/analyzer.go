package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"ats-backend/internal/shared/telemetry"
)

const (
	ModelVersion         = "1.0"
	FallbackModelVersion = "1.0-fallback"

	fallbackSemanticScore = 50
)

// Weights for the full path. They sum to 1.
const (
	skillsWeight     = 0.4
	experienceWeight = 0.3
	educationWeight  = 0.2
	semanticWeight   = 0.1
)

// Weights for the network-free fallback path. They sum to 1.
const (
	fallbackSkillsWeight     = 0.5
	fallbackExperienceWeight = 0.3
	fallbackEducationWeight  = 0.2
)

// ErrMissingJob is returned internally when no job requirements are supplied.
var ErrMissingJob = errors.New("job requirements are required")

// SimilarityScore is a 0-100 similarity value. Available is false when the
// score is a placeholder for an unreachable service.
type SimilarityScore struct {
	Score     int
	Available bool
}

// SimilarityScorer computes semantic similarity between resume and job text.
// Returning an error sends the analysis down the fallback path.
type SimilarityScorer interface {
	Similarity(ctx context.Context, resumeText, jobDescription string) (SimilarityScore, error)
}

// Analyzer runs the full scoring pipeline for one resume and job.
type Analyzer struct {
	similarity SimilarityScorer
	matcher    SkillMatcher
	now        func() time.Time
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClock overrides the clock used for analysisDate and processingTime.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSkillMatcher replaces the default bidirectional containment matcher.
func WithSkillMatcher(m SkillMatcher) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.matcher = m
		}
	}
}

// NewAnalyzer constructs an Analyzer. A nil similarity scorer makes the
// semantic stage report an unavailable zero score.
func NewAnalyzer(similarity SimilarityScorer, opts ...Option) *Analyzer {
	a := &Analyzer{
		similarity: similarity,
		matcher:    ContainsMatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores resumeText against job. It always returns a complete
// result; any stage failure switches to the fallback computation.
func (a *Analyzer) Analyze(ctx context.Context, resumeText string, job *JobRequirements) Result {
	start := a.now()

	result, err := a.analyzeFull(ctx, resumeText, job)
	if err != nil {
		telemetry.Warn("scoring.stage_failed", map[string]any{
			"error": err.Error(),
		})
		result = a.analyzeFallback(resumeText, job)
	}

	end := a.now()
	result.AnalysisDate = end.UTC()
	result.ProcessingTimeMs = end.Sub(start).Milliseconds()
	return result
}

func (a *Analyzer) analyzeFull(ctx context.Context, resumeText string, job *JobRequirements) (Result, error) {
	if job == nil {
		return Result{}, ErrMissingJob
	}
	resumeSkills := ExtractSkills(resumeText)

	var (
		skills     SkillsMatch
		experience ExperienceMatch
		education  EducationMatch
		semantic   SimilarityScore
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guardStage("skills", func() error {
		skills = MatchSkillsWith(a.matcher, resumeSkills, job.RequiredSkills, job.PreferredSkills)
		return nil
	}))
	g.Go(guardStage("experience", func() error {
		experience = MatchExperience(resumeText, job.Description, job.ExperienceLevel)
		return nil
	}))
	g.Go(guardStage("education", func() error {
		education = MatchEducation(resumeText, job.Qualifications)
		return nil
	}))
	g.Go(guardStage("semantic", func() error {
		if a.similarity == nil {
			return nil
		}
		s, err := a.similarity.Similarity(gctx, resumeText, job.Description)
		if err != nil {
			return fmt.Errorf("semantic similarity: %w", err)
		}
		semantic = SimilarityScore{Score: clampScore(s.Score), Available: s.Available}
		return nil
	}))
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	overall := weighted(
		float64(skills.Score)*skillsWeight,
		float64(experience.Score)*experienceWeight,
		float64(education.Score)*educationWeight,
		float64(semantic.Score)*semanticWeight,
	)

	return Result{
		OverallScore:       overall,
		SkillsMatch:        skills,
		ExperienceMatch:    experience,
		EducationMatch:     education,
		SemanticSimilarity: semanticBlock(semantic.Score, semantic.Available),
		Insights: GenerateInsights(InsightInput{
			SkillsMatch:     skills,
			ExperienceMatch: experience,
			EducationMatch:  education,
			OverallScore:    overall,
		}),
		ModelVersion: ModelVersion,
	}, nil
}

func (a *Analyzer) analyzeFallback(resumeText string, job *JobRequirements) Result {
	if job == nil {
		job = &JobRequirements{}
	}
	skills := MatchSkillsWith(a.matcher, ExtractSkills(resumeText), job.RequiredSkills, job.PreferredSkills)
	experience := MatchExperience(resumeText, job.Description, job.ExperienceLevel)
	education := MatchEducation(resumeText, job.Qualifications)

	overall := weighted(
		float64(skills.Score)*fallbackSkillsWeight,
		float64(experience.Score)*fallbackExperienceWeight,
		float64(education.Score)*fallbackEducationWeight,
	)

	return Result{
		OverallScore:       overall,
		SkillsMatch:        skills,
		ExperienceMatch:    experience,
		EducationMatch:     education,
		SemanticSimilarity: semanticBlock(fallbackSemanticScore, false),
		Insights:           fallbackInsights(overall),
		ModelVersion:       FallbackModelVersion,
	}
}

func semanticBlock(score int, available bool) SemanticSimilarity {
	return SemanticSimilarity{
		Score:     score,
		Available: available,
		SimilarityMetrics: SimilarityMetrics{
			ResumeJobDescription: score,
			SkillsAlignment:      score,
			IndustryRelevance:    score,
		},
	}
}

func weighted(parts ...float64) int {
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return clampScore(int(math.Round(sum)))
}

func guardStage(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s stage panic: %v", name, r)
			}
		}()
		return fn()
	}
}

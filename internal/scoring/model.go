package scoring

import (
	"errors"
	"strings"
	"time"
)

// ExperienceLevel is the seniority bucket a job targets.
type ExperienceLevel string

const (
	LevelEntry     ExperienceLevel = "entry"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelLead      ExperienceLevel = "lead"
	LevelExecutive ExperienceLevel = "executive"
)

// ParseExperienceLevel normalizes and validates a level string.
func ParseExperienceLevel(raw string) (ExperienceLevel, error) {
	switch ExperienceLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelEntry:
		return LevelEntry, nil
	case LevelMid:
		return LevelMid, nil
	case LevelSenior:
		return LevelSenior, nil
	case LevelLead:
		return LevelLead, nil
	case LevelExecutive:
		return LevelExecutive, nil
	default:
		return "", errors.New("experience level is invalid")
	}
}

// JobRequirements is the part of a job posting the scorer reads.
type JobRequirements struct {
	Description     string          `json:"description"`
	RequiredSkills  []string        `json:"requiredSkills"`
	PreferredSkills []string        `json:"preferredSkills"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	Qualifications  []string        `json:"qualifications"`
}

// SkillsDetails carries the raw counts behind a skills score.
type SkillsDetails struct {
	RequiredMatched  int `json:"requiredMatched"`
	RequiredTotal    int `json:"requiredTotal"`
	PreferredMatched int `json:"preferredMatched"`
	PreferredTotal   int `json:"preferredTotal"`
}

type SkillsMatch struct {
	Score            int           `json:"score"`
	MatchedSkills    []string      `json:"matchedSkills"`
	MissingSkills    []string      `json:"missingSkills"`
	AdditionalSkills []string      `json:"additionalSkills"`
	Details          SkillsDetails `json:"details"`
}

type ExperienceMatch struct {
	Score               int    `json:"score"`
	EstimatedYears      int    `json:"estimatedYears"`
	SeniorityIndicators int    `json:"seniorityIndicators"`
	ExperienceGap       string `json:"experienceGap"`
}

type RelevantEducation struct {
	Degree string `json:"degree"`
	Field  string `json:"field"`
	Score  int    `json:"score"`
}

type EducationMatch struct {
	Score             int                 `json:"score"`
	EducationLevel    string              `json:"educationLevel"`
	RelevantField     string              `json:"relevantField"`
	RelevantEducation []RelevantEducation `json:"relevantEducation"`
}

type SimilarityMetrics struct {
	ResumeJobDescription int `json:"resumeJobDescription"`
	SkillsAlignment      int `json:"skillsAlignment"`
	IndustryRelevance    int `json:"industryRelevance"`
}

// SemanticSimilarity is the external similarity stage output. Available is
// false when Score is the unavailable sentinel rather than a measured value.
type SemanticSimilarity struct {
	Score             int               `json:"score"`
	Available         bool              `json:"available"`
	SimilarityMetrics SimilarityMetrics `json:"similarityMetrics"`
}

type LearningPath struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type BoostAction struct {
	Action string `json:"action"`
	Impact int    `json:"impact"`
}

// Insights holds the qualitative feedback derived from the sub-scores.
type Insights struct {
	Strengths          []string       `json:"strengths"`
	Weaknesses         []string       `json:"weaknesses"`
	Recommendations    []string       `json:"recommendations"`
	InterviewQuestions []string       `json:"interviewQuestions"`
	MissingSkills      []string       `json:"missingSkills"`
	KeywordSuggestions []string       `json:"keywordSuggestions"`
	RecommendedRoles   []string       `json:"recommendedRoles"`
	LearningPaths      []LearningPath `json:"learningPaths"`
	Summary            string         `json:"summary"`
	CareerLevelFit     string         `json:"careerLevelFit"`
	BoostScoreActions  []BoostAction  `json:"boostScoreActions"`
}

// Result is the complete output of one resume/job analysis.
type Result struct {
	OverallScore       int                `json:"overallScore"`
	SkillsMatch        SkillsMatch        `json:"skillsMatch"`
	ExperienceMatch    ExperienceMatch    `json:"experienceMatch"`
	EducationMatch     EducationMatch     `json:"educationMatch"`
	SemanticSimilarity SemanticSimilarity `json:"semanticSimilarity"`
	Insights           Insights           `json:"insights"`
	AnalysisDate       time.Time          `json:"analysisDate"`
	ProcessingTimeMs   int64              `json:"processingTime"`
	ModelVersion       string             `json:"modelVersion"`
}

// IsFallback reports whether the result came from the network-free path.
func (r Result) IsFallback() bool {
	return strings.HasSuffix(r.ModelVersion, "-fallback")
}

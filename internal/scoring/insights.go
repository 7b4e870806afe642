package scoring

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	strengthThreshold = 80
	weaknessThreshold = 60

	learningSearchURL = "https://www.google.com/search?q="

	missingSkillImpact    = 8
	additionalSkillImpact = 5
)

// InsightInput is what the insight generator reads.
type InsightInput struct {
	SkillsMatch     SkillsMatch
	ExperienceMatch ExperienceMatch
	EducationMatch  EducationMatch
	OverallScore    int
}

type scoreBand int

const (
	bandLow scoreBand = iota
	bandFair
	bandGood
	bandExcellent
)

func bandFor(overall int) scoreBand {
	switch {
	case overall >= 85:
		return bandExcellent
	case overall >= 70:
		return bandGood
	case overall >= 50:
		return bandFair
	default:
		return bandLow
	}
}

var bandRecommendations = map[scoreBand][]string{
	bandExcellent: {
		"Strong candidate: schedule an interview promptly",
		"Fast-track to the technical assessment stage",
	},
	bandGood: {
		"Good candidate: proceed with a technical interview",
		"Probe the missing skills during the interview",
	},
	bandFair: {
		"Moderate fit: consider a short screening call",
		"Verify depth of experience before advancing",
	},
	bandLow: {
		"Limited fit for this role",
		"Keep the profile on file for better-suited openings",
	},
}

var bandRoles = map[scoreBand][]string{
	bandExcellent: {"Senior Developer", "Lead Developer"},
	bandGood:      {"Mid-level Developer", "Senior Developer"},
	bandFair:      {"Junior Developer", "Mid-level Developer"},
	bandLow:       {"Junior Developer"},
}

var bandCareerFit = map[scoreBand]string{
	bandExcellent: "Excellent fit: profile matches or exceeds the level this role targets",
	bandGood:      "Good fit: profile aligns with the role with minor gaps",
	bandFair:      "Partial fit: profile suits a step below the level this role targets",
	bandLow:       "Early-career fit: profile suits entry-level opportunities",
}

// GenerateInsights derives strengths, weaknesses, and suggestions from the
// computed sub-scores. It performs no I/O.
func GenerateInsights(in InsightInput) Insights {
	skills := in.SkillsMatch
	experience := in.ExperienceMatch
	education := in.EducationMatch

	strengths := []string{}
	weaknesses := []string{}

	if skills.Score >= strengthThreshold {
		msg := fmt.Sprintf("Strong skills alignment: %d of %d required skills matched", skills.Details.RequiredMatched, skills.Details.RequiredTotal)
		if extra := firstN(skills.AdditionalSkills, 3); len(extra) > 0 {
			msg += ", plus additional skills in " + strings.Join(extra, ", ")
		}
		strengths = append(strengths, msg)
	} else if skills.Score < weaknessThreshold {
		if missing := firstN(skills.MissingSkills, 3); len(missing) > 0 {
			weaknesses = append(weaknesses, "Missing key skills: "+strings.Join(missing, ", "))
		} else {
			weaknesses = append(weaknesses, "Limited overlap with the required skills")
		}
	}

	if experience.Score >= strengthThreshold {
		strengths = append(strengths, fmt.Sprintf("Experience level fits the role well (about %d years detected)", experience.EstimatedYears))
	} else if experience.Score < weaknessThreshold {
		if experience.ExperienceGap != "" {
			weaknesses = append(weaknesses, "Experience gap: "+experience.ExperienceGap)
		} else {
			weaknesses = append(weaknesses, "Experience level may be below what the role expects")
		}
	}

	if education.Score >= strengthThreshold {
		if education.EducationLevel != "" {
			strengths = append(strengths, fmt.Sprintf("Educational background meets requirements (%s)", education.EducationLevel))
		} else {
			strengths = append(strengths, "Educational background meets requirements")
		}
	} else if education.Score < weaknessThreshold {
		weaknesses = append(weaknesses, "Educational background may not fully meet the stated qualifications")
	}

	band := bandFor(in.OverallScore)

	questions := []string{}
	if len(skills.MissingSkills) > 0 {
		questions = append(questions, fmt.Sprintf("How would you approach getting up to speed with %s?", skills.MissingSkills[0]))
	}
	if experience.EstimatedYears < 3 {
		questions = append(questions, "Can you walk us through a project where you owned the outcome end to end?")
	}
	if len(skills.AdditionalSkills) > 0 {
		questions = append(questions, fmt.Sprintf("How have you applied %s in your recent work?", skills.AdditionalSkills[0]))
	}
	questions = append(questions, "What interests you most about this role?")

	keywords := newOrderedSet()
	for _, s := range firstN(skills.MissingSkills, 5) {
		keywords.add(s)
	}
	for _, s := range firstN(skills.MatchedSkills, 5) {
		keywords.add(s)
	}

	paths := []LearningPath{}
	for _, s := range firstN(skills.MissingSkills, 5) {
		paths = append(paths, LearningPath{
			Title: "Learn " + s,
			URL:   learningSearchURL + url.QueryEscape(s+" tutorial"),
		})
	}

	actions := []BoostAction{}
	for _, s := range firstN(skills.MissingSkills, 3) {
		actions = append(actions, BoostAction{Action: fmt.Sprintf("Complete a project using %s", s), Impact: missingSkillImpact})
	}
	for _, s := range firstN(skills.AdditionalSkills, 2) {
		actions = append(actions, BoostAction{Action: fmt.Sprintf("Highlight %s in your summary", s), Impact: additionalSkillImpact})
	}

	return Insights{
		Strengths:          strengths,
		Weaknesses:         weaknesses,
		Recommendations:    append([]string(nil), bandRecommendations[band]...),
		InterviewQuestions: questions,
		MissingSkills:      append([]string{}, skills.MissingSkills...),
		KeywordSuggestions: keywords.items(),
		RecommendedRoles:   append([]string(nil), bandRoles[band]...),
		LearningPaths:      paths,
		Summary: fmt.Sprintf("Overall match of %d%% (skills %d%%, experience %d%%, education %d%%).",
			in.OverallScore, skills.Score, experience.Score, education.Score),
		CareerLevelFit:    bandCareerFit[band],
		BoostScoreActions: actions,
	}
}

// fallbackInsights is the fixed feedback attached to network-free results.
func fallbackInsights(overall int) Insights {
	return Insights{
		Strengths:          []string{"Basic analysis completed"},
		Weaknesses:         []string{"Detailed analysis unavailable"},
		Recommendations:    []string{"Manual review recommended"},
		InterviewQuestions: []string{"Tell us about your most relevant experience for this role."},
		MissingSkills:      []string{},
		KeywordSuggestions: []string{},
		RecommendedRoles:   []string{},
		LearningPaths:      []LearningPath{},
		Summary:            fmt.Sprintf("Basic analysis completed with an overall score of %d%%.", overall),
		CareerLevelFit:     "Unable to determine",
		BoostScoreActions:  []BoostAction{},
	}
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

package scoring

import "strings"

const (
	qualificationDefault = 50
	qualificationMet     = 100
	qualificationMissed  = 30
	fieldBonus           = 20
)

// MatchEducation scores the highest degree found in the resume against the
// degree language in the job qualifications.
func MatchEducation(resumeText string, qualifications []string) EducationMatch {
	text := strings.ToLower(resumeText)

	foundEducation := ""
	maxEducationScore := 0
	for _, level := range EducationLevels {
		if level.Score > maxEducationScore && strings.Contains(text, level.Keyword) {
			foundEducation = level.Keyword
			maxEducationScore = level.Score
		}
	}

	relevantField := ""
	for _, field := range TechnicalFields {
		if strings.Contains(text, field) {
			relevantField = field
			break
		}
	}
	bonus := 0
	if relevantField != "" {
		bonus = fieldBonus
	}

	qualificationMatch := qualificationDefault
	if required, ok := requiredEducationScore(qualifications); ok {
		if maxEducationScore >= required {
			qualificationMatch = qualificationMet
		} else {
			qualificationMatch = qualificationMissed
		}
	}

	finalScore := clampScore(qualificationMatch + bonus)

	relevant := []RelevantEducation{}
	if foundEducation != "" {
		relevant = append(relevant, RelevantEducation{
			Degree: foundEducation,
			Field:  relevantField,
			Score:  finalScore,
		})
	}

	return EducationMatch{
		Score:             finalScore,
		EducationLevel:    foundEducation,
		RelevantField:     relevantField,
		RelevantEducation: relevant,
	}
}

// requiredEducationScore returns the minimum degree rank implied by the
// qualification text, checking the strictest wording first.
func requiredEducationScore(qualifications []string) (int, bool) {
	text := strings.ToLower(strings.Join(qualifications, " "))
	switch {
	case strings.Contains(text, "phd") || strings.Contains(text, "doctorate"):
		return 100, true
	case strings.Contains(text, "master"):
		return 80, true
	case strings.Contains(text, "degree") || strings.Contains(text, "bachelor") || strings.Contains(text, "university"):
		return 60, true
	default:
		return 0, false
	}
}

package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// gapClearScore is the score at or above which no experience gap is reported.
const gapClearScore = 60

var yearsPattern = regexp.MustCompile(`(\d+)\+?\s*years?`)

type levelFormula struct {
	indicatorWeight int
	yearsWeight     int
	seniorityWeight int
	gapBelow        int
	gapMessage      string
}

var levelFormulas = map[ExperienceLevel]levelFormula{
	LevelEntry: {
		indicatorWeight: 10, yearsWeight: 15,
		gapBelow:   40,
		gapMessage: "Lacks sufficient entry-level experience indicators",
	},
	LevelMid: {
		indicatorWeight: 8, yearsWeight: 10,
		gapBelow:   50,
		gapMessage: "May need more mid-level experience (typically 2-5 years)",
	},
	LevelSenior: {
		indicatorWeight: 6, yearsWeight: 8, seniorityWeight: 10,
		gapBelow:   60,
		gapMessage: "Requires more senior-level experience and technical leadership",
	},
	LevelLead: {
		indicatorWeight: 5, yearsWeight: 6, seniorityWeight: 15,
		gapBelow:   70,
		gapMessage: "Needs more demonstrated leadership and team management experience",
	},
	LevelExecutive: {
		indicatorWeight: 4, yearsWeight: 5, seniorityWeight: 20,
		gapBelow:   80,
		gapMessage: "Requires executive-level leadership and strategic experience",
	},
}

var defaultLevelFormula = levelFormula{
	indicatorWeight: 10, yearsWeight: 10,
	gapBelow:   50,
	gapMessage: "Experience level could not be clearly matched",
}

// MatchExperience estimates how well the resume's experience fits the target
// level. Word counts are substring counts, so "led" also counts inside
// "skilled". The job description argument is accepted but unused; the level
// carries the target.
func MatchExperience(resumeText, _ string, level ExperienceLevel) ExperienceMatch {
	text := strings.ToLower(resumeText)

	indicators := countOccurrences(text, ExperienceIndicators)
	seniority := countOccurrences(text, SeniorityTerms)
	years := maxYears(text)

	formula, ok := levelFormulas[ExperienceLevel(strings.ToLower(string(level)))]
	if !ok {
		formula = defaultLevelFormula
	}
	score := clampScore(min(indicators, 100)*formula.indicatorWeight +
		min(years, 100)*formula.yearsWeight +
		min(seniority, 100)*formula.seniorityWeight)

	gap := ""
	if score < formula.gapBelow {
		gap = formula.gapMessage
	}
	if score >= gapClearScore {
		gap = ""
	}

	return ExperienceMatch{
		Score:               score,
		EstimatedYears:      years,
		SeniorityIndicators: seniority,
		ExperienceGap:       gap,
	}
}

func countOccurrences(text string, terms []string) int {
	total := 0
	for _, term := range terms {
		total += strings.Count(text, term)
	}
	return total
}

func maxYears(text string) int {
	best := 0
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

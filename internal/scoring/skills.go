package scoring

import (
	"math"
	"strings"
)

// SkillMatcher decides whether a resume skill covers a job skill. Both
// arguments are already lowercased.
type SkillMatcher func(resumeSkill, jobSkill string) bool

// ContainsMatcher matches when either skill contains the other, so "node"
// covers "node.js". It also lets "java" cover "javascript".
func ContainsMatcher(resumeSkill, jobSkill string) bool {
	return strings.Contains(jobSkill, resumeSkill) || strings.Contains(resumeSkill, jobSkill)
}

// MatchSkills scores resume skills against the job's required and preferred
// lists using ContainsMatcher.
func MatchSkills(resumeSkills, requiredSkills, preferredSkills []string) SkillsMatch {
	return MatchSkillsWith(ContainsMatcher, resumeSkills, requiredSkills, preferredSkills)
}

// MatchSkillsWith is MatchSkills with a caller-supplied matching strategy.
func MatchSkillsWith(match SkillMatcher, resumeSkills, requiredSkills, preferredSkills []string) SkillsMatch {
	if match == nil {
		match = ContainsMatcher
	}
	resume := normalizeSkills(resumeSkills)
	required := normalizeSkills(requiredSkills)
	preferred := normalizeSkills(preferredSkills)

	covered := func(jobSkill string) bool {
		for _, rs := range resume {
			if match(rs, jobSkill) {
				return true
			}
		}
		return false
	}

	matched := newOrderedSet()
	missing := newOrderedSet()
	requiredMatched := 0
	for _, skill := range required {
		if covered(skill) {
			requiredMatched++
			matched.add(skill)
		} else {
			missing.add(skill)
		}
	}
	preferredMatched := 0
	for _, skill := range preferred {
		if covered(skill) {
			preferredMatched++
			matched.add(skill)
		} else {
			missing.add(skill)
		}
	}

	additional := newOrderedSet()
	for _, rs := range resume {
		related := false
		for _, js := range required {
			if match(rs, js) {
				related = true
				break
			}
		}
		if !related {
			for _, js := range preferred {
				if match(rs, js) {
					related = true
					break
				}
			}
		}
		if !related {
			additional.add(rs)
		}
	}

	requiredScore := percentOrFull(requiredMatched, len(required))
	preferredScore := percentOrFull(preferredMatched, len(preferred))

	return SkillsMatch{
		Score:            clampScore(int(math.Round(requiredScore*0.8 + preferredScore*0.2))),
		MatchedSkills:    matched.items(),
		MissingSkills:    missing.items(),
		AdditionalSkills: additional.items(),
		Details: SkillsDetails{
			RequiredMatched:  requiredMatched,
			RequiredTotal:    len(required),
			PreferredMatched: preferredMatched,
			PreferredTotal:   len(preferred),
		},
	}
}

// ExtractSkills returns the KnownSkills found in the resume text, in table order.
func ExtractSkills(resumeText string) []string {
	text := strings.ToLower(resumeText)
	out := make([]string, 0, 8)
	for _, skill := range KnownSkills {
		if strings.Contains(text, skill) {
			out = append(out, skill)
		}
	}
	return out
}

// percentOrFull treats an empty requirement list as fully satisfied.
func percentOrFull(matched, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(matched) / float64(total) * 100
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if trimmed := strings.ToLower(strings.TrimSpace(s)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), order: []string{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *orderedSet) items() []string {
	return s.order
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

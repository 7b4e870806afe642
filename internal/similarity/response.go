package similarity

import (
	"encoding/json"
	"fmt"
	"math"
)

// parseScore accepts a bare number, [n], [[n]], or an object with a score
// or similarity field. Missing or falsy values yield 0.
func parseScore(body []byte) (float64, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("similarity response parse: %w", err)
	}
	return rawScore(raw), nil
}

func rawScore(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case []any:
		if len(t) == 0 {
			return 0
		}
		return rawScore(t[0])
	case map[string]any:
		for _, key := range []string{"score", "similarity", "similarity_score"} {
			if val, ok := t[key]; ok {
				return rawScore(val)
			}
		}
		return 0
	default:
		return 0
	}
}

// toPercent converts a 0-1 similarity to an integer percentage in [0,100].
func toPercent(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	p := int(math.Round(raw * 100))
	return min(max(p, 0), 100)
}

package grading

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Criteria are the rubric keys the judge must score.
var Criteria = []string{"accuracy", "relevance", "coherence"}

// ParseMode tags which parsing path produced the scores.
type ParseMode string

const (
	// ParseModeJSON means the judge reply decoded as a structured object,
	// either directly or from an embedded {...} span.
	ParseModeJSON ParseMode = "json"
	// ParseModeRegex means scores were salvaged by the key/value scan.
	ParseModeRegex ParseMode = "regex"
	// ParseModeFailed means no usable scores were found.
	ParseModeFailed ParseMode = "failed"
)

// scorePattern matches "criterion: 0.8" or "criterion = 0.8" with word
// boundaries so e.g. "inaccuracy" does not match.
var scorePattern = regexp.MustCompile(
	`(?i)\b(accuracy|relevance|coherence)\b\s*[:=]\s*(-?\d+(?:\.\d+)?)`)

// parseScores extracts criterion scores from free-form judge output. The
// parse is layered: strict JSON decode of the whole reply, then the first
// {...} span, then the regex scan. Scores are rounded to one decimal and
// clamped to [0,1]. Missing or non-numeric criteria are reported in the
// error string so callers can tell "scored 0.0" from "unscored".
func parseScores(text string) (map[string]float64, ParseMode, string) {
	raw, mode := rawValues(text)

	scores := make(map[string]float64)
	var missing, invalid []string
	for _, key := range Criteria {
		value, ok := raw[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		numeric, err := toFloat(value)
		if err != nil {
			invalid = append(invalid, key)
			continue
		}
		numeric = math.Round(numeric*10) / 10
		scores[key] = clamp(numeric, 0, 1)
	}

	var errParts []string
	if len(invalid) > 0 {
		sort.Strings(invalid)
		errParts = append(errParts, "Invalid numeric value for: "+strings.Join(invalid, ", "))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		errParts = append(errParts, "Missing scores for: "+strings.Join(missing, ", "))
	}
	if len(scores) == 0 {
		mode = ParseModeFailed
		errParts = append(errParts, "Grader response did not contain usable scores.")
	}
	return scores, mode, strings.Join(errParts, " ")
}

// rawValues pulls criterion→value pairs out of the reply text, tagging how
// they were found.
func rawValues(text string) (map[string]any, ParseMode) {
	if obj := extractJSONObject(text); obj != nil {
		lowered := make(map[string]any, len(obj))
		for key, value := range obj {
			lowered[strings.ToLower(key)] = value
		}
		return lowered, ParseModeJSON
	}

	raw := make(map[string]any)
	for _, match := range scorePattern.FindAllStringSubmatch(text, -1) {
		raw[strings.ToLower(match[1])] = match[2]
	}
	return raw, ParseModeRegex
}

// extractJSONObject parses a JSON object from the reply, accepting either
// the full text or the first {...} span within it.
func extractJSONObject(text string) map[string]any {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		return parsed
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start == -1 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &parsed); err != nil {
		return nil
	}
	return parsed
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case json.Number:
		return n.Float64()
	default:
		return 0, strconv.ErrSyntax
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

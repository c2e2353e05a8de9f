package evaluate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrEvaluationDeclined indicates the judge refused to score the image. A
// declined evaluation is never turned into a fabricated score.
var ErrEvaluationDeclined = errors.New("evaluate: judge declined to score")

// ErrUnparseable indicates no score could be recovered from the judge output.
var ErrUnparseable = errors.New("evaluate: unparseable judge response")

var refusalPhrases = []string{
	"i cannot",
	"i can't",
	"i'm unable",
	"i am unable",
	"i'm sorry",
	"i am sorry",
	"cannot assist",
	"not able to evaluate",
	"refuse",
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

type scoredPayload struct {
	Analysis map[string]string          `json:"analysis"`
	Scores   map[string]json.RawMessage `json:"scores"`
}

type pairedPayload struct {
	Analysis map[string]string `json:"analysis"`
	Scores   struct {
		Image1 map[string]float64 `json:"image1"`
		Image2 map[string]float64 `json:"image2"`
	} `json:"scores"`
}

// isRefusal applies phrase heuristics against the raw judge output.
func isRefusal(raw string) bool {
	lowered := strings.ToLower(raw)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// clampScore forces a criteria score into [0,10] and reports how far the
// original value sat outside the range.
func clampScore(v float64) (float64, float64) {
	if v < 0 {
		return 0, -v
	}
	if v > 10 {
		return 10, v - 10
	}
	return v, 0
}

// annotateClamp appends the total out-of-range adjustment to the stored judge
// output so the amount of clamping survives alongside the flag.
func annotateClamp(raw string, delta float64) string {
	if delta <= 0 {
		return raw
	}
	return fmt.Sprintf("%s\n[judge scores clamped into [0,10]; total adjustment %.2f]", raw, delta)
}

// parseCriteriaScores recovers a per-category score map from the judge
// response. It tries strict JSON first, then a brace-delimited fragment, then
// bare numbers in criteria order. All scores are clamped into [0,10]; the
// second return value is the total amount clamped away.
func parseCriteriaScores(raw string, criteria CriteriaSet) (map[string]float64, float64, error) {
	if isRefusal(raw) {
		return nil, 0, ErrEvaluationDeclined
	}

	fragment := extractJSONFragment(raw)
	if fragment != "" {
		var payload scoredPayload
		if err := json.Unmarshal([]byte(fragment), &payload); err == nil && len(payload.Scores) > 0 {
			scores, clamp := normalizeScores(payload.Scores, criteria)
			if len(scores) > 0 {
				return scores, clamp, nil
			}
		}
	}

	scores, clamp := numericFallback(raw, criteria)
	if len(scores) == 0 {
		return nil, 0, ErrUnparseable
	}
	return scores, clamp, nil
}

// parsePairedScores recovers scores for the generated (image1) and reference
// (image2) images from a comparison response. clamp is the total amount
// clamped away across both maps.
func parsePairedScores(raw string, criteria CriteriaSet) (gen, ref map[string]float64, clamp float64, err error) {
	if isRefusal(raw) {
		return nil, nil, 0, ErrEvaluationDeclined
	}

	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return nil, nil, 0, ErrUnparseable
	}
	var payload pairedPayload
	if jsonErr := json.Unmarshal([]byte(fragment), &payload); jsonErr != nil {
		return nil, nil, 0, ErrUnparseable
	}
	if len(payload.Scores.Image1) == 0 || len(payload.Scores.Image2) == 0 {
		return nil, nil, 0, ErrUnparseable
	}

	gen, genClamp := clampAll(payload.Scores.Image1, criteria)
	ref, refClamp := clampAll(payload.Scores.Image2, criteria)
	return gen, ref, genClamp + refClamp, nil
}

func normalizeScores(raw map[string]json.RawMessage, criteria CriteriaSet) (map[string]float64, float64) {
	out := make(map[string]float64, len(raw))
	clamp := 0.0
	for _, category := range criteria.Categories {
		value, ok := raw[category]
		if !ok {
			continue
		}
		score, ok := decodeNumber(value)
		if !ok {
			continue
		}
		score, delta := clampScore(score)
		out[category] = score
		clamp += delta
	}
	return out, clamp
}

func clampAll(raw map[string]float64, criteria CriteriaSet) (map[string]float64, float64) {
	out := make(map[string]float64, len(raw))
	clamp := 0.0
	for _, category := range criteria.Categories {
		value, ok := raw[category]
		if !ok {
			continue
		}
		score, delta := clampScore(value)
		out[category] = score
		clamp += delta
	}
	return out, clamp
}

func decodeNumber(raw json.RawMessage) (float64, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// numericFallback pairs bare numbers in the response with criteria categories
// in declaration order. Partial matches are acceptable.
func numericFallback(raw string, criteria CriteriaSet) (map[string]float64, float64) {
	matches := numberPattern.FindAllString(raw, len(criteria.Categories))
	if len(matches) == 0 {
		return nil, 0
	}
	out := make(map[string]float64, len(matches))
	clamp := 0.0
	for i, match := range matches {
		if i >= len(criteria.Categories) {
			break
		}
		value, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		score, delta := clampScore(value)
		out[criteria.Categories[i]] = score
		clamp += delta
	}
	return out, clamp
}

// extractJSONFragment pulls the outermost JSON object out of free-form model
// output, trimming markdown code fences first.
func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

package engine

import (
	"math"
	"sort"

	"portraitlab/internal/domain"
)

type scoredPrompt struct {
	prompt    string
	score     float64
	createdAt int64
	order     int
}

// SelectTopPrompts returns the prompts behind the top keepTopPercent fraction
// of scored results, where N counts results that received a non-nil score.
// The kept count is keepTopPercent*N rounded to nearest, never below one.
// Ordering is score descending with ties broken by earliest result creation
// time. The pool is a set: a prompt backing several kept results appears
// once, at its first position. The selection is deterministic, so reapplying
// it to its own output with keepTopPercent=1.0 is a no-op.
func SelectTopPrompts(results []domain.GeneratedResult, evaluations []domain.Evaluation, keepTopPercent float64) []string {
	scores := make(map[string]float64, len(evaluations))
	for _, evaluation := range evaluations {
		if evaluation.Scored() {
			scores[evaluation.ResultID] = evaluation.Score()
		}
	}

	candidates := make([]scoredPrompt, 0, len(scores))
	for i, result := range results {
		score, ok := scores[result.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, scoredPrompt{
			prompt:    result.PromptUsed,
			score:     score,
			createdAt: result.CreatedAt.UnixNano(),
			order:     i,
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].createdAt != candidates[j].createdAt {
			return candidates[i].createdAt < candidates[j].createdAt
		}
		return candidates[i].order < candidates[j].order
	})

	if keepTopPercent <= 0 {
		keepTopPercent = 1
	}
	if keepTopPercent > 1 {
		keepTopPercent = 1
	}
	// Round to nearest so 0.34 of 6 keeps 2, never 0.
	keep := int(math.Round(keepTopPercent * float64(len(candidates))))
	if keep < 1 {
		keep = 1
	}
	if keep > len(candidates) {
		keep = len(candidates)
	}

	prompts := make([]string, 0, keep)
	seen := make(map[string]struct{}, keep)
	for _, candidate := range candidates[:keep] {
		if _, dup := seen[candidate.prompt]; dup {
			continue
		}
		seen[candidate.prompt] = struct{}{}
		prompts = append(prompts, candidate.prompt)
	}
	return prompts
}

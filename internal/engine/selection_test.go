package engine

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"portraitlab/internal/domain"
)

func scoredResult(id, prompt string, createdAt time.Time) domain.GeneratedResult {
	return domain.GeneratedResult{
		ID:         id,
		PromptUsed: prompt,
		Status:     domain.ResultSucceeded,
		CreatedAt:  createdAt,
	}
}

func evaluation(resultID string, score float64) domain.Evaluation {
	return domain.Evaluation{ResultID: resultID, OverallScore: domain.ScoreRef(score)}
}

func TestSelectTopPromptsHappyPath(t *testing.T) {
	base := time.Now()
	var results []domain.GeneratedResult
	var evaluations []domain.Evaluation
	// Two photos by three prompts: six scored results.
	scores := []float64{4, 9, 6, 8, 5, 7}
	for i, score := range scores {
		id := fmt.Sprintf("r%d", i)
		results = append(results, scoredResult(id, fmt.Sprintf("prompt-%d", i), base.Add(time.Duration(i)*time.Second)))
		evaluations = append(evaluations, evaluation(id, score))
	}

	prompts := SelectTopPrompts(results, evaluations, 0.34)
	if len(prompts) != 2 {
		t.Fatalf("0.34 of 6 keeps 2 prompts, got %d", len(prompts))
	}
	if prompts[0] != "prompt-1" || prompts[1] != "prompt-3" {
		t.Fatalf("selection order wrong: %v", prompts)
	}
}

func TestSelectTopPromptsTieBreakByCreation(t *testing.T) {
	base := time.Now()
	results := []domain.GeneratedResult{
		scoredResult("late", "late-prompt", base.Add(time.Minute)),
		scoredResult("early", "early-prompt", base),
	}
	evaluations := []domain.Evaluation{
		evaluation("late", 7),
		evaluation("early", 7),
	}

	prompts := SelectTopPrompts(results, evaluations, 0.5)
	if len(prompts) != 1 || prompts[0] != "early-prompt" {
		t.Fatalf("earliest created result should win the tie, got %v", prompts)
	}
}

func TestSelectTopPromptsIdempotentAtFullKeep(t *testing.T) {
	base := time.Now()
	var results []domain.GeneratedResult
	var evaluations []domain.Evaluation
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("r%d", i)
		results = append(results, scoredResult(id, fmt.Sprintf("prompt-%d", i), base.Add(time.Duration(i)*time.Second)))
		evaluations = append(evaluations, evaluation(id, 5))
	}

	first := SelectTopPrompts(results, evaluations, 1.0)
	second := SelectTopPrompts(results, evaluations, 1.0)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("selection not deterministic: %v vs %v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("full keep should retain all prompts, got %d", len(first))
	}
}

func TestSelectTopPromptsDeduplicates(t *testing.T) {
	base := time.Now()
	// Two photos generated with the same prompt both score at the top.
	results := []domain.GeneratedResult{
		scoredResult("r0", "winning prompt", base),
		scoredResult("r1", "winning prompt", base.Add(time.Second)),
		scoredResult("r2", "weak prompt", base.Add(2*time.Second)),
		scoredResult("r3", "middling prompt", base.Add(3*time.Second)),
	}
	evaluations := []domain.Evaluation{
		evaluation("r0", 9),
		evaluation("r1", 8),
		evaluation("r2", 2),
		evaluation("r3", 7),
	}

	prompts := SelectTopPrompts(results, evaluations, 0.5)
	if len(prompts) != 1 || prompts[0] != "winning prompt" {
		t.Fatalf("pool must hold each prompt once, got %v", prompts)
	}

	full := SelectTopPrompts(results, evaluations, 1.0)
	if !reflect.DeepEqual(full, []string{"winning prompt", "middling prompt", "weak prompt"}) {
		t.Fatalf("full keep should dedupe in rank order, got %v", full)
	}
}

func TestSelectTopPromptsSkipsUnscoredAndFailed(t *testing.T) {
	base := time.Now()
	failed := scoredResult("f", "failed-prompt", base)
	failed.Status = domain.ResultFailed
	results := []domain.GeneratedResult{
		failed,
		scoredResult("pending", "pending-prompt", base),
		scoredResult("ok", "ok-prompt", base),
	}
	evaluations := []domain.Evaluation{
		{ResultID: "pending"}, // nil score: deferred manual evaluation
		evaluation("ok", 6),
	}

	prompts := SelectTopPrompts(results, evaluations, 1.0)
	if len(prompts) != 1 || prompts[0] != "ok-prompt" {
		t.Fatalf("only scored results may be selected, got %v", prompts)
	}
}

func TestSelectTopPromptsEmpty(t *testing.T) {
	if prompts := SelectTopPrompts(nil, nil, 0.5); prompts != nil {
		t.Fatalf("expected nil for empty input, got %v", prompts)
	}
}

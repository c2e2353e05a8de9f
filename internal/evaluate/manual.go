package evaluate

import (
	"context"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
)

// ManualEvaluator defers scoring to a human. It emits one pending evaluation
// per usable result with a nil overall score; the controller pauses the run
// afterwards when auto-pause is configured.
type ManualEvaluator struct{}

// NewManualEvaluator builds the deferred evaluator.
func NewManualEvaluator() *ManualEvaluator {
	return &ManualEvaluator{}
}

// Evaluate fulfils the Evaluator interface.
func (e *ManualEvaluator) Evaluate(_ context.Context, results []domain.GeneratedResult) ([]domain.Evaluation, error) {
	evaluations := make([]domain.Evaluation, 0, len(results))
	for _, result := range results {
		if result.Failed() {
			continue
		}
		evaluations = append(evaluations, domain.Evaluation{
			ResultID: result.ID,
			Strategy: jsoncfg.EvaluationManual,
		})
	}
	return evaluations, nil
}

var _ Evaluator = (*ManualEvaluator)(nil)

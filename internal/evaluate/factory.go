package evaluate

import (
	"fmt"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
)

// NewEvaluator resolves the run config's evaluation strategy name into an
// Evaluator. Judge credentials are validated by the caller before the judge
// reaches this factory.
func NewEvaluator(cfg jsoncfg.EvaluationConfig, opts RubricOptions) (Evaluator, error) {
	opts.Config = cfg
	switch cfg.Strategy {
	case jsoncfg.EvaluationRubric:
		return NewRubricEvaluator(opts)
	case jsoncfg.EvaluationSimilarity:
		return NewSimilarityEvaluator(opts)
	case jsoncfg.EvaluationManual:
		return NewManualEvaluator(), nil
	default:
		return nil, fmt.Errorf("%w: unknown evaluation strategy %q", domain.ErrInvalidConfig, cfg.Strategy)
	}
}

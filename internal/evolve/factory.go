package evolve

import (
	"fmt"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/infra"
)

// NewStrategy resolves the run config's evolution strategy name. The refiner
// is optional and only used by the variation strategy.
func NewStrategy(cfg jsoncfg.EvolutionConfig, refiner Refiner, logger *infra.Logger) (Strategy, error) {
	switch cfg.Strategy {
	case jsoncfg.EvolutionVariation:
		return NewVariationStrategy(VariationOptions{
			Count:    cfg.Count,
			Strength: cfg.Strength,
			Refiner:  refiner,
			Logger:   logger,
		}), nil
	case jsoncfg.EvolutionEvolutionary:
		return NewEvolutionaryStrategy(EvolutionaryOptions{
			Count:        cfg.Count,
			MutationRate: cfg.MutationRate,
		}), nil
	case jsoncfg.EvolutionRandom:
		return NewRandomStrategy(cfg.Count, 0), nil
	case jsoncfg.EvolutionChained:
		return NewChainedStrategy(cfg.Count, 0), nil
	default:
		return nil, fmt.Errorf("%w: unknown evolution strategy %q", domain.ErrInvalidConfig, cfg.Strategy)
	}
}

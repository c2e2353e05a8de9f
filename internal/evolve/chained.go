package evolve

import (
	"context"
	"fmt"
	"math/rand"
)

var refinementDirections = []string{
	"sharpen the facial details and eye highlights",
	"deepen the color saturation and contrast",
	"simplify the background to push focus onto the pet",
	"soften the edges for a more painterly finish",
	"strengthen the signature elements of the style",
}

// ChainedStrategy refines the previous round's prompts in place, annotating
// each offspring with its round index so lineage stays readable.
type ChainedStrategy struct {
	count int
	rng   *rand.Rand
}

// NewChainedStrategy builds the chained refinement strategy.
func NewChainedStrategy(count int, seed int64) *ChainedStrategy {
	return &ChainedStrategy{count: boundCount(count), rng: newRand(seed)}
}

// NextPrompts fulfils the Strategy interface.
func (s *ChainedStrategy) NextPrompts(_ context.Context, best []string, round int) ([]string, error) {
	parents := trimAll(best)
	if len(parents) == 0 {
		parents = DefaultSeedPrompts
	}
	prompts := make([]string, 0, s.count)
	for i := 0; i < s.count; i++ {
		parent := parents[i%len(parents)]
		prompts = append(prompts, fmt.Sprintf("%s. Round %d refinement: %s.",
			parent, round, pick(s.rng, refinementDirections)))
	}
	return prompts, nil
}

var _ Strategy = (*ChainedStrategy)(nil)

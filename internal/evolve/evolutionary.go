package evolve

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

var mutationPhrases = []string{
	"an unexpected splash of metallic accents",
	"a dreamlike atmospheric haze",
	"subtle folk-art pattern details",
	"a cinematic depth-of-field blur",
	"hand-painted texture imperfections",
}

// EvolutionaryOptions wires an EvolutionaryStrategy.
type EvolutionaryOptions struct {
	Count        int
	MutationRate float64
	Seed         int64
}

// EvolutionaryStrategy blends two random parents per offspring and applies
// mutation-rate-driven novelty. No offspring is ever byte-identical to a
// parent.
type EvolutionaryStrategy struct {
	count        int
	mutationRate float64
	rng          *rand.Rand
}

// NewEvolutionaryStrategy builds the evolutionary strategy.
func NewEvolutionaryStrategy(opts EvolutionaryOptions) *EvolutionaryStrategy {
	rate := opts.MutationRate
	if rate <= 0 {
		rate = 0.3
	}
	if rate > 1 {
		rate = 1
	}
	return &EvolutionaryStrategy{
		count:        boundCount(opts.Count),
		mutationRate: rate,
		rng:          newRand(opts.Seed),
	}
}

// NextPrompts fulfils the Strategy interface.
func (s *EvolutionaryStrategy) NextPrompts(_ context.Context, best []string, _ int) ([]string, error) {
	parents := trimAll(best)
	if len(parents) == 0 {
		parents = DefaultSeedPrompts
	}

	offspring := make([]string, 0, s.count)
	for i := 0; i < s.count; i++ {
		a := parents[s.rng.Intn(len(parents))]
		b := parents[s.rng.Intn(len(parents))]
		child := s.crossover(a, b)
		if s.rng.Float64() < s.mutationRate {
			child = s.mutate(child)
		}
		for containsPrompt(parents, child) {
			child = s.mutate(child)
		}
		offspring = append(offspring, child)
	}
	return offspring, nil
}

// crossover splits both parents on clause boundaries and interleaves halves.
func (s *EvolutionaryStrategy) crossover(a, b string) string {
	partsA := splitClauses(a)
	partsB := splitClauses(b)
	head := partsA[:(len(partsA)+1)/2]
	tail := partsB[len(partsB)/2:]
	return strings.Join(append(append([]string{}, head...), tail...), ", ")
}

func (s *EvolutionaryStrategy) mutate(prompt string) string {
	return fmt.Sprintf("%s, featuring %s", prompt, pick(s.rng, mutationPhrases))
}

func splitClauses(prompt string) []string {
	raw := strings.Split(prompt, ",")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{strings.TrimSpace(prompt)}
	}
	return parts
}

var _ Strategy = (*EvolutionaryStrategy)(nil)

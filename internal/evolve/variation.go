package evolve

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"portraitlab/internal/infra"
)

var lightingModifiers = []string{
	"soft golden hour lighting",
	"dramatic studio lighting",
	"diffused overcast light",
	"warm candlelight glow",
	"bright airy daylight",
}

var compositionModifiers = []string{
	"a centered close-up portrait",
	"rule-of-thirds framing",
	"a low-angle heroic composition",
	"a tight head-and-shoulders crop",
	"generous negative space around the subject",
}

var colorModifiers = []string{
	"a warm earth-tone palette",
	"a cool pastel palette",
	"rich jewel tones",
	"muted vintage colors",
	"high-contrast complementary colors",
}

// VariationOptions wires a VariationStrategy.
type VariationOptions struct {
	Count    int
	Strength float64
	Refiner  Refiner
	Seed     int64
	Logger   *infra.Logger
}

// VariationStrategy appends randomized lighting, composition, and color
// modifiers to the best prompts. Strength scales how many modifiers each
// offspring receives. When a refiner is configured its output replaces the
// templated candidates; any refiner failure keeps the templates.
type VariationStrategy struct {
	count    int
	strength float64
	refiner  Refiner
	rng      *rand.Rand
	logger   *infra.Logger
}

// NewVariationStrategy builds the variation strategy.
func NewVariationStrategy(opts VariationOptions) *VariationStrategy {
	strength := opts.Strength
	if strength <= 0 {
		strength = 0.5
	}
	if strength > 1 {
		strength = 1
	}
	return &VariationStrategy{
		count:    boundCount(opts.Count),
		strength: strength,
		refiner:  opts.Refiner,
		rng:      newRand(opts.Seed),
		logger:   opts.Logger,
	}
}

// NextPrompts fulfils the Strategy interface.
func (s *VariationStrategy) NextPrompts(ctx context.Context, best []string, round int) ([]string, error) {
	parents := trimAll(best)
	if len(parents) == 0 {
		parents = DefaultSeedPrompts
	}

	candidates := make([]string, 0, s.count)
	for i := 0; i < s.count; i++ {
		parent := parents[i%len(parents)]
		candidates = append(candidates, s.vary(parent))
	}

	if s.refiner != nil {
		refined, err := s.refiner.Refine(ctx, candidates, round)
		if err == nil {
			return refined, nil
		}
		if s.logger != nil {
			s.logger.Warn().Err(err).Int("round", round).Msg("variation: refiner unavailable, keeping templated prompts")
		}
	}
	return candidates, nil
}

func (s *VariationStrategy) vary(parent string) string {
	pools := [][]string{lightingModifiers, compositionModifiers, colorModifiers}
	s.rng.Shuffle(len(pools), func(i, j int) { pools[i], pools[j] = pools[j], pools[i] })

	// Strength 0..1 maps to 1..3 appended modifiers.
	n := 1 + int(s.strength*2)
	if n > len(pools) {
		n = len(pools)
	}
	mods := make([]string, 0, n)
	for i := 0; i < n; i++ {
		mods = append(mods, pick(s.rng, pools[i]))
	}
	return fmt.Sprintf("%s, with %s", parent, strings.Join(mods, " and "))
}

var _ Strategy = (*VariationStrategy)(nil)

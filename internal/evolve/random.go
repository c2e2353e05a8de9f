package evolve

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var artStyles = []string{
	"watercolor", "oil painting", "pop art", "art nouveau", "ukiyo-e woodblock",
	"impressionist", "minimalist line art", "stained glass", "low-poly digital", "charcoal sketch",
}

var portraitSettings = []string{
	"against a softly blurred garden",
	"in a cozy window-lit study",
	"on a plain pastel backdrop",
	"under a starry night sky",
	"in a sunlit meadow",
	"inside an ornate vintage frame",
}

var portraitMoods = []string{
	"regal and composed",
	"playful and curious",
	"serene and gentle",
	"bold and heroic",
	"whimsical and dreamy",
}

// RandomStrategy samples fresh prompts from a fixed style, setting, and mood
// taxonomy. It ignores prior rounds entirely.
type RandomStrategy struct {
	count int
	rng   *rand.Rand
	title cases.Caser
}

// NewRandomStrategy builds the history-free sampling strategy.
func NewRandomStrategy(count int, seed int64) *RandomStrategy {
	return &RandomStrategy{
		count: boundCount(count),
		rng:   newRand(seed),
		title: cases.Title(language.Und),
	}
}

// NextPrompts fulfils the Strategy interface.
func (s *RandomStrategy) NextPrompts(_ context.Context, _ []string, _ int) ([]string, error) {
	prompts := make([]string, 0, s.count)
	for i := 0; i < s.count; i++ {
		prompts = append(prompts, fmt.Sprintf("%s portrait of the pet %s, %s",
			s.title.String(pick(s.rng, artStyles)),
			pick(s.rng, portraitSettings),
			pick(s.rng, portraitMoods)))
	}
	return prompts, nil
}

var _ Strategy = (*RandomStrategy)(nil)

package evolve

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Strategy produces the next round's prompt pool from the best-scoring
// prompts of the previous round. Round numbering starts at 1; round 1 always
// uses the seed pool, so strategies first run at round 2.
type Strategy interface {
	NextPrompts(ctx context.Context, best []string, round int) ([]string, error)
}

// DefaultSeedPrompts backs runs created without an explicit seed pool and the
// controller's empty-round fallback.
var DefaultSeedPrompts = []string{
	"A warm watercolor portrait of the pet with soft washes and gentle highlights",
	"A classic oil painting portrait of the pet with rich brushwork and dramatic lighting",
	"A playful pop art portrait of the pet with bold outlines and saturated colors",
	"A delicate pencil sketch portrait of the pet with fine crosshatching",
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// boundCount clamps a configured offspring count to a sane positive value.
func boundCount(count int) int {
	if count <= 0 {
		return len(DefaultSeedPrompts)
	}
	return count
}

// pick returns a random element of pool.
func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// containsPrompt reports whether candidate is byte-identical to any entry.
func containsPrompt(prompts []string, candidate string) bool {
	for _, p := range prompts {
		if p == candidate {
			return true
		}
	}
	return false
}

func trimAll(prompts []string) []string {
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

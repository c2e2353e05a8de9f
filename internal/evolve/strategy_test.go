package evolve

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestVariationAppendsModifiers(t *testing.T) {
	s := NewVariationStrategy(VariationOptions{Count: 4, Strength: 1, Seed: 42})
	prompts, err := s.NextPrompts(context.Background(), []string{"a watercolor corgi"}, 2)
	if err != nil {
		t.Fatalf("next prompts: %v", err)
	}
	if len(prompts) != 4 {
		t.Fatalf("prompts len = %d, want 4", len(prompts))
	}
	for _, p := range prompts {
		if !strings.HasPrefix(p, "a watercolor corgi, with ") {
			t.Fatalf("offspring should extend the parent: %q", p)
		}
		if p == "a watercolor corgi" {
			t.Fatalf("offspring identical to parent")
		}
	}
}

type failingRefiner struct{}

func (failingRefiner) Refine(context.Context, []string, int) ([]string, error) {
	return nil, fmt.Errorf("model unavailable")
}

type echoRefiner struct{}

func (echoRefiner) Refine(_ context.Context, prompts []string, _ int) ([]string, error) {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		out[i] = "refined: " + p
	}
	return out, nil
}

func TestVariationRefinerFallback(t *testing.T) {
	s := NewVariationStrategy(VariationOptions{Count: 2, Refiner: failingRefiner{}, Seed: 1})
	prompts, err := s.NextPrompts(context.Background(), []string{"a pastel cat"}, 3)
	if err != nil {
		t.Fatalf("next prompts: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("fallback should keep templated prompts, got %d", len(prompts))
	}

	s = NewVariationStrategy(VariationOptions{Count: 2, Refiner: echoRefiner{}, Seed: 1})
	prompts, err = s.NextPrompts(context.Background(), []string{"a pastel cat"}, 3)
	if err != nil {
		t.Fatalf("next prompts: %v", err)
	}
	for _, p := range prompts {
		if !strings.HasPrefix(p, "refined: ") {
			t.Fatalf("refiner output should win when it succeeds: %q", p)
		}
	}
}

func TestEvolutionaryOffspringNeverEqualParents(t *testing.T) {
	s := NewEvolutionaryStrategy(EvolutionaryOptions{Count: 12, MutationRate: 0.5, Seed: 7})
	parents := []string{
		"an oil painting of the pet, rich brushwork",
		"a pop art portrait, bold outlines",
		"a pencil sketch, fine crosshatching",
	}
	offspring, err := s.NextPrompts(context.Background(), parents, 2)
	if err != nil {
		t.Fatalf("next prompts: %v", err)
	}
	if len(offspring) != 12 {
		t.Fatalf("offspring len = %d, want 12", len(offspring))
	}
	for _, child := range offspring {
		if containsPrompt(parents, child) {
			t.Fatalf("offspring byte-identical to a parent: %q", child)
		}
	}
}

func TestRandomIgnoresHistory(t *testing.T) {
	s := NewRandomStrategy(3, 99)
	a, err := s.NextPrompts(context.Background(), []string{"ignored"}, 2)
	if err != nil {
		t.Fatalf("next prompts: %v", err)
	}
	if len(a) != 3 {
		t.Fatalf("prompts len = %d, want 3", len(a))
	}
	for _, p := range a {
		if !strings.Contains(p, "portrait of the pet") {
			t.Fatalf("unexpected taxonomy output: %q", p)
		}
	}
}

func TestChainedAnnotatesRound(t *testing.T) {
	s := NewChainedStrategy(2, 5)
	prompts, err := s.NextPrompts(context.Background(), []string{"a ukiyo-e portrait"}, 4)
	if err != nil {
		t.Fatalf("next prompts: %v", err)
	}
	for _, p := range prompts {
		if !strings.Contains(p, "Round 4 refinement:") {
			t.Fatalf("round annotation missing: %q", p)
		}
		if !strings.HasPrefix(p, "a ukiyo-e portrait.") {
			t.Fatalf("chained prompt should retain the parent: %q", p)
		}
	}
}

func TestStrategiesFallBackToSeedsOnEmptySelection(t *testing.T) {
	for name, s := range map[string]Strategy{
		"variation":    NewVariationStrategy(VariationOptions{Count: 2, Seed: 3}),
		"evolutionary": NewEvolutionaryStrategy(EvolutionaryOptions{Count: 2, Seed: 3}),
		"chained":      NewChainedStrategy(2, 3),
	} {
		prompts, err := s.NextPrompts(context.Background(), nil, 2)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(prompts) != 2 {
			t.Fatalf("%s: prompts len = %d, want 2", name, len(prompts))
		}
	}
}

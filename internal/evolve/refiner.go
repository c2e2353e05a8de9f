package evolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"portraitlab/internal/providers/genai"
)

// Refiner rewrites candidate prompts with a language model. Any failure is
// non-fatal; the calling strategy keeps its templated candidates.
type Refiner interface {
	Refine(ctx context.Context, prompts []string, round int) ([]string, error)
}

type refinerClient interface {
	Score(ctx context.Context, req genai.ScoreRequest) (string, error)
	HasCredentials() bool
}

// GeminiRefiner polishes generated prompt candidates through the Gemini text
// model.
type GeminiRefiner struct {
	client refinerClient
}

// NewGeminiRefiner wraps a Gemini client as a Refiner.
func NewGeminiRefiner(client refinerClient) *GeminiRefiner {
	return &GeminiRefiner{client: client}
}

type refinedPayload struct {
	Prompts []string `json:"prompts"`
}

// Refine fulfils the Refiner interface.
func (r *GeminiRefiner) Refine(ctx context.Context, prompts []string, round int) ([]string, error) {
	if r == nil || r.client == nil || !r.client.HasCredentials() {
		return nil, fmt.Errorf("refiner not configured")
	}
	var b strings.Builder
	b.WriteString("You are refining image-generation prompts for stylized pet portraits. ")
	fmt.Fprintf(&b, "This is evolution round %d. Rewrite each prompt below to be more vivid and specific while keeping its core style. ", round)
	fmt.Fprintf(&b, "Return exactly %d prompts as JSON: {\"prompts\": [string, ...]}.\n", len(prompts))
	for i, p := range prompts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}

	raw, err := r.client.Score(ctx, genai.ScoreRequest{Instruction: b.String()})
	if err != nil {
		return nil, err
	}
	var payload refinedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode refined prompts: %w", err)
	}
	refined := trimAll(payload.Prompts)
	if len(refined) != len(prompts) {
		return nil, fmt.Errorf("refiner returned %d prompts, want %d", len(refined), len(prompts))
	}
	return refined, nil
}

var _ Refiner = (*GeminiRefiner)(nil)

package image

import (
	"context"
	"errors"
	"fmt"

	"portraitlab/internal/providers/genai"
)

// SynthesisGenerator produces a portrait from the prompt alone, optionally
// conditioned on a source photo when one is available. It backs runs that
// explore prompt space before any customer photo exists.
type SynthesisGenerator struct {
	client geminiEditClient
}

// NewSynthesisGenerator wires the Gemini-backed synthesis variant.
func NewSynthesisGenerator(client geminiEditClient) *SynthesisGenerator {
	return &SynthesisGenerator{client: client}
}

// Generate fulfils the Generator interface. A missing source photo is not an
// error for this variant.
func (g *SynthesisGenerator) Generate(ctx context.Context, src Source, prompt string, opts Options) (*Image, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("synthesis generator not configured")
	}
	req := genai.EditRequest{
		Instruction: buildInstruction(prompt, opts),
		RequestID:   opts.RequestID,
	}
	if len(src.Data) > 0 {
		req.Images = []genai.InlineImage{{Data: src.Data, MIME: src.MIME}}
	}
	asset, err := g.client.EditImage(ctx, req)
	if err != nil {
		if errors.Is(err, genai.ErrEmptyResponse) {
			return nil, invalidResponse("synthesis", err)
		}
		return nil, classify("synthesis", err)
	}
	return &Image{Data: asset.Data, MIME: asset.MIME}, nil
}

var _ Generator = (*SynthesisGenerator)(nil)

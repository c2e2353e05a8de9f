package image

import (
	"context"
	"errors"
	"fmt"

	"portraitlab/internal/providers/genai"
)

// geminiEditClient is the narrow surface of the Gemini client the variants
// need, kept small so tests can stub it.
type geminiEditClient interface {
	EditImage(ctx context.Context, req genai.EditRequest) (*genai.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// DirectEditGenerator turns one source photo plus an instruction into a
// stylized portrait using the Gemini image model.
type DirectEditGenerator struct {
	client geminiEditClient
}

// NewDirectEditGenerator wires the Gemini-backed direct edit variant.
func NewDirectEditGenerator(client geminiEditClient) *DirectEditGenerator {
	return &DirectEditGenerator{client: client}
}

// Generate fulfils the Generator interface.
func (g *DirectEditGenerator) Generate(ctx context.Context, src Source, prompt string, opts Options) (*Image, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("direct edit generator not configured")
	}
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("direct edit requires a source photo")
	}
	req := genai.EditRequest{
		Instruction: buildInstruction(prompt, opts),
		Images:      []genai.InlineImage{{Data: src.Data, MIME: src.MIME}},
		RequestID:   opts.RequestID,
	}
	asset, err := g.client.EditImage(ctx, req)
	if err != nil {
		if errors.Is(err, genai.ErrEmptyResponse) {
			return nil, invalidResponse("direct_edit", err)
		}
		return nil, classify("direct_edit", err)
	}
	return &Image{Data: asset.Data, MIME: asset.MIME}, nil
}

var _ Generator = (*DirectEditGenerator)(nil)

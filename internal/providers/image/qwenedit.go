package image

import (
	"context"
	"fmt"

	"portraitlab/internal/providers/qwen"
)

// qwenImageClient is the narrow surface of the DashScope client used by the
// Qwen-backed variant.
type qwenImageClient interface {
	GenerateImage(ctx context.Context, req qwen.ImageRequest) (*qwen.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// QwenEditGenerator is the alternate direct-edit backend on DashScope Qwen.
type QwenEditGenerator struct {
	client qwenImageClient
}

// NewQwenEditGenerator wires the Qwen-backed direct edit variant.
func NewQwenEditGenerator(client qwenImageClient) *QwenEditGenerator {
	return &QwenEditGenerator{client: client}
}

// Generate fulfils the Generator interface.
func (g *QwenEditGenerator) Generate(ctx context.Context, src Source, prompt string, opts Options) (*Image, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("qwen edit generator not configured")
	}
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("qwen edit requires a source photo")
	}
	asset, err := g.client.GenerateImage(ctx, qwen.ImageRequest{
		Prompt:    buildInstruction(prompt, opts),
		Images:    []qwen.SourceImage{{Data: src.Data, MIME: src.MIME}},
		Size:      qwenSize(opts.Size),
		RequestID: opts.RequestID,
	})
	if err != nil {
		return nil, classify("qwen_edit", err)
	}
	if len(asset.Data) == 0 {
		return nil, invalidResponse("qwen_edit", fmt.Errorf("empty image payload"))
	}
	return &Image{Data: asset.Data, MIME: asset.Format}, nil
}

var _ Generator = (*QwenEditGenerator)(nil)

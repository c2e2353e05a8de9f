package image

import (
	"context"
	"errors"
	"fmt"

	"portraitlab/internal/providers/genai"
)

// StyleTransferGenerator renders the source photo in the visual style of one
// or more reference images supplied alongside the prompt.
type StyleTransferGenerator struct {
	client geminiEditClient
}

// NewStyleTransferGenerator wires the Gemini-backed style transfer variant.
func NewStyleTransferGenerator(client geminiEditClient) *StyleTransferGenerator {
	return &StyleTransferGenerator{client: client}
}

// Generate fulfils the Generator interface.
func (g *StyleTransferGenerator) Generate(ctx context.Context, src Source, prompt string, opts Options) (*Image, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("style transfer generator not configured")
	}
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("style transfer requires a source photo")
	}
	if len(opts.StyleReferences) == 0 {
		return nil, fmt.Errorf("style transfer requires at least one style reference")
	}

	images := make([]genai.InlineImage, 0, len(opts.StyleReferences)+1)
	images = append(images, genai.InlineImage{
		Data: src.Data,
		MIME: src.MIME,
		Note: "This is the pet photo to stylize.",
	})
	for i, ref := range opts.StyleReferences {
		images = append(images, genai.InlineImage{
			Data: ref.Data,
			MIME: ref.MIME,
			Note: fmt.Sprintf("Style reference %d. Match its palette, brushwork, and rendering technique.", i+1),
		})
	}

	instruction := buildInstruction(prompt, opts,
		"Repaint the pet from the first photo strictly in the style of the reference images that follow.",
		"Preserve the pet's identity, markings, and pose while adopting the reference style.")

	asset, err := g.client.EditImage(ctx, genai.EditRequest{
		Instruction: instruction,
		Images:      images,
		RequestID:   opts.RequestID,
	})
	if err != nil {
		if errors.Is(err, genai.ErrEmptyResponse) {
			return nil, invalidResponse("style_transfer", err)
		}
		return nil, classify("style_transfer", err)
	}
	return &Image{Data: asset.Data, MIME: asset.MIME}, nil
}

var _ Generator = (*StyleTransferGenerator)(nil)

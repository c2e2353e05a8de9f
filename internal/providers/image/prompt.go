package image

import (
	"strings"

	"portraitlab/internal/domain"
)

// generatePrefix precedes every edit instruction so the model reliably returns
// an image part instead of prose.
const generatePrefix = "Generate an image: "

// buildInstruction assembles the final model instruction from the evolved
// prompt plus the per-job rendering directives.
func buildInstruction(prompt string, opts Options, extra ...string) string {
	lines := []string{generatePrefix + strings.TrimSpace(prompt)}
	lines = append(lines, extra...)
	if hint := aspectHint(opts.Size); hint != "" {
		lines = append(lines, hint)
	}
	if opts.Background == domain.BackgroundTransparent {
		lines = append(lines,
			"Render the subject on a fully transparent background with no backdrop, floor, or shadow fill.")
	} else {
		lines = append(lines,
			"Keep generous negative space around the subject so the composition crops cleanly for print.")
	}
	return strings.Join(lines, "\n")
}

func aspectHint(size domain.ImageSize) string {
	switch size {
	case domain.ImageSizePortrait:
		return "Compose in portrait orientation with a 2:3 aspect ratio."
	case domain.ImageSizeLandscape:
		return "Compose in landscape orientation with a 3:2 aspect ratio."
	case domain.ImageSizeSquare:
		return "Compose in a square 1:1 frame."
	default:
		return ""
	}
}

// qwenSize maps the shared size enum to the DashScope size token.
func qwenSize(size domain.ImageSize) string {
	switch size {
	case domain.ImageSizePortrait:
		return "1140*1472"
	case domain.ImageSizeLandscape:
		return "1472*1104"
	default:
		return "1328*1328"
	}
}

package evaluate

import (
	"context"

	"portraitlab/internal/providers/genai"
)

// JudgeImage is one image handed to the vision judge, optionally preceded by
// a short caption so the judge can tell the images apart.
type JudgeImage struct {
	Data []byte
	MIME string
	Note string
}

// Judge sends a scoring instruction plus images to a vision model and returns
// the raw text response. Parsing belongs to the evaluator strategies.
type Judge interface {
	Score(ctx context.Context, instruction string, images []JudgeImage) (string, error)
}

type geminiJudgeClient interface {
	Score(ctx context.Context, req genai.ScoreRequest) (string, error)
	HasCredentials() bool
}

// GeminiJudge scores images through the Gemini vision model.
type GeminiJudge struct {
	client geminiJudgeClient
}

// NewGeminiJudge wraps a Gemini client as a Judge.
func NewGeminiJudge(client geminiJudgeClient) *GeminiJudge {
	return &GeminiJudge{client: client}
}

// Score fulfils the Judge interface.
func (j *GeminiJudge) Score(ctx context.Context, instruction string, images []JudgeImage) (string, error) {
	inline := make([]genai.InlineImage, 0, len(images))
	for _, img := range images {
		inline = append(inline, genai.InlineImage{Data: img.Data, MIME: img.MIME, Note: img.Note})
	}
	return j.client.Score(ctx, genai.ScoreRequest{Instruction: instruction, Images: inline})
}

var _ Judge = (*GeminiJudge)(nil)

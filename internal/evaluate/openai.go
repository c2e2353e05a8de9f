package evaluate

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIJudgeConfig configures the OpenAI vision judge.
type OpenAIJudgeConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIJudge scores images through the OpenAI chat completion API using
// inline data-URL image parts.
type OpenAIJudge struct {
	client *openai.Client
	cfg    OpenAIJudgeConfig
}

// NewOpenAIJudge builds a judge from the provided configuration.
func NewOpenAIJudge(cfg OpenAIJudgeConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))
	return &OpenAIJudge{client: client, cfg: cfg}, nil
}

// Score fulfils the Judge interface.
func (j *OpenAIJudge) Score(ctx context.Context, instruction string, images []JudgeImage) (string, error) {
	parts := make([]openai.ChatMessagePart, 0, len(images)*2+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: instruction,
	})
	for _, img := range images {
		if note := strings.TrimSpace(img.Note); note != "" {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: note,
			})
		}
		mime := img.MIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}

	request := openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a strict visual quality judge for stylized pet portraits. Respond only with JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := j.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai judge: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai judge: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ Judge = (*OpenAIJudge)(nil)

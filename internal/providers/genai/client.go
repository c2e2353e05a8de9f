package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portraitlab/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("genai: api key is required")

// ErrEmptyResponse indicates the model answered without any usable content.
var ErrEmptyResponse = errors.New("genai: empty model response")

// APIError carries the upstream HTTP status so callers can classify failures.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	JudgeModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client provides a lightweight facade over the Gemini generateContent API so
// the provider and evaluator layers can focus on translating domain requests
// into parts. One model renders images, a second vision model scores them.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	judgeModel string
	httpClient *http.Client
	logger     *infra.Logger
}

// InlineImage is an image payload attached to a request as inline data.
type InlineImage struct {
	Data []byte
	MIME string
	Note string
}

// EditRequest asks the image model to render a new image from an instruction
// and zero or more conditioning images.
type EditRequest struct {
	Instruction string
	Images      []InlineImage
	RequestID   string
}

// ScoreRequest asks the judge model to return structured scoring text for the
// attached images.
type ScoreRequest struct {
	Instruction string
	Images      []InlineImage
	RequestID   string
}

// ImageAsset is the normalized representation of a generated image.
type ImageAsset struct {
	Data []byte
	MIME string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image-preview"
	}
	judgeModel := strings.TrimSpace(opts.JudgeModel)
	if judgeModel == "" {
		judgeModel = "gemini-2.5-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		judgeModel: judgeModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured image model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether an API key was supplied.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// EditImage renders a single image from the instruction and conditioning
// images. Exactly one decoded image is returned; anything else is an error.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*ImageAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}

	parts := []geminiPart{{Text: req.Instruction}}
	parts = append(parts, inlineParts(req.Images)...)

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount: 1,
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.model, payload, &response); err != nil {
		return nil, err
	}

	asset, err := firstInlineImage(response)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("bytes", len(asset.Data)).
		Msg("genai: image rendered")

	return asset, nil
}

// Score sends the instruction and images to the judge model and returns its
// raw text response. Parsing is intentionally left to the caller.
func (c *Client) Score(ctx context.Context, req ScoreRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}

	parts := []geminiPart{{Text: req.Instruction}}
	parts = append(parts, inlineParts(req.Images)...)

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.2,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.judgeModel, payload, &response); err != nil {
		return "", err
	}

	text := collectText(response)
	if text == "" {
		return "", fmt.Errorf("collect text: %w", ErrEmptyResponse)
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.judgeModel).
		Int("chars", len(text)).
		Msg("genai: judge response received")

	return text, nil
}

func inlineParts(images []InlineImage) []geminiPart {
	var parts []geminiPart
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		if note := strings.TrimSpace(img.Note); note != "" {
			parts = append(parts, geminiPart{Text: note})
		}
		mime := img.MIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	return parts
}

func firstInlineImage(response geminiGenerateContentResponse) (*ImageAsset, error) {
	if len(response.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates: %w", ErrEmptyResponse)
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return &ImageAsset{Data: data, MIME: mime}, nil
		}
	}
	return nil, fmt.Errorf("no image part: %w", ErrEmptyResponse)
}

func collectText(response geminiGenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.baseURL, "/"), url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var decoded geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.Error.Message != "" {
			apiErr.Message = decoded.Error.Message
		} else {
			data, _ := io.ReadAll(resp.Body)
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

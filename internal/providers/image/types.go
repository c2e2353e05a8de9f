package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"portraitlab/internal/domain"
	"portraitlab/internal/providers/genai"
	"portraitlab/internal/providers/qwen"
)

// ErrorKind classifies provider failures so the engine can record them
// without inspecting backend-specific errors.
type ErrorKind string

const (
	ErrAuthMissing     ErrorKind = "auth_missing"
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrInvalidResponse ErrorKind = "invalid_response"
	ErrUpstreamFailure ErrorKind = "upstream_failure"
)

// ProviderError wraps a backend failure with a stable classification.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Source is the conditioning photo for an edit call.
type Source struct {
	Data []byte
	MIME string
}

// Options carries the per-job rendering knobs shared by all variants.
type Options struct {
	Background      domain.BackgroundMode
	Size            domain.ImageSize
	StyleReferences []Source
	RequestID       string
}

// Image is one decoded output image.
type Image struct {
	Data []byte
	MIME string
}

// Generator is the contract implemented by all portrait provider variants.
// Each call returns exactly one decoded image or a typed failure; providers
// never touch persistence.
type Generator interface {
	Generate(ctx context.Context, src Source, prompt string, opts Options) (*Image, error)
}

// classify maps backend errors onto ProviderError kinds. Undecodable or empty
// responses are reported by the callers directly as ErrInvalidResponse.
func classify(provider string, err error) *ProviderError {
	kind := ErrUpstreamFailure
	switch {
	case errors.Is(err, genai.ErrMissingAPIKey), errors.Is(err, qwen.ErrMissingAPIKey):
		kind = ErrAuthMissing
	case errors.Is(err, genai.ErrEmptyResponse):
		kind = ErrInvalidResponse
	default:
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				kind = ErrAuthMissing
			case http.StatusTooManyRequests:
				kind = ErrRateLimited
			}
		}
	}
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

func invalidResponse(provider string, err error) *ProviderError {
	return &ProviderError{Kind: ErrInvalidResponse, Provider: provider, Err: err}
}

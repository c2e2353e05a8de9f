package image

import (
	"context"
	"errors"
	"strings"
	"testing"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/providers/genai"
)

type stubGeminiClient struct {
	lastReq  genai.EditRequest
	asset    *genai.ImageAsset
	err      error
	hasCreds bool
}

func (s *stubGeminiClient) EditImage(_ context.Context, req genai.EditRequest) (*genai.ImageAsset, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.asset, nil
}

func (s *stubGeminiClient) HasCredentials() bool { return s.hasCreds }

func (s *stubGeminiClient) Model() string { return "stub-model" }

func TestDirectEditBuildsInstruction(t *testing.T) {
	stub := &stubGeminiClient{asset: &genai.ImageAsset{Data: []byte{1}, MIME: "image/png"}, hasCreds: true}
	gen := NewDirectEditGenerator(stub)

	img, err := gen.Generate(context.Background(), Source{Data: []byte{9}, MIME: "image/jpeg"}, "a corgi in watercolor", Options{
		Background: domain.BackgroundTransparent,
		Size:       domain.ImageSizePortrait,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if img == nil || len(img.Data) == 0 {
		t.Fatalf("expected image data")
	}
	if !strings.HasPrefix(stub.lastReq.Instruction, "Generate an image: a corgi in watercolor") {
		t.Fatalf("instruction prefix missing: %q", stub.lastReq.Instruction)
	}
	if !strings.Contains(stub.lastReq.Instruction, "transparent background") {
		t.Fatalf("transparent directive missing: %q", stub.lastReq.Instruction)
	}
	if !strings.Contains(stub.lastReq.Instruction, "2:3") {
		t.Fatalf("aspect hint missing: %q", stub.lastReq.Instruction)
	}
	if len(stub.lastReq.Images) != 1 || stub.lastReq.Images[0].MIME != "image/jpeg" {
		t.Fatalf("source image not forwarded: %+v", stub.lastReq.Images)
	}
}

func TestDirectEditRequiresSource(t *testing.T) {
	gen := NewDirectEditGenerator(&stubGeminiClient{hasCreds: true})
	if _, err := gen.Generate(context.Background(), Source{}, "prompt", Options{}); err == nil {
		t.Fatalf("expected error for missing source photo")
	}
}

func TestDirectEditClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"auth", &genai.APIError{StatusCode: 401, Message: "no key"}, ErrAuthMissing},
		{"rate", &genai.APIError{StatusCode: 429, Message: "slow down"}, ErrRateLimited},
		{"empty", genai.ErrEmptyResponse, ErrInvalidResponse},
		{"server", &genai.APIError{StatusCode: 500, Message: "boom"}, ErrUpstreamFailure},
		{"missing-key", genai.ErrMissingAPIKey, ErrAuthMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := NewDirectEditGenerator(&stubGeminiClient{err: tc.err, hasCreds: true})
			_, err := gen.Generate(context.Background(), Source{Data: []byte{1}}, "p", Options{})
			var provErr *ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if provErr.Kind != tc.kind {
				t.Fatalf("kind = %v, want %v", provErr.Kind, tc.kind)
			}
		})
	}
}

func TestStyleTransferOrdersReferenceImages(t *testing.T) {
	stub := &stubGeminiClient{asset: &genai.ImageAsset{Data: []byte{1}, MIME: "image/png"}, hasCreds: true}
	gen := NewStyleTransferGenerator(stub)

	_, err := gen.Generate(context.Background(), Source{Data: []byte{9}, MIME: "image/png"}, "oil painting", Options{
		Size: domain.ImageSizeSquare,
		StyleReferences: []Source{
			{Data: []byte{2}, MIME: "image/png"},
			{Data: []byte{3}, MIME: "image/jpeg"},
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(stub.lastReq.Images) != 3 {
		t.Fatalf("images len = %d, want 3", len(stub.lastReq.Images))
	}
	if !strings.Contains(stub.lastReq.Images[0].Note, "pet photo") {
		t.Fatalf("source note missing: %q", stub.lastReq.Images[0].Note)
	}
	if !strings.Contains(stub.lastReq.Images[1].Note, "Style reference 1") {
		t.Fatalf("first reference note wrong: %q", stub.lastReq.Images[1].Note)
	}
}

func TestStyleTransferRequiresReferences(t *testing.T) {
	gen := NewStyleTransferGenerator(&stubGeminiClient{hasCreds: true})
	if _, err := gen.Generate(context.Background(), Source{Data: []byte{1}}, "p", Options{}); err == nil {
		t.Fatalf("expected error for missing style references")
	}
}

func TestSynthesisAllowsMissingSource(t *testing.T) {
	stub := &stubGeminiClient{asset: &genai.ImageAsset{Data: []byte{1}, MIME: "image/png"}, hasCreds: true}
	gen := NewSynthesisGenerator(stub)

	if _, err := gen.Generate(context.Background(), Source{}, "an imagined terrier", Options{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(stub.lastReq.Images) != 0 {
		t.Fatalf("expected no conditioning images, got %d", len(stub.lastReq.Images))
	}
}

func TestFactoryFailsFastWithoutCredentials(t *testing.T) {
	cfg := jsoncfg.RunConfig{Provider: jsoncfg.ProviderDirectEdit}
	_, err := NewGenerator(cfg, Backends{Gemini: &stubGeminiClient{hasCreds: false}})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}

func TestFactoryResolvesVariants(t *testing.T) {
	gemini := &stubGeminiClient{hasCreds: true}
	for _, provider := range []string{jsoncfg.ProviderDirectEdit, jsoncfg.ProviderStyleTransfer, jsoncfg.ProviderSynthesis} {
		gen, err := NewGenerator(jsoncfg.RunConfig{Provider: provider}, Backends{Gemini: gemini})
		if err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
		if gen == nil {
			t.Fatalf("%s: nil generator", provider)
		}
	}
	if _, err := NewGenerator(jsoncfg.RunConfig{Provider: "bogus"}, Backends{Gemini: gemini}); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown provider, got %v", err)
	}
}

package image

import (
	"fmt"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
)

// Backends bundles the configured API clients a factory can hand out.
type Backends struct {
	Gemini geminiEditClient
	Qwen   qwenImageClient
}

// NewGenerator resolves the run config's provider and backend names into a
// single Generator. Missing credentials fail here, before any job is
// scheduled.
func NewGenerator(cfg jsoncfg.RunConfig, backends Backends) (Generator, error) {
	switch cfg.Provider {
	case jsoncfg.ProviderDirectEdit:
		if cfg.Backend == "qwen" {
			if err := checkQwen(backends.Qwen); err != nil {
				return nil, err
			}
			return NewQwenEditGenerator(backends.Qwen), nil
		}
		if err := checkGemini(backends.Gemini); err != nil {
			return nil, err
		}
		return NewDirectEditGenerator(backends.Gemini), nil
	case jsoncfg.ProviderStyleTransfer:
		if err := checkGemini(backends.Gemini); err != nil {
			return nil, err
		}
		return NewStyleTransferGenerator(backends.Gemini), nil
	case jsoncfg.ProviderSynthesis:
		if err := checkGemini(backends.Gemini); err != nil {
			return nil, err
		}
		return NewSynthesisGenerator(backends.Gemini), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidConfig, cfg.Provider)
	}
}

func checkGemini(client geminiEditClient) error {
	if client == nil || !client.HasCredentials() {
		return fmt.Errorf("%w: gemini api key", domain.ErrMissingCredential)
	}
	return nil
}

func checkQwen(client qwenImageClient) error {
	if client == nil || !client.HasCredentials() {
		return fmt.Errorf("%w: qwen api key", domain.ErrMissingCredential)
	}
	return nil
}

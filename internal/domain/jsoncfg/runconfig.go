package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EvaluationConfig selects and tunes the scoring strategy for a run.
type EvaluationConfig struct {
	Strategy          string   `json:"strategy"`
	Judge             string   `json:"judge,omitempty"`
	Criteria          string   `json:"criteria,omitempty"`
	Mode              string   `json:"mode,omitempty"`
	ReferencePhotoIDs []string `json:"reference_photo_ids,omitempty"`
	QualitySpec       string   `json:"quality_spec,omitempty"`
	AutoPause         bool     `json:"auto_pause,omitempty"`
}

// EvolutionConfig selects and tunes the prompt strategy for a run.
type EvolutionConfig struct {
	Strategy     string  `json:"strategy"`
	Count        int     `json:"count"`
	Strength     float64 `json:"strength,omitempty"`
	MutationRate float64 `json:"mutation_rate,omitempty"`
}

// StyleGroup names a set of reference photos used together as one style
// template during style-transfer pairing.
type StyleGroup struct {
	Name              string   `json:"name"`
	ReferencePhotoIDs []string `json:"reference_photo_ids"`
}

// RunConfig is the canonical JSON contract persisted with every iteration run.
type RunConfig struct {
	Version             string           `json:"version"`
	PhotoIDs            []string         `json:"photo_ids"`
	Provider            string           `json:"provider"`
	Backend             string           `json:"backend,omitempty"`
	Size                string           `json:"size,omitempty"`
	Background          string           `json:"background,omitempty"`
	StyleGroups         []StyleGroup     `json:"style_groups,omitempty"`
	SeedPrompts         []string         `json:"seed_prompts,omitempty"`
	BatchSize           int              `json:"batch_size"`
	TotalIterations     int              `json:"total_iterations"`
	KeepTopPercent      float64          `json:"keep_top_percent"`
	InterBatchDelayMS   int              `json:"inter_batch_delay_ms,omitempty"`
	InterRoundDelayMS   int              `json:"inter_round_delay_ms,omitempty"`
	EvaluatorDelayMS    int              `json:"evaluator_delay_ms,omitempty"`
	Evaluation          EvaluationConfig `json:"evaluation"`
	Evolution           EvolutionConfig  `json:"evolution"`
}

const (
	// DefaultConfigVersion is the schema version persisted for run configs.
	DefaultConfigVersion = "2025-06"
	// DefaultBatchSize bounds concurrent provider calls when unset.
	DefaultBatchSize = 3
	// MaxBatchSize caps the concurrent upstream load per run.
	MaxBatchSize = 10
	// DefaultTotalIterations is applied when the request omits a bound.
	DefaultTotalIterations = 3
	// MaxTotalIterations caps how long a single run may evolve.
	MaxTotalIterations = 25
	// DefaultKeepTopPercent selects the carried-forward fraction of prompts.
	DefaultKeepTopPercent = 0.2
	// DefaultInterBatchDelayMS spaces consecutive batches for rate limits.
	// Applied by the API when the create request omits the field.
	DefaultInterBatchDelayMS = 2000
	// DefaultInterRoundDelayMS spaces consecutive iterations.
	DefaultInterRoundDelayMS = 1000
	// DefaultEvaluatorDelayMS spaces sequential judge calls.
	DefaultEvaluatorDelayMS = 500
)

// Provider variant names accepted by the run config.
const (
	ProviderDirectEdit    = "direct_edit"
	ProviderStyleTransfer = "style_transfer"
	ProviderSynthesis     = "synthesis"
)

// Evaluation strategy names accepted by the run config.
const (
	EvaluationRubric     = "rubric"
	EvaluationSimilarity = "similarity"
	EvaluationManual     = "manual"
)

// Rubric scoring modes accepted by the evaluation config.
const (
	RubricModeReference  = "reference"
	RubricModeStandalone = "standalone"
)

// Evolution strategy names accepted by the run config.
const (
	EvolutionVariation    = "variation"
	EvolutionEvolutionary = "evolutionary"
	EvolutionRandom       = "random"
	EvolutionChained      = "chained"
)

// Normalize applies server defaults and bounds before validation or persistence.
func (c *RunConfig) Normalize() {
	if c == nil {
		return
	}
	if c.Version == "" {
		c.Version = DefaultConfigVersion
	}
	if c.Provider == "" {
		c.Provider = ProviderDirectEdit
	}
	if c.Backend == "" {
		c.Backend = "gemini"
	}
	if c.Size == "" {
		c.Size = "1024x1024"
	}
	if c.Background == "" {
		c.Background = "opaque"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.TotalIterations <= 0 {
		c.TotalIterations = DefaultTotalIterations
	}
	if c.TotalIterations > MaxTotalIterations {
		c.TotalIterations = MaxTotalIterations
	}
	if c.KeepTopPercent <= 0 || c.KeepTopPercent > 1 {
		c.KeepTopPercent = DefaultKeepTopPercent
	}
	if c.InterBatchDelayMS < 0 {
		c.InterBatchDelayMS = 0
	}
	if c.InterRoundDelayMS < 0 {
		c.InterRoundDelayMS = 0
	}
	if c.EvaluatorDelayMS < 0 {
		c.EvaluatorDelayMS = 0
	}
	if c.Evaluation.Strategy == "" {
		c.Evaluation.Strategy = EvaluationRubric
	}
	if c.Evaluation.Judge == "" {
		c.Evaluation.Judge = "gemini"
	}
	if c.Evolution.Strategy == "" {
		c.Evolution.Strategy = EvolutionVariation
	}
	if c.Evolution.Count <= 0 {
		c.Evolution.Count = c.BatchSize
	}
}

// Validate ensures the config satisfies the engine contract. It assumes
// Normalize has already run.
func (c RunConfig) Validate() error {
	if len(c.PhotoIDs) == 0 && c.Provider != ProviderSynthesis {
		return fmt.Errorf("photo_ids are required for provider %q", c.Provider)
	}
	switch c.Provider {
	case ProviderDirectEdit, ProviderSynthesis:
	case ProviderStyleTransfer:
		if len(c.StyleGroups) == 0 {
			return fmt.Errorf("style_groups are required for provider %q", c.Provider)
		}
		for _, g := range c.StyleGroups {
			if len(g.ReferencePhotoIDs) == 0 {
				return fmt.Errorf("style group %q has no reference photos", g.Name)
			}
		}
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	switch c.Evaluation.Strategy {
	case EvaluationRubric, EvaluationSimilarity, EvaluationManual:
	default:
		return fmt.Errorf("unsupported evaluation strategy %q", c.Evaluation.Strategy)
	}
	switch c.Evolution.Strategy {
	case EvolutionVariation, EvolutionEvolutionary, EvolutionRandom, EvolutionChained:
	default:
		return fmt.Errorf("unsupported evolution strategy %q", c.Evolution.Strategy)
	}
	for i, p := range c.SeedPrompts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("seed prompt %d is empty", i)
		}
	}
	return nil
}

// StyleTransfer reports whether jobs should pair photos with style groups
// instead of crossing photos with every candidate prompt.
func (c RunConfig) StyleTransfer() bool {
	return c.Provider == ProviderStyleTransfer
}

// MustMarshal serializes v and panics on failure. It exists for values the
// process itself constructed, where a marshal error is a programming bug.
func MustMarshal(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

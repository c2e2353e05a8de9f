package evaluate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/infra"
)

// BlobReader loads generated image bytes by storage key.
type BlobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Evaluator scores a round of generated results. Failed results are skipped;
// scoring failures on individual results leave them unscored rather than
// aborting the round.
type Evaluator interface {
	Evaluate(ctx context.Context, results []domain.GeneratedResult) ([]domain.Evaluation, error)
}

// RubricOptions wires a RubricEvaluator.
type RubricOptions struct {
	Judge  Judge
	Blobs  BlobReader
	Photos domain.PhotoStore
	Config jsoncfg.EvaluationConfig
	Delay  time.Duration
	Logger *infra.Logger
}

// RubricEvaluator scores each generated image against a fixed criteria
// rubric using a vision judge. In reference mode the judge scores the
// generated and reference images side by side and the overall score is the
// sigmoid-normalized difference; in standalone mode the overall score is the
// criteria total against its maximum.
type RubricEvaluator struct {
	judge        Judge
	blobs        BlobReader
	photos       domain.PhotoStore
	criteria     CriteriaSet
	mode         string
	referenceIDs []string
	qualitySpec  string
	delay        time.Duration
	logger       *infra.Logger
}

// NewRubricEvaluator builds a rubric evaluator from the run's evaluation
// config.
func NewRubricEvaluator(opts RubricOptions) (*RubricEvaluator, error) {
	if opts.Judge == nil {
		return nil, fmt.Errorf("rubric evaluator requires a judge")
	}
	if opts.Blobs == nil {
		return nil, fmt.Errorf("rubric evaluator requires a blob reader")
	}
	mode := strings.TrimSpace(opts.Config.Mode)
	if mode == "" {
		mode = jsoncfg.RubricModeReference
	}
	if mode == jsoncfg.RubricModeReference && len(opts.Config.ReferencePhotoIDs) == 0 {
		return nil, fmt.Errorf("%w: reference rubric mode requires reference photos", domain.ErrInvalidConfig)
	}
	return &RubricEvaluator{
		judge:        opts.Judge,
		blobs:        opts.Blobs,
		photos:       opts.Photos,
		criteria:     CriteriaForName(opts.Config.Criteria),
		mode:         mode,
		referenceIDs: opts.Config.ReferencePhotoIDs,
		qualitySpec:  strings.TrimSpace(opts.Config.QualitySpec),
		delay:        opts.Delay,
		logger:       opts.Logger,
	}, nil
}

// Evaluate fulfils the Evaluator interface.
func (e *RubricEvaluator) Evaluate(ctx context.Context, results []domain.GeneratedResult) ([]domain.Evaluation, error) {
	var reference []byte
	var referenceMIME string
	if e.mode == jsoncfg.RubricModeReference {
		data, mime, err := e.photos.FetchPhoto(ctx, e.referenceIDs[0])
		if err != nil {
			return nil, fmt.Errorf("fetch reference photo: %w", err)
		}
		reference, referenceMIME = data, mime
	}

	sourceCache := map[string]JudgeImage{}
	evaluations := make([]domain.Evaluation, 0, len(results))
	first := true
	for _, result := range results {
		if result.Failed() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return evaluations, err
		}
		if !first && e.delay > 0 {
			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				return evaluations, ctx.Err()
			}
		}
		first = false

		generated, err := e.blobs.Read(ctx, result.BlobKey)
		if err != nil {
			e.warn(result.ID, "load generated image", err)
			continue
		}

		var evaluation *domain.Evaluation
		if e.mode == jsoncfg.RubricModeReference {
			evaluation, err = e.scoreAgainstReference(ctx, result, generated, reference, referenceMIME)
		} else {
			evaluation, err = e.scoreStandalone(ctx, result, generated, sourceCache)
		}
		if err != nil {
			e.warn(result.ID, "score", err)
			continue
		}
		evaluations = append(evaluations, *evaluation)
	}
	return evaluations, nil
}

func (e *RubricEvaluator) scoreAgainstReference(ctx context.Context, result domain.GeneratedResult, generated, reference []byte, referenceMIME string) (*domain.Evaluation, error) {
	raw, err := e.judge.Score(ctx, comparisonInstruction(e.criteria), []JudgeImage{
		{Data: generated, MIME: result.MIME, Note: "Generated image:"},
		{Data: reference, MIME: referenceMIME, Note: "Reference image:"},
	})
	if err != nil {
		return nil, err
	}
	gen, ref, clamp, err := parsePairedScores(raw, e.criteria)
	if err != nil {
		return nil, err
	}
	overall := normalizeScoreDifference(sum(gen) - sum(ref))
	return &domain.Evaluation{
		ResultID:       result.ID,
		OverallScore:   domain.ScoreRef(overall),
		CriteriaScores: gen,
		Reasoning:      annotateClamp(raw, clamp),
		Strategy:       jsoncfg.EvaluationRubric,
		ClampAdjusted:  clamp > 0,
	}, nil
}

func (e *RubricEvaluator) scoreStandalone(ctx context.Context, result domain.GeneratedResult, generated []byte, sourceCache map[string]JudgeImage) (*domain.Evaluation, error) {
	images := []JudgeImage{}
	if photoID := result.Job.SourcePhotoID; photoID != "" && e.photos != nil {
		source, ok := sourceCache[photoID]
		if !ok {
			data, mime, err := e.photos.FetchPhoto(ctx, photoID)
			if err != nil {
				return nil, fmt.Errorf("fetch source photo: %w", err)
			}
			source = JudgeImage{Data: data, MIME: mime, Note: "Original pet image:"}
			sourceCache[photoID] = source
		}
		images = append(images, source)
	}
	images = append(images, JudgeImage{Data: generated, MIME: result.MIME, Note: "Generated image to evaluate:"})

	raw, err := e.judge.Score(ctx, standaloneInstruction(e.criteria, result.PromptUsed, e.qualitySpec), images)
	if err != nil {
		return nil, err
	}
	scores, clamp, err := parseCriteriaScores(raw, e.criteria)
	if err != nil {
		return nil, err
	}
	overall := 0.0
	if max := e.criteria.MaxTotal(); max > 0 {
		overall = sum(scores) / max * 10
	}
	return &domain.Evaluation{
		ResultID:       result.ID,
		OverallScore:   domain.ScoreRef(overall),
		CriteriaScores: scores,
		Reasoning:      annotateClamp(raw, clamp),
		Strategy:       jsoncfg.EvaluationRubric,
		ClampAdjusted:  clamp > 0,
	}, nil
}

func (e *RubricEvaluator) warn(resultID, step string, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Warn().
		Str("result_id", resultID).
		Str("step", step).
		Err(err).
		Msg("rubric: result left unscored")
}

// normalizeScoreDifference maps a criteria-total difference onto [0,10] with a
// sigmoid curve so small differences near parity matter most.
func normalizeScoreDifference(diff float64) float64 {
	const scale = 20.0
	return 1.0 / (1.0 + math.Exp(-diff/scale)) * 10
}

func sum(scores map[string]float64) float64 {
	total := 0.0
	for _, v := range scores {
		total += v
	}
	return total
}

var _ Evaluator = (*RubricEvaluator)(nil)

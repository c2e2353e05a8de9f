package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/infra"
)

var similarityAspects = []string{"composition", "style", "content"}

// SimilarityEvaluator asks the judge how closely each generated image
// resembles a fixed reference set. The overall resemblance score is the
// evaluation score; the per-aspect breakdown lands in CriteriaScores.
type SimilarityEvaluator struct {
	judge        Judge
	blobs        BlobReader
	photos       domain.PhotoStore
	referenceIDs []string
	delay        time.Duration
	logger       *infra.Logger
}

// NewSimilarityEvaluator builds a similarity evaluator from the run's
// evaluation config.
func NewSimilarityEvaluator(opts RubricOptions) (*SimilarityEvaluator, error) {
	if opts.Judge == nil {
		return nil, fmt.Errorf("similarity evaluator requires a judge")
	}
	if opts.Blobs == nil {
		return nil, fmt.Errorf("similarity evaluator requires a blob reader")
	}
	if len(opts.Config.ReferencePhotoIDs) == 0 {
		return nil, fmt.Errorf("%w: similarity evaluation requires reference photos", domain.ErrInvalidConfig)
	}
	return &SimilarityEvaluator{
		judge:        opts.Judge,
		blobs:        opts.Blobs,
		photos:       opts.Photos,
		referenceIDs: opts.Config.ReferencePhotoIDs,
		delay:        opts.Delay,
		logger:       opts.Logger,
	}, nil
}

type similarityPayload struct {
	Analysis map[string]string  `json:"analysis"`
	Scores   map[string]float64 `json:"scores"`
}

// Evaluate fulfils the Evaluator interface.
func (e *SimilarityEvaluator) Evaluate(ctx context.Context, results []domain.GeneratedResult) ([]domain.Evaluation, error) {
	references := make([]JudgeImage, 0, len(e.referenceIDs))
	for i, photoID := range e.referenceIDs {
		data, mime, err := e.photos.FetchPhoto(ctx, photoID)
		if err != nil {
			return nil, fmt.Errorf("fetch reference photo: %w", err)
		}
		references = append(references, JudgeImage{
			Data: data,
			MIME: mime,
			Note: fmt.Sprintf("Reference image %d:", i+1),
		})
	}

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
		images := append([]JudgeImage{{Data: generated, MIME: result.MIME, Note: "Generated image:"}}, references...)
		raw, err := e.judge.Score(ctx, similarityInstruction(), images)
		if err != nil {
			e.warn(result.ID, "judge", err)
			continue
		}
		evaluation, err := parseSimilarity(result.ID, raw)
		if err != nil {
			e.warn(result.ID, "parse", err)
			continue
		}
		evaluations = append(evaluations, *evaluation)
	}
	return evaluations, nil
}

func parseSimilarity(resultID, raw string) (*domain.Evaluation, error) {
	if isRefusal(raw) {
		return nil, ErrEvaluationDeclined
	}
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return nil, ErrUnparseable
	}
	var payload similarityPayload
	if err := json.Unmarshal([]byte(fragment), &payload); err != nil {
		return nil, ErrUnparseable
	}
	overallRaw, ok := payload.Scores["overall"]
	if !ok {
		return nil, ErrUnparseable
	}
	overall, clamp := clampScore(overallRaw)
	aspects := make(map[string]float64, len(similarityAspects))
	for _, aspect := range similarityAspects {
		if v, ok := payload.Scores[aspect]; ok {
			score, delta := clampScore(v)
			aspects[aspect] = score
			clamp += delta
		}
	}
	return &domain.Evaluation{
		ResultID:       resultID,
		OverallScore:   domain.ScoreRef(overall),
		CriteriaScores: aspects,
		Reasoning:      annotateClamp(raw, clamp),
		Strategy:       jsoncfg.EvaluationSimilarity,
		ClampAdjusted:  clamp > 0,
	}, nil
}

func (e *SimilarityEvaluator) warn(resultID, step string, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Warn().
		Str("result_id", resultID).
		Str("step", step).
		Err(err).
		Msg("similarity: result left unscored")
}

var _ Evaluator = (*SimilarityEvaluator)(nil)

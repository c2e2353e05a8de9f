package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/infra"
	"portraitlab/internal/sqlinline"
)

// ScoredResult joins one generated result with its evaluation, when present.
// Manual-strategy evaluations stay attached with a nil score until rated.
type ScoredResult struct {
	Result     domain.GeneratedResult
	Evaluation *domain.Evaluation
}

// RunRepositoryPG implements domain.RunStore on PostgreSQL and adds the
// queue-claim and listing operations the worker and API need.
type RunRepositoryPG struct {
	db infra.SQLExecutor
}

// NewRunRepository creates a run repository backed by PostgreSQL.
func NewRunRepository(db infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{db: db}
}

// CreateRun inserts the run in its initial state. The config is persisted as
// the canonical JSON contract so a worker can rehydrate it unchanged.
func (r *RunRepositoryPG) CreateRun(ctx context.Context, run *domain.IterationRun) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal run config: %w", err)
	}
	_, err = r.db.Exec(ctx, sqlinline.QInsertRun,
		run.ID,
		string(run.Status),
		cfg,
		run.TotalIterations,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunRepositoryPG) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus, errMsg string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QUpdateRunStatus, runID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("update run %s status: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s status: %w", runID, domain.ErrNotFound)
	}
	return nil
}

func (r *RunRepositoryPG) UpdateRunProgress(ctx context.Context, progress domain.Progress) error {
	_, err := r.db.Exec(ctx, sqlinline.QUpdateRunProgress,
		progress.RunID,
		progress.CurrentIteration,
		progress.Completed,
		progress.Failed,
		progress.CurrentBatch,
	)
	if err != nil {
		return fmt.Errorf("update run %s progress: %w", progress.RunID, err)
	}
	return nil
}

func (r *RunRepositoryPG) InsertResults(ctx context.Context, results []domain.GeneratedResult) error {
	for _, result := range results {
		_, err := r.db.Exec(ctx, sqlinline.QInsertResult,
			result.ID,
			result.Job.RunID,
			result.Job.Iteration,
			result.Job.SourcePhotoID,
			result.Job.StyleGroup,
			result.PromptUsed,
			result.Job.Provider,
			result.BlobKey,
			result.MIME,
			string(result.Status),
			result.ErrorDetail,
			result.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", result.ID, err)
		}
	}
	return nil
}

func (r *RunRepositoryPG) InsertEvaluations(ctx context.Context, evaluations []domain.Evaluation) error {
	for _, evaluation := range evaluations {
		criteria, err := json.Marshal(evaluation.CriteriaScores)
		if err != nil {
			return fmt.Errorf("marshal criteria scores for %s: %w", evaluation.ResultID, err)
		}
		_, err = r.db.Exec(ctx, sqlinline.QInsertEvaluation,
			evaluation.ResultID,
			evaluation.OverallScore,
			criteria,
			evaluation.Reasoning,
			evaluation.Strategy,
			evaluation.ClampAdjusted,
		)
		if err != nil {
			return fmt.Errorf("insert evaluation for %s: %w", evaluation.ResultID, err)
		}
	}
	return nil
}

func (r *RunRepositoryPG) GetRun(ctx context.Context, runID string) (*domain.IterationRun, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetRun, runID)
	run, err := scanRun(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ClaimQueuedRun atomically takes ownership of the oldest queued run, flipping
// it to running. It returns ErrNotFound when no run is waiting, which the
// worker treats as an idle poll.
func (r *RunRepositoryPG) ClaimQueuedRun(ctx context.Context) (*domain.IterationRun, error) {
	row := r.db.QueryRow(ctx, sqlinline.QClaimQueuedRun)
	run, err := scanRun(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("claim queued run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepositoryPG) ListRuns(ctx context.Context, limit int) ([]domain.IterationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, sqlinline.QListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.IterationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListResults returns every result of a run with any attached evaluation.
func (r *RunRepositoryPG) ListResults(ctx context.Context, runID string) ([]ScoredResult, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListResultsByRun, runID)
	if err != nil {
		return nil, fmt.Errorf("list results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var results []ScoredResult
	for rows.Next() {
		var (
			item          ScoredResult
			status        string
			overallScore  *float64
			criteriaRaw   []byte
			reasoning     *string
			strategy      *string
			clampAdjusted *bool
		)
		if err := rows.Scan(
			&item.Result.ID,
			&item.Result.Job.RunID,
			&item.Result.Job.Iteration,
			&item.Result.Job.SourcePhotoID,
			&item.Result.Job.StyleGroup,
			&item.Result.PromptUsed,
			&item.Result.Job.Provider,
			&item.Result.BlobKey,
			&item.Result.MIME,
			&status,
			&item.Result.ErrorDetail,
			&item.Result.CreatedAt,
			&overallScore,
			&criteriaRaw,
			&reasoning,
			&strategy,
			&clampAdjusted,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		item.Result.Status = domain.ResultStatus(status)
		item.Result.Job.Prompt = item.Result.PromptUsed
		if strategy != nil {
			evaluation := &domain.Evaluation{
				ResultID:     item.Result.ID,
				OverallScore: overallScore,
				Strategy:     *strategy,
			}
			if reasoning != nil {
				evaluation.Reasoning = *reasoning
			}
			if clampAdjusted != nil {
				evaluation.ClampAdjusted = *clampAdjusted
			}
			if len(criteriaRaw) > 0 {
				if err := json.Unmarshal(criteriaRaw, &evaluation.CriteriaScores); err != nil {
					return nil, fmt.Errorf("decode criteria scores for %s: %w", item.Result.ID, err)
				}
			}
			item.Evaluation = evaluation
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// ScoreResult records a human rating on a pending manual evaluation.
func (r *RunRepositoryPG) ScoreResult(ctx context.Context, resultID string, score float64, note string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QScoreResultManually, resultID, score, note)
	if err != nil {
		return fmt.Errorf("score result %s: %w", resultID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("score result %s: %w", resultID, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.IterationRun, error) {
	var (
		run         domain.IterationRun
		status      string
		configRaw   []byte
		startedAt   time.Time
		completedAt *time.Time
	)
	if err := row.Scan(
		&run.ID,
		&status,
		&configRaw,
		&run.CurrentIteration,
		&run.TotalIterations,
		&run.CompletedResults,
		&run.FailedResults,
		&run.ErrorMessage,
		&startedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = startedAt
	run.CompletedAt = completedAt
	var cfg jsoncfg.RunConfig
	if err := json.Unmarshal(configRaw, &cfg); err != nil {
		return nil, fmt.Errorf("decode run config: %w", err)
	}
	run.Config = cfg
	return &run, nil
}

var _ domain.RunStore = (*RunRepositoryPG)(nil)

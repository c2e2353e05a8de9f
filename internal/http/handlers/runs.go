package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"portraitlab/internal/adapter/repo"
	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/queue"
)

// createRunRequest mirrors jsoncfg.RunConfig but keeps the delay knobs as
// pointers so an omitted field gets the server default while an explicit zero
// disables the delay.
type createRunRequest struct {
	jsoncfg.RunConfig
	InterBatchDelayMS *int `json:"inter_batch_delay_ms,omitempty"`
	InterRoundDelayMS *int `json:"inter_round_delay_ms,omitempty"`
	EvaluatorDelayMS  *int `json:"evaluator_delay_ms,omitempty"`
}

type runResponse struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	CurrentIteration int               `json:"current_iteration"`
	TotalIterations  int               `json:"total_iterations"`
	CompletedResults int               `json:"completed_results"`
	FailedResults    int               `json:"failed_results"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	Config           jsoncfg.RunConfig `json:"config"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

func toRunResponse(run *domain.IterationRun) runResponse {
	return runResponse{
		ID:               run.ID,
		Status:           string(run.Status),
		CurrentIteration: run.CurrentIteration,
		TotalIterations:  run.TotalIterations,
		CompletedResults: run.CompletedResults,
		FailedResults:    run.FailedResults,
		ErrorMessage:     run.ErrorMessage,
		Config:           run.Config,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
	}
}

// CreateRun validates the config, persists the run as queued, and hands it to
// a worker.
func (a *App) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	cfg := req.RunConfig
	cfg.InterBatchDelayMS = delayOrDefault(req.InterBatchDelayMS, jsoncfg.DefaultInterBatchDelayMS)
	cfg.InterRoundDelayMS = delayOrDefault(req.InterRoundDelayMS, jsoncfg.DefaultInterRoundDelayMS)
	cfg.EvaluatorDelayMS = delayOrDefault(req.EvaluatorDelayMS, jsoncfg.DefaultEvaluatorDelayMS)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}

	run := &domain.IterationRun{
		ID:              uuid.NewString(),
		Status:          domain.RunQueued,
		TotalIterations: cfg.TotalIterations,
		Config:          cfg,
		StartedAt:       time.Now().UTC(),
	}
	if err := a.Runs.CreateRun(r.Context(), run); err != nil {
		a.Logger.Error().Err(err).Msg("http: create run")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create run")
		return
	}
	if err := a.Queue.Enqueue(r.Context(), run.ID); err != nil {
		a.Logger.Error().Err(err).Str("run_id", run.ID).Msg("http: enqueue run")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue run")
		return
	}
	a.json(w, http.StatusAccepted, toRunResponse(run))
}

func (a *App) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := a.Runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: get run")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load run")
		return
	}
	a.json(w, http.StatusOK, toRunResponse(run))
}

func (a *App) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := a.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: list runs")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list runs")
		return
	}
	items := make([]runResponse, 0, len(runs))
	for i := range runs {
		items = append(items, toRunResponse(&runs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

type resultItem struct {
	ID            string             `json:"id"`
	Iteration     int                `json:"iteration"`
	SourcePhotoID string             `json:"source_photo_id,omitempty"`
	StyleGroup    string             `json:"style_group,omitempty"`
	Prompt        string             `json:"prompt"`
	Provider      string             `json:"provider"`
	BlobKey       string             `json:"blob_key,omitempty"`
	MIME          string             `json:"mime,omitempty"`
	Status        string             `json:"status"`
	ErrorDetail   string             `json:"error_detail,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	Evaluation    *evaluationPayload `json:"evaluation,omitempty"`
}

type evaluationPayload struct {
	OverallScore   *float64           `json:"overall_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	Reasoning      string             `json:"reasoning,omitempty"`
	Strategy       string             `json:"strategy"`
	ClampAdjusted  bool               `json:"clamp_adjusted,omitempty"`
}

func (a *App) RunResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if _, err := a.Runs.GetRun(r.Context(), runID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: get run")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load run")
		return
	}
	results, err := a.Runs.ListResults(r.Context(), runID)
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: list results")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load results")
		return
	}
	items := make([]resultItem, 0, len(results))
	for _, scored := range results {
		items = append(items, toResultItem(scored))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func toResultItem(scored repo.ScoredResult) resultItem {
	item := resultItem{
		ID:            scored.Result.ID,
		Iteration:     scored.Result.Job.Iteration,
		SourcePhotoID: scored.Result.Job.SourcePhotoID,
		StyleGroup:    scored.Result.Job.StyleGroup,
		Prompt:        scored.Result.PromptUsed,
		Provider:      scored.Result.Job.Provider,
		BlobKey:       scored.Result.BlobKey,
		MIME:          scored.Result.MIME,
		Status:        string(scored.Result.Status),
		ErrorDetail:   scored.Result.ErrorDetail,
		CreatedAt:     scored.Result.CreatedAt,
	}
	if scored.Evaluation != nil {
		item.Evaluation = &evaluationPayload{
			OverallScore:   scored.Evaluation.OverallScore,
			CriteriaScores: scored.Evaluation.CriteriaScores,
			Reasoning:      scored.Evaluation.Reasoning,
			Strategy:       scored.Evaluation.Strategy,
			ClampAdjusted:  scored.Evaluation.ClampAdjusted,
		}
	}
	return item
}

// PauseRun, ResumeRun, and StopRun relay control signals to the worker owning
// the run. Signals apply at the next iteration boundary.
func (a *App) PauseRun(w http.ResponseWriter, r *http.Request) {
	a.signal(w, r, queue.SignalPause)
}

func (a *App) ResumeRun(w http.ResponseWriter, r *http.Request) {
	a.signal(w, r, queue.SignalResume)
}

func (a *App) StopRun(w http.ResponseWriter, r *http.Request) {
	a.signal(w, r, queue.SignalStop)
}

func (a *App) signal(w http.ResponseWriter, r *http.Request, signal queue.Signal) {
	runID := chi.URLParam(r, "run_id")
	run, err := a.Runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: get run")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load run")
		return
	}
	switch run.Status {
	case domain.RunCompleted, domain.RunFailed:
		a.error(w, http.StatusConflict, "run_finished", "run already reached a terminal state")
		return
	}
	if err := a.Queue.Send(r.Context(), runID, signal); err != nil {
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("http: send signal")
		a.error(w, http.StatusInternalServerError, "internal", "failed to deliver signal")
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"run_id": runID, "signal": string(signal)})
}

type scoreRequest struct {
	Score *float64 `json:"score"`
	Note  string   `json:"note,omitempty"`
}

// ScoreResult records a human rating on a pending manual evaluation.
func (a *App) ScoreResult(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "result_id")
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Score == nil || *req.Score < 0 || *req.Score > 10 {
		a.error(w, http.StatusBadRequest, "bad_request", "score must be between 0 and 10")
		return
	}
	if err := a.Runs.ScoreResult(r.Context(), resultID, *req.Score, req.Note); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no pending manual evaluation for result")
			return
		}
		a.Logger.Error().Err(err).Str("result_id", resultID).Msg("http: score result")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record score")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"result_id": resultID, "score": *req.Score})
}

func delayOrDefault(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	if *v < 0 {
		return 0
	}
	return *v
}

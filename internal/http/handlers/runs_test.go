package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"portraitlab/internal/adapter/repo"
	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/queue"
)

type stubRunStore struct {
	created *domain.IterationRun
	run     *domain.IterationRun
	results []repo.ScoredResult
	scored  map[string]float64
	err     error
}

func (s *stubRunStore) CreateRun(_ context.Context, run *domain.IterationRun) error {
	s.created = run
	return s.err
}

func (s *stubRunStore) GetRun(_ context.Context, runID string) (*domain.IterationRun, error) {
	if s.run == nil || s.run.ID != runID {
		return nil, domain.ErrNotFound
	}
	return s.run, nil
}

func (s *stubRunStore) ListRuns(context.Context, int) ([]domain.IterationRun, error) {
	if s.run == nil {
		return nil, nil
	}
	return []domain.IterationRun{*s.run}, nil
}

func (s *stubRunStore) ListResults(context.Context, string) ([]repo.ScoredResult, error) {
	return s.results, nil
}

func (s *stubRunStore) ScoreResult(_ context.Context, resultID string, score float64, _ string) error {
	if s.scored == nil {
		s.scored = map[string]float64{}
	}
	if resultID == "unknown" {
		return domain.ErrNotFound
	}
	s.scored[resultID] = score
	return nil
}

type stubQueue struct {
	enqueued []string
	signals  map[string][]queue.Signal
	err      error
}

func (s *stubQueue) Enqueue(_ context.Context, runID string) error {
	s.enqueued = append(s.enqueued, runID)
	return s.err
}

func (s *stubQueue) Send(_ context.Context, runID string, signal queue.Signal) error {
	if s.signals == nil {
		s.signals = map[string][]queue.Signal{}
	}
	s.signals[runID] = append(s.signals[runID], signal)
	return s.err
}

type stubCredentials struct {
	provider string
	token    string
}

func (s *stubCredentials) SetToken(_ context.Context, provider, token string) error {
	s.provider = provider
	s.token = token
	return nil
}

func newTestApp(store *stubRunStore, q *stubQueue) *App {
	return &App{Runs: store, Queue: q, Credentials: &stubCredentials{}}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateRunAppliesDefaultsAndEnqueues(t *testing.T) {
	store := &stubRunStore{}
	q := &stubQueue{}
	app := newTestApp(store, q)

	body := []byte(`{
		"photo_ids": ["cat.jpg"],
		"provider": "direct_edit",
		"seed_prompts": ["watercolor cat"],
		"inter_round_delay_ms": 0
	}`)
	rec := httptest.NewRecorder()
	app.CreateRun(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.created == nil {
		t.Fatal("run was not persisted")
	}
	cfg := store.created.Config
	if cfg.BatchSize != jsoncfg.DefaultBatchSize {
		t.Fatalf("batch size = %d, want default", cfg.BatchSize)
	}
	if cfg.InterBatchDelayMS != jsoncfg.DefaultInterBatchDelayMS {
		t.Fatalf("inter batch delay = %d, want default", cfg.InterBatchDelayMS)
	}
	// Explicit zero must survive, not be replaced by the default.
	if cfg.InterRoundDelayMS != 0 {
		t.Fatalf("inter round delay = %d, want 0", cfg.InterRoundDelayMS)
	}
	if store.created.Status != domain.RunQueued {
		t.Fatalf("status = %s, want queued", store.created.Status)
	}
	if len(q.enqueued) != 1 || q.enqueued[0] != store.created.ID {
		t.Fatalf("enqueued = %v", q.enqueued)
	}
}

func TestCreateRunRejectsInvalidConfig(t *testing.T) {
	app := newTestApp(&stubRunStore{}, &stubQueue{})

	body := []byte(`{"provider": "direct_edit"}`)
	rec := httptest.NewRecorder()
	app.CreateRun(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	app := newTestApp(&stubRunStore{}, &stubQueue{})

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil), "run_id", "nope")
	app.GetRun(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRunResultsIncludesEvaluation(t *testing.T) {
	run := &domain.IterationRun{ID: "run-1", Status: domain.RunCompleted}
	score := 8.5
	store := &stubRunStore{
		run: run,
		results: []repo.ScoredResult{
			{
				Result: domain.GeneratedResult{
					ID:         "res-1",
					Job:        domain.GenerationJob{RunID: "run-1", Iteration: 1, Provider: "direct_edit"},
					PromptUsed: "watercolor cat",
					Status:     domain.ResultSucceeded,
					CreatedAt:  time.Now(),
				},
				Evaluation: &domain.Evaluation{ResultID: "res-1", OverallScore: &score, Strategy: "rubric"},
			},
		},
	}
	app := newTestApp(store, &stubQueue{})

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/results", nil), "run_id", "run-1")
	app.RunResults(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Items []resultItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 {
		t.Fatalf("items = %d", len(payload.Items))
	}
	if payload.Items[0].Evaluation == nil || *payload.Items[0].Evaluation.OverallScore != 8.5 {
		t.Fatalf("evaluation missing or wrong: %+v", payload.Items[0].Evaluation)
	}
}

func TestPauseSignalsWorker(t *testing.T) {
	run := &domain.IterationRun{ID: "run-1", Status: domain.RunRunning}
	q := &stubQueue{}
	app := newTestApp(&stubRunStore{run: run}, q)

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/v1/runs/run-1/pause", nil), "run_id", "run-1")
	app.PauseRun(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := q.signals["run-1"]; len(got) != 1 || got[0] != queue.SignalPause {
		t.Fatalf("signals = %v", got)
	}
}

func TestSignalRejectedOnFinishedRun(t *testing.T) {
	run := &domain.IterationRun{ID: "run-1", Status: domain.RunCompleted}
	app := newTestApp(&stubRunStore{run: run}, &stubQueue{})

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/v1/runs/run-1/stop", nil), "run_id", "run-1")
	app.StopRun(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestScoreResultValidatesRange(t *testing.T) {
	store := &stubRunStore{}
	app := newTestApp(store, &stubQueue{})

	for _, body := range []string{`{"score": -1}`, `{"score": 11}`, `{}`} {
		rec := httptest.NewRecorder()
		req := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/results/res-1/score", bytes.NewReader([]byte(body))), "result_id", "res-1")
		app.ScoreResult(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/results/res-1/score", bytes.NewReader([]byte(`{"score": 7.5}`))), "result_id", "res-1")
	app.ScoreResult(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if store.scored["res-1"] != 7.5 {
		t.Fatalf("scored = %v", store.scored)
	}
}

func TestSetCredential(t *testing.T) {
	creds := &stubCredentials{}
	app := &App{Runs: &stubRunStore{}, Queue: &stubQueue{}, Credentials: creds}

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/credentials/gemini", bytes.NewReader([]byte(`{"api_key":"sk-1"}`))), "provider", "gemini")
	app.SetCredential(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if creds.provider != "gemini" || creds.token != "sk-1" {
		t.Fatalf("stored %q %q", creds.provider, creds.token)
	}
}

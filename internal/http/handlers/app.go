package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"portraitlab/internal/adapter/repo"
	"portraitlab/internal/domain"
	"portraitlab/internal/infra"
	"portraitlab/internal/queue"
)

// runStore is the slice of the repository the HTTP layer needs.
type runStore interface {
	CreateRun(ctx context.Context, run *domain.IterationRun) error
	GetRun(ctx context.Context, runID string) (*domain.IterationRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.IterationRun, error)
	ListResults(ctx context.Context, runID string) ([]repo.ScoredResult, error)
	ScoreResult(ctx context.Context, resultID string, score float64, note string) error
}

// controlQueue hands created runs to workers and relays control signals.
type controlQueue interface {
	Enqueue(ctx context.Context, runID string) error
	Send(ctx context.Context, runID string, signal queue.Signal) error
}

// tokenStore persists provider API keys for rotation at runtime.
type tokenStore interface {
	SetToken(ctx context.Context, provider, token string) error
}

// blobReader loads generated image bytes for the archive download.
type blobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

type App struct {
	Runs        runStore
	Queue       controlQueue
	Credentials tokenStore
	Blobs       blobReader
	Config      *infra.Config
	Logger      infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": kind, "message": message},
	})
}

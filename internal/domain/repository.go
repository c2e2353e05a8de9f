package domain

import "context"

// RunStore persists iteration runs and their per-round output. The engine only
// depends on these operations succeeding or returning a recoverable error; it
// is agnostic to the storage engine behind them.
type RunStore interface {
	CreateRun(ctx context.Context, run *IterationRun) error
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus, errMsg string) error
	UpdateRunProgress(ctx context.Context, progress Progress) error
	InsertResults(ctx context.Context, results []GeneratedResult) error
	InsertEvaluations(ctx context.Context, evaluations []Evaluation) error
	GetRun(ctx context.Context, runID string) (*IterationRun, error)
}

// PhotoStore fetches source photo bytes. The engine never writes photos.
type PhotoStore interface {
	FetchPhoto(ctx context.Context, photoID string) (data []byte, mime string, err error)
}

// BlobStore persists generated image bytes under a storage key.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

package domain

import (
	"time"

	"portraitlab/internal/domain/jsoncfg"
)

// RunStatus enumerates the lifecycle states of an iteration run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IterationRun is the mutable root of one generate-evaluate-select loop.
// Exactly one controller instance owns a run while it is active; every other
// component only reads it.
type IterationRun struct {
	ID               string
	Status           RunStatus
	CurrentIteration int
	TotalIterations  int
	CompletedResults int
	FailedResults    int
	Config           jsoncfg.RunConfig
	ErrorMessage     string
	StartedAt        time.Time
	CompletedAt      *time.Time
}

// Active reports whether the run still owns its controller loop.
func (r IterationRun) Active() bool {
	return r.Status == RunRunning || r.Status == RunPaused
}

// Progress is the externally visible counter set, written at round start, at
// the start of every batch chunk, and once more when the round settles with
// CurrentBatch reset to zero.
type Progress struct {
	RunID            string
	CurrentIteration int
	TotalIterations  int
	Completed        int
	Failed           int
	CurrentBatch     int
}

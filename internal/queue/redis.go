package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portraitlab/internal/infra"
)

const (
	// runQueueKey holds run IDs waiting for a worker, oldest at the tail.
	runQueueKey = "runs:queue"
	// controlKeyPrefix namespaces the per-run control signal lists.
	controlKeyPrefix = "runs:control:"
	// controlTTL bounds how long an undelivered signal survives.
	controlTTL = 24 * time.Hour
)

// Signal is a control command routed from the API to the worker owning a run.
type Signal string

const (
	SignalPause  Signal = "pause"
	SignalResume Signal = "resume"
	SignalStop   Signal = "stop"
)

// ErrEmpty reports that a blocking pop timed out with nothing queued.
var ErrEmpty = errors.New("queue: empty")

type redisCommands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Queue hands run IDs from the API to workers and relays pause/resume/stop
// signals back to whichever worker claimed the run.
type Queue struct {
	rdb    redisCommands
	logger infra.Logger
}

func New(rdb *redis.Client, logger infra.Logger) *Queue {
	return &Queue{rdb: rdb, logger: logger}
}

// Enqueue schedules a run for the next free worker.
func (q *Queue) Enqueue(ctx context.Context, runID string) error {
	if err := q.rdb.LPush(ctx, runQueueKey, runID).Err(); err != nil {
		return fmt.Errorf("enqueue run %s: %w", runID, err)
	}
	q.logger.Info().Str("run_id", runID).Msg("queue: run enqueued")
	return nil
}

// Dequeue blocks up to timeout for the next queued run ID. It returns ErrEmpty
// on timeout so the worker loop can poll without treating it as a failure.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.rdb.BRPop(ctx, timeout, runQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("dequeue run: %w", err)
	}
	// BRPOP returns [key, value].
	if len(result) != 2 {
		return "", fmt.Errorf("dequeue run: unexpected reply length %d", len(result))
	}
	return result[1], nil
}

// Send delivers a control signal to the worker owning the run. Signals queue
// up if the worker is mid-batch; it drains them at the next boundary.
func (q *Queue) Send(ctx context.Context, runID string, signal Signal) error {
	switch signal {
	case SignalPause, SignalResume, SignalStop:
	default:
		return fmt.Errorf("unknown control signal %q", signal)
	}
	key := controlKey(runID)
	if err := q.rdb.LPush(ctx, key, string(signal)).Err(); err != nil {
		return fmt.Errorf("send %s to run %s: %w", signal, runID, err)
	}
	if err := q.rdb.Expire(ctx, key, controlTTL).Err(); err != nil {
		q.logger.Warn().Err(err).Str("run_id", runID).Msg("queue: set control ttl")
	}
	return nil
}

// NextSignal blocks up to timeout for the next control signal aimed at runID.
// ErrEmpty means no signal arrived in time.
func (q *Queue) NextSignal(ctx context.Context, runID string, timeout time.Duration) (Signal, error) {
	result, err := q.rdb.BRPop(ctx, timeout, controlKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("receive signal for run %s: %w", runID, err)
	}
	if len(result) != 2 {
		return "", fmt.Errorf("receive signal for run %s: unexpected reply length %d", runID, len(result))
	}
	return Signal(result[1]), nil
}

// Clear drops any undelivered signals once a run reaches a terminal state.
func (q *Queue) Clear(ctx context.Context, runID string) error {
	if err := q.rdb.Del(ctx, controlKey(runID)).Err(); err != nil {
		return fmt.Errorf("clear signals for run %s: %w", runID, err)
	}
	return nil
}

func controlKey(runID string) string {
	return controlKeyPrefix + runID
}

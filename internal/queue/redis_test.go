package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubRedis struct {
	pushed  map[string][]string
	popped  []string
	popErr  error
	deleted []string
}

func newStubRedis() *stubRedis {
	return &stubRedis{pushed: map[string][]string{}}
}

func (s *stubRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		s.pushed[key] = append(s.pushed[key], v.(string))
	}
	return redis.NewIntResult(int64(len(s.pushed[key])), nil)
}

func (s *stubRedis) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	if s.popErr != nil {
		return redis.NewStringSliceResult(nil, s.popErr)
	}
	if len(s.popped) == 0 {
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	value := s.popped[0]
	s.popped = s.popped[1:]
	return redis.NewStringSliceResult([]string{keys[0], value}, nil)
}

func (s *stubRedis) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	s.deleted = append(s.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestEnqueueDequeue(t *testing.T) {
	rdb := newStubRedis()
	q := &Queue{rdb: rdb}

	if err := q.Enqueue(context.Background(), "run-42"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if got := rdb.pushed[runQueueKey]; len(got) != 1 || got[0] != "run-42" {
		t.Fatalf("pushed = %v", got)
	}

	rdb.popped = []string{"run-42"}
	runID, err := q.Dequeue(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if runID != "run-42" {
		t.Fatalf("run id = %q", runID)
	}
}

func TestDequeueTimeoutReturnsEmpty(t *testing.T) {
	q := &Queue{rdb: newStubRedis()}
	if _, err := q.Dequeue(context.Background(), time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestSendRoutesToControlKey(t *testing.T) {
	rdb := newStubRedis()
	q := &Queue{rdb: rdb}

	if err := q.Send(context.Background(), "run-7", SignalPause); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := rdb.pushed["runs:control:run-7"]; len(got) != 1 || got[0] != "pause" {
		t.Fatalf("control list = %v", got)
	}
}

func TestSendRejectsUnknownSignal(t *testing.T) {
	q := &Queue{rdb: newStubRedis()}
	if err := q.Send(context.Background(), "run-7", Signal("restart")); err == nil {
		t.Fatal("expected error for unknown signal")
	}
}

func TestNextSignal(t *testing.T) {
	rdb := newStubRedis()
	rdb.popped = []string{"stop"}
	q := &Queue{rdb: rdb}

	signal, err := q.NextSignal(context.Background(), "run-7", time.Second)
	if err != nil {
		t.Fatalf("next signal: %v", err)
	}
	if signal != SignalStop {
		t.Fatalf("signal = %q", signal)
	}

	if _, err := q.NextSignal(context.Background(), "run-7", time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestClearDeletesControlKey(t *testing.T) {
	rdb := newStubRedis()
	q := &Queue{rdb: rdb}
	if err := q.Clear(context.Background(), "run-7"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(rdb.deleted) != 1 || rdb.deleted[0] != "runs:control:run-7" {
		t.Fatalf("deleted = %v", rdb.deleted)
	}
}

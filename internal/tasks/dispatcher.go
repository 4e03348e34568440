// Package tasks implements the Background Task Dispatcher: a thin typed
// wrapper over a Redis-backed durable queue with retry, exponential
// backoff, and a dead-letter queue on exhaustion (spec §4.10).
//
// Grounded on other_examples' go-redis Streams message broker
// (agent_message_broker.go) for the worker-pool / retry-count / dead-letter
// shape, simplified from consumer-group Streams semantics down to the
// single list-based queue spec.md calls for ("list operations (push_left,
// trim, expire)").
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RetryPolicy controls how many times a task is retried and how backoff
// scales (spec §4.10 defaults: max_attempts=3, initial_backoff=30s, jitter=0.2).
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Jitter         float64
}

// DefaultRetryPolicy matches spec §4.10's defaults.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, InitialBackoff: 30 * time.Second, Jitter: 0.2}

// Task is a durable unit of work.
type Task struct {
	Queue     string          `json:"queue"`
	Name      string          `json:"task_name"`
	Args      json.RawMessage `json:"args"`
	Attempt   int             `json:"attempt"`
	TraceID   string          `json:"trace_id,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// deadLetterSuffix names the companion queue tasks move to after the
// retry policy is exhausted.
const deadLetterSuffix = ":dead_letter"

// Dispatcher enqueues tasks onto Redis lists and is shared across requests,
// the same read-mostly handle shape as the store's connection pool.
type Dispatcher struct {
	rdb    *redis.Client
	logger *zap.Logger
	policy RetryPolicy
}

// NewDispatcher builds a Dispatcher with policy (DefaultRetryPolicy if zero-value).
func NewDispatcher(rdb *redis.Client, logger *zap.Logger, policy RetryPolicy) *Dispatcher {
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy
	}
	return &Dispatcher{rdb: rdb, logger: logger, policy: policy}
}

// Enqueue pushes a task onto queue. Returns an error to the caller (the
// orchestrator logs and continues per spec §4.4 step 6: "If the dispatcher
// is unavailable, log and continue; do not fail the already-committed sale").
func (d *Dispatcher) Enqueue(ctx context.Context, queue, taskName string, args any, traceID string) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal task args: %w", err)
	}
	t := Task{
		Queue:      queue,
		Name:       taskName,
		Args:       argsJSON,
		Attempt:    0,
		TraceID:    traceID,
		EnqueuedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := d.rdb.LPush(ctx, queue, body).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Handler processes one task's args; a returned error triggers a retry.
type Handler func(ctx context.Context, args json.RawMessage) error

// Worker dequeues tasks from queue and dispatches them to handler until
// ctx is cancelled, re-enqueuing with exponential backoff on failure and
// moving to <queue>:dead_letter once MaxAttempts is exhausted (spec §4.10).
func (d *Dispatcher) Worker(ctx context.Context, queue string, handler Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := d.rdb.BRPop(ctx, 5*time.Second, queue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn("worker dequeue failed", zap.Error(err), zap.String("queue", queue))
			time.Sleep(time.Second)
			continue
		}

		var t Task
		if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
			d.logger.Error("malformed task, dropping", zap.Error(err), zap.String("queue", queue))
			continue
		}

		if err := handler(ctx, t.Args); err != nil {
			d.retryOrDeadLetter(ctx, t, err)
		}
	}
}

func (d *Dispatcher) retryOrDeadLetter(ctx context.Context, t Task, cause error) {
	t.Attempt++
	if t.Attempt >= d.policy.MaxAttempts {
		d.logger.Error("task exhausted retries, moving to dead letter",
			zap.String("queue", t.Queue), zap.String("task", t.Name), zap.Error(cause))
		body, err := json.Marshal(t)
		if err != nil {
			d.logger.Error("marshal dead-letter task failed", zap.Error(err))
			return
		}
		if err := d.rdb.LPush(ctx, t.Queue+deadLetterSuffix, body).Err(); err != nil {
			d.logger.Error("dead-letter enqueue failed", zap.Error(err))
		}
		return
	}

	backoff := d.policy.InitialBackoff * time.Duration(1<<uint(t.Attempt-1))
	backoff += jitterFor(backoff, d.policy.Jitter)

	d.logger.Warn("task failed, retrying",
		zap.String("queue", t.Queue), zap.String("task", t.Name), zap.Int("attempt", t.Attempt),
		zap.Duration("backoff", backoff), zap.Error(cause))

	go func() {
		time.Sleep(backoff)
		body, err := json.Marshal(t)
		if err != nil {
			d.logger.Error("marshal retried task failed", zap.Error(err))
			return
		}
		if err := d.rdb.LPush(context.Background(), t.Queue, body).Err(); err != nil {
			d.logger.Error("retry enqueue failed", zap.Error(err))
		}
	}()
}

func jitterFor(base time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return 0
	}
	spread := float64(base) * factor
	return time.Duration(rand.Float64()*spread*2 - spread)
}

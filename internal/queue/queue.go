// Package queue is a durable redis-backed work queue with named-handler
// dispatch. Enqueued jobs are recorded before execution and handed to a
// worker pool decoupled from the request path; delivery is at-least-once with
// bounded retries. Completed and failed jobs keep an audit entry, they are
// never removed.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/config"
)

// Options control a single enqueue call.
type Options struct {
	// JobID is an explicit idempotency-friendly identifier. Generated from
	// the job name and enqueue time when empty.
	JobID string
	// MaxAttempts caps delivery attempts. Zero means the queue default.
	MaxAttempts int
	// Backoff is the base delay between attempts, growing linearly with the
	// attempt count. Zero means the queue default.
	Backoff time.Duration
}

// Envelope is the serialized form a job travels in. Payload stays raw JSON so
// 64-bit identifiers decode straight into int64 fields without passing
// through a float.
type Envelope struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	BackoffMS   int64           `json:"backoffMs"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
}

// HandlerFunc consumes one delivery of a job. A returned error triggers the
// retry policy.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

type Queue struct {
	client      *redis.Client
	name        string
	concurrency int
	maxAttempts int
	backoff     time.Duration

	mu       sync.Mutex
	handlers map[string]HandlerFunc

	done chan struct{}
	wg   sync.WaitGroup
}

// promoteScript atomically moves due delayed jobs onto the ready list.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, job in ipairs(due) do
    redis.call('RPUSH', KEYS[2], job)
    redis.call('ZREM', KEYS[1], job)
end
return #due
`)

func New(client *redis.Client, name string, concurrency, maxAttempts int) *Queue {
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Queue{
		client:      client,
		name:        name,
		concurrency: concurrency,
		maxAttempts: maxAttempts,
		backoff:     config.QueueRetryBackoff,
		handlers:    make(map[string]HandlerFunc),
		done:        make(chan struct{}),
	}
}

func (q *Queue) listKey() string    { return "queue:" + q.name }
func (q *Queue) delayedKey() string { return "queue:" + q.name + ":delayed" }
func (q *Queue) auditKey(jobID string) string {
	return "queue:" + q.name + ":job:" + jobID
}

// Register binds a handler to a job name. Must be called before Start.
func (q *Queue) Register(name string, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

// Enqueue durably records a job and returns its id as soon as it is pushed;
// execution happens on the worker pool. Payload must survive serialization —
// plain structured data only.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, opts Options) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	jobID := opts.JobID
	if jobID == "" {
		jobID = fmt.Sprintf("%s-%d", name, time.Now().UnixMilli())
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.maxAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = q.backoff
	}

	envelope := Envelope{
		ID:          jobID,
		Name:        name,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		BackoffMS:   backoff.Milliseconds(),
		EnqueuedAt:  time.Now(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.listKey(), data)
	pipe.HSet(ctx, q.auditKey(jobID), map[string]any{
		"name":       name,
		"status":     "queued",
		"attempts":   0,
		"enqueuedAt": envelope.EnqueuedAt.Format(time.RFC3339Nano),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	log.Info().Str("jobId", jobID).Str("name", name).Msg("job enqueued")
	return jobID, nil
}

// Start launches the worker pool and the delayed-job promoter.
func (q *Queue) Start() {
	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.wg.Add(1)
	go q.promoter()
	log.Info().Int("concurrency", q.concurrency).Str("queue", q.name).Msg("queue workers started")
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	close(q.done)
	q.wg.Wait()
	log.Info().Str("queue", q.name).Msg("queue workers stopped")
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		default:
		}

		ctx := context.Background()
		result, err := q.client.BRPop(ctx, config.QueuePollTimeout, q.listKey()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("queue poll failed")
			select {
			case <-q.done:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var envelope Envelope
		if err := json.Unmarshal([]byte(result[1]), &envelope); err != nil {
			log.Error().Err(err).Msg("dropping undecodable job envelope")
			continue
		}
		q.process(ctx, envelope)
	}
}

func (q *Queue) promoter() {
	defer q.wg.Done()
	ticker := time.NewTicker(config.QueuePromoteEvery)
	defer ticker.Stop()
	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			ctx := context.Background()
			now := float64(time.Now().UnixMilli())
			if err := promoteScript.Run(ctx, q.client,
				[]string{q.delayedKey(), q.listKey()}, now).Err(); err != nil && err != redis.Nil {
				log.Error().Err(err).Msg("failed to promote delayed jobs")
			}
		}
	}
}

func (q *Queue) process(ctx context.Context, envelope Envelope) {
	envelope.Attempts++
	q.client.HSet(ctx, q.auditKey(envelope.ID), map[string]any{
		"status":   "active",
		"attempts": envelope.Attempts,
	})

	err := q.dispatch(ctx, envelope)
	if err == nil {
		q.client.HSet(ctx, q.auditKey(envelope.ID), map[string]any{
			"status":     "completed",
			"finishedAt": time.Now().Format(time.RFC3339Nano),
		})
		return
	}

	log.Error().Err(err).
		Str("jobId", envelope.ID).
		Str("name", envelope.Name).
		Int("attempt", envelope.Attempts).
		Msg("job handler failed")

	if envelope.Attempts < envelope.MaxAttempts {
		q.scheduleRetry(ctx, envelope, err)
		return
	}

	q.client.HSet(ctx, q.auditKey(envelope.ID), map[string]any{
		"status":     "failed",
		"lastError":  err.Error(),
		"finishedAt": time.Now().Format(time.RFC3339Nano),
	})
}

func (q *Queue) scheduleRetry(ctx context.Context, envelope Envelope, cause error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Str("jobId", envelope.ID).Msg("failed to reserialize job for retry")
		return
	}

	readyAt := time.Now().Add(nextBackoff(envelope))
	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: data,
	})
	pipe.HSet(ctx, q.auditKey(envelope.ID), map[string]any{
		"status":    "retrying",
		"lastError": cause.Error(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("jobId", envelope.ID).Msg("failed to schedule retry")
	}
}

func (q *Queue) dispatch(ctx context.Context, envelope Envelope) error {
	q.mu.Lock()
	handler, ok := q.handlers[envelope.Name]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler registered for job %q", envelope.Name)
	}
	return handler(ctx, envelope.Payload)
}

// nextBackoff grows linearly with the attempt count.
func nextBackoff(envelope Envelope) time.Duration {
	backoff := time.Duration(envelope.BackoffMS) * time.Millisecond
	return backoff * time.Duration(envelope.Attempts)
}

package worker

// dlq.go: dead-letter lists
// A job that exhausts its retries, or that no handler understands, is parked in
// dlq:{source queue}. Operators inspect and requeue them with `advctl dead-letters`.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// Job rebuilds the queue envelope the entry was taken from.
func (e DLQEntry) Job() ([]byte, error) {
	if e.JobType == "" || e.JobType == "unknown" {
		return nil, fmt.Errorf("entry from %s has no job type", e.OriginalQueue)
	}
	return json.Marshal(Job{Type: e.JobType, Payload: e.Payload})
}

// DeadLetters reads and writes the dead-letter lists.
type DeadLetters struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDeadLetters(rdb *redis.Client) *DeadLetters {
	return &DeadLetters{rdb: rdb, now: time.Now}
}

// Push parks a failed job. Failures to write are logged, never returned: the
// caller is already on an error path.
func (d *DeadLetters) Push(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      d.now().UTC(),
		Attempts:      attempts,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal entry")
		return
	}
	if err := d.rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: push failed")
		return
	}
	infra.DeadLettered.WithLabelValues(queue).Inc()
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job dead-lettered")
}

func (d *DeadLetters) Len(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// Peek returns up to n entries, newest first, without removing them.
func (d *DeadLetters) Peek(ctx context.Context, queue string, n int64) ([]DLQEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := d.rdb.LRange(ctx, DLQPrefix+queue, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raw))
	for _, r := range raw {
		var e DLQEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: unreadable entry skipped")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Requeue moves up to max entries, oldest first, back onto their source queue.
// An entry without a usable job type is pushed back to the dead-letter list and
// stops the run.
func (d *DeadLetters) Requeue(ctx context.Context, queue string, max int) (int, error) {
	key := DLQPrefix + queue
	moved := 0
	for moved < max {
		raw, err := d.rdb.RPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}

		var e DLQEntry
		job, err := decodeEntryJob(raw, &e)
		if err != nil {
			_ = d.rdb.RPush(ctx, key, raw).Err()
			return moved, err
		}
		if err := d.rdb.LPush(ctx, e.OriginalQueue, job).Err(); err != nil {
			_ = d.rdb.RPush(ctx, key, raw).Err()
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("requeued", moved).Msg("dlq: entries requeued")
	}
	return moved, nil
}

func decodeEntryJob(raw string, e *DLQEntry) ([]byte, error) {
	if err := json.Unmarshal([]byte(raw), e); err != nil {
		return nil, fmt.Errorf("dlq entry: %w", err)
	}
	if e.OriginalQueue == "" {
		return nil, errors.New("dlq entry has no source queue")
	}
	return e.Job()
}

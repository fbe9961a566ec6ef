package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueGeneration   = "jobs:register_generation"
	QueueComplaintAck = "jobs:complaint_ack"
	QueueEmail        = "jobs:email"
)

const (
	JobGeneration   = "register_generation"
	JobComplaintAck = "complaint_ack"
	JobEmail        = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes the payload of one job type.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) error

func (f HandlerFunc) Process(ctx context.Context, raw json.RawMessage) error { return f(ctx, raw) }

// ── Dispatcher ───────────────────────────────────────────────────────────────

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueGeneration pushes a register generation job.
func (d *Dispatcher) EnqueueGeneration(ctx context.Context, payload GenerationJobPayload) error {
	return d.enqueue(ctx, QueueGeneration, JobGeneration, payload)
}

// EnqueueComplaintAck pushes the acknowledgement of a freshly filed complaint.
func (d *Dispatcher) EnqueueComplaintAck(ctx context.Context, payload ComplaintAckPayload) error {
	return d.enqueue(ctx, QueueComplaintAck, JobComplaintAck, payload)
}

// EnqueueEmail pushes an email job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// ── Pool ─────────────────────────────────────────────────────────────────────

type deadLetterFunc func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int)

// Pool consumes the registered queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	queues   []string
	dlq      deadLetterFunc
	// errBackoff is how long a worker waits after a failed BRPOP.
	errBackoff time.Duration
	wg         sync.WaitGroup
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{
		rdb:        rdb,
		handlers:   make(map[string]Handler),
		dlq:        NewDeadLetters(rdb).Push,
		errBackoff: time.Second,
	}
}

// Register binds a job type to its handler and adds its queue to the BRPOP set.
// Must be called before Start.
func (p *Pool) Register(jobType, queue string, h Handler) {
	p.handlers[jobType] = h
	for _, q := range p.queues {
		if q == queue {
			return
		}
	}
	p.queues = append(p.queues, queue)
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle workers
// cost nothing. Workers exit when ctx is cancelled; Wait blocks until they have.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					// redis down: don't spin on an error that returns at once
					log.Warn().Err(err).Int("worker", id).Msg("brpop failed")
					p.pause(ctx)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) pause(ctx context.Context) {
	t := time.NewTimer(p.errBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.dlq(ctx, queue, "unknown", json.RawMessage(raw), "malformed envelope: "+err.Error(), 0)
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("queue", queue).Str("type", job.Type).Msg("no handler registered for job type")
		p.dlq(ctx, queue, job.Type, job.Payload, "no handler registered", 0)
		return
	}

	start := time.Now()
	if err := h.Process(ctx, job.Payload); err != nil {
		log.Error().Err(err).Str("type", job.Type).Str("queue", queue).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Debug().Str("type", job.Type).Dur("took", time.Since(start)).Msg("job done")
}

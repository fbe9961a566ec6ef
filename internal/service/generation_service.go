package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/registercode"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/luksuri-reka/advanta-cc-sub001/internal/service")

// ── Generator ────────────────────────────────────────────────────────────────

// Generator writes the registers of one production in sequential chunks and
// publishes a progress record after every chunk. It does not check whether the
// lot was generated before; callers apply that guard. A failed chunk stops the
// job and leaves the rows already written in place.
type Generator struct {
	registers   repository.RegisterRepository
	productions repository.ProductionRepository
	store       progress.Store
	verify      VerifyCache // nil when lookups are not cached
	now         func() time.Time
}

func NewGenerator(
	registers repository.RegisterRepository,
	productions repository.ProductionRepository,
	store progress.Store,
	verify VerifyCache,
) *Generator {
	return &Generator{registers: registers, productions: productions, store: store, verify: verify, now: time.Now}
}

// Run generates p.LotTotal registers stamped with qrToken and returns how many
// rows were processed.
func (g *Generator) Run(ctx context.Context, p *model.Production, qrToken, jobID string) (int, error) {
	lotCodes := codesOf(p)
	serialStart := registercode.ParseSerial(p.LabResultSerialNumber)
	total := p.LotTotal
	size := registercode.BatchSize(total)
	batches := registercode.BatchCount(total)

	ctx, span := tracer.Start(ctx, "registers.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", jobID),
		attribute.String("production.id", p.ID.String()),
		attribute.Int("registers.total", total),
		attribute.Int("registers.batch_size", size),
	)

	logger := log.With().Str("job_id", jobID).Str("production_id", p.ID.String()).Str("lot_number", p.LotNumber).Logger()

	rec := progress.Progress{
		JobID:        jobID,
		ProductionID: p.ID.String(),
		TotalBatches: batches,
		Total:        total,
		Status:       progress.StatusProcessing,
		StartedAt:    g.now(),
	}
	g.publish(ctx, rec)

	fail := func(err error) (int, error) {
		rec.Status = progress.StatusError
		rec.Message = err.Error()
		rec.ETASeconds = 0
		g.publish(ctx, rec)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		infra.GenerationJobs.WithLabelValues(progress.StatusError).Inc()
		logger.Error().Err(err).Int("inserted", rec.Inserted).Msg("register generation failed")
		return rec.Inserted, err
	}

	if total <= 0 {
		return fail(fmt.Errorf("%w: lot total must be greater than zero", ErrValidation))
	}

	written := int64(0)
	for b := 0; b < batches; b++ {
		from := b * size
		to := from + size
		if to > total {
			to = total
		}

		rows := make([]model.ProductionRegister, 0, to-from)
		for i := from; i < to; i++ {
			rows = append(rows, model.ProductionRegister{
				ProductionID: p.ID,
				Code:         registercode.CodeAt(lotCodes, i),
				SerialNumber: registercode.SerialAt(serialStart, i),
				QRToken:      qrToken,
			})
		}

		n, err := g.insertChunk(ctx, rows, b+1)
		if err != nil {
			return fail(fmt.Errorf("batch %d/%d: %w", b+1, batches, err))
		}
		written += n
		infra.RegistersGenerated.Add(float64(n))
		// new serials can make cached lookups ambiguous
		if n > 0 && g.verify != nil {
			g.verify.Invalidate(ctx)
		}

		rec.CurrentBatch = b + 1
		rec.Inserted = to
		rec.ETASeconds = progress.EstimateETA(rec.StartedAt, g.now(), rec.Inserted, total)
		g.publish(ctx, rec)
		logger.Debug().Int("batch", b+1).Int("of", batches).Int("inserted", rec.Inserted).Msg("register chunk written")
	}

	if err := g.productions.MarkGenerated(ctx, p.ID, qrToken, g.now()); err != nil {
		return fail(fmt.Errorf("stamp production: %w", err))
	}

	rec.Status = progress.StatusCompleted
	rec.ETASeconds = 0
	rec.Message = fmt.Sprintf("%d registers generated", rec.Inserted)
	g.publish(ctx, rec)
	infra.GenerationJobs.WithLabelValues(progress.StatusCompleted).Inc()

	logger.Info().
		Int("inserted", rec.Inserted).
		Int64("skipped_existing", int64(rec.Inserted)-written).
		Dur("took", g.now().Sub(rec.StartedAt)).
		Msg("register generation completed")
	return rec.Inserted, nil
}

func (g *Generator) insertChunk(ctx context.Context, rows []model.ProductionRegister, batch int) (int64, error) {
	ctx, span := tracer.Start(ctx, "registers.insert_chunk")
	defer span.End()
	span.SetAttributes(attribute.Int("batch", batch), attribute.Int("rows", len(rows)))

	start := time.Now()
	n, err := g.registers.InsertBatch(ctx, rows)
	infra.ChunkInsertSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	return n, err
}

// publish never fails the job: a lost progress write only delays the poller.
func (g *Generator) publish(ctx context.Context, rec progress.Progress) {
	rec.UpdatedAt = g.now()
	if err := g.store.Set(ctx, rec); err != nil {
		log.Warn().Err(err).Str("job_id", rec.JobID).Msg("progress write failed")
	}
}

// ── GenerationService ────────────────────────────────────────────────────────

// GenerationQueue is satisfied by *worker.Dispatcher.
type GenerationQueue interface {
	EnqueueGeneration(ctx context.Context, payload worker.GenerationJobPayload) error
}

type GenerationService interface {
	// Generate runs the job inline and returns once every chunk is written.
	Generate(ctx context.Context, scope Scope, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	// Enqueue applies the same guard and hands the job to the worker pool.
	Enqueue(ctx context.Context, scope Scope, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	// GenerateBulk processes items strictly one after another. A failing item
	// is reported in the summary and does not stop the rest.
	GenerateBulk(ctx context.Context, scope Scope, req dto.BulkGenerateRequest) (*dto.BulkSummary, error)
	Progress(ctx context.Context, jobID string) (*progress.Progress, error)
	// HandleJob is the worker handler for queued generation jobs.
	HandleJob(ctx context.Context, raw json.RawMessage) error
}

type generationService struct {
	productions  repository.ProductionRepository
	generator    *Generator
	store        progress.Store
	queue        GenerationQueue // nil disables Enqueue
	pollInterval time.Duration
}

func NewGenerationService(
	productions repository.ProductionRepository,
	generator *Generator,
	store progress.Store,
	queue GenerationQueue,
	pollInterval time.Duration,
) GenerationService {
	if pollInterval <= 0 {
		pollInterval = progress.DefaultPollInterval
	}
	return &generationService{
		productions:  productions,
		generator:    generator,
		store:        store,
		queue:        queue,
		pollInterval: pollInterval,
	}
}

func (s *generationService) Generate(ctx context.Context, scope Scope, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	p, err := s.prepare(ctx, scope, req.ProductionID, req.QRToken)
	if err != nil {
		return nil, err
	}
	jobID, err := s.jobID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	// A closed client connection must not abort a half-written lot.
	n, err := s.generator.Run(context.WithoutCancel(ctx), p, req.QRToken, jobID)
	resp := &dto.GenerateResponse{
		JobID:          jobID,
		ProductionID:   p.ID.String(),
		Status:         progress.StatusCompleted,
		Generated:      n,
		PollIntervalMs: s.pollInterval.Milliseconds(),
	}
	if err != nil {
		// the partial response tells the caller which job record holds the error
		resp.Status = progress.StatusError
		return resp, fmt.Errorf("job %s: %w", jobID, err)
	}
	return resp, nil
}

func (s *generationService) Enqueue(ctx context.Context, scope Scope, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: job queue not configured", ErrUnavailable)
	}
	p, err := s.prepare(ctx, scope, req.ProductionID, req.QRToken)
	if err != nil {
		return nil, err
	}
	jobID, err := s.jobID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := progress.Progress{
		JobID:        jobID,
		ProductionID: p.ID.String(),
		TotalBatches: registercode.BatchCount(p.LotTotal),
		Total:        p.LotTotal,
		Status:       progress.StatusProcessing,
		Message:      "queued",
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Set(ctx, rec); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("initial progress write failed")
	}

	payload := worker.GenerationJobPayload{JobID: jobID, ProductionID: p.ID.String(), QRToken: req.QRToken}
	if scope.UserID != uuid.Nil {
		payload.RequestedBy = scope.UserID.String()
	}
	if err := s.queue.EnqueueGeneration(ctx, payload); err != nil {
		rec.Status = progress.StatusError
		rec.Message = "enqueue failed: " + err.Error()
		rec.UpdatedAt = time.Now()
		_ = s.store.Set(ctx, rec)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Info().Str("job_id", jobID).Str("production_id", p.ID.String()).Msg("register generation queued")
	return &dto.GenerateResponse{
		JobID:          jobID,
		ProductionID:   p.ID.String(),
		Status:         progress.StatusProcessing,
		PollIntervalMs: s.pollInterval.Milliseconds(),
	}, nil
}

func (s *generationService) GenerateBulk(ctx context.Context, scope Scope, req dto.BulkGenerateRequest) (*dto.BulkSummary, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no items to generate", ErrValidation)
	}
	bulkID, err := s.jobID(ctx, req.BulkID)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	summary := &dto.BulkSummary{BulkID: bulkID, Total: len(req.Items), Results: make([]dto.BulkItemResult, 0, len(req.Items))}

	agg := progress.Progress{
		JobID:        bulkID,
		TotalBatches: len(req.Items),
		Total:        s.bulkTotal(ctx, req.Items),
		Status:       progress.StatusProcessing,
		StartedAt:    time.Now(),
	}
	s.publishAggregate(ctx, &agg)

	for i, item := range req.Items {
		result := dto.BulkItemResult{ProductionID: item.ProductionID, JobID: fmt.Sprintf("%s-%d", bulkID, i+1)}

		p, err := s.prepare(ctx, scope, item.ProductionID, item.QRToken)
		if err == nil {
			result.LotNumber = p.LotNumber
			result.Generated, err = s.generator.Run(ctx, p, item.QRToken, result.JobID)
		}
		if err != nil {
			result.Error = err.Error()
			summary.Failed++
		} else {
			result.Success = true
			summary.Success++
			summary.TotalGenerated += result.Generated
		}
		summary.Results = append(summary.Results, result)

		agg.CurrentBatch = i + 1
		agg.Inserted = summary.TotalGenerated
		agg.Message = fmt.Sprintf("%d of %d items processed, %d failed", i+1, len(req.Items), summary.Failed)
		agg.ETASeconds = progress.EstimateETA(agg.StartedAt, time.Now(), i+1, len(req.Items))
		s.publishAggregate(ctx, &agg)
	}

	agg.Status = progress.StatusCompleted
	if summary.Success == 0 {
		agg.Status = progress.StatusError
	}
	agg.ETASeconds = 0
	s.publishAggregate(ctx, &agg)

	log.Info().
		Str("bulk_id", bulkID).
		Int("success", summary.Success).
		Int("failed", summary.Failed).
		Int("total_generated", summary.TotalGenerated).
		Msg("bulk register generation finished")
	return summary, nil
}

// bulkTotal sums the lot totals of the items that can be loaded.
func (s *generationService) bulkTotal(ctx context.Context, items []dto.BulkItem) int {
	total := 0
	for _, item := range items {
		id, err := uuid.Parse(item.ProductionID)
		if err != nil {
			continue
		}
		if p, err := s.productions.FindByID(ctx, id); err == nil {
			total += p.LotTotal
		}
	}
	return total
}

func (s *generationService) publishAggregate(ctx context.Context, rec *progress.Progress) {
	rec.UpdatedAt = time.Now()
	if err := s.store.Set(ctx, *rec); err != nil {
		log.Warn().Err(err).Str("job_id", rec.JobID).Msg("bulk progress write failed")
	}
}

func (s *generationService) Progress(ctx context.Context, jobID string) (*progress.Progress, error) {
	p, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *generationService) HandleJob(ctx context.Context, raw json.RawMessage) error {
	var payload worker.GenerationJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("generation job: invalid payload: %w", err)
	}

	id, err := uuid.Parse(payload.ProductionID)
	if err != nil {
		return s.abortJob(ctx, payload, fmt.Errorf("%w: invalid production id", ErrValidation))
	}
	p, err := s.productions.FindByID(ctx, id)
	if err != nil {
		return s.abortJob(ctx, payload, fmt.Errorf("production: %w", fromRepo(err)))
	}
	// two requests may both pass the guard before the first job stamps the lot
	if p.Generated() {
		return s.abortJob(ctx, payload, ErrAlreadyGenerated)
	}
	// the lot may have been edited while the job waited in the queue
	if err := validateRegisterFields(p); err != nil {
		return s.abortJob(ctx, payload, fmt.Errorf("lot %s: %w", p.LotNumber, err))
	}

	// pool shutdown must not stop a lot halfway through a chunk
	_, err = s.generator.Run(context.WithoutCancel(ctx), p, payload.QRToken, payload.JobID)
	return err
}

// jobID returns requested, or a fresh id when it is empty. A requested id whose
// job is still running is refused so one caller cannot overwrite another's
// progress record.
func (s *generationService) jobID(ctx context.Context, requested string) (string, error) {
	if requested == "" {
		return uuid.NewString(), nil
	}
	prev, err := s.store.Get(ctx, requested)
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return requested, nil
	case err != nil:
		return "", fmt.Errorf("%w: progress store: %v", ErrUnavailable, err)
	case !prev.Terminal():
		return "", fmt.Errorf("%w: job %s is still running", ErrDuplicate, requested)
	}
	return requested, nil
}

func (s *generationService) abortJob(ctx context.Context, payload worker.GenerationJobPayload, cause error) error {
	now := time.Now()
	rec := progress.Progress{
		JobID:        payload.JobID,
		ProductionID: payload.ProductionID,
		Status:       progress.StatusError,
		Message:      cause.Error(),
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if prev, err := s.store.Get(ctx, payload.JobID); err == nil {
		rec.StartedAt = prev.StartedAt
		rec.Total = prev.Total
		rec.TotalBatches = prev.TotalBatches
	}
	_ = s.store.Set(ctx, rec)
	infra.GenerationJobs.WithLabelValues(progress.StatusError).Inc()
	return cause
}

// prepare loads the production and applies the guard shared by every entry point.
func (s *generationService) prepare(ctx context.Context, scope Scope, productionID, qrToken string) (*model.Production, error) {
	id, err := uuid.Parse(productionID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid production id %q", ErrValidation, productionID)
	}
	if qrToken == "" {
		return nil, fmt.Errorf("%w: qr token is required", ErrValidation)
	}
	p, err := s.productions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("production: %w", fromRepo(err))
	}
	if !scope.Allows(p.CompanyID) {
		return nil, fmt.Errorf("production: %w", ErrNotFound)
	}
	if p.Generated() {
		return nil, fmt.Errorf("lot %s: %w", p.LotNumber, ErrAlreadyGenerated)
	}
	if err := validateRegisterFields(p); err != nil {
		return nil, fmt.Errorf("lot %s: %w", p.LotNumber, err)
	}
	return p, nil
}

package worker

// stale_reaper.go
// Generation jobs run to completion without retry. If a process dies mid-job its
// progress record would say "processing" until the TTL expires, so a reaper
// flips records that stopped moving to "error" and the operator can re-trigger.

import (
	"context"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"

	"github.com/rs/zerolog/log"
)

const StalledMessage = "job stalled: no progress reported"

type StaleJobReaper struct {
	store    progress.Store
	after    time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewStaleJobReaper(store progress.Store, after, interval time.Duration) *StaleJobReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StaleJobReaper{store: store, after: after, interval: interval, now: time.Now}
}

// Start runs the reaper until ctx is cancelled.
func (r *StaleJobReaper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		log.Info().Dur("stale_after", r.after).Msg("stale job reaper started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stale job reaper stopped")
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

// Sweep marks stalled processing jobs as failed and returns how many it touched.
func (r *StaleJobReaper) Sweep(ctx context.Context) int {
	jobs, err := r.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("stale reaper: list progress failed")
		return 0
	}

	now := r.now()
	reaped := 0
	for _, p := range jobs {
		if p.Status != progress.StatusProcessing || now.Sub(p.UpdatedAt) < r.after {
			continue
		}
		p.Status = progress.StatusError
		p.Message = StalledMessage
		p.ETASeconds = 0
		p.UpdatedAt = now
		if err := r.store.Set(ctx, p); err != nil {
			log.Error().Err(err).Str("job_id", p.JobID).Msg("stale reaper: update failed")
			continue
		}
		infra.GenerationJobs.WithLabelValues(progress.StatusError).Inc()
		log.Warn().Str("job_id", p.JobID).Str("production_id", p.ProductionID).Msg("stale reaper: job marked as error")
		reaped++
	}
	return reaped
}

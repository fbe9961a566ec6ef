package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide collectors, exposed on GET /metrics.
var (
	RegistersGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registers_generated_total",
		Help: "Production register rows written by generation jobs.",
	})

	GenerationJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "register_generation_jobs_total",
		Help: "Register generation jobs by terminal status.",
	}, []string{"status"})

	ChunkInsertSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "register_chunk_insert_seconds",
		Help:    "Latency of one register chunk insert.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	ComplaintsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "complaints_submitted_total",
		Help: "Complaints filed through the public form, by type.",
	}, []string{"complaint_type"})

	VerificationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_lookups_total",
		Help: "Public verification lookups by outcome.",
	}, []string{"outcome"})

	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "0 closed, 1 open, 2 half-open.",
	}, []string{"breaker"})

	DeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_dead_lettered_total",
		Help: "Jobs parked in a dead-letter list, by source queue.",
	}, []string{"queue"})
)

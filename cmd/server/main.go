// @title Seed Production Admin API
// @version 1.0
// @description Production lots, QR register generation, public verification and customer complaints.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/config"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/router"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := infra.InitTracing(ctx, cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	files, err := infra.NewFileStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open file storage")
	}

	deps := router.Deps{
		DB:         db,
		Redis:      rdb,
		Files:      files,
		Progress:   progress.NewRedisStore(rdb, cfg.ProgressTTL()),
		Dispatcher: worker.NewDispatcher(rdb),
		MailCB:     infra.NewCircuitBreaker(infra.DefaultCBConfig()),
	}
	svcs := router.NewServices(cfg, deps)

	if err := svcs.Roles.SeedDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles")
	}
	if err := svcs.Reference.SeedProvinces(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed provinces")
	}

	// ── Workers ──────────────────────────────────────────────────────────────
	pool := worker.NewPool(rdb)
	pool.Register(worker.JobGeneration, worker.QueueGeneration, worker.HandlerFunc(svcs.Generation.HandleJob))
	pool.Register(worker.JobComplaintAck, worker.QueueComplaintAck,
		worker.NewComplaintAckWorker(svcs.ComplaintRepo, svcs.CompanyRepo, files, deps.Dispatcher))
	pool.Register(worker.JobEmail, worker.QueueEmail, worker.NewEmailWorker(infra.NewMailer(cfg), deps.MailCB, rdb))
	pool.Start(ctx, cfg.WorkerPoolSize)

	worker.NewStaleJobReaper(deps.Progress, cfg.StaleJobAfter(), time.Minute).Start(ctx)

	r := router.New(ctx, cfg, deps, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // inline generation of a large lot
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("advanta backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Workers stop after the HTTP server has drained.
	cancel()
	pool.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel: shutdown failed")
	}
	log.Info().Msg("server exited")
}

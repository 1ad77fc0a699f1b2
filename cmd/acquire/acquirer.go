package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/cmd/acquire/entities"
	"github.com/dipdup-net/acquire/cmd/acquire/prometheus"
	"github.com/dipdup-net/acquire/cmd/acquire/storage"
	"github.com/dipdup-net/acquire/internal/budget"
	"github.com/dipdup-net/acquire/internal/cache"
	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/orchestrator"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/dipdup-net/acquire/internal/resolver"
	"github.com/dipdup-net/acquire/internal/selector"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Acquirer - one configured acquisition pipeline, invoked by the scheduler
type Acquirer struct {
	cfg    config.Config
	source resolver.Source
	sink   models.Sink
	repo   models.EntityRepository
	cache  *cache.Cache
	prom   *prometheus.Prometheus
	clock  func() time.Time
}

// NewAcquirer -
func NewAcquirer(ctx context.Context, cfg config.Config, prom *prometheus.Prometheus) (*Acquirer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Acquire.CheckpointPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "checkpoint directory")
	}

	acquirer := &Acquirer{
		cfg:   cfg,
		prom:  prom,
		clock: time.Now,
		source: resolver.NewFEC(
			cfg.Source.BaseURL, cfg.Source.APIKey,
			resolver.WithTimeoutFEC(cfg.Source.Timeout),
			resolver.WithRateLimitFEC(cfg.Source.RPS),
			resolver.WithPageSizeFEC(cfg.Acquire.BatchSize),
		),
	}

	if aws := storage.NewAWS(cfg.AWS); aws != nil {
		log.Info().Str("bucket", cfg.AWS.BucketName).Msg("caching responses in S3")
		acquirer.cache = cache.New(aws)
	} else {
		file, err := storage.NewFile(cfg.Acquire.CacheDir)
		if err != nil {
			return nil, err
		}
		acquirer.cache = cache.New(file)
	}

	if cfg.Database.URL != "" {
		db, err := models.NewDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		acquirer.sink = db
		acquirer.repo = db
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Acquire.SinkPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "sink directory")
		}
		sink, err := models.NewFileSink(cfg.Acquire.SinkPath)
		if err != nil {
			return nil, err
		}
		acquirer.sink = sink
	}
	if cfg.Acquire.EntitiesPath != "" || acquirer.repo == nil {
		acquirer.repo = entities.NewFile(cfg.Acquire.EntitiesPath)
	}

	return acquirer, nil
}

// Invoke - one acquisition run over the current checkpoint
func (acquirer *Acquirer) Invoke(ctx context.Context, recovery bool) error {
	store, err := progress.Load(acquirer.cfg.Acquire.CheckpointPath)
	if err != nil {
		return err
	}

	population, err := entities.Load(ctx, acquirer.repo, acquirer.cfg.Acquire)
	if err != nil {
		return err
	}

	startedAt := acquirer.clock()
	spending := budget.Plan(
		acquirer.cfg.Acquire.APICallsPerHour,
		store.LastRunTimestamp,
		store.APICallsInLastHour,
		startedAt,
		acquirer.cfg.Acquire.SafetyThreshold,
		acquirer.cfg.Acquire.Reserve,
	)

	mode := selector.ModeNormal
	if recovery {
		mode = selector.ModeRecovery
	}
	items := selector.Select(mode, population, store)

	runID := uuid.NewString()
	store.BeginRun(runID, startedAt, recovery)

	log.Info().
		Str("run", runID).
		Str("mode", mode.String()).
		Int("population", len(population)).
		Int("selected", len(items)).
		Int("completed", store.CompletedCount).
		Int("available", spending.Available()).
		Msg("run started")

	orch := orchestrator.New(orchestrator.Deps{
		Store:  store,
		Sink:   acquirer.sink,
		Cache:  acquirer.cache,
		Source: acquirer.source,
		Budget: spending,
		Clock:  acquirer.clock,
	},
		orchestrator.WithRunID(runID),
		orchestrator.WithRecovery(recovery),
		orchestrator.WithMinPeriod(acquirer.cfg.Acquire.MinPeriod),
		orchestrator.WithDelay(time.Duration(acquirer.cfg.Acquire.DelayMs)*time.Millisecond),
		orchestrator.WithMaxRetries(acquirer.cfg.Acquire.MaxRetries),
		orchestrator.WithMetrics(acquirer.prom),
	)

	result, runErr := orch.Run(ctx, items)

	run, err := store.CurrentRun()
	if err != nil {
		return err
	}
	endedAt := acquirer.clock().UTC()
	run.EndedAt = &endedAt
	run.Calls = spending.Spent()
	if runErr != nil {
		run.Error = runErr.Error()
	}

	status := "ok"
	if runErr != nil {
		status = "failed"
	}
	acquirer.prom.IncrementRun(mode.String(), status)

	if orchestrator.IsFatal(runErr) {
		return acquirer.finishFailedRun(*run, spending.CallsInLastHour(), runErr)
	}

	store.Consume(spending.CallsInLastHour(), acquirer.clock())
	if err := store.Save(); err != nil {
		if runErr != nil {
			log.Err(err).Msg("checkpoint after failed run")
			return runErr
		}
		return errors.Wrap(err, "checkpoint")
	}

	log.Info().
		Str("run", runID).
		Int("processed", result.Processed).
		Int("calls", result.Calls).
		Int("cache_hits", result.CacheHits).
		Str("stop", string(result.Stop)).
		Int("completed", store.CompletedCount).
		Msg("run finished")

	return runErr
}

// finishFailedRun - the in-memory store may hold a record the failed checkpoint never wrote, so only the
// run record and rate consumption are added to the last durable checkpoint
func (acquirer *Acquirer) finishFailedRun(run models.RunRecord, callsInLastHour int, runErr error) error {
	durable, err := progress.Load(acquirer.cfg.Acquire.CheckpointPath)
	if err != nil {
		log.Err(err).Msg("reload checkpoint after fatal error")
		return runErr
	}
	durable.PutRun(run)
	durable.Consume(callsInLastHour, acquirer.clock())
	if err := durable.Save(); err != nil {
		log.Err(err).Msg("checkpoint after failed run")
	}
	return runErr
}

// Close -
func (acquirer *Acquirer) Close() error {
	if acquirer.sink != nil {
		if err := acquirer.sink.Close(); err != nil {
			return err
		}
	}
	return nil
}

// openRepository - entity list for read-only commands
func openRepository(ctx context.Context, cfg config.Config) (models.EntityRepository, func() error, error) {
	if cfg.Acquire.EntitiesPath != "" || cfg.Database.URL == "" {
		return entities.NewFile(cfg.Acquire.EntitiesPath), func() error { return nil }, nil
	}
	db, err := models.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

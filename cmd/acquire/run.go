package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/cmd/acquire/prometheus"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/dipdup-net/acquire/internal/scheduler"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type runArgs struct {
	duration int
	interval int
	recover  bool
	report   bool
}

func runCmd() *cobra.Command {
	var args runArgs

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run acquisition repeatedly for the given duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if args.report {
				return printReport(cmd.Context(), cfg)
			}
			return run(cmd.Context(), cfg, args)
		},
	}

	cmd.Flags().IntVar(&args.duration, "duration", 168, "total duration in hours")
	cmd.Flags().IntVar(&args.interval, "interval", 60, "minutes between runs")
	cmd.Flags().BoolVar(&args.recover, "recover", false, "alternate recovery and normal runs, recovery first")
	cmd.Flags().BoolVar(&args.report, "report", false, "print the progress report and exit")
	return cmd
}

func run(ctx context.Context, cfg config.Config, args runArgs) error {
	if args.duration <= 0 || args.interval <= 0 {
		return errors.Errorf("duration and interval should be positive: duration=%d interval=%d", args.duration, args.interval)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	duration := time.Duration(args.duration) * time.Hour
	interval := time.Duration(args.interval) * time.Minute

	if err := os.MkdirAll(filepath.Dir(cfg.Acquire.CheckpointPath), 0o755); err != nil {
		return errors.Wrap(err, "checkpoint directory")
	}
	lock, err := progress.Acquire(cfg.Acquire.CheckpointPath, 2*interval+time.Hour)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Err(err).Msg("release lock")
		}
	}()

	prom := prometheus.NewPrometheus(cfg.Prometheus)
	prom.Start()
	defer func() {
		if err := prom.Close(); err != nil {
			log.Err(err).Msg("close prometheus")
		}
	}()

	acquirer, err := NewAcquirer(ctx, cfg, prom)
	if err != nil {
		return err
	}
	defer func() {
		if err := acquirer.Close(); err != nil {
			log.Err(err).Msg("close acquirer")
		}
	}()

	s := scheduler.New(
		func(ctx context.Context, index int, recovery bool) error {
			if err := lock.Refresh(); err != nil {
				log.Warn().Err(err).Msg("refresh lock")
			}
			return acquirer.Invoke(ctx, recovery)
		},
		scheduler.WithReport(func(ctx context.Context, index int) {
			if err := printReport(ctx, cfg); err != nil {
				log.Err(err).Msg("report")
			}
		}),
	)

	log.Info().
		Str("duration", duration.String()).
		Str("interval", interval.String()).
		Bool("recover", args.recover).
		Msg("scheduler started")

	stats := s.Run(ctx, duration, interval, args.recover)
	if ctx.Err() != nil {
		log.Warn().Int("invocations", stats.Invocations).Msg("stopped by signal")
	}
	return nil
}

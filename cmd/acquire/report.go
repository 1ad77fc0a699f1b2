package main

import (
	"context"
	"os"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/cmd/acquire/entities"
	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/dipdup-net/acquire/internal/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the progress report from the checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printReport(cmd.Context(), cfg)
		},
	}
}

// buildReport - report of the checkpoint on disk
func buildReport(ctx context.Context, cfg config.Config) (report.Report, *progress.Store, error) {
	store, err := progress.Load(cfg.Acquire.CheckpointPath)
	if err != nil {
		return report.Report{}, nil, err
	}
	return report.Build(store, population(ctx, cfg)), store, nil
}

func printReport(ctx context.Context, cfg config.Config) error {
	r, _, err := buildReport(ctx, cfg)
	if err != nil {
		return err
	}
	r.Render(os.Stdout)
	return nil
}

// population - nil when the entity list is unavailable, the report then counts only known entities
func population(ctx context.Context, cfg config.Config) []models.Entity {
	if ctx == nil {
		ctx = context.Background()
	}
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("entity list is unavailable")
		return nil
	}
	defer closeRepo()

	list, err := entities.Load(ctx, repo, cfg.Acquire)
	if err != nil {
		log.Warn().Err(err).Msg("entity list is unavailable")
		return nil
	}
	return list
}

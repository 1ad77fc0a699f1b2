package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the progress report over HTTP (read-only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := newServer(cfg)

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.API.Listen).Msg("report API started")
		if err := e.Start(cfg.API.Listen); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	h := handlers{cfg}
	e.GET("/report", h.report)
	e.GET("/entities/:id", h.entity)
	e.GET("/runs", h.runs)
	return e
}

type handlers struct {
	cfg config.Config
}

type entityResponse struct {
	ID     string                `json:"id"`
	Record models.ProgressRecord `json:"record"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h handlers) report(c echo.Context) error {
	r, _, err := buildReport(c.Request().Context(), h.cfg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	return c.JSON(http.StatusOK, r)
}

func (h handlers) entity(c echo.Context) error {
	store, err := progress.Load(h.cfg.Acquire.CheckpointPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}

	id := c.Param("id")
	record, ok := store.Record(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{"entity is pending or unknown"})
	}
	return c.JSON(http.StatusOK, entityResponse{id, record})
}

func (h handlers) runs(c echo.Context) error {
	store, err := progress.Load(h.cfg.Acquire.CheckpointPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	return c.JSON(http.StatusOK, store.Runs)
}

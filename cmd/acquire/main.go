package main

import (
	"os"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "acquire",
		Short:         "Checkpointed, rate-budgeted acquisition of campaign-finance records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}).Level(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env")
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(runCmd(), reportCmd(), serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("")
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	setLevel(cfg.Acquire.DebugLevel)
	return cfg, nil
}

func setLevel(debugLevel int) {
	level := zerolog.InfoLevel
	switch debugLevel {
	case 0:
		level = zerolog.WarnLevel
	case 2:
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)
}

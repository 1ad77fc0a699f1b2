package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dipdup-net/acquire/cmd/acquire/migrations"
	"github.com/dipdup-net/acquire/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "migrate [name]",
		Short: "Apply a schema migration to the Postgres sink",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database url is not configured")
			}

			var list []migrations.Migration
			switch {
			case all:
				list = migrations.List
			case len(args) == 1:
				m, err := migrations.Find(args[0])
				if err != nil {
					return err
				}
				list = append(list, m)
			default:
				m, err := chooseMigration(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				list = append(list, m)
			}

			db, err := models.NewDatabase(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, m := range list {
				if err := m.Do(cmd.Context(), db); err != nil {
					return errors.Wrap(err, m.Name())
				}
				log.Info().Str("migration", m.Name()).Msg("applied")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "apply every migration")
	return cmd
}

func chooseMigration(in io.Reader, out io.Writer) (migrations.Migration, error) {
	fmt.Fprintln(out, "Available migrations:")
	for i, migration := range migrations.List {
		fmt.Fprintf(out, "[%d] %s\n", i, migration.Name())
	}

	fmt.Fprint(out, "\nEnter migration #:")
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	input = strings.TrimSpace(input)

	index, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Errorf("Invalid # of migration: %s", input)
	}
	if index < 0 || index > len(migrations.List)-1 {
		return nil, errors.Errorf("Invalid # of migration: %s", input)
	}
	return migrations.List[index], nil
}

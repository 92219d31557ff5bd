package main

import (
	"errors"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"vn.io.arda/account/internal/config"
	"vn.io.arda/account/internal/infrastructure/postgres"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	databaseURL := pflag.String("database-url", "", "postgres URL; defaults to the service configuration")
	down := pflag.Bool("down", false, "roll back instead of applying")
	steps := pflag.Int("steps", 0, "number of migrations to apply or roll back; 0 means all")
	pflag.Parse()

	if *databaseURL == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load configuration")
		}
		*databaseURL = cfg.Database.URL()
	}

	m, err := postgres.NewMigrator(*databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open migrator")
	}
	defer m.Close()

	switch {
	case *steps != 0 && *down:
		err = m.Steps(-*steps)
	case *steps != 0:
		err = m.Steps(*steps)
	case *down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal().Err(err).Msg("failed to read schema version")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations complete")
}

// cmd/tools/dbmigrate/main.go
package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Footy/internal/config"
	"github.com/codr1/Footy/internal/db"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		dbPath     = flag.String("db", "", "Path to SQLite database (overrides -config)")
		configPath = flag.String("config", "", "Path to yaml config naming the database")
		command    = flag.String("command", "", "Command to run (up, down, version)")
	)
	flag.Parse()

	if *command == "" || (*dbPath == "" && *configPath == "") {
		log.Error().Msg("-command and one of -db or -config are required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	path := *dbPath
	if path == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		path = cfg.Database.Filename
	}

	absDB, err := filepath.Abs(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Invalid database path")
	}

	// Create database directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	sqlDB, err := db.OpenSQLite(absDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer sqlDB.Close()

	m, err := db.NewMigrate(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrate instance")
	}

	logger := log.With().Str("db", absDB).Str("command", *command).Logger()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		logger.Info().Msg("Successfully ran migrations up")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		logger.Info().Msg("Successfully ran migrations down")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info().Msg("No migrations applied")
			return
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to get version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current version")

	default:
		logger.Fatal().Msg("Unknown command")
	}
}

// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Footy/internal/config"
	"github.com/codr1/Footy/internal/db"
	"github.com/codr1/Footy/internal/picker"
	"github.com/codr1/Footy/internal/scheduler"
	"github.com/codr1/Footy/internal/seasons"
)

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func configPath() string {
	path := flag.String("config", "", "path to the yaml config file (defaults to $CONFIG_PATH, then config/app.yaml)")
	flag.Parse()
	if *path != "" {
		return *path
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "config/app.yaml"
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	pickerEngine, err := picker.NewEngine(database, pickerSettings(cfg.Picker))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create picker engine")
	}
	seasonEngine, err := seasons.NewEngine(database, rankingPolicy(cfg.Rankings))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create season engine")
	}

	if cfg.Scheduler.Enabled {
		if err := startScheduler(cfg.Scheduler, pickerEngine, seasonEngine); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}()
	}

	server := newServer(cfg, pickerEngine, seasonEngine)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("app", cfg.App.Name).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

func startScheduler(cfg config.SchedulerConfig, pickerEngine *picker.Engine, seasonEngine *seasons.Engine) error {
	if err := scheduler.Init(); err != nil {
		return err
	}
	if err := scheduler.RegisterSeasonRankingsJob(seasonEngine, cfg.RankingsCron); err != nil {
		return err
	}
	if err := scheduler.RegisterTeamPickerJob(pickerEngine, cfg.PickerCron, cfg.PickerLookahead); err != nil {
		return err
	}
	return scheduler.Start()
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Footy/internal/seasons"
)

const (
	SeasonRankingsJob = "season_rankings"
	TeamPickerJob     = "team_picker"

	jobTimeout = 5 * time.Minute
)

type SeasonRecomputer interface {
	RecomputeYear(ctx context.Context, year int) (seasons.Summary, error)
}

type UpcomingBalancer interface {
	BalanceUpcoming(ctx context.Context, lookahead time.Duration) (int, error)
}

// RunSeasonRankings recomputes the table of the year containing now and the
// all-time table. Both are attempted even if the first fails.
func RunSeasonRankings(ctx context.Context, engine SeasonRecomputer, now time.Time) error {
	var errs []error
	for _, year := range []int{now.Year(), seasons.AllTime} {
		if _, err := engine.RecomputeYear(ctx, year); err != nil {
			errs = append(errs, fmt.Errorf("recompute year %d: %w", year, err))
		}
	}
	return errors.Join(errs...)
}

// RegisterSeasonRankingsJob schedules RunSeasonRankings on the singleton
// scheduler.
func RegisterSeasonRankingsJob(engine SeasonRecomputer, cronExpr string) error {
	if engine == nil {
		return fmt.Errorf("season rankings job requires an engine")
	}

	jobLogger := log.With().
		Str("component", "season_rankings_job").
		Str("job_name", SeasonRankingsJob).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(SeasonRankingsJob, cronExpr, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if err := RunSeasonRankings(ctx, engine, time.Now().UTC()); err != nil {
			return err
		}
		jobLogger.Info().Msg("Season rankings job finished")
		return nil
	})
	return err
}

// RegisterTeamPickerJob schedules balancing of game days starting within
// lookahead that have not been balanced yet.
func RegisterTeamPickerJob(engine UpcomingBalancer, cronExpr string, lookahead time.Duration) error {
	if engine == nil {
		return fmt.Errorf("team picker job requires an engine")
	}

	jobLogger := log.With().
		Str("component", "team_picker_job").
		Str("job_name", TeamPickerJob).
		Str("cron", cronExpr).
		Dur("lookahead", lookahead).
		Logger()

	_, err := AddJob(TeamPickerJob, cronExpr, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		balanced, err := engine.BalanceUpcoming(ctx, lookahead)
		if err != nil {
			return fmt.Errorf("balanced %d before failing: %w", balanced, err)
		}
		if balanced > 0 {
			jobLogger.Info().Int("balanced", balanced).Msg("Team picker job balanced game days")
		}
		return nil
	})
	return err
}

package picker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Footy/internal/balance"
	"github.com/codr1/Footy/internal/db"
	"github.com/codr1/Footy/internal/keylock"
	"github.com/codr1/Footy/internal/rating"
)

var (
	// ErrConcurrentRun is returned when the game day is already being
	// balanced.
	ErrConcurrentRun    = fmt.Errorf("balancing already in progress: %w", keylock.ErrLocked)
	ErrGameDayNotFound  = errors.New("game day not found")
	ErrNoSnapshot       = errors.New("game day has not been balanced")
	ErrInvalidGameDayID = errors.New("invalid game day id")
)

type Settings struct {
	Options balance.Options
	// GoalieThreshold marks a player as a goalie when their goalkeeping
	// rating reaches it. Zero turns the check off and only the outcome's
	// goalie flag counts.
	GoalieThreshold    float64
	ExcludeGoalkeeping bool
}

type Engine struct {
	db       *db.DB
	settings Settings
	locks    keylock.Locker[int64]
	now      func() time.Time
}

func NewEngine(database *db.DB, settings Settings) (*Engine, error) {
	if database == nil {
		return nil, errors.New("picker engine requires a database")
	}
	if err := settings.Options.Validate(); err != nil {
		return nil, err
	}
	if settings.GoalieThreshold < 0 {
		return nil, fmt.Errorf("%w: goalie threshold must not be negative", balance.ErrInvalidOptions)
	}
	return &Engine{db: database, settings: settings, now: time.Now}, nil
}

// Options returns the configured search options, for callers that want to
// adjust a single run.
func (e *Engine) Options() balance.Options {
	return e.settings.Options
}

// BalanceGameDay splits the game day's unassigned Yes responders into two
// teams and replaces the stored Picker, PickerTeams and Diffs rows with the
// result. Nothing is written when any step fails.
func (e *Engine) BalanceGameDay(ctx context.Context, gameDayID int64, opts balance.Options) (balance.Result, error) {
	if e == nil || e.db == nil {
		return balance.Result{}, errors.New("picker engine not initialized")
	}
	if gameDayID <= 0 {
		return balance.Result{}, fmt.Errorf("%w: %d", ErrInvalidGameDayID, gameDayID)
	}

	unlock, err := e.locks.TryLock(gameDayID)
	if err != nil {
		return balance.Result{}, fmt.Errorf("game day %d: %w", gameDayID, ErrConcurrentRun)
	}
	defer unlock()

	runID := uuid.NewString()
	logger := log.Ctx(ctx).With().
		Str("component", "picker_engine").
		Int64("game_day_id", gameDayID).
		Str("run_id", runID).
		Logger()

	pool, err := e.loadPool(ctx, gameDayID)
	if err != nil {
		if !errors.Is(err, ErrGameDayNotFound) {
			logger.Error().Err(err).Msg("Failed to load pool")
		}
		return balance.Result{}, err
	}
	logger.Debug().Int("pool_size", len(pool)).Msg("Loaded pool")

	result, err := balance.Partition(ctx, pool, opts)
	if err != nil {
		logger.Warn().Err(err).Int("pool_size", len(pool)).Msg("Could not balance game day")
		return balance.Result{}, err
	}

	for _, w := range result.Warnings {
		logger.Warn().
			Str("kind", string(w.Kind)).
			Int64("player_id", w.PlayerID).
			Msg(w.Message)
	}

	err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
		return writeSnapshot(ctx, txdb.Queries, gameDayID, runID, pool, result, e.now().UTC())
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write picker snapshot")
		return balance.Result{}, err
	}

	logger.Info().
		Int("team_a", len(result.A)).
		Int("team_b", len(result.B)).
		Float64("score", result.Score).
		Float64("initial_score", result.InitialScore).
		Uint64("seed", result.Seed).
		Int("restart", result.Restart).
		Int("warnings", len(result.Warnings)).
		Msg("Balanced game day")

	return result, nil
}

// loadPool reads everything the partitioner needs in one transaction so the
// pool, ratings and history agree with each other.
func (e *Engine) loadPool(ctx context.Context, gameDayID int64) ([]balance.Candidate, error) {
	var pool []balance.Candidate
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		gameDay, err := q.GetGameDay(ctx, gameDayID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("game day %d: %w", gameDayID, ErrGameDayNotFound)
		}
		if err != nil {
			return fmt.Errorf("get game day: %w", err)
		}

		outcomes, err := q.ListPoolOutcomes(ctx, gameDayID)
		if err != nil {
			return fmt.Errorf("list pool outcomes: %w", err)
		}
		ids := make([]int64, len(outcomes))
		for i, o := range outcomes {
			ids[i] = o.PlayerID
		}

		players, err := q.ListPlayersByID(ctx, ids)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		arses, err := q.ListArsesForPlayers(ctx, ids)
		if err != nil {
			return fmt.Errorf("list ratings: %w", err)
		}
		played, err := q.CountPlayedBefore(ctx, gameDayID, ids)
		if err != nil {
			return fmt.Errorf("count games played: %w", err)
		}

		byID := make(map[int64]db.Player, len(players))
		for _, p := range players {
			byID[p.ID] = p
		}
		profiles := rating.AggregateAll(arses)

		pool = make([]balance.Candidate, 0, len(outcomes))
		for _, o := range outcomes {
			player, ok := byID[o.PlayerID]
			if !ok {
				return fmt.Errorf("outcome %d references missing player %d", o.ID, o.PlayerID)
			}
			pool = append(pool, e.candidate(gameDay, o, player, profiles[o.PlayerID], played[o.PlayerID]))
		}
		return nil
	})
	return pool, err
}

func (e *Engine) candidate(gameDay db.GameDay, o db.Outcome, p db.Player, profile rating.Profile, played int) balance.Candidate {
	goalie := o.Goalie
	if keeping := profile.Skill(rating.InGoal); e.settings.GoalieThreshold > 0 && keeping.Valid {
		goalie = goalie || keeping.Float64 >= e.settings.GoalieThreshold
	}
	return balance.Candidate{
		PlayerID: p.ID,
		Name:     p.DisplayName(),
		Age:      p.AgeOn(gameDay.Date),
		Average:  profile.Average(e.settings.ExcludeGoalkeeping),
		Goalie:   goalie,
		Played:   played,
	}
}

func writeSnapshot(ctx context.Context, q *db.Queries, gameDayID int64, runID string, pool []balance.Candidate, result balance.Result, now time.Time) error {
	if err := q.DeletePickerSnapshot(ctx, gameDayID); err != nil {
		return err
	}

	for _, c := range pool {
		err := q.InsertPickerEntry(ctx, db.PickerEntry{
			GameDayID: gameDayID,
			PlayerID:  c.PlayerID,
			Name:      c.Name,
			Age:       c.Age,
			Average:   c.Average,
			Goalie:    c.Goalie,
			Played:    c.Played,
		})
		if err != nil {
			return fmt.Errorf("insert picker entry for player %d: %w", c.PlayerID, err)
		}
	}

	teams := []struct {
		name    string
		members []balance.Candidate
	}{
		{db.TeamA, result.A},
		{db.TeamB, result.B},
	}
	for _, team := range teams {
		for _, c := range team.members {
			err := q.InsertPickerTeam(ctx, db.PickerTeam{GameDayID: gameDayID, PlayerID: c.PlayerID, Team: team.name})
			if err != nil {
				return fmt.Errorf("insert team %s member %d: %w", team.name, c.PlayerID, err)
			}
		}
	}

	d := result.Diffs
	err := q.InsertDiffs(ctx, db.Diffs{
		GameDayID:      gameDayID,
		A:              d.A,
		B:              d.B,
		DiffAge:        d.DiffAge,
		DiffUnknownAge: d.DiffUnknownAge,
		DiffGoalies:    d.DiffGoalies,
		DiffAverage:    d.DiffAverage,
		DiffPlayed:     d.DiffPlayed,
		Score:          result.Score,
		RunID:          runID,
		Seed:           strconv.FormatUint(result.Seed, 10),
		CreatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("insert diffs: %w", err)
	}
	return nil
}

// Snapshot is the stored outcome of the last successful run for a game day.
type Snapshot struct {
	GameDayID int64            `json:"gameDayId"`
	RunID     string           `json:"runId"`
	Seed      string           `json:"seed"`
	Score     float64          `json:"score"`
	CreatedAt time.Time        `json:"createdAt"`
	Diffs     balance.Diffs    `json:"diffs"`
	Pool      []db.PickerEntry `json:"pool"`
	A         []int64          `json:"a"`
	B         []int64          `json:"b"`
}

func (e *Engine) Snapshot(ctx context.Context, gameDayID int64) (Snapshot, error) {
	if gameDayID <= 0 {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrInvalidGameDayID, gameDayID)
	}

	var snap Snapshot
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		if _, err := q.GetGameDay(ctx, gameDayID); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("game day %d: %w", gameDayID, ErrGameDayNotFound)
		} else if err != nil {
			return fmt.Errorf("get game day: %w", err)
		}

		diffs, err := q.GetDiffs(ctx, gameDayID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("game day %d: %w", gameDayID, ErrNoSnapshot)
		}
		if err != nil {
			return fmt.Errorf("get diffs: %w", err)
		}

		pool, err := q.ListPickerEntries(ctx, gameDayID)
		if err != nil {
			return fmt.Errorf("list picker entries: %w", err)
		}
		teams, err := q.ListPickerTeams(ctx, gameDayID)
		if err != nil {
			return fmt.Errorf("list picker teams: %w", err)
		}

		snap = Snapshot{
			GameDayID: gameDayID,
			RunID:     diffs.RunID,
			Seed:      diffs.Seed,
			Score:     diffs.Score,
			CreatedAt: diffs.CreatedAt,
			Diffs: balance.Diffs{
				A:              diffs.A,
				B:              diffs.B,
				DiffAge:        diffs.DiffAge,
				DiffUnknownAge: diffs.DiffUnknownAge,
				DiffGoalies:    diffs.DiffGoalies,
				DiffAverage:    diffs.DiffAverage,
				DiffPlayed:     diffs.DiffPlayed,
			},
			Pool: pool,
		}
		for _, t := range teams {
			if t.Team == db.TeamA {
				snap.A = append(snap.A, t.PlayerID)
			} else {
				snap.B = append(snap.B, t.PlayerID)
			}
		}
		return nil
	})
	return snap, err
}

// BalanceUpcoming balances every real game day between now and now+lookahead
// that has no snapshot yet. Game days that cannot be balanced are logged and
// skipped; it returns how many were balanced.
func (e *Engine) BalanceUpcoming(ctx context.Context, lookahead time.Duration) (int, error) {
	logger := log.Ctx(ctx).With().Str("component", "picker_engine").Logger()

	from := e.now().UTC()
	days, err := e.db.Queries.ListUpcomingGameDays(ctx, from, from.Add(lookahead))
	if err != nil {
		return 0, fmt.Errorf("list upcoming game days: %w", err)
	}

	balanced := 0
	for _, gd := range days {
		if e.locks.Held(gd.ID) {
			logger.Info().Int64("game_day_id", gd.ID).Msg("Skipping game day already being balanced")
			continue
		}
		done, err := e.db.Queries.HasPickerSnapshot(ctx, gd.ID)
		if err != nil {
			return balanced, fmt.Errorf("check snapshot for game day %d: %w", gd.ID, err)
		}
		if done {
			continue
		}

		_, err = e.BalanceGameDay(ctx, gd.ID, e.settings.Options)
		switch {
		case err == nil:
			balanced++
		case errors.Is(err, balance.ErrInsufficientPlayers), errors.Is(err, ErrConcurrentRun):
			logger.Info().Err(err).Int64("game_day_id", gd.ID).Msg("Skipping game day")
		default:
			return balanced, err
		}
	}
	return balanced, nil
}

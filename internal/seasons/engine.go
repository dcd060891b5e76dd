package seasons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Footy/internal/db"
	"github.com/codr1/Footy/internal/keylock"
	"github.com/codr1/Footy/internal/standings"
)

// AllTime is the year under which the all-time table is stored.
const AllTime = 0

var (
	ErrInvalidYear = errors.New("invalid year")
	ErrNoRecords   = errors.New("no records")
)

// Engine recomputes and serves the season tables. Recomputes of one year
// queue behind each other; different years run side by side.
type Engine struct {
	db     *db.DB
	policy standings.Policy
	locks  keylock.Locker[int]
}

func NewEngine(database *db.DB, policy standings.Policy) (*Engine, error) {
	if database == nil {
		return nil, errors.New("season engine requires a database")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{db: database, policy: policy}, nil
}

type Summary struct {
	Year     int           `json:"year"`
	GameDays int           `json:"gameDays"`
	Players  int           `json:"players"`
	Records  int           `json:"records"`
	Replaced int64         `json:"replaced"`
	Duration time.Duration `json:"duration"`
}

// RecomputeYear rebuilds every PlayerRecord of the year from its outcomes and
// swaps the old rows for the new ones in a single transaction.
func (e *Engine) RecomputeYear(ctx context.Context, year int) (Summary, error) {
	if e == nil || e.db == nil {
		return Summary{}, errors.New("season engine not initialized")
	}
	if year < 0 {
		return Summary{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	logger := log.Ctx(ctx).With().
		Str("component", "season_engine").
		Int("year", year).
		Logger()

	unlock, err := e.locks.Lock(ctx, year)
	if err != nil {
		return Summary{}, fmt.Errorf("wait for year %d: %w", year, err)
	}
	defer unlock()

	started := time.Now()

	var gameDays []db.GameDay
	var outcomes []db.SeasonOutcome
	err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
		var err error
		if gameDays, err = txdb.Queries.ListGameDays(ctx, year); err != nil {
			return fmt.Errorf("list game days: %w", err)
		}
		if outcomes, err = txdb.Queries.ListSeasonOutcomes(ctx, year); err != nil {
			return fmt.Errorf("list outcomes: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read season history")
		return Summary{}, err
	}

	days := make([]standings.Day, len(gameDays))
	for i, gd := range gameDays {
		days[i] = standings.Day{ID: gd.ID, Game: gd.Game}
	}
	rows := make([]standings.OutcomeRow, len(outcomes))
	players := make(map[int64]struct{})
	for i, o := range outcomes {
		rows[i] = standings.OutcomeRow{
			GameDayID:        o.GameDayID,
			PlayerID:         o.PlayerID,
			Game:             o.Game,
			Response:         o.Response,
			ResponseInterval: o.ResponseInterval,
			Points:           o.Points,
			Pub:              o.Pub,
		}
		players[o.PlayerID] = struct{}{}
	}

	records, err := standings.Compute(year, days, rows, e.policy)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Year:     year,
		GameDays: len(gameDays),
		Players:  len(players),
		Records:  len(records),
	}
	err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
		replaced, err := txdb.Queries.DeletePlayerRecords(ctx, year)
		if err != nil {
			return fmt.Errorf("delete player records: %w", err)
		}
		summary.Replaced = replaced
		for _, r := range records {
			if err := txdb.Queries.InsertPlayerRecord(ctx, db.PlayerRecord(r)); err != nil {
				return fmt.Errorf("insert record for player %d on game day %d: %w", r.PlayerID, r.GameDayID, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to replace player records")
		return Summary{}, err
	}

	summary.Duration = time.Since(started)
	logger.Info().
		Int("game_days", summary.GameDays).
		Int("players", summary.Players).
		Int("records", summary.Records).
		Int64("replaced", summary.Replaced).
		Dur("duration", summary.Duration).
		Msg("Recomputed season rankings")

	return summary, nil
}

// Table is the ranking of a year as of one game day.
type Table struct {
	Year      int                `json:"year"`
	GameDayID int64              `json:"gameDayId"`
	Records   []standings.Record `json:"records"`
}

// Records returns the table of a year after the given game day. A zero
// gameDayID selects the latest game day with records.
func (e *Engine) Records(ctx context.Context, year int, gameDayID int64) (Table, error) {
	if year < 0 {
		return Table{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	if gameDayID == 0 {
		latest, err := e.db.Queries.LatestRecordGameDay(ctx, year)
		if errors.Is(err, sql.ErrNoRows) {
			return Table{}, fmt.Errorf("year %d: %w", year, ErrNoRecords)
		}
		if err != nil {
			return Table{}, fmt.Errorf("find latest game day: %w", err)
		}
		gameDayID = latest
	}

	rows, err := e.db.Queries.ListPlayerRecords(ctx, year, gameDayID)
	if err != nil {
		return Table{}, fmt.Errorf("list player records: %w", err)
	}
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("year %d game day %d: %w", year, gameDayID, ErrNoRecords)
	}

	table := Table{Year: year, GameDayID: gameDayID, Records: make([]standings.Record, len(rows))}
	for i, row := range rows {
		table.Records[i] = standings.Record(row)
	}
	return table, nil
}

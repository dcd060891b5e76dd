// internal/db/queries.go
package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Queries runs the engine's statements against either the database or an
// open transaction.
type Queries struct {
	ext sqlx.ExtContext
}

func NewQueries(ext sqlx.ExtContext) *Queries {
	return &Queries{ext: ext}
}

func (q *Queries) get(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, q.ext, dest, query, args...)
}

func (q *Queries) selectAll(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

func (q *Queries) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) insert(ctx context.Context, b sq.InsertBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Game days

func (q *Queries) GetGameDay(ctx context.Context, id int64) (GameDay, error) {
	var gd GameDay
	err := q.get(ctx, &gd, sq.Select("*").From("GameDay").Where(sq.Eq{"id": id}))
	return gd, err
}

// ListGameDays returns the game days of a year in date order. Year 0 lists
// every game day.
func (q *Queries) ListGameDays(ctx context.Context, year int) ([]GameDay, error) {
	b := sq.Select("*").From("GameDay").OrderBy("date", "id")
	if year != 0 {
		b = b.Where(sq.Eq{"year": year})
	}
	var days []GameDay
	err := q.selectAll(ctx, &days, b)
	return days, err
}

// ListUpcomingGameDays returns real game days dated within [from, to).
func (q *Queries) ListUpcomingGameDays(ctx context.Context, from, to time.Time) ([]GameDay, error) {
	var days []GameDay
	err := q.selectAll(ctx, &days, sq.Select("*").From("GameDay").
		Where(sq.Eq{"game": true}).
		Where(sq.GtOrEq{"date": from}).
		Where(sq.Lt{"date": to}).
		OrderBy("date", "id"))
	return days, err
}

func (q *Queries) HasPickerSnapshot(ctx context.Context, gameDayID int64) (bool, error) {
	var n int
	if err := q.get(ctx, &n, sq.Select("COUNT(*)").From("Diffs").Where(sq.Eq{"gameDayId": gameDayID})); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Outcomes

// ListPoolOutcomes returns the outcomes of players who said Yes to the game
// day and have not been put on a team yet.
func (q *Queries) ListPoolOutcomes(ctx context.Context, gameDayID int64) ([]Outcome, error) {
	var outcomes []Outcome
	err := q.selectAll(ctx, &outcomes, sq.Select("*").From("Outcome").
		Where(sq.Eq{"gameDayId": gameDayID, "response": ResponseYes, "team": nil}).
		OrderBy("playerId"))
	return outcomes, err
}

// ListSeasonOutcomes returns every outcome of the year joined with its game
// day, in game day order. Year 0 returns all outcomes.
func (q *Queries) ListSeasonOutcomes(ctx context.Context, year int) ([]SeasonOutcome, error) {
	b := sq.Select("o.*", "g.date", "g.year", "g.game").
		From("Outcome o").
		Join("GameDay g ON g.id = o.gameDayId").
		OrderBy("g.date", "g.id", "o.playerId")
	if year != 0 {
		b = b.Where(sq.Eq{"g.year": year})
	}
	var outcomes []SeasonOutcome
	err := q.selectAll(ctx, &outcomes, b)
	return outcomes, err
}

// CountPlayedBefore counts, per player, the real games with a recorded result
// dated before the given game day.
func (q *Queries) CountPlayedBefore(ctx context.Context, gameDayID int64, playerIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(playerIDs))
	if len(playerIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PlayerID int64 `db:"playerId"`
		Played   int   `db:"played"`
	}
	err := q.selectAll(ctx, &rows, sq.Select("o.playerId", "COUNT(*) AS played").
		From("Outcome o").
		Join("GameDay g ON g.id = o.gameDayId").
		Where(sq.Eq{"o.playerId": playerIDs, "o.response": ResponseYes, "g.game": true}).
		Where(sq.NotEq{"o.points": nil}).
		Where(sq.Expr("g.date < (SELECT date FROM GameDay WHERE id = ?)", gameDayID)).
		GroupBy("o.playerId"))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PlayerID] = row.Played
	}
	return counts, nil
}

// Players and ratings

func (q *Queries) ListPlayersByID(ctx context.Context, ids []int64) ([]Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM Player WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var players []Player
	err = sqlx.SelectContext(ctx, q.ext, &players, q.ext.Rebind(query), args...)
	return players, err
}

func (q *Queries) ListArsesForPlayers(ctx context.Context, ids []int64) ([]Arse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var arses []Arse
	err := q.selectAll(ctx, &arses, sq.Select("*").From("Arse").
		Where(sq.Eq{"playerId": ids}).
		OrderBy("playerId", "raterId"))
	return arses, err
}

// Picker snapshot

// DeletePickerSnapshot removes the Picker, PickerTeams and Diffs rows of a
// game day.
func (q *Queries) DeletePickerSnapshot(ctx context.Context, gameDayID int64) error {
	for _, table := range []string{"PickerTeams", "Picker", "Diffs"} {
		if _, err := q.exec(ctx, sq.Delete(table).Where(sq.Eq{"gameDayId": gameDayID})); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func (q *Queries) InsertPickerEntry(ctx context.Context, e PickerEntry) error {
	_, err := q.exec(ctx, sq.Insert("Picker").SetMap(sq.Eq{
		"gameDayId": e.GameDayID,
		"playerId":  e.PlayerID,
		"name":      e.Name,
		"age":       e.Age,
		"average":   e.Average,
		"goalie":    e.Goalie,
		"played":    e.Played,
	}))
	return err
}

func (q *Queries) InsertPickerTeam(ctx context.Context, t PickerTeam) error {
	_, err := q.exec(ctx, sq.Insert("PickerTeams").SetMap(sq.Eq{
		"gameDayId": t.GameDayID,
		"playerId":  t.PlayerID,
		"team":      t.Team,
	}))
	return err
}

func (q *Queries) InsertDiffs(ctx context.Context, d Diffs) error {
	_, err := q.exec(ctx, sq.Insert("Diffs").SetMap(sq.Eq{
		"gameDayId":      d.GameDayID,
		"a":              d.A,
		"b":              d.B,
		"diffAge":        d.DiffAge,
		"diffUnknownAge": d.DiffUnknownAge,
		"diffGoalies":    d.DiffGoalies,
		"diffAverage":    d.DiffAverage,
		"diffPlayed":     d.DiffPlayed,
		"score":          d.Score,
		"runId":          d.RunID,
		"seed":           d.Seed,
		"createdAt":      d.CreatedAt,
	}))
	return err
}

func (q *Queries) GetDiffs(ctx context.Context, gameDayID int64) (Diffs, error) {
	var d Diffs
	err := q.get(ctx, &d, sq.Select("*").From("Diffs").Where(sq.Eq{"gameDayId": gameDayID}))
	return d, err
}

func (q *Queries) ListPickerEntries(ctx context.Context, gameDayID int64) ([]PickerEntry, error) {
	var entries []PickerEntry
	err := q.selectAll(ctx, &entries, sq.Select("*").From("Picker").
		Where(sq.Eq{"gameDayId": gameDayID}).
		OrderBy("playerId"))
	return entries, err
}

func (q *Queries) ListPickerTeams(ctx context.Context, gameDayID int64) ([]PickerTeam, error) {
	var teams []PickerTeam
	err := q.selectAll(ctx, &teams, sq.Select("*").From("PickerTeams").
		Where(sq.Eq{"gameDayId": gameDayID}).
		OrderBy("team", "playerId"))
	return teams, err
}

// Player records

func (q *Queries) DeletePlayerRecords(ctx context.Context, year int) (int64, error) {
	return q.exec(ctx, sq.Delete("PlayerRecord").Where(sq.Eq{"year": year}))
}

func (q *Queries) InsertPlayerRecord(ctx context.Context, r PlayerRecord) error {
	_, err := q.exec(ctx, sq.Insert("PlayerRecord").SetMap(sq.Eq{
		"playerId":                r.PlayerID,
		"year":                    r.Year,
		"gameDayId":               r.GameDayID,
		"responses":               r.Responses,
		"played":                  r.Played,
		"won":                     r.Won,
		"drawn":                   r.Drawn,
		"lost":                    r.Lost,
		"points":                  r.Points,
		"averages":                r.Averages,
		"stalwart":                r.Stalwart,
		"speedy":                  r.Speedy,
		"pub":                     r.Pub,
		"rankPoints":              r.RankPoints,
		"rankAverages":            r.RankAverages,
		"rankAveragesUnqualified": r.RankAveragesUnqualified,
		"rankStalwart":            r.RankStalwart,
		"rankSpeedy":              r.RankSpeedy,
		"rankSpeedyUnqualified":   r.RankSpeedyUnqualified,
		"rankPub":                 r.RankPub,
	}))
	return err
}

// ListPlayerRecords returns the records of a year as of one game day, best
// points rank first.
func (q *Queries) ListPlayerRecords(ctx context.Context, year int, gameDayID int64) ([]PlayerRecord, error) {
	var records []PlayerRecord
	err := q.selectAll(ctx, &records, sq.Select("*").From("PlayerRecord").
		Where(sq.Eq{"year": year, "gameDayId": gameDayID}).
		OrderBy("rankPoints IS NULL", "rankPoints", "playerId"))
	return records, err
}

// LatestRecordGameDay returns the most recent game day that has records for
// the year, or sql.ErrNoRows when the year has none.
func (q *Queries) LatestRecordGameDay(ctx context.Context, year int) (int64, error) {
	var id int64
	err := q.get(ctx, &id, sq.Select("r.gameDayId").
		From("PlayerRecord r").
		Join("GameDay g ON g.id = r.gameDayId").
		Where(sq.Eq{"r.year": year}).
		OrderBy("g.date DESC", "g.id DESC").
		Limit(1))
	return id, err
}

// Fixtures. The engine never writes these tables; the inserts exist for
// seeding and tests.

func (q *Queries) InsertPlayer(ctx context.Context, p Player) (int64, error) {
	joined := p.Joined
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	return q.insert(ctx, sq.Insert("Player").SetMap(sq.Eq{
		"login":      p.Login,
		"givenName":  p.GivenName,
		"familyName": p.FamilyName,
		"anonymous":  p.Anonymous,
		"isAdmin":    p.IsAdmin,
		"joined":     joined,
		"finished":   p.Finished,
		"born":       p.Born,
		"comment":    p.Comment,
	}))
}

func (q *Queries) InsertArse(ctx context.Context, a Arse) (int64, error) {
	stamp := a.Stamp
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	return q.insert(ctx, sq.Insert("Arse").SetMap(sq.Eq{
		"stamp":     stamp,
		"playerId":  a.PlayerID,
		"raterId":   a.RaterID,
		"inGoal":    a.InGoal,
		"running":   a.Running,
		"shooting":  a.Shooting,
		"passing":   a.Passing,
		"ballSkill": a.BallSkill,
		"attacking": a.Attacking,
		"defending": a.Defending,
	}))
}

func (q *Queries) InsertGameDay(ctx context.Context, g GameDay) (int64, error) {
	year := g.Year
	if year == 0 {
		year = g.Date.Year()
	}
	return q.insert(ctx, sq.Insert("GameDay").SetMap(sq.Eq{
		"date":    g.Date,
		"year":    year,
		"game":    g.Game,
		"bibs":    g.Bibs,
		"comment": g.Comment,
	}))
}

func (q *Queries) InsertOutcome(ctx context.Context, o Outcome) (int64, error) {
	return q.insert(ctx, sq.Insert("Outcome").SetMap(sq.Eq{
		"gameDayId":        o.GameDayID,
		"playerId":         o.PlayerID,
		"response":         o.Response,
		"responseInterval": o.ResponseInterval,
		"team":             o.Team,
		"points":           o.Points,
		"pub":              o.Pub,
		"paid":             o.Paid,
		"goalie":           o.Goalie,
	}))
}

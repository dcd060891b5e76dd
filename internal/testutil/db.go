package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/codr1/Footy/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// CreatePlayer inserts a player with the given login. A zero born leaves the
// birth date unknown.
func CreatePlayer(t *testing.T, database *db.DB, login string, born time.Time) int64 {
	t.Helper()

	p := db.Player{Login: login, GivenName: login}
	if !born.IsZero() {
		p.Born = null.TimeFrom(born)
	}
	id, err := database.Queries.InsertPlayer(context.Background(), p)
	if err != nil {
		t.Fatalf("insert player %s: %v", login, err)
	}
	return id
}

// RatePlayer records the same score for every outfield skill and the given
// goalkeeping score. A negative score leaves that skill unrated.
func RatePlayer(t *testing.T, database *db.DB, playerID, raterID int64, outfield, inGoal int) {
	t.Helper()

	score := func(v int) null.Int {
		if v < 0 {
			return null.Int{}
		}
		return null.IntFrom(int64(v))
	}
	_, err := database.Queries.InsertArse(context.Background(), db.Arse{
		PlayerID:  playerID,
		RaterID:   raterID,
		InGoal:    score(inGoal),
		Running:   score(outfield),
		Shooting:  score(outfield),
		Passing:   score(outfield),
		BallSkill: score(outfield),
		Attacking: score(outfield),
		Defending: score(outfield),
	})
	if err != nil {
		t.Fatalf("insert rating of %d by %d: %v", playerID, raterID, err)
	}
}

func CreateGameDay(t *testing.T, database *db.DB, date time.Time, game bool) int64 {
	t.Helper()

	id, err := database.Queries.InsertGameDay(context.Background(), db.GameDay{Date: date, Game: game})
	if err != nil {
		t.Fatalf("insert game day %s: %v", date.Format(time.DateOnly), err)
	}
	return id
}

// OutcomeOption adjusts an outcome before CreateOutcome inserts it.
type OutcomeOption func(*db.Outcome)

func WithTeam(team string) OutcomeOption {
	return func(o *db.Outcome) { o.Team = null.StringFrom(team) }
}

func WithPoints(points int) OutcomeOption {
	return func(o *db.Outcome) { o.Points = null.IntFrom(int64(points)) }
}

func WithInterval(seconds int) OutcomeOption {
	return func(o *db.Outcome) { o.ResponseInterval = null.IntFrom(int64(seconds)) }
}

func WithPub(pub int) OutcomeOption {
	return func(o *db.Outcome) { o.Pub = pub }
}

func AsGoalie() OutcomeOption {
	return func(o *db.Outcome) { o.Goalie = true }
}

func CreateOutcome(t *testing.T, database *db.DB, gameDayID, playerID int64, response string, opts ...OutcomeOption) int64 {
	t.Helper()

	o := db.Outcome{GameDayID: gameDayID, PlayerID: playerID}
	if response != "" {
		o.Response = null.StringFrom(response)
	}
	for _, opt := range opts {
		opt(&o)
	}
	id, err := database.Queries.InsertOutcome(context.Background(), o)
	if err != nil {
		t.Fatalf("insert outcome for player %d on game day %d: %v", playerID, gameDayID, err)
	}
	return id
}

// CreateSquad inserts n players named prefix1..prefixN and returns their ids.
func CreateSquad(t *testing.T, database *db.DB, prefix string, n int, born time.Time) []int64 {
	t.Helper()

	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, CreatePlayer(t, database, fmt.Sprintf("%s%d", prefix, i), born))
	}
	return ids
}

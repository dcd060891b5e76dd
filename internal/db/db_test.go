package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/codr1/Footy/internal/db"
	"github.com/codr1/Footy/internal/testutil"
)

func TestMigrationsCreateEngineTables(t *testing.T) {
	database := testutil.NewTestDB(t)

	for _, table := range []string{"Player", "Arse", "GameDay", "Outcome", "Diffs", "Picker", "PickerTeams", "PlayerRecord"} {
		var name string
		err := database.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestListPoolOutcomesOnlyUnassignedYes(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	gd := testutil.CreateGameDay(t, database, time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC), true)
	yes := testutil.CreatePlayer(t, database, "yes", time.Time{})
	no := testutil.CreatePlayer(t, database, "no", time.Time{})
	placed := testutil.CreatePlayer(t, database, "placed", time.Time{})
	silent := testutil.CreatePlayer(t, database, "silent", time.Time{})

	testutil.CreateOutcome(t, database, gd, yes, db.ResponseYes)
	testutil.CreateOutcome(t, database, gd, no, db.ResponseNo)
	testutil.CreateOutcome(t, database, gd, placed, db.ResponseYes, testutil.WithTeam(db.TeamA))
	testutil.CreateOutcome(t, database, gd, silent, "")

	outcomes, err := database.Queries.ListPoolOutcomes(ctx, gd)
	if err != nil {
		t.Fatalf("ListPoolOutcomes() error = %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].PlayerID != yes {
		t.Fatalf("pool = %+v, want only player %d", outcomes, yes)
	}
}

func TestCountPlayedBefore(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	first := testutil.CreateGameDay(t, database, time.Date(2024, 1, 2, 19, 0, 0, 0, time.UTC), true)
	training := testutil.CreateGameDay(t, database, time.Date(2024, 1, 9, 19, 0, 0, 0, time.UTC), false)
	second := testutil.CreateGameDay(t, database, time.Date(2024, 1, 16, 19, 0, 0, 0, time.UTC), true)
	target := testutil.CreateGameDay(t, database, time.Date(2024, 1, 23, 19, 0, 0, 0, time.UTC), true)
	later := testutil.CreateGameDay(t, database, time.Date(2024, 1, 30, 19, 0, 0, 0, time.UTC), true)

	regular := testutil.CreatePlayer(t, database, "regular", time.Time{})
	newcomer := testutil.CreatePlayer(t, database, "newcomer", time.Time{})

	testutil.CreateOutcome(t, database, first, regular, db.ResponseYes, testutil.WithPoints(3))
	testutil.CreateOutcome(t, database, training, regular, db.ResponseYes, testutil.WithPoints(3))
	testutil.CreateOutcome(t, database, second, regular, db.ResponseYes, testutil.WithPoints(0))
	testutil.CreateOutcome(t, database, second, newcomer, db.ResponseYes)
	testutil.CreateOutcome(t, database, later, newcomer, db.ResponseYes, testutil.WithPoints(1))

	counts, err := database.Queries.CountPlayedBefore(ctx, target, []int64{regular, newcomer})
	if err != nil {
		t.Fatalf("CountPlayedBefore() error = %v", err)
	}
	if counts[regular] != 2 {
		t.Fatalf("regular played = %d, want 2", counts[regular])
	}
	if counts[newcomer] != 0 {
		t.Fatalf("newcomer played = %d, want 0", counts[newcomer])
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	gd := testutil.CreateGameDay(t, database, time.Date(2024, 2, 6, 19, 0, 0, 0, time.UTC), true)
	player := testutil.CreatePlayer(t, database, "keeper", time.Time{})

	boom := errors.New("boom")
	err := database.RunInTx(ctx, func(tx *db.DB) error {
		if err := tx.Queries.InsertPickerEntry(ctx, db.PickerEntry{
			GameDayID: gd,
			PlayerID:  player,
			Name:      "keeper",
			Average:   null.FloatFrom(5),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx() error = %v, want boom", err)
	}

	entries, err := database.Queries.ListPickerEntries(ctx, gd)
	if err != nil {
		t.Fatalf("ListPickerEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v, want none after rollback", entries)
	}
}

func TestLatestRecordGameDay(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	if _, err := database.Queries.LatestRecordGameDay(ctx, 2024); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("LatestRecordGameDay() error = %v, want sql.ErrNoRows", err)
	}

	player := testutil.CreatePlayer(t, database, "p", time.Time{})
	early := testutil.CreateGameDay(t, database, time.Date(2024, 4, 2, 19, 0, 0, 0, time.UTC), true)
	late := testutil.CreateGameDay(t, database, time.Date(2024, 4, 9, 19, 0, 0, 0, time.UTC), true)
	for _, gd := range []int64{late, early} {
		if err := database.Queries.InsertPlayerRecord(ctx, db.PlayerRecord{PlayerID: player, Year: 2024, GameDayID: gd}); err != nil {
			t.Fatalf("InsertPlayerRecord() error = %v", err)
		}
	}

	got, err := database.Queries.LatestRecordGameDay(ctx, 2024)
	if err != nil {
		t.Fatalf("LatestRecordGameDay() error = %v", err)
	}
	if got != late {
		t.Fatalf("latest = %d, want %d", got, late)
	}
}

func TestPlayerAgeOn(t *testing.T) {
	p := db.Player{Born: null.TimeFrom(time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC))}

	tests := []struct {
		date time.Time
		want int64
	}{
		{time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), 33},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 34},
	}
	for _, test := range tests {
		got := p.AgeOn(test.date)
		if !got.Valid || got.Int64 != test.want {
			t.Fatalf("AgeOn(%s) = %v, want %d", test.date.Format(time.DateOnly), got, test.want)
		}
	}

	if (db.Player{}).AgeOn(time.Now()).Valid {
		t.Fatalf("AgeOn() without birth date should be null")
	}
}

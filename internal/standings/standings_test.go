package standings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func played(day, player int64, points int64) OutcomeRow {
	return OutcomeRow{
		GameDayID: day,
		PlayerID:  player,
		Game:      true,
		Response:  null.StringFrom("Yes"),
		Points:    null.IntFrom(points),
	}
}

func responded(day, player int64, response string, interval int64) OutcomeRow {
	return OutcomeRow{
		GameDayID:        day,
		PlayerID:         player,
		Game:             true,
		Response:         null.StringFrom(response),
		ResponseInterval: null.IntFrom(interval),
	}
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := map[string]Policy{
		"draw_equals_win":  {PointsWin: 1, PointsDraw: 1},
		"loss_above_draw":  {PointsWin: 3, PointsDraw: 1, PointsLoss: 2},
		"negative_minimum": {PointsWin: 3, PointsDraw: 1, AveragesMinPlayed: -1},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, p.Validate(), ErrInvalidPolicy)
		})
	}
}

func TestTally(t *testing.T) {
	rows := []OutcomeRow{
		played(1, 7, 3),
		played(2, 7, 1),
		played(3, 7, 0),
		{GameDayID: 4, PlayerID: 7, Game: true, Response: null.StringFrom("Yes")},
		responded(5, 7, "No", 30),
		{GameDayID: 6, PlayerID: 7, Game: true},
		played(1, 8, 3),
	}
	rows[0].Pub = 1
	rows[0].ResponseInterval = null.IntFrom(90)
	rows[1].Pub = 1

	r := Tally(7, rows, DefaultPolicy())

	assert.Equal(t, int64(7), r.PlayerID)
	assert.Equal(t, 5, r.Responses)
	assert.Equal(t, 3, r.Played, "a Yes without a result is not a game played")
	assert.Equal(t, 1, r.Won)
	assert.Equal(t, 1, r.Drawn)
	assert.Equal(t, 1, r.Lost)
	assert.Equal(t, 4, r.Points)
	require.True(t, r.Averages.Valid)
	assert.InDelta(t, 4.0/3.0, r.Averages.Float64, 1e-9)
	assert.Equal(t, 4, r.Stalwart)
	require.True(t, r.Speedy.Valid)
	assert.InDelta(t, 60.0, r.Speedy.Float64, 1e-9)
	assert.Equal(t, 2, r.Pub)
	assert.False(t, r.RankPoints.Valid)
}

func TestTallyWithoutGamesHasNullAverages(t *testing.T) {
	r := Tally(1, []OutcomeRow{{GameDayID: 1, PlayerID: 1, Response: null.StringFrom("Dunno")}}, DefaultPolicy())
	assert.Equal(t, 1, r.Responses)
	assert.False(t, r.Averages.Valid)
	assert.False(t, r.Speedy.Valid)
}

func TestAssignRanksSharesTiesAndSkips(t *testing.T) {
	records := []Record{
		{PlayerID: 4, Points: 9, Played: 5},
		{PlayerID: 2, Points: 12, Played: 5},
		{PlayerID: 3, Points: 9, Played: 5},
		{PlayerID: 1, Points: 4, Played: 5},
	}

	AssignRanks(records, DefaultPolicy())

	ranks := map[int64]int64{}
	for _, r := range records {
		require.True(t, r.RankPoints.Valid)
		ranks[r.PlayerID] = r.RankPoints.Int64
	}
	assert.Equal(t, map[int64]int64{2: 1, 3: 2, 4: 2, 1: 4}, ranks)
}

func TestAssignRanksOrdersSpeedyAscending(t *testing.T) {
	records := []Record{
		{PlayerID: 1, Speedy: null.FloatFrom(300), Responses: 12, Played: 12},
		{PlayerID: 2, Speedy: null.FloatFrom(20), Responses: 3, Played: 3},
		{PlayerID: 3, Responses: 15, Played: 15},
	}

	AssignRanks(records, DefaultPolicy())

	assert.Equal(t, null.IntFrom(2), records[0].RankSpeedy)
	assert.Equal(t, null.IntFrom(1), records[1].RankSpeedy)
	assert.False(t, records[2].RankSpeedy.Valid, "no intervals means no speedy rank")

	assert.Equal(t, null.IntFrom(1), records[0].RankSpeedyUnqualified)
	assert.False(t, records[1].RankSpeedyUnqualified.Valid, "below the games-played threshold")
	assert.False(t, records[2].RankSpeedyUnqualified.Valid)
}

func TestAssignRanksRestrictedSpeedyIgnoresResponsesWithoutGames(t *testing.T) {
	records := []Record{
		{PlayerID: 1, Responses: 12, Played: 0, Speedy: null.FloatFrom(5)},
		{PlayerID: 2, Responses: 12, Played: 12, Speedy: null.FloatFrom(50)},
	}

	AssignRanks(records, DefaultPolicy())

	assert.Equal(t, null.IntFrom(1), records[0].RankSpeedy)
	assert.False(t, records[0].RankSpeedyUnqualified.Valid, "answering without playing must not qualify")
	assert.Equal(t, null.IntFrom(1), records[1].RankSpeedyUnqualified)
}

func TestAssignRanksRestrictedAveragesExcludeLowPlayed(t *testing.T) {
	policy := DefaultPolicy()
	policy.AveragesMinPlayed = 3

	records := []Record{
		{PlayerID: 1, Played: 1, Points: 3, Averages: null.FloatFrom(3)},
		{PlayerID: 2, Played: 4, Points: 8, Averages: null.FloatFrom(2)},
		{PlayerID: 3, Played: 3, Points: 3, Averages: null.FloatFrom(1)},
		{PlayerID: 4, Played: 0},
	}

	AssignRanks(records, policy)

	assert.Equal(t, null.IntFrom(1), records[0].RankAverages)
	assert.Equal(t, null.IntFrom(2), records[1].RankAverages)
	assert.Equal(t, null.IntFrom(3), records[2].RankAverages)
	assert.False(t, records[3].RankAverages.Valid)

	for _, r := range records {
		if r.Played < policy.AveragesMinPlayed {
			assert.False(t, r.RankAveragesUnqualified.Valid, "player %d should not be ranked", r.PlayerID)
			continue
		}
		require.True(t, r.RankAveragesUnqualified.Valid)
		assert.NotZero(t, r.RankAveragesUnqualified.Int64)
	}
	assert.Equal(t, null.IntFrom(1), records[1].RankAveragesUnqualified)
	assert.Equal(t, null.IntFrom(2), records[2].RankAveragesUnqualified)
}

func TestAssignRanksIsTotalOrderOverMetric(t *testing.T) {
	records := []Record{
		{PlayerID: 1, Pub: 4}, {PlayerID: 2, Pub: 0}, {PlayerID: 3, Pub: 7},
		{PlayerID: 4, Pub: 4}, {PlayerID: 5, Pub: 1}, {PlayerID: 6, Pub: 7},
	}
	AssignRanks(records, DefaultPolicy())

	for _, p := range records {
		for _, q := range records {
			if p.Pub > q.Pub {
				assert.Less(t, p.RankPub.Int64, q.RankPub.Int64)
			}
			if p.Pub == q.Pub {
				assert.Equal(t, p.RankPub, q.RankPub)
			}
		}
	}
}

func TestComputeTiedSeason(t *testing.T) {
	days := []Day{{ID: 1, Game: true}, {ID: 2, Game: true}}
	outcomes := []OutcomeRow{
		played(1, 10, 3), played(1, 20, 3), played(1, 30, 0),
		played(2, 10, 1), played(2, 20, 1), played(2, 30, 1),
	}

	records, err := Compute(2024, days, outcomes, DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, records, 6)

	final := map[int64]Record{}
	for _, r := range records {
		assert.Equal(t, 2024, r.Year)
		if r.GameDayID == 2 {
			final[r.PlayerID] = r
		}
	}
	require.Len(t, final, 3)

	assert.Equal(t, final[10].Points, final[20].Points)
	assert.Equal(t, final[10].Played, final[20].Played)
	assert.Equal(t, null.IntFrom(1), final[10].RankPoints)
	assert.Equal(t, null.IntFrom(1), final[20].RankPoints)
	assert.Equal(t, null.IntFrom(3), final[30].RankPoints, "next rank skips the tied count")
}

func TestComputeIsCumulativeAndSkipsPlaceholders(t *testing.T) {
	days := []Day{{ID: 1, Game: true}, {ID: 2, Game: false}, {ID: 3, Game: true}}
	outcomes := []OutcomeRow{
		played(1, 1, 3),
		{GameDayID: 2, PlayerID: 2, Response: null.StringFrom("Yes")},
		played(3, 1, 0),
		played(3, 2, 3),
	}

	records, err := Compute(0, days, outcomes, DefaultPolicy())
	require.NoError(t, err)

	byDay := map[int64][]Record{}
	for _, r := range records {
		byDay[r.GameDayID] = append(byDay[r.GameDayID], r)
	}
	assert.Len(t, byDay[1], 1)
	assert.Empty(t, byDay[2])
	require.Len(t, byDay[3], 2)

	p1 := byDay[3][0]
	assert.Equal(t, int64(1), p1.PlayerID)
	assert.Equal(t, 2, p1.Played)
	assert.Equal(t, 3, p1.Points)
	assert.Equal(t, 0, p1.Year)

	p2 := byDay[3][1]
	assert.Equal(t, 2, p2.Responses)
	assert.Equal(t, 1, p2.Stalwart, "placeholder day does not count as attendance")
}

func TestComputeRejectsBadPolicy(t *testing.T) {
	_, err := Compute(2024, nil, nil, Policy{})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

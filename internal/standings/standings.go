package standings

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/guregu/null.v4"
)

var ErrInvalidPolicy = errors.New("invalid ranking policy")

const responseYes = "Yes"

// Policy holds the points awarded per result and the qualification
// thresholds for the restricted rankings.
type Policy struct {
	PointsWin         int `json:"pointsWin"`
	PointsDraw        int `json:"pointsDraw"`
	PointsLoss        int `json:"pointsLoss"`
	AveragesMinPlayed int `json:"averagesMinPlayed"`
	SpeedyMinPlayed   int `json:"speedyMinPlayed"`
}

func DefaultPolicy() Policy {
	return Policy{
		PointsWin:         3,
		PointsDraw:        1,
		PointsLoss:        0,
		AveragesMinPlayed: 10,
		SpeedyMinPlayed:   10,
	}
}

func (p Policy) Validate() error {
	if p.PointsWin <= p.PointsDraw || p.PointsDraw <= p.PointsLoss {
		return fmt.Errorf("%w: points must satisfy win > draw > loss, got %d/%d/%d",
			ErrInvalidPolicy, p.PointsWin, p.PointsDraw, p.PointsLoss)
	}
	if p.AveragesMinPlayed < 0 || p.SpeedyMinPlayed < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidPolicy)
	}
	return nil
}

// OutcomeRow is the part of an outcome the rankings read.
type OutcomeRow struct {
	GameDayID        int64
	PlayerID         int64
	Game             bool
	Response         null.String
	ResponseInterval null.Int
	Points           null.Int
	Pub              int
}

// Record is a player's season summary as of one game day. Its fields line
// up with db.PlayerRecord so the two convert directly.
type Record struct {
	PlayerID  int64 `json:"playerId"`
	Year      int   `json:"year"`
	GameDayID int64 `json:"gameDayId"`

	Responses int        `json:"responses"`
	Played    int        `json:"played"`
	Won       int        `json:"won"`
	Drawn     int        `json:"drawn"`
	Lost      int        `json:"lost"`
	Points    int        `json:"points"`
	Averages  null.Float `json:"averages"`
	Stalwart  int        `json:"stalwart"`
	Speedy    null.Float `json:"speedy"`
	Pub       int        `json:"pub"`

	RankPoints              null.Int `json:"rankPoints"`
	RankAverages            null.Int `json:"rankAverages"`
	RankAveragesUnqualified null.Int `json:"rankAveragesUnqualified"`
	RankStalwart            null.Int `json:"rankStalwart"`
	RankSpeedy              null.Int `json:"rankSpeedy"`
	RankSpeedyUnqualified   null.Int `json:"rankSpeedyUnqualified"`
	RankPub                 null.Int `json:"rankPub"`
}

type tally struct {
	record        Record
	intervalSum   int64
	intervalCount int
}

func (t *tally) add(row OutcomeRow, policy Policy) {
	r := &t.record
	if row.Response.Valid {
		r.Responses++
	}
	if row.ResponseInterval.Valid {
		t.intervalSum += row.ResponseInterval.Int64
		t.intervalCount++
	}
	r.Pub += row.Pub

	yes := row.Response.Valid && row.Response.String == responseYes
	if yes && row.Game {
		r.Stalwart++
	}
	if !yes || !row.Points.Valid {
		return
	}

	points := int(row.Points.Int64)
	r.Played++
	r.Points += points
	switch {
	case points >= policy.PointsWin:
		r.Won++
	case points >= policy.PointsDraw:
		r.Drawn++
	default:
		r.Lost++
	}
}

func (t *tally) snapshot() Record {
	r := t.record
	if r.Played > 0 {
		r.Averages = null.FloatFrom(float64(r.Points) / float64(r.Played))
	}
	if t.intervalCount > 0 {
		r.Speedy = null.FloatFrom(float64(t.intervalSum) / float64(t.intervalCount))
	}
	return r
}

// Tally summarises the given outcomes of one player. Rows of other players
// are ignored. Ranks are left null.
func Tally(playerID int64, rows []OutcomeRow, policy Policy) Record {
	t := tally{record: Record{PlayerID: playerID}}
	for _, row := range rows {
		if row.PlayerID == playerID {
			t.add(row, policy)
		}
	}
	return t.snapshot()
}

// metric extracts the value a ranking sorts on. ok is false when the record
// has no value and must stay unranked.
type metric func(Record) (value float64, ok bool)

func rankBy(records []Record, value metric, ascending bool, eligible func(Record) bool, set func(*Record, null.Int)) {
	type entry struct {
		index int
		value float64
	}
	entries := make([]entry, 0, len(records))
	for i := range records {
		set(&records[i], null.Int{})
		v, ok := value(records[i])
		if !ok || (eligible != nil && !eligible(records[i])) {
			continue
		}
		entries = append(entries, entry{index: i, value: v})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			if ascending {
				return entries[i].value < entries[j].value
			}
			return entries[i].value > entries[j].value
		}
		return records[entries[i].index].PlayerID < records[entries[j].index].PlayerID
	})

	// Standard competition ranking: tied values share the rank of the first
	// of them and the next value skips past the whole tie.
	var rank int64
	for pos, e := range entries {
		if pos == 0 || e.value != entries[pos-1].value {
			rank = int64(pos + 1)
		}
		set(&records[e.index], null.IntFrom(rank))
	}
}

// AssignRanks fills every rank column of records, treating them as one set.
// Higher is better for all metrics except speedy.
func AssignRanks(records []Record, policy Policy) {
	points := func(r Record) (float64, bool) { return float64(r.Points), true }
	averages := func(r Record) (float64, bool) { return r.Averages.Float64, r.Averages.Valid }
	stalwart := func(r Record) (float64, bool) { return float64(r.Stalwart), true }
	speedy := func(r Record) (float64, bool) { return r.Speedy.Float64, r.Speedy.Valid }
	pub := func(r Record) (float64, bool) { return float64(r.Pub), true }

	playedEnough := func(r Record) bool { return r.Played >= policy.AveragesMinPlayed }
	speedyQualified := func(r Record) bool { return r.Played >= policy.SpeedyMinPlayed }

	rankBy(records, points, false, nil, func(r *Record, v null.Int) { r.RankPoints = v })
	rankBy(records, averages, false, nil, func(r *Record, v null.Int) { r.RankAverages = v })
	rankBy(records, averages, false, playedEnough, func(r *Record, v null.Int) { r.RankAveragesUnqualified = v })
	rankBy(records, stalwart, false, nil, func(r *Record, v null.Int) { r.RankStalwart = v })
	rankBy(records, speedy, true, nil, func(r *Record, v null.Int) { r.RankSpeedy = v })
	rankBy(records, speedy, true, speedyQualified, func(r *Record, v null.Int) { r.RankSpeedyUnqualified = v })
	rankBy(records, pub, false, nil, func(r *Record, v null.Int) { r.RankPub = v })
}

// Day is a game day as the rankings see it.
type Day struct {
	ID   int64
	Game bool
}

// Compute walks days in order and, after each real game day, emits one
// cumulative record per player seen so far, ranked against the other
// records of that day. Outcomes on placeholder days count towards responses
// but produce no records of their own. Year is stamped on every record; 0
// stands for the all-time table.
func Compute(year int, days []Day, outcomes []OutcomeRow, policy Policy) ([]Record, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	byDay := make(map[int64][]OutcomeRow, len(days))
	for _, o := range outcomes {
		byDay[o.GameDayID] = append(byDay[o.GameDayID], o)
	}

	tallies := make(map[int64]*tally)
	var records []Record
	for _, day := range days {
		for _, o := range byDay[day.ID] {
			t, ok := tallies[o.PlayerID]
			if !ok {
				t = &tally{record: Record{PlayerID: o.PlayerID}}
				tallies[o.PlayerID] = t
			}
			t.add(o, policy)
		}
		if !day.Game || len(tallies) == 0 {
			continue
		}

		dayRecords := make([]Record, 0, len(tallies))
		for _, t := range tallies {
			r := t.snapshot()
			r.Year = year
			r.GameDayID = day.ID
			dayRecords = append(dayRecords, r)
		}
		sort.Slice(dayRecords, func(i, j int) bool {
			return dayRecords[i].PlayerID < dayRecords[j].PlayerID
		})
		AssignRanks(dayRecords, policy)
		records = append(records, dayRecords...)
	}

	return records, nil
}

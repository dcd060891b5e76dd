// Package balance splits a game day's pool into two evenly matched teams.
package balance

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v4"
)

// Candidate is one pool member with everything the evaluator needs resolved.
type Candidate struct {
	PlayerID int64      `json:"playerId"`
	Name     string     `json:"name"`
	Age      null.Int   `json:"age"`
	Average  null.Float `json:"average"`
	Goalie   bool       `json:"goalie"`
	Played   int        `json:"played"`
}

// Diffs describes how far apart two teams are. The first seven fields are
// what gets stored for a game day.
type Diffs struct {
	A              string  `json:"a"`
	B              string  `json:"b"`
	DiffAge        float64 `json:"diffAge"`
	DiffUnknownAge int     `json:"diffUnknownAge"`
	DiffGoalies    int     `json:"diffGoalies"`
	DiffAverage    float64 `json:"diffAverage"`
	DiffPlayed     float64 `json:"diffPlayed"`

	// UnknownAgeImbalance is how many more players of unknown age one team
	// has than the other.
	UnknownAgeImbalance int `json:"unknownAgeImbalance"`
	// MissingGoalie is set when the pool has a goalie for each side but one
	// side ended up with none.
	MissingGoalie bool `json:"missingGoalie"`
}

type sideStats struct {
	average    []float64
	age        []float64
	played     []float64
	unknownAge int
	goalies    int
}

func measure(side []Candidate) sideStats {
	s := sideStats{
		average: make([]float64, 0, len(side)),
		age:     make([]float64, 0, len(side)),
		played:  make([]float64, 0, len(side)),
	}
	for _, c := range side {
		if c.Average.Valid {
			s.average = append(s.average, c.Average.Float64)
		}
		if c.Age.Valid {
			s.age = append(s.age, float64(c.Age.Int64))
		} else {
			s.unknownAge++
		}
		if c.Goalie {
			s.goalies++
		}
		s.played = append(s.played, float64(c.Played))
	}
	return s
}

// meanGap is |mean(a) - mean(b)|, or 0 when either side has nothing to
// compare.
func meanGap(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return math.Abs(stat.Mean(a, nil) - stat.Mean(b, nil))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func diff(a, b []Candidate) Diffs {
	sa, sb := measure(a), measure(b)
	goalies := sa.goalies + sb.goalies
	return Diffs{
		DiffAge:             meanGap(sa.age, sb.age),
		DiffUnknownAge:      sa.unknownAge + sb.unknownAge,
		DiffGoalies:         absInt(sa.goalies - sb.goalies),
		DiffAverage:         meanGap(sa.average, sb.average),
		DiffPlayed:          meanGap(sa.played, sb.played),
		UnknownAgeImbalance: absInt(sa.unknownAge - sb.unknownAge),
		MissingGoalie:       goalies >= 2 && (sa.goalies == 0 || sb.goalies == 0),
	}
}

// Evaluate compares team a with team b. Unrated players are left out of the
// average gap and players of unknown age out of the age gap.
func Evaluate(a, b []Candidate) Diffs {
	d := diff(a, b)
	d.A = describe(a)
	d.B = describe(b)
	return d
}

func describe(team []Candidate) string {
	names := make([]string, len(team))
	for i, c := range team {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// Weights turns Diffs into a single score. Lower scores are better balanced.
type Weights struct {
	Average    float64 `json:"average"`
	Age        float64 `json:"age"`
	UnknownAge float64 `json:"unknownAge"`
	Goalies    float64 `json:"goalies"`
	Played     float64 `json:"played"`
	// MissingGoalie is added once when a team is left without a goalie that
	// the pool could have given it.
	MissingGoalie float64 `json:"missingGoalie"`
}

func DefaultWeights() Weights {
	return Weights{
		Average:       1,
		Age:           1,
		Goalies:       1,
		Played:        1,
		MissingGoalie: 2,
	}
}

func (w Weights) Validate() error {
	values := []struct {
		name  string
		value float64
	}{
		{"average", w.Average},
		{"age", w.Age},
		{"unknown_age", w.UnknownAge},
		{"goalies", w.Goalies},
		{"played", w.Played},
		{"missing_goalie", w.MissingGoalie},
	}
	var total float64
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 {
			return fmt.Errorf("%w: weight %s must be a non-negative number", ErrInvalidOptions, v.name)
		}
		total += v.value
	}
	if total == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidOptions)
	}
	return nil
}

func (w Weights) Score(d Diffs) float64 {
	score := w.Average*d.DiffAverage +
		w.Age*d.DiffAge +
		w.UnknownAge*float64(d.UnknownAgeImbalance) +
		w.Goalies*float64(d.DiffGoalies) +
		w.Played*d.DiffPlayed
	if d.MissingGoalie {
		score += w.MissingGoalie
	}
	return score
}

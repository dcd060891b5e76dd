// Package rating folds peer assessments into one skill profile per player.
package rating

import (
	"gopkg.in/guregu/null.v4"

	"github.com/codr1/Footy/internal/db"
)

// Skill identifies one of the assessed abilities.
type Skill int

const (
	InGoal Skill = iota
	Running
	Shooting
	Passing
	BallSkill
	Attacking
	Defending

	skillCount
)

var skillNames = [skillCount]string{
	InGoal:    "inGoal",
	Running:   "running",
	Shooting:  "shooting",
	Passing:   "passing",
	BallSkill: "ballSkill",
	Attacking: "attacking",
	Defending: "defending",
}

func (s Skill) String() string {
	if s < 0 || s >= skillCount {
		return "unknown"
	}
	return skillNames[s]
}

// Skills lists every skill in column order.
func Skills() []Skill {
	skills := make([]Skill, skillCount)
	for i := range skills {
		skills[i] = Skill(i)
	}
	return skills
}

// Profile holds a player's mean score per skill. A skill nobody scored is
// null, never zero.
type Profile struct {
	PlayerID int64
	Raters   int
	skills   [skillCount]null.Float
}

func (p Profile) Skill(s Skill) null.Float {
	if s < 0 || s >= skillCount {
		return null.Float{}
	}
	return p.skills[s]
}

// Rated reports whether at least one skill has a score.
func (p Profile) Rated() bool {
	for _, v := range p.skills {
		if v.Valid {
			return true
		}
	}
	return false
}

// Average is the mean of the rated skills. With excludeGoalkeeping the
// inGoal score is left out, which suits outfield comparisons. Null when no
// included skill is rated.
func (p Profile) Average(excludeGoalkeeping bool) null.Float {
	var sum float64
	var n int
	for s, v := range p.skills {
		if excludeGoalkeeping && Skill(s) == InGoal {
			continue
		}
		if !v.Valid {
			continue
		}
		sum += v.Float64
		n++
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(sum / float64(n))
}

func scores(a db.Arse) [skillCount]null.Int {
	return [skillCount]null.Int{
		InGoal:    a.InGoal,
		Running:   a.Running,
		Shooting:  a.Shooting,
		Passing:   a.Passing,
		BallSkill: a.BallSkill,
		Attacking: a.Attacking,
		Defending: a.Defending,
	}
}

// Aggregate builds the profile of playerID from the assessments given.
// Assessments of other players are ignored. Every rater counts equally.
func Aggregate(playerID int64, arses []db.Arse) Profile {
	var sums [skillCount]float64
	var counts [skillCount]int

	p := Profile{PlayerID: playerID}
	for _, a := range arses {
		if a.PlayerID != playerID {
			continue
		}
		p.Raters++
		for s, v := range scores(a) {
			if !v.Valid {
				continue
			}
			sums[s] += float64(v.Int64)
			counts[s]++
		}
	}

	for s := range p.skills {
		if counts[s] > 0 {
			p.skills[s] = null.FloatFrom(sums[s] / float64(counts[s]))
		}
	}
	return p
}

// AggregateAll groups assessments by player and aggregates each group.
func AggregateAll(arses []db.Arse) map[int64]Profile {
	byPlayer := make(map[int64][]db.Arse)
	for _, a := range arses {
		byPlayer[a.PlayerID] = append(byPlayer[a.PlayerID], a)
	}

	profiles := make(map[int64]Profile, len(byPlayer))
	for id, rows := range byPlayer {
		profiles[id] = Aggregate(id, rows)
	}
	return profiles
}

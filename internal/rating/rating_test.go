package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/codr1/Footy/internal/db"
)

func score(v int64) null.Int { return null.IntFrom(v) }

func TestAggregateAveragesEachSkillOverItsRaters(t *testing.T) {
	arses := []db.Arse{
		{PlayerID: 1, RaterID: 10, InGoal: score(2), Running: score(6), Shooting: score(8)},
		{PlayerID: 1, RaterID: 11, InGoal: score(4), Running: score(8)},
		{PlayerID: 2, RaterID: 10, Running: score(1)},
	}

	p := Aggregate(1, arses)

	assert.Equal(t, int64(1), p.PlayerID)
	assert.Equal(t, 2, p.Raters)
	assert.Equal(t, null.FloatFrom(3), p.Skill(InGoal))
	assert.Equal(t, null.FloatFrom(7), p.Skill(Running))
	assert.Equal(t, null.FloatFrom(8), p.Skill(Shooting))
	assert.False(t, p.Skill(Passing).Valid, "unscored skill must stay null")
	assert.True(t, p.Rated())
}

func TestAverageSkipsUnratedSkills(t *testing.T) {
	p := Aggregate(1, []db.Arse{
		{PlayerID: 1, RaterID: 2, InGoal: score(9), Running: score(4), Passing: score(6)},
	})

	all := p.Average(false)
	require.True(t, all.Valid)
	assert.InDelta(t, 19.0/3.0, all.Float64, 1e-9)

	outfield := p.Average(true)
	require.True(t, outfield.Valid)
	assert.InDelta(t, 5.0, outfield.Float64, 1e-9)
}

func TestUnratedPlayerHasNullAverage(t *testing.T) {
	p := Aggregate(7, nil)
	assert.False(t, p.Rated())
	assert.False(t, p.Average(false).Valid)
	assert.Equal(t, 0, p.Raters)

	keeperOnly := Aggregate(8, []db.Arse{{PlayerID: 8, RaterID: 1, InGoal: score(7)}})
	assert.True(t, keeperOnly.Average(false).Valid)
	assert.False(t, keeperOnly.Average(true).Valid)
}

func TestAggregateAllGroupsByPlayer(t *testing.T) {
	profiles := AggregateAll([]db.Arse{
		{PlayerID: 1, RaterID: 2, Running: score(5)},
		{PlayerID: 2, RaterID: 1, Running: score(3)},
		{PlayerID: 1, RaterID: 3, Running: score(7)},
	})

	require.Len(t, profiles, 2)
	assert.Equal(t, null.FloatFrom(6), profiles[1].Skill(Running))
	assert.Equal(t, null.FloatFrom(3), profiles[2].Skill(Running))
}

func TestSkillNames(t *testing.T) {
	assert.Len(t, Skills(), 7)
	assert.Equal(t, "ballSkill", BallSkill.String())
	assert.Equal(t, "unknown", Skill(42).String())
}

// internal/db/models.go
package db

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

// Response values recorded on an Outcome.
const (
	ResponseYes     = "Yes"
	ResponseNo      = "No"
	ResponseDunno   = "Dunno"
	ResponseExcused = "Excused"
	ResponseFlaked  = "Flaked"
	ResponseInjured = "Injured"
)

const (
	TeamA = "A"
	TeamB = "B"
)

type Player struct {
	ID         int64     `db:"id"`
	Login      string    `db:"login"`
	GivenName  string    `db:"givenName"`
	FamilyName string    `db:"familyName"`
	Anonymous  bool      `db:"anonymous"`
	IsAdmin    bool      `db:"isAdmin"`
	Joined     time.Time `db:"joined"`
	Finished   null.Time `db:"finished"`
	Born       null.Time `db:"born"`
	Comment    string    `db:"comment"`
}

// DisplayName is the name shown on team sheets. Anonymous players are shown
// by their given name only.
func (p Player) DisplayName() string {
	if p.Anonymous {
		if p.GivenName != "" {
			return p.GivenName
		}
		return p.Login
	}
	name := strings.TrimSpace(p.GivenName + " " + p.FamilyName)
	if name == "" {
		return p.Login
	}
	return name
}

// AgeOn returns the player's age in whole years on the given date, or null
// when the birth date is unknown.
func (p Player) AgeOn(date time.Time) null.Int {
	if !p.Born.Valid {
		return null.Int{}
	}
	born := p.Born.Time
	age := date.Year() - born.Year()
	if date.Month() < born.Month() || (date.Month() == born.Month() && date.Day() < born.Day()) {
		age--
	}
	if age < 0 {
		return null.Int{}
	}
	return null.IntFrom(int64(age))
}

// Arse is one rater's assessment of one player. Every skill is optional.
type Arse struct {
	ID        int64     `db:"id"`
	Stamp     time.Time `db:"stamp"`
	PlayerID  int64     `db:"playerId"`
	RaterID   int64     `db:"raterId"`
	InGoal    null.Int  `db:"inGoal"`
	Running   null.Int  `db:"running"`
	Shooting  null.Int  `db:"shooting"`
	Passing   null.Int  `db:"passing"`
	BallSkill null.Int  `db:"ballSkill"`
	Attacking null.Int  `db:"attacking"`
	Defending null.Int  `db:"defending"`
}

type GameDay struct {
	ID      int64       `db:"id"`
	Date    time.Time   `db:"date"`
	Year    int         `db:"year"`
	Game    bool        `db:"game"`
	Bibs    null.String `db:"bibs"`
	Comment string      `db:"comment"`
}

type Outcome struct {
	ID               int64       `db:"id"`
	GameDayID        int64       `db:"gameDayId"`
	PlayerID         int64       `db:"playerId"`
	Response         null.String `db:"response"`
	ResponseInterval null.Int    `db:"responseInterval"`
	Team             null.String `db:"team"`
	Points           null.Int    `db:"points"`
	Pub              int         `db:"pub"`
	Paid             bool        `db:"paid"`
	Goalie           bool        `db:"goalie"`
}

// SeasonOutcome is an Outcome joined with the game day it belongs to.
type SeasonOutcome struct {
	Outcome
	Date time.Time `db:"date"`
	Year int       `db:"year"`
	Game bool      `db:"game"`
}

type Diffs struct {
	GameDayID      int64     `db:"gameDayId"`
	A              string    `db:"a"`
	B              string    `db:"b"`
	DiffAge        float64   `db:"diffAge"`
	DiffUnknownAge int       `db:"diffUnknownAge"`
	DiffGoalies    int       `db:"diffGoalies"`
	DiffAverage    float64   `db:"diffAverage"`
	DiffPlayed     float64   `db:"diffPlayed"`
	Score          float64   `db:"score"`
	RunID          string    `db:"runId"`
	Seed           string    `db:"seed"`
	CreatedAt      time.Time `db:"createdAt"`
}

// PickerEntry is one member of a game day's pool as the picker saw it.
type PickerEntry struct {
	GameDayID int64      `db:"gameDayId" json:"gameDayId"`
	PlayerID  int64      `db:"playerId" json:"playerId"`
	Name      string     `db:"name" json:"name"`
	Age       null.Int   `db:"age" json:"age"`
	Average   null.Float `db:"average" json:"average"`
	Goalie    bool       `db:"goalie" json:"goalie"`
	Played    int        `db:"played" json:"played"`
}

type PickerTeam struct {
	GameDayID int64  `db:"gameDayId"`
	PlayerID  int64  `db:"playerId"`
	Team      string `db:"team"`
}

type PlayerRecord struct {
	PlayerID                int64      `db:"playerId"`
	Year                    int        `db:"year"`
	GameDayID               int64      `db:"gameDayId"`
	Responses               int        `db:"responses"`
	Played                  int        `db:"played"`
	Won                     int        `db:"won"`
	Drawn                   int        `db:"drawn"`
	Lost                    int        `db:"lost"`
	Points                  int        `db:"points"`
	Averages                null.Float `db:"averages"`
	Stalwart                int        `db:"stalwart"`
	Speedy                  null.Float `db:"speedy"`
	Pub                     int        `db:"pub"`
	RankPoints              null.Int   `db:"rankPoints"`
	RankAverages            null.Int   `db:"rankAverages"`
	RankAveragesUnqualified null.Int   `db:"rankAveragesUnqualified"`
	RankStalwart            null.Int   `db:"rankStalwart"`
	RankSpeedy              null.Int   `db:"rankSpeedy"`
	RankSpeedyUnqualified   null.Int   `db:"rankSpeedyUnqualified"`
	RankPub                 null.Int   `db:"rankPub"`
}

// cmd/server/engines.go
package main

import (
	"github.com/codr1/Footy/internal/balance"
	"github.com/codr1/Footy/internal/config"
	"github.com/codr1/Footy/internal/picker"
	"github.com/codr1/Footy/internal/standings"
)

func pickerSettings(cfg config.PickerConfig) picker.Settings {
	return picker.Settings{
		Options: balance.Options{
			Weights: balance.Weights{
				Average:       cfg.Weights.Average,
				Age:           cfg.Weights.Age,
				UnknownAge:    cfg.Weights.UnknownAge,
				Goalies:       cfg.Weights.Goalies,
				Played:        cfg.Weights.Played,
				MissingGoalie: cfg.Weights.MissingGoalie,
			},
			Iterations:         cfg.Iterations,
			StallRounds:        cfg.StallRounds,
			Restarts:           cfg.Restarts,
			Seed:               cfg.Seed,
			InitialTemperature: cfg.InitialTemperature,
			Cooling:            cfg.Cooling,
			TimeBudget:         cfg.TimeBudget,
		},
		GoalieThreshold:    cfg.GoalieThreshold,
		ExcludeGoalkeeping: cfg.ExcludeGoalkeeping,
	}
}

func rankingPolicy(cfg config.RankingsConfig) standings.Policy {
	return standings.Policy{
		PointsWin:         cfg.PointsWin,
		PointsDraw:        cfg.PointsDraw,
		PointsLoss:        cfg.PointsLoss,
		AveragesMinPlayed: cfg.AveragesMinPlayed,
		SpeedyMinPlayed:   cfg.SpeedyMinPlayed,
	}
}

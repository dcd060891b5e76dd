// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// WeightsConfig mirrors balance.Weights. Kept separate so the engine packages
// do not depend on yaml tags.
type WeightsConfig struct {
	Average       float64 `yaml:"average"`
	Age           float64 `yaml:"age"`
	UnknownAge    float64 `yaml:"unknown_age"`
	Goalies       float64 `yaml:"goalies"`
	Played        float64 `yaml:"played"`
	MissingGoalie float64 `yaml:"missing_goalie"`
}

type PickerConfig struct {
	Weights            WeightsConfig `yaml:"weights"`
	Iterations         int           `yaml:"iterations"`
	StallRounds        int           `yaml:"stall_rounds"`
	Restarts           int           `yaml:"restarts"`
	Seed               uint64        `yaml:"seed"`
	InitialTemperature float64       `yaml:"initial_temperature"`
	Cooling            float64       `yaml:"cooling"`
	TimeBudget         time.Duration `yaml:"time_budget"`
	GoalieThreshold    float64       `yaml:"goalie_threshold"`
	// Exclude the goalkeeping rating from a player's average skill.
	ExcludeGoalkeeping bool `yaml:"exclude_goalkeeping"`
}

type RankingsConfig struct {
	PointsWin         int `yaml:"points_win"`
	PointsDraw        int `yaml:"points_draw"`
	PointsLoss        int `yaml:"points_loss"`
	AveragesMinPlayed int `yaml:"averages_min_played"`
	SpeedyMinPlayed   int `yaml:"speedy_min_played"`
}

type SchedulerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RankingsCron    string        `yaml:"rankings_cron"`
	PickerCron      string        `yaml:"picker_cron"`
	PickerLookahead time.Duration `yaml:"picker_lookahead"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// Requests per second allowed on the endpoints that trigger engine runs.
		TriggerRateLimit float64 `yaml:"trigger_rate_limit"`
		TriggerBurst     int     `yaml:"trigger_burst"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Picker    PickerConfig    `yaml:"picker"`
	Rankings  RankingsConfig  `yaml:"rankings"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// Default returns a configuration with every engine setting populated.
// Load starts from it so a config file only needs to override what differs.
func Default() Config {
	var cfg Config
	cfg.App.Name = "Footy"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.App.ShutdownTimeout = 30 * time.Second
	cfg.App.TriggerRateLimit = 1
	cfg.App.TriggerBurst = 3

	cfg.Database = DatabaseConfig{Driver: "sqlite", Filename: "data/footy.db"}

	cfg.Picker = PickerConfig{
		Weights: WeightsConfig{
			Average:       1,
			Age:           1,
			Goalies:       1,
			Played:        1,
			MissingGoalie: 2,
		},
		Iterations:         4000,
		StallRounds:        800,
		Restarts:           8,
		InitialTemperature: 1.0,
		Cooling:            0.995,
		TimeBudget:         2 * time.Second,
		GoalieThreshold:    7,
	}

	cfg.Rankings = RankingsConfig{
		PointsWin:         3,
		PointsDraw:        1,
		PointsLoss:        0,
		AveragesMinPlayed: 10,
		SpeedyMinPlayed:   10,
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:         true,
		RankingsCron:    "0 4 * * *",
		PickerCron:      "*/30 * * * *",
		PickerLookahead: 24 * time.Hour,
	}

	return cfg
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML over Default, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FOOTY_ENVIRONMENT"); v != "" {
		c.App.Environment = v
	}
	if v := os.Getenv("FOOTY_DATABASE_FILENAME"); v != "" {
		c.Database.Filename = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.App.Port = port
		}
	}
	if v := os.Getenv("FOOTY_PICKER_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Picker.Seed = seed
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return invalid("app name is required")
	}
	if c.App.Port == 0 {
		return invalid("app port is required")
	}
	if c.App.TriggerRateLimit <= 0 || c.App.TriggerBurst <= 0 {
		return invalid("trigger rate limit and burst must be positive")
	}
	if c.Database.Driver == "" {
		return invalid("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return invalid("database filename is required for sqlite")
		}
	default:
		return invalid("unsupported database driver: %s", c.Database.Driver)
	}

	if err := c.Picker.Validate(); err != nil {
		return err
	}
	if err := c.Rankings.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}

func (p PickerConfig) Validate() error {
	w := p.Weights
	weights := map[string]float64{
		"average":        w.Average,
		"age":            w.Age,
		"unknown_age":    w.UnknownAge,
		"goalies":        w.Goalies,
		"played":         w.Played,
		"missing_goalie": w.MissingGoalie,
	}
	var total float64
	for name, value := range weights {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return invalid("picker weight %s must be a non-negative number", name)
		}
		total += value
	}
	if total == 0 {
		return invalid("at least one picker weight must be positive")
	}
	if p.Iterations <= 0 {
		return invalid("picker iterations must be positive")
	}
	if p.StallRounds < 0 {
		return invalid("picker stall rounds must not be negative")
	}
	if p.Restarts <= 0 {
		return invalid("picker restarts must be positive")
	}
	if p.InitialTemperature < 0 {
		return invalid("picker initial temperature must not be negative")
	}
	if p.Cooling <= 0 || p.Cooling > 1 {
		return invalid("picker cooling must be in (0, 1]")
	}
	if p.TimeBudget <= 0 {
		return invalid("picker time budget must be positive")
	}
	if p.GoalieThreshold < 0 {
		return invalid("picker goalie threshold must not be negative")
	}
	return nil
}

func (r RankingsConfig) Validate() error {
	if r.PointsWin <= r.PointsDraw || r.PointsDraw <= r.PointsLoss {
		return invalid("rankings points must satisfy win > draw > loss")
	}
	if r.AveragesMinPlayed < 0 || r.SpeedyMinPlayed < 0 {
		return invalid("rankings thresholds must not be negative")
	}
	return nil
}

func (s SchedulerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	for name, expr := range map[string]string{
		"rankings_cron": s.RankingsCron,
		"picker_cron":   s.PickerCron,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return invalid("scheduler %s %q: %v", name, expr, err)
		}
	}
	if s.PickerLookahead <= 0 {
		return invalid("scheduler picker lookahead must be positive")
	}
	return nil
}

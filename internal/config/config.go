package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"studymaster-service/internal/app"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz QuizConfig `yaml:"quiz"`
}

// QuizConfig selects a scoring preset and optionally overrides its constants.
type QuizConfig struct {
	TTL              string   `yaml:"ttl"`
	Policy           string   `yaml:"policy"`
	TickInterval     string   `yaml:"tick_interval"`
	TotalTicks       *int     `yaml:"total_ticks"`
	FloorScore       *float64 `yaml:"floor_score"`
	Scale            *float64 `yaml:"scale"`
	GracePeriodTicks *int     `yaml:"grace_period_ticks"`
	PerWrongPenalty  *float64 `yaml:"per_wrong_penalty"`
}

// Load reads YAML config from path. A missing file yields the zero config.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// ScoringPolicy resolves the configured preset and applies overrides.
func (q QuizConfig) ScoringPolicy() (app.ScoringPolicy, error) {
	policy, err := app.PolicyByName(q.Policy)
	if err != nil {
		return app.ScoringPolicy{}, err
	}
	if q.TotalTicks != nil {
		policy.TotalTicks = *q.TotalTicks
	}
	if q.FloorScore != nil {
		policy.FloorScore = *q.FloorScore
	}
	if q.Scale != nil {
		policy.Scale = *q.Scale
	}
	if q.GracePeriodTicks != nil {
		policy.GracePeriodTicks = *q.GracePeriodTicks
	}
	if q.PerWrongPenalty != nil {
		policy.PerWrongPenalty = *q.PerWrongPenalty
	}
	if err := policy.Validate(); err != nil {
		return app.ScoringPolicy{}, fmt.Errorf("quiz config: %w", err)
	}
	return policy, nil
}

// AppConfig builds the engine settings handed to the quiz service.
func (q QuizConfig) AppConfig() (app.QuizConfig, error) {
	policy, err := q.ScoringPolicy()
	if err != nil {
		return app.QuizConfig{}, err
	}
	return app.QuizConfig{
		Policy:       policy,
		TickInterval: TTLDuration(q.TickInterval, time.Second),
	}, nil
}

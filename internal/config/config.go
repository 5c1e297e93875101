package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"polarcli/internal/errors"
)

// DateLayout is the calendar-date layout used across configuration and
// output tables.
const DateLayout = "2006-01-02"

// CutoffDate is the hard floor for every processed timestamp. Watch exports
// occasionally carry factory-default dates from before the devices were
// handed out; nothing earlier than this is trusted. Not user-configurable.
var CutoffDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// TrainingMode selects the training/non-training row partition.
type TrainingMode string

const (
	TrainingOnly    TrainingMode = "training_only"
	NonTrainingOnly TrainingMode = "non_training_only"
	TrainingAll     TrainingMode = "all"
)

// Config represents the complete application configuration.
type Config struct {
	Logging LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Filter  FilterSettings `yaml:"filter" envconfig:"FILTER"`
	Export  ExportConfig   `yaml:"export" envconfig:"EXPORT"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`

	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/polarcli.log"`
}

// FilterSettings is the raw, user-facing filter configuration. Resolve turns
// it into the immutable FilterConfig value handed to the core.
type FilterSettings struct {
	StartDate    string `yaml:"start_date" envconfig:"START_DATE"`
	EndDate      string `yaml:"end_date" envconfig:"END_DATE"`
	TrainingMode string `yaml:"training_mode" envconfig:"TRAINING_MODE" default:"all" validate:"oneof=training_only non_training_only all"`
}

// ExportConfig contains output configuration.
type ExportConfig struct {
	Format  string `yaml:"format" envconfig:"FORMAT" default:"csv" validate:"oneof=csv excel both none"`
	Master  bool   `yaml:"master" envconfig:"MASTER" default:"true"`
	Workers int    `yaml:"workers" envconfig:"WORKERS" default:"1" validate:"min=1"`
}

// FilterConfig is the resolved, immutable filter configuration. A zero
// StartDate means only the cutoff lower bound applies. EndDate is inclusive
// of its whole calendar day.
type FilterConfig struct {
	StartDate    time.Time
	EndDate      time.Time
	TrainingMode TrainingMode
	Cutoff       time.Time
}

// LowerBound returns the effective lower timestamp bound: the later of
// StartDate and the fixed cutoff.
func (c FilterConfig) LowerBound() time.Time {
	if c.StartDate.After(c.Cutoff) {
		return c.StartDate
	}
	return c.Cutoff
}

// InRange reports whether ts satisfies the date-range invariant.
func (c FilterConfig) InRange(ts time.Time) bool {
	if ts.Before(c.LowerBound()) {
		return false
	}
	// EndDate is a calendar date; everything on that day passes.
	return ts.Before(c.EndDate.AddDate(0, 0, 1))
}

// Resolve parses the raw settings into a FilterConfig. The end date defaults
// to the run date when unset.
func (s FilterSettings) Resolve(now time.Time) (FilterConfig, error) {
	cfg := FilterConfig{
		TrainingMode: TrainingMode(s.TrainingMode),
		Cutoff:       CutoffDate,
	}
	if cfg.TrainingMode == "" {
		cfg.TrainingMode = TrainingAll
	}
	switch cfg.TrainingMode {
	case TrainingOnly, NonTrainingOnly, TrainingAll:
	default:
		return FilterConfig{}, errors.NewConfigError(
			fmt.Sprintf("unknown training mode %q", s.TrainingMode), nil)
	}

	if s.StartDate != "" {
		start, err := time.Parse(DateLayout, s.StartDate)
		if err != nil {
			return FilterConfig{}, errors.NewConfigError("invalid start date", err)
		}
		cfg.StartDate = start
	}
	if s.EndDate != "" {
		end, err := time.Parse(DateLayout, s.EndDate)
		if err != nil {
			return FilterConfig{}, errors.NewConfigError("invalid end date", err)
		}
		cfg.EndDate = end
	} else {
		cfg.EndDate = now.UTC().Truncate(24 * time.Hour)
	}

	if !cfg.StartDate.IsZero() && cfg.StartDate.After(cfg.EndDate) {
		return FilterConfig{}, errors.NewConfigError(
			fmt.Sprintf("start date %s is after end date %s",
				cfg.StartDate.Format(DateLayout), cfg.EndDate.Format(DateLayout)), nil)
	}
	return cfg, nil
}

// Load loads configuration from environment variables and an optional YAML
// file pointed at by POLAR_CONFIG_FILE.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("POLAR", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv("POLAR_CONFIG_FILE"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	// Cross-field date rules live in Resolve; run it once here so a bad
	// date range fails fast at startup rather than per user.
	if _, err := c.Filter.Resolve(time.Now()); err != nil {
		return err
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"

	"github.com/opencrm/calengine/recurrence"
	"github.com/opencrm/calengine/storage"
)

// RuleConfig is the YAML shape of a recurrence rule.
type RuleConfig struct {
	Kind     string `yaml:"kind"`
	Interval int    `yaml:"interval"`
	// Start is an RFC 3339 timestamp; its offset fixes the series zone
	// unless Timezone overrides it.
	Start    string `yaml:"start"`
	Timezone string `yaml:"timezone"`

	End   string `yaml:"end,omitempty"`
	Count int    `yaml:"count,omitempty"`

	Weekdays    []string `yaml:"weekdays,omitempty"`
	DayOfMonth  int      `yaml:"day_of_month,omitempty"`
	MonthOfYear int      `yaml:"month_of_year,omitempty"`
	Ordinal     int      `yaml:"ordinal,omitempty"`
}

// SeriesConfig is one seeded series. ID keeps reseeding idempotent across
// runs against a persistent database.
type SeriesConfig struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Attendees   []string   `yaml:"attendees,omitempty"`
	Duration    string     `yaml:"duration"`
	Rule        RuleConfig `yaml:"rule"`
}

// Config is the demo configuration.
type Config struct {
	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// RefreshCron schedules the upcoming-events report, in cron syntax.
	RefreshCron string `yaml:"refresh"`

	// HorizonDays is how far ahead each report looks.
	HorizonDays int `yaml:"horizon_days"`

	Series []SeriesConfig `yaml:"series"`
}

// DefaultConfig returns a runnable in-memory default: one daily standup.
func DefaultConfig() *Config {
	return &Config{
		Database:    "calengine-demo.db",
		RefreshCron: "*/15 * * * *",
		HorizonDays: 7,
		Series: []SeriesConfig{
			{
				ID:        "7b9915e7-4b40-41a9-a9b6-d83afc6a1fe3",
				Name:      "Daily standup",
				Attendees: []string{"alice@example.com", "bob@example.com"},
				Duration:  "30m",
				Rule: RuleConfig{
					Kind:     string(recurrence.KindDaily),
					Interval: 1,
					Start:    "2024-01-02T09:00:00Z",
				},
			},
		},
	}
}

// Normalize fills missing values with defaults.
func (c *Config) Normalize() {
	if c.Database == "" {
		c.Database = "calengine-demo.db"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 7
	}
}

// LoadConfig reads the YAML config at path; a missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Series converts a seeded series into its storage form.
func (sc SeriesConfig) Series() (*storage.Series, error) {
	id, err := uuid.Parse(sc.ID)
	if err != nil {
		return nil, fmt.Errorf("series %q: parse id: %w", sc.Name, err)
	}
	duration, err := time.ParseDuration(sc.Duration)
	if err != nil {
		return nil, fmt.Errorf("series %q: parse duration: %w", sc.Name, err)
	}
	rule, err := sc.Rule.Rule()
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", sc.Name, err)
	}
	return &storage.Series{
		ID:          id,
		Name:        sc.Name,
		Description: sc.Description,
		Attendees:   sc.Attendees,
		Duration:    duration,
		Rule:        rule,
	}, nil
}

// Rule converts the YAML rule into an engine rule.
func (rc RuleConfig) Rule() (recurrence.Rule, error) {
	start, err := time.Parse(time.RFC3339, rc.Start)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("parse rule start: %w", err)
	}
	if rc.Timezone != "" {
		loc, err := time.LoadLocation(rc.Timezone)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("load rule timezone: %w", err)
		}
		start = start.In(loc)
	}

	rule := recurrence.Rule{
		Kind:        recurrence.Kind(rc.Kind),
		Interval:    rc.Interval,
		Start:       start,
		DayOfMonth:  rc.DayOfMonth,
		MonthOfYear: time.Month(rc.MonthOfYear),
		Ordinal:     recurrence.Ordinal(rc.Ordinal),
	}
	if rc.End != "" {
		end, err := time.Parse(time.RFC3339, rc.End)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("parse rule end: %w", err)
		}
		rule.End = mo.Some(end.In(start.Location()))
	}
	if rc.Count > 0 {
		rule.Count = mo.Some(rc.Count)
	}
	for _, name := range rc.Weekdays {
		day, err := parseWeekday(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		rule.Weekdays = append(rule.Weekdays, day)
	}
	return rule, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return day, nil
}

// Package config loads and validates backtest run configuration from YAML,
// JSON or TOML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/pricing"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

const DateLayout = "2006-01-02"

// Config represents a complete backtest run
type Config struct {
	Simulation SimulationConfig  `json:"simulation" yaml:"simulation" toml:"simulation"`
	Data       DataConfig        `json:"data" yaml:"data" toml:"data"`
	Portfolios []PortfolioConfig `json:"portfolios" yaml:"portfolios" toml:"portfolios"`
	Journal    JournalConfig     `json:"journal" yaml:"journal" toml:"journal"`
	Log        LogConfig         `json:"log" yaml:"log" toml:"log"`
}

// SimulationConfig contains the replay range and market parameters
type SimulationConfig struct {
	Start          string  `json:"start" yaml:"start" toml:"start"` // 2020-12-01
	End            string  `json:"end" yaml:"end" toml:"end"`
	Location       string  `json:"location" yaml:"location" toml:"location"`
	Frequency      string  `json:"frequency" yaml:"frequency" toml:"frequency"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate" toml:"commission_rate"`
	Extrapolation  string  `json:"extrapolation" yaml:"extrapolation" toml:"extrapolation"`
}

// DataConfig says where sessions and prices come from
type DataConfig struct {
	Calendar     string   `json:"calendar" yaml:"calendar" toml:"calendar"` // weekday, csv or sqlite
	CalendarFile string   `json:"calendar_file,omitempty" yaml:"calendar_file,omitempty" toml:"calendar_file,omitempty"`
	Holidays     []string `json:"holidays,omitempty" yaml:"holidays,omitempty" toml:"holidays,omitempty"`
	Prices       string   `json:"prices" yaml:"prices" toml:"prices"` // csv or sqlite
	PricesFile   string   `json:"prices_file" yaml:"prices_file" toml:"prices_file"`
	Symbols      []string `json:"symbols" yaml:"symbols" toml:"symbols"`
}

// PortfolioConfig describes one portfolio and the strategy it runs. An
// empty symbol list takes data.symbols.
type PortfolioConfig struct {
	Name          string            `json:"name" yaml:"name" toml:"name"`
	StartValue    float64           `json:"start_value" yaml:"start_value" toml:"start_value"`
	Strategy      string            `json:"strategy" yaml:"strategy" toml:"strategy"`
	SnapshotEvery int               `json:"snapshot_every,omitempty" yaml:"snapshot_every,omitempty" toml:"snapshot_every,omitempty"`
	Params        strategies.Params `json:"params" yaml:"params" toml:"params"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type" toml:"type"` // memory, csv or sqlite
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty" toml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty" toml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
}

// LogConfig controls the run logger. File enables a rotated log file next
// to the console output.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"` // console or json
	File       string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" toml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" toml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty" toml:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty" toml:"compress,omitempty"`
}

// LoadFromFile loads configuration from a file. .toml files are read as
// TOML; anything else is tried as YAML, then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = &Config{}
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration in the format named by the extension:
// .toml, .yaml or .yml, JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch {
	case isTOML(path):
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	case isYAML(path):
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	loc, err := c.Simulation.LoadLocation()
	if err != nil {
		return err
	}
	if _, _, err := c.Simulation.Range(loc); err != nil {
		return err
	}
	if _, err := sim.ParseFrequency(c.Simulation.Frequency); err != nil {
		return fmt.Errorf("simulation.frequency: %w", err)
	}
	if r := c.Simulation.CommissionRate; r < 0 || r >= 1 {
		return fmt.Errorf("simulation.commission_rate must be in [0, 1)")
	}
	if _, err := pricing.ParseExtrapolation(c.Simulation.Extrapolation); err != nil {
		return fmt.Errorf("simulation.extrapolation: %w", err)
	}

	switch c.Data.Calendar {
	case "", "weekday":
		for _, h := range c.Data.Holidays {
			if _, err := time.Parse(DateLayout, h); err != nil {
				return fmt.Errorf("data.holidays: %q is not a date", h)
			}
		}
	case "csv", "sqlite":
		if c.Data.CalendarFile == "" {
			return fmt.Errorf("data.calendar_file required for %s calendar", c.Data.Calendar)
		}
	default:
		return fmt.Errorf("data.calendar must be 'weekday', 'csv' or 'sqlite'")
	}
	if c.Data.Prices != "csv" && c.Data.Prices != "sqlite" {
		return fmt.Errorf("data.prices must be 'csv' or 'sqlite'")
	}
	if c.Data.PricesFile == "" {
		return fmt.Errorf("data.prices_file is required")
	}
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols is required")
	}

	if len(c.Portfolios) == 0 {
		return fmt.Errorf("at least one portfolio is required")
	}
	watched := make(map[string]bool, len(c.Data.Symbols))
	for _, s := range c.Data.Symbols {
		watched[s] = true
	}
	names := make(map[string]bool)
	for i, p := range c.Portfolios {
		if p.Name == "" {
			return fmt.Errorf("portfolios[%d].name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("portfolio %q defined twice", p.Name)
		}
		names[p.Name] = true
		if p.StartValue < 0 {
			return fmt.Errorf("portfolio %q: start_value must not be negative", p.Name)
		}
		if p.SnapshotEvery < 0 {
			return fmt.Errorf("portfolio %q: snapshot_every must not be negative", p.Name)
		}
		for _, s := range p.Params.Symbols {
			if !watched[s] {
				return fmt.Errorf("portfolio %q: symbol %q is not in data.symbols", p.Name, s)
			}
		}
		if _, err := strategies.Build(p.Strategy, c.StrategyParams(p)); err != nil {
			return fmt.Errorf("portfolio %q: %w", p.Name, err)
		}
	}

	switch c.Journal.Type {
	case "", "memory":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'memory', 'csv' or 'sqlite'")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if f := c.Log.Format; f != "" && f != "console" && f != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// LoadLocation returns the exchange time zone, UTC when unset.
func (s SimulationConfig) LoadLocation() (*time.Location, error) {
	if s.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Location)
	if err != nil {
		return nil, fmt.Errorf("simulation.location: %w", err)
	}
	return loc, nil
}

// Range parses start and end as dates in loc.
func (s SimulationConfig) Range(loc *time.Location) (from, to time.Time, err error) {
	from, err = time.ParseInLocation(DateLayout, s.Start, loc)
	if err != nil {
		return from, to, fmt.Errorf("simulation.start: %w", err)
	}
	to, err = time.ParseInLocation(DateLayout, s.End, loc)
	if err != nil {
		return from, to, fmt.Errorf("simulation.end: %w", err)
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("simulation.end %s is before start %s", s.End, s.Start)
	}
	return from, to, nil
}

// StrategyParams returns p's strategy parameters with data.symbols filled in
// when the portfolio names none.
func (c *Config) StrategyParams(p PortfolioConfig) strategies.Params {
	params := p.Params
	if len(params.Symbols) == 0 {
		params.Symbols = append([]string(nil), c.Data.Symbols...)
	}
	return params
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Start:          "2020-12-01",
			End:            "2020-12-31",
			Location:       "America/New_York",
			Frequency:      "1minute",
			CommissionRate: 0.01,
			Extrapolation:  "linear",
		},
		Data: DataConfig{
			Calendar:   "weekday",
			Holidays:   []string{"2020-12-25"},
			Prices:     "csv",
			PricesFile: "./prices.csv",
			Symbols:    []string{"MMM"},
		},
		Portfolios: []PortfolioConfig{
			{
				Name:          "sma",
				StartValue:    100000,
				Strategy:      "sma-threshold",
				SnapshotEvery: 390,
				Params: strategies.Params{
					Value:  1000,
					Period: 30,
					Band:   0.01,
				},
			},
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

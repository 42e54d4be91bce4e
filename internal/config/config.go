// Package config loads the YAML configuration shared by the prepare, train
// and predict tools.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"copytrader-lab/internal/logger"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"

	CandleSourceFile       = "file"
	CandleSourceClickhouse = "clickhouse"
)

// Config is the root configuration.
type Config struct {
	Log      logger.Config  `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Train    TrainConfig    `yaml:"train"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Output   OutputConfig   `yaml:"output"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DataConfig locates the raw candle and trade inputs.
type DataConfig struct {
	Dir          string        `yaml:"dir" default:"testing" validate:"required"`
	Timeframe    string        `yaml:"timeframe" default:"5m" validate:"required"`
	TradeHistory string        `yaml:"trade_history" default:"trade_history.csv" validate:"required"`
	TimeLayout   string        `yaml:"time_layout" default:"01/02/2006 - 15:04:05" validate:"required"`
	TimeZone     string        `yaml:"time_zone" default:"UTC"`
	LabelBucket  time.Duration `yaml:"label_bucket"` // zero means the timeframe length
}

// DatasetConfig controls window construction.
type DatasetConfig struct {
	Lookback int `yaml:"lookback" default:"20" validate:"min=1"`
}

// TrainConfig controls the train/test split of the training tool.
type TrainConfig struct {
	TestFraction float64 `yaml:"test_fraction" default:"0.2" validate:"gte=0,lt=1"`
	Seed         int64   `yaml:"seed" default:"42"`
}

// PipelineConfig lists the instruments of a run.
type PipelineConfig struct {
	Instruments []string `yaml:"instruments" validate:"required,min=1,dive,required"`
	Workers     int      `yaml:"workers" default:"1" validate:"min=1"`
}

// StorageConfig selects artifact and candle backends.
type StorageConfig struct {
	Backend       string `yaml:"backend" default:"file" validate:"oneof=memory file postgres"`
	CandleSource  string `yaml:"candle_source" default:"file" validate:"oneof=file clickhouse"`
	PostgresDSN   string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" validate:"required_if=CandleSource clickhouse"`
	SkipMigrate   bool   `yaml:"skip_migrate"`
}

// OutputConfig locates generated artifacts.
type OutputConfig struct {
	Dir       string `yaml:"dir" default:"testing" validate:"required"`
	ModelsDir string `yaml:"models_dir" default:"testing/models" validate:"required"`
	TimeZone  string `yaml:"time_zone" default:"UTC"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace" default:"copytrader_lab"`
}

var validate = validator.New()

// Default returns a config with every default applied and the four
// instruments of the original research runs.
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.Pipeline.Instruments = []string{"ASTER", "ZEC", "STRK", "MET"}
	return c
}

// Load reads a YAML file, applies defaults, env overrides and validation.
// An empty path yields Default() with env overrides.
func Load(path string) (*Config, error) {
	c := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Pipeline.Instruments) == 0 {
		c.Pipeline.Instruments = Default().Pipeline.Instruments
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("COPYTRADER_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("COPYTRADER_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("COPYTRADER_INSTRUMENTS"); v != "" {
		c.Pipeline.Instruments = splitList(v)
	}
	if v := os.Getenv("COPYTRADER_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("COPYTRADER_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("COPYTRADER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COPYTRADER_WORKERS: %w", err)
		}
		c.Pipeline.Workers = n
	}
	return nil
}

// Validate checks struct constraints and derived values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	if _, err := c.DataLocation(); err != nil {
		return err
	}
	if _, err := c.OutputLocation(); err != nil {
		return err
	}
	return nil
}

// Interval returns the label bucket length: LabelBucket when set, otherwise
// the candle timeframe.
func (c *Config) Interval() (time.Duration, error) {
	if c.Data.LabelBucket > 0 {
		return c.Data.LabelBucket, nil
	}
	return ParseTimeframe(c.Data.Timeframe)
}

// DataLocation is the zone trade-history timestamps are written in.
func (c *Config) DataLocation() (*time.Location, error) {
	return loadLocation(c.Data.TimeZone)
}

// OutputLocation is the zone used for human-readable datetimes in reports.
func (c *Config) OutputLocation() (*time.Location, error) {
	return loadLocation(c.Output.TimeZone)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// ParseTimeframe converts exchange timeframe tokens (1m, 5m, 1h, 4h, 1d, 1w)
// to a duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	if len(tf) < 2 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}

	var unit time.Duration
	switch tf[len(tf)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid timeframe unit in %q", tf)
	}
	return time.Duration(n) * unit, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

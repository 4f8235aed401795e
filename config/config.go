package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	tmmath "github.com/lightibc/lightibc/libs/math"
	"github.com/lightibc/lightibc/light"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatText is a format for plain text
	LogFormatText = "text"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// DefaultLogLevel defines a default log level as INFO.
	DefaultLogLevel = "info"
)

// Config defines the top level configuration of a light client host.
type Config struct {
	// RootDir is the directory relative paths are resolved against. It is
	// not read from the config file.
	RootDir string `mapstructure:"home" toml:"-"`

	Log             *LogConfig             `mapstructure:"log" toml:"log"`
	DB              *DBConfig              `mapstructure:"db" toml:"db"`
	Tendermint      *TendermintConfig      `mapstructure:"tendermint" toml:"tendermint"`
	Grandpa         *GrandpaConfig         `mapstructure:"grandpa" toml:"grandpa"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation" toml:"instrumentation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log:             DefaultLogConfig(),
		DB:              DefaultDBConfig(),
		Tendermint:      DefaultTendermintConfig(),
		Grandpa:         DefaultGrandpaConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		Log:             TestLogConfig(),
		DB:              TestDBConfig(),
		Tendermint:      TestTendermintConfig(),
		Grandpa:         DefaultGrandpaConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.Log.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [log] section: %w", err)
	}
	if err := cfg.DB.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [db] section: %w", err)
	}
	if err := cfg.Tendermint.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [tendermint] section: %w", err)
	}
	if err := cfg.Grandpa.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [grandpa] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

// DBDir returns the full path to the database directory.
func (cfg *Config) DBDir() string {
	return rootify(cfg.DB.Dir, cfg.RootDir)
}

//-----------------------------------------------------------------------------
// LogConfig

// LogConfig defines the logger output.
type LogConfig struct {
	// Output level for logging: "debug", "info" or "error".
	Level string `mapstructure:"level" toml:"level"`

	// Output format: 'plain' (colored text), 'text' or 'json'
	Format string `mapstructure:"format" toml:"format"`
}

// DefaultLogConfig returns a default configuration for the logger.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:  DefaultLogLevel,
		Format: LogFormatPlain,
	}
}

// TestLogConfig returns a configuration for testing the logger.
func TestLogConfig() *LogConfig {
	cfg := DefaultLogConfig()
	cfg.Level = "debug"
	return cfg
}

// ValidateBasic performs basic validation.
func (cfg *LogConfig) ValidateBasic() error {
	switch cfg.Format {
	case LogFormatPlain, LogFormatText, LogFormatJSON:
	default:
		return errors.New("unknown log format (must be 'plain', 'text' or 'json')")
	}
	switch cfg.Level {
	case "debug", "info", "error":
	default:
		return fmt.Errorf("unknown log level %q (must be 'debug', 'info' or 'error')", cfg.Level)
	}
	return nil
}

//-----------------------------------------------------------------------------
// DBConfig

// DBConfig defines where client states are stored.
type DBConfig struct {
	// Database backend: goleveldb | memdb
	// * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
	//   - pure go
	//   - stable
	// * memdb
	//   - in memory, lost on exit
	Backend string `mapstructure:"backend" toml:"backend"`

	// Database directory, relative to the root directory.
	Dir string `mapstructure:"dir" toml:"dir"`
}

// DefaultDBConfig returns a default database configuration.
func DefaultDBConfig() *DBConfig {
	return &DBConfig{
		Backend: "goleveldb",
		Dir:     "data",
	}
}

// TestDBConfig returns a database configuration keeping everything in memory.
func TestDBConfig() *DBConfig {
	return &DBConfig{
		Backend: "memdb",
		Dir:     "data",
	}
}

// ValidateBasic performs basic validation.
func (cfg *DBConfig) ValidateBasic() error {
	switch cfg.Backend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
	if cfg.Dir == "" {
		return errors.New("dir can't be empty")
	}
	return nil
}

//-----------------------------------------------------------------------------
// TendermintConfig

// TendermintConfig defines the verification parameters of 07-tendermint
// header bisection.
type TendermintConfig struct {
	// Fraction of the trusted validator set's voting power that must sign a
	// non-adjacent header.
	TrustLevelNumerator   uint64 `mapstructure:"trust-level-numerator" toml:"trust-level-numerator"`
	TrustLevelDenominator uint64 `mapstructure:"trust-level-denominator" toml:"trust-level-denominator"`

	// How long a trusted header can be used to verify newer ones.
	TrustingPeriod time.Duration `mapstructure:"trusting-period" toml:"trusting-period"`

	// How far a new header's time may drift into the future.
	MaxClockDrift time.Duration `mapstructure:"max-clock-drift" toml:"max-clock-drift"`

	// How many times a range may be split before verification gives up.
	MaxBisectionDepth int `mapstructure:"max-bisection-depth" toml:"max-bisection-depth"`
}

// DefaultTendermintConfig returns the default verification parameters.
func DefaultTendermintConfig() *TendermintConfig {
	return &TendermintConfig{
		TrustLevelNumerator:   light.DefaultTrustLevel.Numerator,
		TrustLevelDenominator: light.DefaultTrustLevel.Denominator,
		TrustingPeriod:        168 * time.Hour,
		MaxClockDrift:         10 * time.Second,
		MaxBisectionDepth:     32,
	}
}

// TestTendermintConfig returns verification parameters for testing.
func TestTendermintConfig() *TendermintConfig {
	cfg := DefaultTendermintConfig()
	cfg.TrustingPeriod = 2 * time.Hour
	cfg.MaxBisectionDepth = 8
	return cfg
}

// TrustLevel returns the configured trust level.
func (cfg *TendermintConfig) TrustLevel() tmmath.Fraction {
	return tmmath.Fraction{Numerator: cfg.TrustLevelNumerator, Denominator: cfg.TrustLevelDenominator}
}

// ValidateBasic performs basic validation.
func (cfg *TendermintConfig) ValidateBasic() error {
	if err := light.ValidateTrustLevel(cfg.TrustLevel()); err != nil {
		return err
	}
	if cfg.TrustingPeriod <= 0 {
		return errors.New("trusting-period must be positive")
	}
	if cfg.MaxClockDrift < 0 {
		return errors.New("max-clock-drift can't be negative")
	}
	if cfg.MaxBisectionDepth <= 0 {
		return errors.New("max-bisection-depth must be positive")
	}
	return nil
}

// BisectorOptions returns the light.Bisector options of cfg.
func (cfg *TendermintConfig) BisectorOptions() []light.Option {
	return []light.Option{
		light.TrustLevel(cfg.TrustLevel()),
		light.MaxClockDrift(cfg.MaxClockDrift),
		light.MaxBisectionDepth(cfg.MaxBisectionDepth),
	}
}

//-----------------------------------------------------------------------------
// GrandpaConfig

// GrandpaConfig defines the limits of GRANDPA finality proof verification.
type GrandpaConfig struct {
	// Maximum number of relay chain headers a finality proof may carry.
	MaxUnknownHeaders int `mapstructure:"max-unknown-headers" toml:"max-unknown-headers"`
}

// DefaultGrandpaConfig returns the default GRANDPA limits.
func DefaultGrandpaConfig() *GrandpaConfig {
	return &GrandpaConfig{
		MaxUnknownHeaders: grandpa.DefaultMaxUnknownHeaders,
	}
}

// ValidateBasic performs basic validation.
func (cfg *GrandpaConfig) ValidateBasic() error {
	if cfg.MaxUnknownHeaders <= 0 {
		return errors.New("max-unknown-headers must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are collected.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus" toml:"prometheus"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace" toml:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus: false,
		Namespace:  "lightibc",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.Namespace == "" {
		return errors.New("namespace can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

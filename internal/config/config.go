// Package config loads the live server's settings from defaults, an optional
// seekflee.yaml, SEEKFLEE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "seekflee"
	envPrefix  = "SEEKFLEE"
)

// RecorderConfig holds trajectory recorder settings.
type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // empty = in-memory
}

// Config is the typed view of every setting.
type Config struct {
	LogLevel    string         `mapstructure:"logLevel"`
	TickRate    float64        `mapstructure:"tickRate"` // ticks per second
	Listen      string         `mapstructure:"listen"`
	Scenario    string         `mapstructure:"scenario"` // empty = demo scenario
	Parallelism int            `mapstructure:"parallelism"`
	Recorder    RecorderConfig `mapstructure:"recorder"`
}

// TickInterval converts TickRate into a ticker period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRate)
}

// Flags returns the flag set understood by Load. Flag names match the
// config keys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("logLevel", "", "log level (debug, info, warn, error)")
	fs.Float64("tickRate", 0, "simulation ticks per second")
	fs.String("listen", "", "address for the websocket endpoint")
	fs.String("scenario", "", "scenario file (.json, .yaml)")
	fs.Int("parallelism", 0, "agents ticked concurrently")
	fs.Bool("recorder.enabled", false, "record every tick to sqlite")
	fs.String("recorder.path", "", "sqlite file for the recorder")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("tickRate", 60.0)
	v.SetDefault("listen", "localhost:8080")
	v.SetDefault("scenario", "")
	v.SetDefault("parallelism", 1)

	v.SetDefault("recorder.enabled", false)
	v.SetDefault("recorder.path", "./seekflee.db")
}

// Load builds a Config. configDir may be empty, and the config file is
// optional; flags may be nil. Only flags the user actually set override the
// other sources.
func Load(configDir string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.TickRate <= 0 || math.IsNaN(c.TickRate) || math.IsInf(c.TickRate, 0) {
		return fmt.Errorf("tickRate must be positive and finite, got %g", c.TickRate)
	}
	if c.TickInterval() <= 0 {
		return fmt.Errorf("tickRate %g is too high for a ticker", c.TickRate)
	}
	if c.Listen == "" {
		return errors.New("listen address is empty")
	}
	return nil
}

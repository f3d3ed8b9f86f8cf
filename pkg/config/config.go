package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quidome/mfdf/pkg/engine"
	"github.com/quidome/mfdf/pkg/resolve"
)

// Config holds the settings of a fix run.
type Config struct {
	Workers       int           `mapstructure:"workers"`        // parallel file pipelines
	Tolerance     time.Duration `mapstructure:"tolerance"`      // max difference treated as equal
	DryRun        bool          `mapstructure:"dry_run"`        // report without writing
	FilenameDates bool          `mapstructure:"filename_dates"` // fall back to dates in file names
	MaxDepth      int           `mapstructure:"max_depth"`      // -1 for unlimited
	SkipHidden    bool          `mapstructure:"skip_hidden"`    // skip dot files and directories
	Timezone      string        `mapstructure:"timezone"`       // zone for embedded times without one
	Format        string        `mapstructure:"format"`         // text or json
}

// flagNames maps config keys to command line flag names.
var flagNames = map[string]string{
	"workers":        "workers",
	"tolerance":      "tolerance",
	"dry_run":        "dry-run",
	"filename_dates": "filename-dates",
	"max_depth":      "max-depth",
	"timezone":       "timezone",
	"format":         "format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("tolerance", resolve.DefaultTolerance)
	v.SetDefault("dry_run", false)
	v.SetDefault("filename_dates", false)
	v.SetDefault("max_depth", -1)
	v.SetDefault("skip_hidden", true)
	v.SetDefault("timezone", "Local")
	v.SetDefault("format", "text")
}

// Load merges, from lowest to highest precedence, defaults, the YAML file at
// path (if not empty), MFDF_* environment variables and flags that were set
// on the command line.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MFDF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for key, name := range flagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
		// --include-hidden is the inverse of skip_hidden.
		if f := flags.Lookup("include-hidden"); f != nil && f.Changed {
			include, err := flags.GetBool("include-hidden")
			if err != nil {
				return nil, fmt.Errorf("read flag include-hidden: %w", err)
			}
			v.Set("skip_hidden", !include)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance must not be negative, got %s", c.Tolerance))
	}
	if c.MaxDepth < -1 {
		errs = append(errs, fmt.Errorf("max_depth must be -1 or more, got %d", c.MaxDepth))
	}
	if c.Format != "text" && c.Format != "json" {
		errs = append(errs, fmt.Errorf("format must be text or json, got %q", c.Format))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone. "Local" and "" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EngineOptions converts the configuration into engine options.
func (c *Config) EngineOptions(logger *zap.Logger) (engine.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return engine.Options{}, err
	}
	opts := engine.DefaultOptions()
	if c.Workers > 0 {
		opts.Workers = c.Workers
	}
	opts.Tolerance = c.Tolerance
	opts.DryRun = c.DryRun
	opts.FilenameDates = c.FilenameDates
	opts.MaxDepth = c.MaxDepth
	opts.SkipHidden = c.SkipHidden
	opts.Location = loc
	opts.Logger = logger
	return opts, nil
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of a benchmark run. Slice settings span the
// parameter grid; one batch runs per element of their cartesian product.
type Config struct {
	Hops       []int     `toml:"hops" yaml:"hops" validate:"min=1,dive,min=1"`
	Arms       []int     `toml:"arms" yaml:"arms" validate:"min=1,dive,min=1"`
	Branching  [][]int   `toml:"branching" yaml:"branching" validate:"min=1,dive,min=1,dive,min=1"`
	Loss       []float64 `toml:"loss" yaml:"loss" validate:"min=1,dive,min=0,max=1"`
	Strategies []string  `toml:"strategies" yaml:"strategies" validate:"min=1,dive,oneof=majority first"`
	TieBreaks  []string  `toml:"tie_breaks" yaml:"tie_breaks" validate:"min=1,dive,oneof=random confidence"`

	Trials           int    `toml:"trials" yaml:"trials" validate:"min=1"`
	MaxAttempts      int    `toml:"max_attempts" yaml:"max_attempts" validate:"min=1"`
	Seed             int64  `toml:"seed" yaml:"seed"`
	Workers          int    `toml:"workers" yaml:"workers" validate:"min=0"`
	SkipVerification bool   `toml:"skip_verification" yaml:"skip_verification"`
	MetricsAddr      string `toml:"metrics_addr" yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Records          string `toml:"records" yaml:"records"`
	LogLevel         string `toml:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
}

// DefaultConfig returns the settings used when neither a config file nor a
// flag says otherwise.
func DefaultConfig() Config {
	return Config{
		Hops:        []int{1},
		Arms:        []int{3},
		Branching:   [][]int{{2, 2}},
		Loss:        []float64{0.1},
		Strategies:  []string{"majority"},
		TieBreaks:   []string{"random"},
		Trials:      1000,
		MaxAttempts: 1,
		LogLevel:    "info",
	}
}

// loadConfig overlays the config file at path, if any, and then every flag set
// explicitly on fs, onto DefaultConfig.
func loadConfig(path string, fs *flag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyFlags(&cfg, fs); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFile overlays the keys defined in a TOML or YAML file onto cfg.
func loadFile(path string, cfg *Config) error {
	var (
		raw     Config
		defined func(key string) bool
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return fmt.Errorf("load bench config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("load bench config: unknown keys %v", undecoded)
		}
		defined = func(key string) bool { return meta.IsDefined(key) }
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load bench config: %w", err)
		}
		var keys map[string]yaml.Node
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return fmt.Errorf("load bench config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("load bench config: %w", err)
		}
		defined = func(key string) bool {
			_, ok := keys[key]
			return ok
		}
	default:
		return fmt.Errorf("load bench config: unsupported config format %q", ext)
	}

	if defined("hops") {
		cfg.Hops = raw.Hops
	}
	if defined("arms") {
		cfg.Arms = raw.Arms
	}
	if defined("branching") {
		cfg.Branching = raw.Branching
	}
	if defined("loss") {
		cfg.Loss = raw.Loss
	}
	if defined("strategies") {
		cfg.Strategies = raw.Strategies
	}
	if defined("tie_breaks") {
		cfg.TieBreaks = raw.TieBreaks
	}
	if defined("trials") {
		cfg.Trials = raw.Trials
	}
	if defined("max_attempts") {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if defined("seed") {
		cfg.Seed = raw.Seed
	}
	if defined("workers") {
		cfg.Workers = raw.Workers
	}
	if defined("skip_verification") {
		cfg.SkipVerification = raw.SkipVerification
	}
	if defined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if defined("records") {
		cfg.Records = strings.TrimSpace(raw.Records)
	}
	if defined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return nil
}

// applyFlags copies every flag explicitly set on fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "hops":
			cfg.Hops, err = fs.GetIntSlice(f.Name)
		case "arms":
			cfg.Arms, err = fs.GetIntSlice(f.Name)
		case "branching":
			var specs []string
			if specs, err = fs.GetStringSlice(f.Name); err != nil {
				return
			}
			cfg.Branching = nil
			for _, s := range specs {
				var bv []int
				if bv, err = parseBranching(s); err != nil {
					return
				}
				cfg.Branching = append(cfg.Branching, bv)
			}
		case "loss":
			cfg.Loss, err = fs.GetFloat64Slice(f.Name)
		case "strategy":
			cfg.Strategies, err = fs.GetStringSlice(f.Name)
		case "tiebreak":
			cfg.TieBreaks, err = fs.GetStringSlice(f.Name)
		case "trials":
			cfg.Trials, err = fs.GetInt(f.Name)
		case "attempts":
			cfg.MaxAttempts, err = fs.GetInt(f.Name)
		case "seed":
			cfg.Seed, err = fs.GetInt64(f.Name)
		case "workers":
			cfg.Workers, err = fs.GetInt(f.Name)
		case "skip-verification":
			cfg.SkipVerification, err = fs.GetBool(f.Name)
		case "metrics-addr":
			cfg.MetricsAddr, err = fs.GetString(f.Name)
		case "records":
			cfg.Records, err = fs.GetString(f.Name)
		case "log-level":
			cfg.LogLevel, err = fs.GetString(f.Name)
		}
	})
	return err
}

// parseBranching parses a branching vector written as factors joined by 'x',
// e.g. "3x2x2".
func parseBranching(s string) ([]int, error) {
	var bv []int
	for _, f := range strings.Split(s, "x") {
		b, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid branching vector %q: %w", s, err)
		}
		bv = append(bv, b)
	}
	return bv, nil
}

func formatBranching(bv []int) string {
	parts := make([]string, len(bv))
	for i, b := range bv {
		parts[i] = strconv.Itoa(b)
	}
	return strings.Join(parts, "x")
}

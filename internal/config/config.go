// Package config holds the per-compilation settings: the converge
// tolerance and iteration cap written into the emitted prelude, the output
// indentation, and the kdb+ version the output targets.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 100
	DefaultIndent        = "  "
	DefaultTarget        = "4.0"
)

// Environment overrides applied by FromEnv.
const (
	EnvTolerance = "QYTHON_TOLERANCE"
	EnvMaxIter   = "QYTHON_MAX_ITER"
	EnvTarget    = "QYTHON_TARGET"
	EnvIndent    = "QYTHON_INDENT"
)

// patternAssign is the first kdb+ release that unpacks lists with (a;b):x.
var patternAssign = mustConstraint(">= 4.1")

// Config is passed by value into each compilation.
type Config struct {
	Tolerance     float64 `json:"tolerance" toml:"tolerance" yaml:"tolerance"`
	MaxIterations int     `json:"max_iterations" toml:"max_iterations" yaml:"max_iterations"`
	Indent        string  `json:"indent" toml:"indent" yaml:"indent"`
	Target        string  `json:"target" toml:"target" yaml:"target"`
	Prelude       bool    `json:"prelude" toml:"prelude" yaml:"prelude"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Indent:        DefaultIndent,
		Target:        DefaultTarget,
		Prelude:       true,
	}
}

// Load reads a config file over the defaults. The extension selects the
// format: .toml, .yaml, .yml or .json.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data in the format named by ext. Keys absent from data keep
// their default values.
func Decode(data []byte, ext string) (Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		err = toml.Unmarshal(data, &cfg)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &cfg)
	case "json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// FromEnv overlays the QYTHON_* environment variables on c. The env
// package caches the environment, so it is reloaded on every call.
func (c Config) FromEnv() (Config, error) {
	env.Load()

	if env.Has(EnvTolerance) {
		tol, err := strconv.ParseFloat(env.Str(EnvTolerance), 64)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvTolerance, err)
		}
		c.Tolerance = tol
	}
	if env.Has(EnvMaxIter) {
		c.MaxIterations = env.Int(EnvMaxIter, c.MaxIterations)
	}
	c.Target = env.Str(EnvTarget, c.Target)
	c.Indent = env.Str(EnvIndent, c.Indent)

	return c, nil
}

// Validate reports the first setting the code generator cannot honour.
func (c Config) Validate() error {
	if math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) || c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be a positive number, got %v", c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.Indent == "" || strings.Trim(c.Indent, " \t") != "" {
		return fmt.Errorf("indent must be spaces or tabs, got %q", c.Indent)
	}
	if _, err := c.TargetVersion(); err != nil {
		return err
	}
	return nil
}

// TargetVersion parses Target. Partial versions such as "4.0" are accepted.
func (c Config) TargetVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(c.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid target version %q: %w", c.Target, err)
	}
	return v, nil
}

// PatternAssign reports whether the target unpacks records with (a;b):x.
// An unparsable target falls back to indexed unpacking.
func (c Config) PatternAssign() bool {
	v, err := c.TargetVersion()
	if err != nil {
		return false
	}
	return patternAssign.Check(v)
}

// FormatTolerance renders the tolerance as a q float literal.
func (c Config) FormatTolerance() string {
	s := strconv.FormatFloat(c.Tolerance, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += "f"
	}
	return s
}

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

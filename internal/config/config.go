// Package config loads and validates the per-project driftlint
// configuration. Malformed configuration is fatal: it is rejected here,
// before any scanning starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/driftlint/driftlint/internal/severity"
)

// DefaultFileName is the config file looked up at the project root.
const DefaultFileName = ".driftlint.yml"

// ErrConfigInvalid wraps all validation failures so callers can branch on
// the class without matching message text.
var ErrConfigInvalid = errors.New("invalid configuration")

// Config is the full per-project configuration.
type Config struct {
	// MinVersion, when set, is the minimum driftlint version (semver) this
	// config requires. Older tools refuse to run rather than half-apply
	// settings they do not understand.
	MinVersion string `yaml:"minVersion"`

	// Workers is the scan worker pool size. 0 means available parallelism.
	Workers int `yaml:"workers"`

	// Ignore lists doublestar globs of relative paths to skip.
	Ignore []string `yaml:"ignore"`

	// Incremental enables watch-mode recomputation after file deltas.
	Incremental bool `yaml:"incremental"`

	// Severity controls violation severity resolution and escalation.
	Severity severity.Config `yaml:"severity"`

	// MinOccurrences is the significance floor for pattern confidence.
	MinOccurrences int `yaml:"minOccurrences"`

	// SuggestApproveThreshold: when a non-dominant variant's share of a
	// pattern exceeds this, the CLI suggests approving it as intentional
	// instead of fixing every site. Approval itself is always explicit.
	SuggestApproveThreshold float64 `yaml:"suggestApproveThreshold"`

	// QuickFixMinConfidence is the floor a fix candidate must clear to be
	// marked preferred.
	QuickFixMinConfidence float64 `yaml:"quickfixMinConfidence"`

	// StoragePath is the pattern/violation database location, relative to
	// the project root.
	StoragePath string `yaml:"storage"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Workers: 0, // available parallelism
		Ignore: []string{
			"vendor/**",
			"node_modules/**",
			".git/**",
			"**/*_generated.*",
		},
		Severity:                severity.Default(),
		MinOccurrences:          5,
		SuggestApproveThreshold: 0.35,
		QuickFixMinConfidence:   0.7,
		StoragePath:             ".driftlint/driftlint.db",
	}
}

// Load reads the config file at path and validates it against toolVersion.
// A missing file yields the defaults; a malformed file is fatal.
func Load(path, toolVersion string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfigInvalid, path, err)
	}
	if err := cfg.Validate(toolVersion); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDir loads the config from its conventional location under root.
func LoadDir(root, toolVersion string) (*Config, error) {
	return Load(filepath.Join(root, DefaultFileName), toolVersion)
}

// Validate checks the whole configuration, including the severity and
// escalation rules (taxonomy: configuration errors abort before scanning).
func (c *Config) Validate(toolVersion string) error {
	if c.MinVersion != "" {
		min := canonicalVersion(c.MinVersion)
		if !semver.IsValid(min) {
			return fmt.Errorf("%w: minVersion %q is not valid semver", ErrConfigInvalid, c.MinVersion)
		}
		if toolVersion != "" {
			tool := canonicalVersion(toolVersion)
			if semver.IsValid(tool) && semver.Compare(tool, min) < 0 {
				return fmt.Errorf("%w: this project requires driftlint >= %s (running %s)",
					ErrConfigInvalid, c.MinVersion, toolVersion)
			}
		}
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrConfigInvalid)
	}
	if c.MinOccurrences < 1 {
		return fmt.Errorf("%w: minOccurrences must be >= 1", ErrConfigInvalid)
	}
	if c.SuggestApproveThreshold < 0 || c.SuggestApproveThreshold > 1 {
		return fmt.Errorf("%w: suggestApproveThreshold must be in [0,1]", ErrConfigInvalid)
	}
	if c.QuickFixMinConfidence < 0 || c.QuickFixMinConfidence > 1 {
		return fmt.Errorf("%w: quickfixMinConfidence must be in [0,1]", ErrConfigInvalid)
	}
	for _, glob := range c.Ignore {
		if !doublestar.ValidatePattern(glob) {
			return fmt.Errorf("%w: invalid ignore glob %q", ErrConfigInvalid, glob)
		}
	}
	if err := c.Severity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}

// canonicalVersion normalizes "1.2.3" to "v1.2.3" for x/mod/semver.
func canonicalVersion(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

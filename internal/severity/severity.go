// Package severity resolves the severity of a violation from configuration
// and applies occurrence-based escalation. Resolution is a pure function with
// no hidden counters: the caller owns the occurrence count, so recomputing
// with the same inputs always yields the same output.
package severity

import (
	"fmt"
	"sort"

	"github.com/driftlint/driftlint/internal/types"
)

// EscalationRule promotes a violation's severity once it has recurred often
// enough. A rule fires when the occurrence count has passed AfterCount and
// the currently-resolved severity equals From.
type EscalationRule struct {
	From       types.Severity `yaml:"from" json:"from"`
	To         types.Severity `yaml:"to" json:"to"`
	AfterCount int            `yaml:"afterCount" json:"after_count"`
}

// Escalation configures occurrence-based severity promotion.
type Escalation struct {
	// Rules are evaluated in ascending AfterCount order.
	Rules []EscalationRule `yaml:"rules" json:"rules"`
}

// Config controls severity resolution for a project.
type Config struct {
	// Default applies when no override matches. Empty means warning.
	Default types.Severity `yaml:"default" json:"default"`

	// PatternOverrides maps a pattern id to a severity.
	PatternOverrides map[string]types.Severity `yaml:"patterns" json:"patterns"`

	// CategoryOverrides maps a pattern category to a severity.
	CategoryOverrides map[string]types.Severity `yaml:"categories" json:"categories"`

	Escalation Escalation `yaml:"escalation" json:"escalation"`
}

// Default returns the stock severity configuration: everything is a warning,
// no escalation.
func Default() Config {
	return Config{Default: types.SeverityWarning}
}

// Validate rejects malformed configuration before any scanning starts.
// Escalation must be monotonic: a rule may only raise severity, and rules
// must be ordered by ascending AfterCount.
func (c Config) Validate() error {
	if c.Default != "" && !c.Default.Valid() {
		return fmt.Errorf("severity config: invalid default %q", c.Default)
	}
	for id, s := range c.PatternOverrides {
		if !s.Valid() {
			return fmt.Errorf("severity config: invalid severity %q for pattern %q", s, id)
		}
	}
	for cat, s := range c.CategoryOverrides {
		if !s.Valid() {
			return fmt.Errorf("severity config: invalid severity %q for category %q", s, cat)
		}
	}

	prev := -1
	for i, r := range c.Escalation.Rules {
		if !r.From.Valid() || !r.To.Valid() {
			return fmt.Errorf("severity config: escalation rule %d has invalid severity (%q -> %q)", i, r.From, r.To)
		}
		if r.From == r.To {
			return fmt.Errorf("severity config: escalation rule %d maps %q to itself", i, r.From)
		}
		if r.To.Less(r.From) {
			return fmt.Errorf("severity config: escalation rule %d downgrades %q to %q", i, r.From, r.To)
		}
		if r.AfterCount < 1 {
			return fmt.Errorf("severity config: escalation rule %d has afterCount %d (must be >= 1)", i, r.AfterCount)
		}
		if r.AfterCount < prev {
			return fmt.Errorf("severity config: escalation rules must be ordered by ascending afterCount")
		}
		prev = r.AfterCount
	}
	return nil
}

// Resolve returns the severity for a violation of the given pattern after
// occurrences recorded sightings. Resolution order: pattern override, then
// category override, then the global default (warning). Escalation rules are
// then applied in ascending AfterCount order; a rule fires when the count is
// strictly greater than AfterCount, so the Nth occurrence under
// afterCount: N keeps its current severity and the N+1th escalates.
//
// Resolve is total: unresolvable configuration falls back to the default
// severity rather than failing.
func Resolve(patternID, category string, occurrences int, cfg Config) types.Severity {
	resolved := cfg.Default
	if !resolved.Valid() {
		resolved = types.SeverityWarning
	}
	if s, ok := cfg.CategoryOverrides[category]; ok && s.Valid() {
		resolved = s
	}
	if s, ok := cfg.PatternOverrides[patternID]; ok && s.Valid() {
		resolved = s
	}

	rules := make([]EscalationRule, len(cfg.Escalation.Rules))
	copy(rules, cfg.Escalation.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].AfterCount < rules[j].AfterCount
	})

	for _, r := range rules {
		if occurrences > r.AfterCount && resolved == r.From && !r.To.Less(r.From) {
			resolved = r.To
		}
	}
	return resolved
}

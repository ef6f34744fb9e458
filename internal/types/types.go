// Package types defines the core data model shared across the driftlint
// engine: observations emitted by detectors, aggregated patterns, violations,
// quick fixes, and approved variants.
//
// Everything in this package is plain data. Behavior lives in the packages
// that produce or consume these values (aggregate, rules, quickfix, variants).
package types

import (
	"fmt"
	"time"
)

// Position is a zero-indexed line/character location, matching the range
// conventions used by editor protocols.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Before reports whether p comes strictly before o in document order.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

// Range is a half-open [Start, End) span within a single file.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// IsValid reports whether the range is well-formed (start ≤ end and
// non-negative coordinates).
func (r Range) IsValid() bool {
	if r.Start.Line < 0 || r.Start.Character < 0 || r.End.Line < 0 || r.End.Character < 0 {
		return false
	}
	return !r.End.Before(r.Start)
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return !o.Start.Before(r.Start) && !r.End.Before(o.End)
}

// Overlaps reports whether r and o share at least one position.
// Touching ranges (one ends exactly where the other starts) do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// String renders the range as "startLine:startChar-endLine:endChar".
func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
}

// PatternObservation is one detector's sighting of a convention instance in
// one file. Observations are the raw input to pattern aggregation.
type PatternObservation struct {
	// PatternID identifies the convention category this observation belongs
	// to, e.g. "error-handling-style".
	PatternID string `json:"pattern_id"`

	// Category groups related patterns, e.g. "error-handling", "naming".
	Category string `json:"category"`

	// File is the path relative to the project root.
	File string `json:"file"`

	// Range is where the convention instance appears.
	Range Range `json:"range"`

	// VariantSignature identifies which expression of the pattern was seen,
	// e.g. "try-catch" vs "promise-catch". Signatures are compared byte-wise.
	VariantSignature string `json:"variant_signature"`

	// VariantDescription is a human-readable name for the variant.
	VariantDescription string `json:"variant_description"`

	// MatchedText, when non-empty, is the exact source text the range covers.
	// Quick-fix providers use it to compute replacements.
	MatchedText string `json:"matched_text,omitempty"`

	// Confidence is the detector's own hint about this sighting (0.0-1.0).
	Confidence float64 `json:"confidence"`
}

// Variant is one distinct way a pattern is expressed, with its evidence.
type Variant struct {
	Signature   string   `json:"signature"`
	Description string   `json:"description"`
	Occurrences int      `json:"occurrences"`
	Files       []string `json:"files"`

	// CanonicalText is the variant's source text when it is site-independent:
	// it is set only if every observation of the variant supplied the same
	// text, and left empty otherwise. Quick-fix providers may use it as a
	// rewrite target.
	CanonicalText string `json:"canonical_text,omitempty"`
}

// AggregatedPattern is a cross-file learned convention, recomputed from the
// full observation set each scan pass. It has no identity beyond its ID and
// is replaced, never mutated in place.
type AggregatedPattern struct {
	ID       string `json:"id"`
	Category string `json:"category"`

	// DominantVariant is the signature of the most observed variant.
	DominantVariant     string `json:"dominant_variant"`
	DominantDescription string `json:"dominant_description"`

	// Confidence is how certain the engine is that the dominant variant is
	// truly the team's convention (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// TotalObservations equals the sum of all variant occurrence counts.
	TotalObservations int `json:"total_observations"`

	Variants []Variant `json:"variants"`

	// Evidence holds sample "file range" references supporting the dominant
	// variant, capped to a handful per pattern.
	Evidence []string `json:"evidence,omitempty"`
}

// Dominant returns the dominant variant's full record, if present.
func (p AggregatedPattern) Dominant() (Variant, bool) {
	for _, v := range p.Variants {
		if v.Signature == p.DominantVariant {
			return v, true
		}
	}
	return Variant{}, false
}

// Violation is a surfaced, severity-scored record of an outlier that does not
// match its pattern's dominant variant and is not suppressed by an approved
// variant.
type Violation struct {
	// ID is a stable hash of (file, pattern id, range). Rescanning unchanged
	// input yields the identical ID.
	ID string `json:"id"`

	PatternID string   `json:"pattern_id"`
	Category  string   `json:"category"`
	File      string   `json:"file"`
	Range     Range    `json:"range"`
	Severity  Severity `json:"severity"`

	// Expected describes the dominant variant; Actual the observed deviation.
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	QuickFixes []QuickFix `json:"quick_fixes,omitempty"`

	// Availability flags for AI collaborators. The engine sets these from
	// registered capabilities but never invokes anything itself.
	AIExplainAvailable bool `json:"ai_explain_available"`
	AIFixAvailable     bool `json:"ai_fix_available"`

	// FirstSeen is immutable once set. Occurrences is monotonically
	// non-decreasing while the deviation persists.
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Occurrences int       `json:"occurrences"`
}

// PreferredFix returns the quick fix marked preferred, if any.
func (v *Violation) PreferredFix() (QuickFix, bool) {
	for _, f := range v.QuickFixes {
		if f.IsPreferred {
			return f, true
		}
	}
	return QuickFix{}, false
}

// VariantScope restricts an approved variant to a file, a glob, and
// optionally a range within matching files. Exactly one of File or Glob is
// normally set; when both are empty the scope matches nothing.
type VariantScope struct {
	// File matches one exact relative path.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// Glob matches relative paths with doublestar syntax, e.g. "legacy/**".
	Glob string `json:"glob,omitempty" yaml:"glob,omitempty"`

	// Range, when non-nil, further restricts the scope to outliers contained
	// in this range.
	Range *Range `json:"range,omitempty" yaml:"range,omitempty"`
}

// ApprovedVariant records an intentionally-approved deviation. Matching
// violation candidates are suppressed from the surfaced set but still counted
// in aggregate pattern statistics.
type ApprovedVariant struct {
	ID         string       `json:"id"`
	PatternID  string       `json:"pattern_id"`
	Scope      VariantScope `json:"scope"`
	Reason     string       `json:"reason"`
	Approver   string       `json:"approver"`
	ApprovedAt time.Time    `json:"approved_at"`
}

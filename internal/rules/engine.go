// Package rules converts aggregated outliers into stable Violation records
// and produces evaluation summaries. Violation ids are deterministic hashes
// of (file, pattern, range), so rescanning unchanged code yields identical
// ids. That is what makes occurrence tracking and deduplication across
// rescans possible.
package rules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/driftlint/driftlint/internal/aggregate"
	"github.com/driftlint/driftlint/internal/severity"
	"github.com/driftlint/driftlint/internal/types"
)

// CapabilityChecker reports whether AI explanation/fix capabilities are
// registered for a pattern category. The engine only sets availability flags
// from these answers; it never invokes any such capability itself.
type CapabilityChecker interface {
	CanExplain(category string) bool
	CanFix(category string) bool
}

// Record is the persisted history of a violation id.
type Record struct {
	FirstSeen   time.Time
	Occurrences int
}

// History looks up prior sightings of a violation id. The caller owns the
// counters; the engine never mutates hidden state. A nil record with a nil
// error means the id has not been seen before (or was resolved and its
// history is being reattached by the caller's persistence layer).
type History interface {
	Lookup(ctx context.Context, id string) (*Record, error)
}

// EvaluationError records a failure during rule evaluation. Recoverable
// errors skip the affected rule and let the pass continue; a non-recoverable
// error aborts the whole pass.
type EvaluationError struct {
	Rule        string
	Err         error
	Recoverable bool
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Summary reports aggregate results for one evaluation pass.
type Summary struct {
	RulesEvaluated int                    `json:"rules_evaluated"`
	Passed         int                    `json:"passed"`
	Failed         int                    `json:"failed"`
	BySeverity     map[types.Severity]int `json:"violations_by_severity"`
	FilesEvaluated int                    `json:"files_evaluated"`
	Duration       time.Duration          `json:"duration"`
}

// Evaluation is the output of one pass over the aggregated patterns.
type Evaluation struct {
	Violations []types.Violation
	Summary    Summary
	Errors     []EvaluationError
}

// Engine materializes violations from outliers.
type Engine struct {
	cfg  severity.Config
	caps CapabilityChecker

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine validates the severity configuration and builds an engine.
// Malformed configuration is fatal here, before any scanning starts.
func NewEngine(cfg severity.Config, caps CapabilityChecker) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, caps: caps, now: time.Now}, nil
}

// ViolationID derives the stable violation id for a deviation site. The id
// depends only on (file, pattern id, range), so unchanged input hashes to the
// same id on every rescan.
func ViolationID(file, patternID string, r types.Range) string {
	sum := sha256.Sum256([]byte(file + "|" + patternID + "|" + r.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// Evaluate turns each pattern's outliers into violations. The outliers map is
// keyed by pattern id and must already exclude suppressed candidates (the
// variant manager is consulted before materialization). hist may be nil when
// no occurrence history is available.
func (e *Engine) Evaluate(
	ctx context.Context,
	patterns []types.AggregatedPattern,
	outliers map[string][]types.PatternObservation,
	hist History,
) (*Evaluation, error) {
	start := e.now()

	eval := &Evaluation{
		Summary: Summary{BySeverity: make(map[types.Severity]int)},
	}

	sorted := make([]types.AggregatedPattern, len(patterns))
	copy(sorted, patterns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	files := make(map[string]struct{})

	for _, pattern := range sorted {
		if err := ctx.Err(); err != nil {
			// Cancellation aborts the pass; partial results are discarded
			// by the caller, which reports success=false.
			return nil, &EvaluationError{Rule: pattern.ID, Err: err, Recoverable: false}
		}

		eval.Summary.RulesEvaluated++
		candidates := outliers[pattern.ID]
		if len(candidates) == 0 {
			eval.Summary.Passed++
			continue
		}

		failed := false
		for _, o := range candidates {
			files[o.File] = struct{}{}
			if !o.Range.IsValid() {
				eval.Errors = append(eval.Errors, EvaluationError{
					Rule:        pattern.ID,
					Err:         fmt.Errorf("observation in %s has malformed range %s", o.File, o.Range),
					Recoverable: true,
				})
				continue
			}

			v, err := e.materialize(ctx, pattern, o, hist)
			if err != nil {
				eval.Errors = append(eval.Errors, EvaluationError{
					Rule:        pattern.ID,
					Err:         err,
					Recoverable: true,
				})
				continue
			}
			eval.Violations = append(eval.Violations, v)
			eval.Summary.BySeverity[v.Severity]++
			failed = true
		}

		if failed {
			eval.Summary.Failed++
		} else {
			eval.Summary.Passed++
		}
	}

	// Final ordering must not depend on evaluation order.
	sort.Slice(eval.Violations, func(i, j int) bool {
		a, b := eval.Violations[i], eval.Violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.PatternID != b.PatternID {
			return a.PatternID < b.PatternID
		}
		return a.Range.Start.Before(b.Range.Start)
	})

	eval.Summary.FilesEvaluated = len(files)
	eval.Summary.Duration = e.now().Sub(start)
	return eval, nil
}

// materialize builds one violation, reattaching persisted history when the
// same deviation id has been seen before.
func (e *Engine) materialize(
	ctx context.Context,
	pattern types.AggregatedPattern,
	o types.PatternObservation,
	hist History,
) (types.Violation, error) {
	id := ViolationID(o.File, pattern.ID, o.Range)
	now := e.now()

	firstSeen := now
	occurrences := 1
	if hist != nil {
		rec, err := hist.Lookup(ctx, id)
		if err != nil {
			return types.Violation{}, fmt.Errorf("looking up history for %s: %w", id, err)
		}
		if rec != nil {
			firstSeen = rec.FirstSeen
			occurrences = rec.Occurrences + 1
		}
	}

	v := types.Violation{
		ID:          id,
		PatternID:   pattern.ID,
		Category:    pattern.Category,
		File:        o.File,
		Range:       o.Range,
		Severity:    severity.Resolve(pattern.ID, pattern.Category, occurrences, e.cfg),
		Expected:    pattern.DominantDescription,
		Actual:      o.VariantDescription,
		FirstSeen:   firstSeen,
		LastSeen:    now,
		Occurrences: occurrences,
	}
	if e.caps != nil {
		v.AIExplainAvailable = e.caps.CanExplain(pattern.Category)
		v.AIFixAvailable = e.caps.CanFix(pattern.Category)
	}
	return v, nil
}

// OutlierMap runs the aggregation engine's outlier classification over every
// pattern and returns the result keyed by pattern id.
func OutlierMap(agg *aggregate.Engine, patterns []types.AggregatedPattern, observations []types.PatternObservation) map[string][]types.PatternObservation {
	out := make(map[string][]types.PatternObservation, len(patterns))
	for _, p := range patterns {
		if o := agg.Outliers(p, observations); len(o) > 0 {
			out[p.ID] = o
		}
	}
	return out
}

package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/driftlint/driftlint/internal/severity"
	"github.com/driftlint/driftlint/internal/types"
)

// mockHistory implements History for testing
type mockHistory struct {
	lookupFunc func(ctx context.Context, id string) (*Record, error)
}

func (m *mockHistory) Lookup(ctx context.Context, id string) (*Record, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(ctx, id)
	}
	return nil, nil
}

// mockCaps implements CapabilityChecker for testing
type mockCaps struct {
	explain bool
	fix     bool
}

func (m *mockCaps) CanExplain(string) bool { return m.explain }
func (m *mockCaps) CanFix(string) bool     { return m.fix }

func testPattern() types.AggregatedPattern {
	return types.AggregatedPattern{
		ID:                  "error-handling-style",
		Category:            "error-handling",
		DominantVariant:     "try-catch",
		DominantDescription: "try/catch blocks",
		Confidence:          0.8,
		TotalObservations:   10,
	}
}

func testOutlier(file string, line int) types.PatternObservation {
	return types.PatternObservation{
		PatternID:          "error-handling-style",
		Category:           "error-handling",
		File:               file,
		Range:              types.Range{Start: types.Position{Line: line}, End: types.Position{Line: line, Character: 20}},
		VariantSignature:   "promise-catch",
		VariantDescription: ".catch() chaining",
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(severity.Default(), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	bad := severity.Config{Default: "fatal"}
	if _, err := NewEngine(bad, nil); err == nil {
		t.Fatal("expected error for invalid severity config")
	}
}

func TestViolationIDStable(t *testing.T) {
	r := types.Range{Start: types.Position{Line: 3, Character: 1}, End: types.Position{Line: 3, Character: 9}}

	a := ViolationID("src/app.ts", "error-handling-style", r)
	b := ViolationID("src/app.ts", "error-handling-style", r)
	if a != b {
		t.Errorf("same input produced different ids: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("id length = %d, want 16", len(a))
	}

	if c := ViolationID("src/other.ts", "error-handling-style", r); c == a {
		t.Error("different files should produce different ids")
	}
}

func TestEvaluateProducesViolations(t *testing.T) {
	e := newTestEngine(t)
	pattern := testPattern()
	outliers := map[string][]types.PatternObservation{
		pattern.ID: {testOutlier("src/drift1.ts", 3), testOutlier("src/drift2.ts", 7)},
	}

	eval, err := e.Evaluate(context.Background(), []types.AggregatedPattern{pattern}, outliers, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(eval.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(eval.Violations))
	}
	v := eval.Violations[0]
	if v.Expected != "try/catch blocks" {
		t.Errorf("Expected = %q, want try/catch blocks", v.Expected)
	}
	if v.Actual != ".catch() chaining" {
		t.Errorf("Actual = %q, want .catch() chaining", v.Actual)
	}
	if v.Severity != types.SeverityWarning {
		t.Errorf("Severity = %q, want warning", v.Severity)
	}
	if v.Occurrences != 1 {
		t.Errorf("Occurrences = %d, want 1 for a first sighting", v.Occurrences)
	}
	if eval.Summary.Failed != 1 || eval.Summary.Passed != 0 {
		t.Errorf("summary = %+v, want 1 failed", eval.Summary)
	}
}

func TestEvaluatePassedWithNoOutliers(t *testing.T) {
	e := newTestEngine(t)

	eval, err := e.Evaluate(context.Background(), []types.AggregatedPattern{testPattern()}, nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Summary.Passed != 1 || len(eval.Violations) != 0 {
		t.Errorf("expected a clean pass, got %+v", eval.Summary)
	}
}

func TestEvaluateReattachesHistory(t *testing.T) {
	e := newTestEngine(t)
	pattern := testPattern()
	o := testOutlier("src/drift1.ts", 3)
	id := ViolationID(o.File, pattern.ID, o.Range)

	firstSeen := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	hist := &mockHistory{lookupFunc: func(ctx context.Context, lookupID string) (*Record, error) {
		if lookupID != id {
			t.Errorf("looked up id %s, want %s", lookupID, id)
		}
		return &Record{FirstSeen: firstSeen, Occurrences: 4}, nil
	}}

	eval, err := e.Evaluate(context.Background(),
		[]types.AggregatedPattern{pattern},
		map[string][]types.PatternObservation{pattern.ID: {o}}, hist)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	v := eval.Violations[0]
	if !v.FirstSeen.Equal(firstSeen) {
		t.Errorf("FirstSeen = %v, want %v", v.FirstSeen, firstSeen)
	}
	if v.Occurrences != 5 {
		t.Errorf("Occurrences = %d, want 5", v.Occurrences)
	}
}

func TestEvaluateEscalatesBySeenCount(t *testing.T) {
	cfg := severity.Config{
		Default: types.SeverityWarning,
		Escalation: severity.Escalation{Rules: []severity.EscalationRule{
			{From: types.SeverityWarning, To: types.SeverityError, AfterCount: 10},
		}},
	}
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	pattern := testPattern()
	o := testOutlier("src/drift1.ts", 3)

	run := func(prior int) types.Severity {
		hist := &mockHistory{lookupFunc: func(context.Context, string) (*Record, error) {
			return &Record{FirstSeen: time.Now(), Occurrences: prior}, nil
		}}
		eval, err := e.Evaluate(context.Background(),
			[]types.AggregatedPattern{pattern},
			map[string][]types.PatternObservation{pattern.ID: {o}}, hist)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		return eval.Violations[0].Severity
	}

	// 9 prior sightings makes this the 10th: still a warning.
	if got := run(9); got != types.SeverityWarning {
		t.Errorf("10th occurrence severity = %q, want warning", got)
	}
	// The 11th escalates.
	if got := run(10); got != types.SeverityError {
		t.Errorf("11th occurrence severity = %q, want error", got)
	}
}

func TestEvaluateHistoryErrorIsRecoverable(t *testing.T) {
	e := newTestEngine(t)
	pattern := testPattern()
	hist := &mockHistory{lookupFunc: func(context.Context, string) (*Record, error) {
		return nil, errors.New("database locked")
	}}

	eval, err := e.Evaluate(context.Background(),
		[]types.AggregatedPattern{pattern},
		map[string][]types.PatternObservation{pattern.ID: {testOutlier("src/a.ts", 1)}}, hist)
	if err != nil {
		t.Fatalf("recoverable error should not abort evaluation: %v", err)
	}
	if len(eval.Errors) != 1 || !eval.Errors[0].Recoverable {
		t.Errorf("expected 1 recoverable error, got %+v", eval.Errors)
	}
	if len(eval.Violations) != 0 {
		t.Errorf("failed lookup should skip the violation, got %d", len(eval.Violations))
	}
}

func TestEvaluateSkipsMalformedRange(t *testing.T) {
	e := newTestEngine(t)
	pattern := testPattern()
	bad := testOutlier("src/a.ts", 1)
	bad.Range = types.Range{Start: types.Position{Line: 5}, End: types.Position{Line: 2}}
	good := testOutlier("src/b.ts", 2)

	eval, err := e.Evaluate(context.Background(),
		[]types.AggregatedPattern{pattern},
		map[string][]types.PatternObservation{pattern.ID: {bad, good}}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(eval.Violations) != 1 {
		t.Errorf("expected only the well-formed outlier to surface, got %d", len(eval.Violations))
	}
	if len(eval.Errors) != 1 || !eval.Errors[0].Recoverable {
		t.Errorf("expected 1 recoverable error for the malformed range, got %+v", eval.Errors)
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, []types.AggregatedPattern{testPattern()}, nil, nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Recoverable {
		t.Errorf("cancellation should be a non-recoverable evaluation error, got %v", err)
	}
}

func TestEvaluateSetsCapabilityFlags(t *testing.T) {
	e, err := NewEngine(severity.Default(), &mockCaps{explain: true, fix: false})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	pattern := testPattern()

	eval, err := e.Evaluate(context.Background(),
		[]types.AggregatedPattern{pattern},
		map[string][]types.PatternObservation{pattern.ID: {testOutlier("src/a.ts", 1)}}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	v := eval.Violations[0]
	if !v.AIExplainAvailable || v.AIFixAvailable {
		t.Errorf("flags = explain:%v fix:%v, want explain only", v.AIExplainAvailable, v.AIFixAvailable)
	}
}

func TestEvaluateOrdering(t *testing.T) {
	e := newTestEngine(t)
	pattern := testPattern()
	outliers := map[string][]types.PatternObservation{
		pattern.ID: {
			testOutlier("src/z.ts", 1),
			testOutlier("src/a.ts", 9),
			testOutlier("src/a.ts", 2),
		},
	}

	eval, err := e.Evaluate(context.Background(), []types.AggregatedPattern{pattern}, outliers, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(eval.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %d", len(eval.Violations))
	}
	if eval.Violations[0].File != "src/a.ts" || eval.Violations[0].Range.Start.Line != 2 {
		t.Errorf("violations not sorted by file then range: %+v", eval.Violations[0])
	}
	if eval.Violations[2].File != "src/z.ts" {
		t.Errorf("last violation should be src/z.ts, got %s", eval.Violations[2].File)
	}
}

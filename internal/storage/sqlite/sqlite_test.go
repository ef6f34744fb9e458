package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlint/driftlint/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testViolation(id, file string) *types.Violation {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &types.Violation{
		ID:        id,
		PatternID: "error-handling-style",
		Category:  "error-handling",
		File:      file,
		Range: types.Range{
			Start: types.Position{Line: 3, Character: 0},
			End:   types.Position{Line: 5, Character: 1},
		},
		Severity:    types.SeverityWarning,
		Expected:    "try/catch blocks",
		Actual:      ".catch() chaining",
		FirstSeen:   now,
		LastSeen:    now,
		Occurrences: 1,
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "drift.db")
	s, err := New(path)
	require.NoError(t, err)
	defer s.Close()
}

func TestPatternSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	patterns := []types.AggregatedPattern{
		{
			ID:                  "error-handling-style",
			Category:            "error-handling",
			DominantVariant:     "try-catch",
			DominantDescription: "try/catch blocks",
			Confidence:          0.66,
			TotalObservations:   10,
			Variants: []types.Variant{
				{Signature: "try-catch", Description: "try/catch blocks", Occurrences: 8, Files: []string{"a.ts"}},
				{Signature: "promise-catch", Description: ".catch() chaining", Occurrences: 2, Files: []string{"b.ts"}},
			},
			Evidence: []string{"a.ts 3:0-5:1"},
		},
		{ID: "import-quote-style", Category: "imports", DominantVariant: "single", TotalObservations: 4},
	}
	require.NoError(t, s.ReplacePatterns(ctx, patterns))

	got, err := s.GetPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "error-handling-style", got[0].ID)
	assert.Equal(t, 0.66, got[0].Confidence)
	assert.Len(t, got[0].Variants, 2)
	assert.Equal(t, []string{"a.ts 3:0-5:1"}, got[0].Evidence)

	one, err := s.GetPattern(ctx, "import-quote-style")
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "single", one.DominantVariant)

	missing, err := s.GetPattern(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReplacePatternsReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplacePatterns(ctx, []types.AggregatedPattern{{ID: "old"}}))
	require.NoError(t, s.ReplacePatterns(ctx, []types.AggregatedPattern{{ID: "new"}}))

	got, err := s.GetPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestUpsertViolationKeepsFirstSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := testViolation("v1", "src/a.ts")
	require.NoError(t, s.UpsertViolation(ctx, v))

	// A later pass sees the same deviation again.
	later := *v
	later.FirstSeen = v.FirstSeen.Add(48 * time.Hour)
	later.LastSeen = v.LastSeen.Add(48 * time.Hour)
	later.Occurrences = 2
	later.Severity = types.SeverityError
	require.NoError(t, s.UpsertViolation(ctx, &later))

	got, err := s.GetViolation(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.FirstSeen.Equal(v.FirstSeen), "first_seen must be immutable")
	assert.True(t, got.LastSeen.Equal(later.LastSeen))
	assert.Equal(t, 2, got.Occurrences)
	assert.Equal(t, types.SeverityError, got.Severity)
}

func TestResolveAndReactivate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := testViolation("v1", "src/a.ts")
	require.NoError(t, s.UpsertViolation(ctx, v))
	require.NoError(t, s.ResolveViolation(ctx, "v1", time.Now()))

	active, err := s.ListActiveViolations(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// History survives resolution.
	firstSeen, occurrences, ok, err := s.GetViolationHistory(ctx, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, firstSeen.Equal(v.FirstSeen))
	assert.Equal(t, 1, occurrences)

	// The deviation reappears: the row reactivates with history intact.
	again := *v
	again.Occurrences = 2
	require.NoError(t, s.UpsertViolation(ctx, &again))

	active, err = s.ListActiveViolations(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Occurrences)
}

func TestResolveMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertViolation(ctx, testViolation("keep", "src/a.ts")))
	require.NoError(t, s.UpsertViolation(ctx, testViolation("gone1", "src/b.ts")))
	require.NoError(t, s.UpsertViolation(ctx, testViolation("gone2", "src/c.ts")))

	n, err := s.ResolveMissing(ctx, []string{"keep"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err := s.ListActiveViolations(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "keep", active[0].ID)
}

func TestResolveMissingEmptyActiveSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertViolation(ctx, testViolation("v1", "src/a.ts")))

	n, err := s.ResolveMissing(ctx, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetViolationHistoryUnseen(t *testing.T) {
	s := newTestStore(t)

	_, _, ok, err := s.GetViolationHistory(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApprovedVariantLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rng := &types.Range{Start: types.Position{Line: 5}, End: types.Position{Line: 20}}
	v := &types.ApprovedVariant{
		ID:         "av-1",
		PatternID:  "error-handling-style",
		Scope:      types.VariantScope{Glob: "legacy/**", Range: rng},
		Reason:     "legacy code predates the convention",
		Approver:   "alex",
		ApprovedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateVariant(ctx, v))

	list, err := s.ListVariants(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "legacy/**", list[0].Scope.Glob)
	require.NotNil(t, list[0].Scope.Range)
	assert.Equal(t, 5, list[0].Scope.Range.Start.Line)
	assert.True(t, list[0].ApprovedAt.Equal(v.ApprovedAt))

	require.NoError(t, s.DeleteVariant(ctx, "av-1"))
	list, err = s.ListVariants(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, s.DeleteVariant(ctx, "av-1"), "deleting a missing variant should error")
}

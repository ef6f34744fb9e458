package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftlint/driftlint/internal/aggregate"
	"github.com/driftlint/driftlint/internal/detect"
	"github.com/driftlint/driftlint/internal/detect/builtin"
	"github.com/driftlint/driftlint/internal/quickfix"
	"github.com/driftlint/driftlint/internal/rules"
	"github.com/driftlint/driftlint/internal/severity"
	"github.com/driftlint/driftlint/internal/storage"
	"github.com/driftlint/driftlint/internal/types"
	"github.com/driftlint/driftlint/internal/variants"
)

// mockDetector implements detect.Detector for testing
type mockDetector struct {
	name       string
	category   string
	languages  []string
	detectFunc func(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error)
}

func (m *mockDetector) Name() string                     { return m.name }
func (m *mockDetector) Category() string                 { return m.category }
func (m *mockDetector) Languages() []string              { return m.languages }
func (m *mockDetector) Warmup(ctx context.Context) error { return nil }

func (m *mockDetector) Detect(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error) {
	if m.detectFunc != nil {
		return m.detectFunc(ctx, file)
	}
	return &detect.DetectorResult{}, nil
}

func newRulesEngine(t *testing.T) *rules.Engine {
	t.Helper()
	e, err := rules.NewEngine(severity.Default(), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// writeProject creates a project where most files import with single quotes
// and one drifts to double quotes.
func writeProject(t *testing.T, conforming int) (string, []FileRef) {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < conforming; i++ {
		path := filepath.Join(dir, fmt.Sprintf("ok%d.ts", i))
		if err := os.WriteFile(path, []byte("import a from 'mod';\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	drift := filepath.Join(dir, "drift.ts")
	if err := os.WriteFile(drift, []byte("import a from \"mod\";\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverFiles: %v", err)
	}
	return dir, files
}

func newQuoteService(t *testing.T, root string, store storage.Store, mgr *variants.Manager) *Service {
	t.Helper()
	registry, err := detect.NewRegistry(builtin.NewQuoteStyleDetector())
	if err != nil {
		t.Fatal(err)
	}
	fixes := quickfix.NewGenerator(
		[]quickfix.Provider{&builtin.QuoteFixProvider{}},
		quickfix.WithContentProvider(func(file string) (string, error) {
			data, err := os.ReadFile(filepath.Join(root, file))
			return string(data), err
		}),
	)
	return NewService(registry, Options{ProjectRoot: root, Workers: 2}, Deps{
		Aggregator: aggregate.New(5),
		Rules:      newRulesEngine(t),
		Fixes:      fixes,
		Variants:   mgr,
		Store:      store,
	})
}

func TestScanEndToEnd(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 6)

	store, err := storage.New(ctx, &storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer store.Close()

	svc := newQuoteService(t, root, store, variants.NewManager(store))
	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if !results.Success {
		t.Errorf("expected success, errors: %+v", results.Errors)
	}
	if results.Stats.FilesScanned != 7 {
		t.Errorf("FilesScanned = %d, want 7", results.Stats.FilesScanned)
	}
	if len(results.Patterns) != 1 || results.Patterns[0].DominantVariant != "single-quote" {
		t.Fatalf("patterns = %+v, want single-quote dominant", results.Patterns)
	}
	if len(results.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(results.Violations))
	}

	v := results.Violations[0]
	if v.File != "drift.ts" {
		t.Errorf("violation file = %q, want drift.ts", v.File)
	}
	if v.Expected != "single-quoted imports" || v.Actual != "double-quoted imports" {
		t.Errorf("expected/actual = %q/%q", v.Expected, v.Actual)
	}
	fix, ok := v.PreferredFix()
	if !ok {
		t.Fatal("expected a preferred quick fix")
	}
	if fix.Type != types.FixReplace {
		t.Errorf("fix type = %q, want replace", fix.Type)
	}
	if fix.Preview == "" {
		t.Error("expected a fix preview")
	}

	// Persisted state is queryable after the pass.
	stored, err := store.GetPatterns(ctx)
	if err != nil || len(stored) != 1 {
		t.Errorf("stored patterns = %d (%v), want 1", len(stored), err)
	}
	active, err := store.ListActiveViolations(ctx)
	if err != nil || len(active) != 1 {
		t.Errorf("active violations = %d (%v), want 1", len(active), err)
	}
}

func TestScanOccurrencesAccumulate(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 6)

	store, err := storage.New(ctx, &storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	svc := newQuoteService(t, root, store, variants.NewManager(store))

	first, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}

	if first.Violations[0].ID != second.Violations[0].ID {
		t.Error("violation id must be stable across rescans of unchanged code")
	}
	if second.Violations[0].Occurrences != 2 {
		t.Errorf("Occurrences after second pass = %d, want 2", second.Violations[0].Occurrences)
	}
	if !second.Violations[0].FirstSeen.Equal(first.Violations[0].FirstSeen) {
		t.Error("FirstSeen must not change on a rescan")
	}
}

func TestScanResolvedWhenDeviationDisappears(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 6)

	store, err := storage.New(ctx, &storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	svc := newQuoteService(t, root, store, variants.NewManager(store))
	if _, err := svc.Scan(ctx, files); err != nil {
		t.Fatal(err)
	}

	// The drifting file gets fixed.
	if err := os.WriteFile(filepath.Join(root, "drift.ts"), []byte("import a from 'mod';\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}
	if len(results.Violations) != 0 {
		t.Errorf("expected no violations after the fix, got %d", len(results.Violations))
	}
	if results.Stats.ViolationsResolved != 1 {
		t.Errorf("ViolationsResolved = %d, want 1", results.Stats.ViolationsResolved)
	}
	active, err := store.ListActiveViolations(ctx)
	if err != nil || len(active) != 0 {
		t.Errorf("active violations = %d (%v), want 0", len(active), err)
	}
}

// A file that fails to read produces no observations this pass, which is not
// evidence its deviation is gone. Its stored violation must stay active.
func TestScanErroredFileKeepsViolationActive(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 6)

	store, err := storage.New(ctx, &storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	svc := newQuoteService(t, root, store, variants.NewManager(store))
	if _, err := svc.Scan(ctx, files); err != nil {
		t.Fatal(err)
	}

	// The drifting file becomes unreadable on the next pass.
	for i := range files {
		if files[i].RelPath == "drift.ts" {
			files[i].ContentHash = "deadbeef"
		}
	}

	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}
	if results.Success {
		t.Error("pass with an unreadable file must not report success")
	}
	if results.Stats.ViolationsResolved != 0 {
		t.Errorf("ViolationsResolved = %d, want 0 when the file could not be read", results.Stats.ViolationsResolved)
	}

	active, err := store.ListActiveViolations(ctx)
	if err != nil {
		t.Fatalf("ListActiveViolations: %v", err)
	}
	if len(active) != 1 || active[0].File != "drift.ts" {
		t.Errorf("drift.ts violation should stay active, got %+v", active)
	}
}

func TestScanSuppressesApprovedVariants(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 6)

	store, err := storage.New(ctx, &storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	mgr := variants.NewManager(store)
	if _, err := mgr.Approve(ctx, "import-quote-style",
		types.VariantScope{File: "drift.ts"}, "third-party snippet keeps upstream style", "alex"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	svc := newQuoteService(t, root, store, mgr)
	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}

	if len(results.Violations) != 0 {
		t.Errorf("approved deviation should not surface, got %d violations", len(results.Violations))
	}
	if results.Stats.ViolationsSuppressed != 1 {
		t.Errorf("ViolationsSuppressed = %d, want 1", results.Stats.ViolationsSuppressed)
	}
	// Suppression does not remove the observation from pattern statistics.
	if results.Patterns[0].TotalObservations != 7 {
		t.Errorf("TotalObservations = %d, want 7", results.Patterns[0].TotalObservations)
	}
}

// One unreadable file out of many must not abort the batch: every other
// file's results are still collected, and the pass reports failure.
func TestScanPartialFailure(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 6)

	files = append(files, FileRef{
		Path:     filepath.Join(root, "missing.ts"),
		RelPath:  "missing.ts",
		Language: "typescript",
	})

	svc := newQuoteService(t, root, nil, nil)
	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatalf("partial failure must not abort the scan: %v", err)
	}

	if results.Success {
		t.Error("Success should be false when any file failed")
	}
	if len(results.Errors) != 1 {
		t.Fatalf("expected 1 scan error, got %d", len(results.Errors))
	}
	if results.Errors[0].Type != ErrTypeNotFound {
		t.Errorf("error type = %q, want not_found", results.Errors[0].Type)
	}
	if results.Stats.FilesScanned != 7 {
		t.Errorf("FilesScanned = %d, want 7 despite the failure", results.Stats.FilesScanned)
	}
	if len(results.Violations) != 1 {
		t.Errorf("partial results should still include violations, got %d", len(results.Violations))
	}
}

func TestScanHashMismatch(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 2)

	for i := range files {
		if files[i].RelPath == "drift.ts" {
			files[i].ContentHash = "deadbeef"
		}
	}

	svc := newQuoteService(t, root, nil, nil)
	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}

	if results.Success {
		t.Error("hash mismatch should fail the pass")
	}
	found := false
	for _, e := range results.Errors {
		if e.Type == ErrTypeHashError && e.File == "drift.ts" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a hash_error for drift.ts, got %+v", results.Errors)
	}
}

func TestScanIgnoreGlobs(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 3)

	registry, err := detect.NewRegistry(builtin.NewQuoteStyleDetector())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(registry, Options{
		ProjectRoot: root,
		IgnoreGlobs: []string{"drift.*"},
	}, Deps{Aggregator: aggregate.New(5), Rules: newRulesEngine(t)})

	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatal(err)
	}

	if results.Stats.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", results.Stats.FilesSkipped)
	}
	if len(results.Violations) != 0 {
		t.Errorf("ignored file should produce no violations, got %d", len(results.Violations))
	}
}

func TestScanSerialized(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 1)

	release := make(chan struct{})
	started := make(chan struct{}, 8)
	blocking := &mockDetector{
		name: "blocker",
		detectFunc: func(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error) {
			started <- struct{}{}
			<-release
			return &detect.DetectorResult{}, nil
		},
	}
	registry, err := detect.NewRegistry(blocking)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(registry, Options{ProjectRoot: root, Workers: 1}, Deps{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Scan(ctx, files) //nolint:errcheck
	}()

	<-started
	if _, err := svc.Scan(ctx, files); err != ErrScanInProgress {
		t.Errorf("concurrent scan error = %v, want ErrScanInProgress", err)
	}

	close(release)
	<-done

	// Once the first pass finishes, scanning works again.
	if _, err := svc.Scan(ctx, files); err != nil {
		t.Errorf("scan after completion: %v", err)
	}
}

func TestScanDeterministicOrder(t *testing.T) {
	ctx := context.Background()
	root, files := writeProject(t, 8)

	svc := newQuoteService(t, root, nil, nil)

	var want []string
	for trial := 0; trial < 3; trial++ {
		results, err := svc.Scan(ctx, files)
		if err != nil {
			t.Fatal(err)
		}
		var order []string
		for _, fr := range results.FileResults {
			order = append(order, fr.File.RelPath)
		}
		if trial == 0 {
			want = order
			for i := 1; i < len(order); i++ {
				if order[i-1] >= order[i] {
					t.Fatalf("file results not sorted: %v", order)
				}
			}
			continue
		}
		for i := range order {
			if order[i] != want[i] {
				t.Fatalf("trial %d: order differs: %v vs %v", trial, order, want)
			}
		}
	}
}

func TestScanCancellation(t *testing.T) {
	root, files := writeProject(t, 8)

	ctx, cancel := context.WithCancel(context.Background())
	slow := &mockDetector{
		name: "slow",
		detectFunc: func(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error) {
			cancel()
			time.Sleep(5 * time.Millisecond)
			return &detect.DetectorResult{}, nil
		},
	}
	registry, err := detect.NewRegistry(slow)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(registry, Options{ProjectRoot: root, Workers: 1}, Deps{})

	results, err := svc.Scan(ctx, files)
	if err != nil {
		t.Fatalf("cancelled scan should return partial results: %v", err)
	}
	if results.Success {
		t.Error("cancelled scan must not report success")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ScanErrorType
	}{
		{"permission", os.ErrPermission, ErrTypePermissionDenied},
		{"not found", os.ErrNotExist, ErrTypeNotFound},
		{"hash", ErrHashMismatch, ErrTypeHashError},
		{"path error", &os.PathError{Op: "read", Path: "x", Err: fmt.Errorf("io")}, ErrTypeReadError},
		{"unknown", fmt.Errorf("weird"), ErrTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel, content string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("src/app.ts", "x")
	mustWrite("main.go", "x")
	mustWrite("README.md", "x")
	mustWrite("node_modules/dep/index.js", "x")
	mustWrite(".git/config", "x")

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverFiles: %v", err)
	}

	got := map[string]string{}
	for _, f := range files {
		got[f.RelPath] = f.Language
	}
	if len(got) != 2 {
		t.Errorf("discovered %d files, want 2: %v", len(got), got)
	}
	if got["src/app.ts"] != "typescript" {
		t.Errorf("app.ts language = %q, want typescript", got["src/app.ts"])
	}
	if got["main.go"] != "go" {
		t.Errorf("main.go language = %q, want go", got["main.go"])
	}
}

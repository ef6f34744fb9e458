// Package scanner coordinates a scan pass: it distributes files across a
// fixed-size worker pool, invokes detectors per file, and merges the per-file
// results deterministically before handing them to aggregation, rule
// evaluation, fix generation, and variant suppression.
//
// Workers share no mutable state; they communicate with the orchestrator
// purely through channels. Everything after collection runs single-threaded
// in Scan, because a dominant-variant decision needs the full observation set
// for the pass.
package scanner

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/driftlint/driftlint/internal/aggregate"
	"github.com/driftlint/driftlint/internal/detect"
	"github.com/driftlint/driftlint/internal/quickfix"
	"github.com/driftlint/driftlint/internal/rules"
	"github.com/driftlint/driftlint/internal/storage"
	"github.com/driftlint/driftlint/internal/types"
	"github.com/driftlint/driftlint/internal/variants"
)

// FileRef identifies one file to scan. The scanning layer above the core
// supplies identity; the core reads bytes but never parses them.
type FileRef struct {
	// Path is the absolute path on disk.
	Path string
	// RelPath is the project-relative path used in all results.
	RelPath string
	// Language is the detected source language.
	Language string
	// ContentHash, when set, is the expected hex sha256 of the content. A
	// mismatch at read time is reported as a hash_error.
	ContentHash string
}

// Options configures a scan service.
type Options struct {
	// ProjectRoot is the absolute root directory of the scanned project.
	ProjectRoot string

	// Workers is the pool size. 0 means available parallelism.
	Workers int

	// IgnoreGlobs are doublestar patterns of relative paths to skip.
	IgnoreGlobs []string

	// Incremental marks this service as feeding a watch loop, where
	// aggregation is recomputed per delta over the merged observation set.
	Incremental bool
}

// Stats summarizes one scan pass.
type Stats struct {
	FilesScanned          int           `json:"files_scanned"`
	FilesSkipped          int           `json:"files_skipped"`
	ObservationsCollected int           `json:"observations_collected"`
	PatternsLearned       int           `json:"patterns_learned"`
	ViolationsFound       int           `json:"violations_found"`
	ViolationsSuppressed  int           `json:"violations_suppressed"`
	ViolationsResolved    int           `json:"violations_resolved"`
	Duration              time.Duration `json:"duration"`
}

// SuppressedCandidate is an outlier that matched an approved variant. It is
// excluded from the surfaced violation set but preserved for statistics.
type SuppressedCandidate struct {
	PatternID string      `json:"pattern_id"`
	File      string      `json:"file"`
	Range     types.Range `json:"range"`
	Variant   string      `json:"variant"`
}

// WorkerFileResult is one worker's output for one file.
type WorkerFileResult struct {
	File          FileRef
	Observations  []types.PatternObservation
	RawViolations []types.Violation
	Errors        []ScanError
}

// ScanResults is the complete outcome of a pass. Success is false when any
// error occurred or the pass was stopped early; partial results are retained
// either way.
type ScanResults struct {
	Files       int
	Patterns    []types.AggregatedPattern
	Violations  []types.Violation
	Suppressed  []SuppressedCandidate
	FileResults []WorkerFileResult
	Errors      []ScanError
	Summary     rules.Summary
	Success     bool
	Stats       Stats
}

// Service runs scan passes. At most one scan per service is active at a
// time; the aggregated store is written only after a complete pass.
type Service struct {
	registry *detect.Registry
	agg      *aggregate.Engine
	engine   *rules.Engine
	fixes    *quickfix.Generator
	variants *variants.Manager
	store    storage.Store
	opts     Options
	logger   *slog.Logger

	scanMu sync.Mutex
}

// Deps carries the collaborators a Service orchestrates. Store, Fixes, and
// Variants are optional; the corresponding stages are skipped when nil.
type Deps struct {
	Aggregator *aggregate.Engine
	Rules      *rules.Engine
	Fixes      *quickfix.Generator
	Variants   *variants.Manager
	Store      storage.Store
	Logger     *slog.Logger
}

// NewService builds a scan service over an immutable detector registry.
func NewService(registry *detect.Registry, opts Options, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	agg := deps.Aggregator
	if agg == nil {
		agg = aggregate.New(1)
	}
	return &Service{
		registry: registry,
		agg:      agg,
		engine:   deps.Rules,
		fixes:    deps.Fixes,
		variants: deps.Variants,
		store:    deps.Store,
		opts:     opts,
		logger:   logger,
	}
}

// Scan runs one full pass over files. Cancelling ctx lets in-flight workers
// finish their current file, discards the remaining queue, and returns
// whatever was collected with Success=false.
func (s *Service) Scan(ctx context.Context, files []FileRef) (*ScanResults, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	start := time.Now()
	results := &ScanResults{}

	included, skipped := s.filterIgnored(files)
	results.Stats.FilesSkipped = skipped
	results.Files = len(included)

	fileResults := s.runWorkers(ctx, included)

	// Merge must be order-independent: sort by file path before anything
	// downstream looks at the data.
	sort.Slice(fileResults, func(i, j int) bool {
		return fileResults[i].File.RelPath < fileResults[j].File.RelPath
	})
	results.FileResults = fileResults

	var observations []types.PatternObservation
	var rawViolations []types.Violation
	for _, fr := range fileResults {
		results.Errors = append(results.Errors, fr.Errors...)
		observations = append(observations, fr.Observations...)
		rawViolations = append(rawViolations, fr.RawViolations...)
		if len(fr.Errors) == 0 {
			results.Stats.FilesScanned++
		}
	}
	results.Stats.ObservationsCollected = len(observations)

	s.evaluate(ctx, results, observations, rawViolations)

	stopped := ctx.Err() != nil
	results.Success = len(results.Errors) == 0 && !stopped
	results.Stats.Duration = time.Since(start)

	if !stopped && s.store != nil {
		if err := s.persist(ctx, results); err != nil {
			s.logger.Error("persisting scan results", "error", err)
			results.Errors = append(results.Errors, ScanError{
				Type: ErrTypeUnknown, Err: err, Message: err.Error(),
			})
			results.Success = false
		}
	}

	return results, nil
}

// filterIgnored drops files matching the ignore globs.
func (s *Service) filterIgnored(files []FileRef) ([]FileRef, int) {
	if len(s.opts.IgnoreGlobs) == 0 {
		return files, 0
	}
	var included []FileRef
	skipped := 0
	for _, f := range files {
		if s.ignored(f.RelPath) {
			skipped++
			continue
		}
		included = append(included, f)
	}
	return included, skipped
}

func (s *Service) ignored(relPath string) bool {
	for _, glob := range s.opts.IgnoreGlobs {
		if ok, err := doublestar.Match(glob, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// runWorkers fans included files out over the pool and collects per-file
// results. Worker completion order never influences the outcome; the caller
// sorts before use.
func (s *Service) runWorkers(ctx context.Context, files []FileRef) []WorkerFileResult {
	workers := s.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	tasks := make(chan FileRef)
	out := make(chan WorkerFileResult)

	// Feeder: stops handing out work once ctx is cancelled; the remaining
	// queue is simply never sent.
	go func() {
		defer close(tasks)
		for _, f := range files {
			select {
			case <-ctx.Done():
				return
			case tasks <- f:
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			w := newWorker(s.registry, s.opts.ProjectRoot, s.logger)
			w.warmup(ctx)
			for f := range tasks {
				out <- w.process(ctx, f)
			}
			return nil
		})
	}

	collected := make([]WorkerFileResult, 0, len(files))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range out {
			collected = append(collected, r)
		}
	}()

	g.Wait() //nolint:errcheck // workers never return errors; failures are per-file
	close(out)
	<-done
	return collected
}

// evaluate runs the single-threaded back half of the pass: aggregation,
// suppression, rule evaluation, and fix ranking.
func (s *Service) evaluate(ctx context.Context, results *ScanResults, observations []types.PatternObservation, rawViolations []types.Violation) {
	patterns := s.agg.Aggregate(observations)
	results.Patterns = patterns
	results.Stats.PatternsLearned = len(patterns)

	outliers := rules.OutlierMap(s.agg, patterns, observations)

	// Suppression is checked before a candidate is materialized into a
	// violation; suppressed candidates stay in the stats.
	if s.variants != nil {
		if err := s.variants.Refresh(ctx); err != nil {
			s.logger.Warn("loading approved variants; suppression disabled for this pass", "error", err)
		}
		for id, candidates := range outliers {
			kept := candidates[:0]
			for _, o := range candidates {
				if s.variants.IsSuppressed(o.PatternID, o.File, o.Range) {
					results.Suppressed = append(results.Suppressed, SuppressedCandidate{
						PatternID: o.PatternID,
						File:      o.File,
						Range:     o.Range,
						Variant:   o.VariantSignature,
					})
					continue
				}
				kept = append(kept, o)
			}
			outliers[id] = kept
		}
	}
	results.Stats.ViolationsSuppressed = len(results.Suppressed)

	if s.engine == nil {
		return
	}

	var hist rules.History
	if s.store != nil {
		hist = storeHistory{s.store}
	}
	eval, err := s.engine.Evaluate(ctx, patterns, outliers, hist)
	if err != nil {
		// Non-recoverable evaluation failure: surface it and keep whatever
		// was already assembled.
		s.logger.Error("rule evaluation aborted", "error", err)
		results.Errors = append(results.Errors, ScanError{
			Type: ErrTypeUnknown, Err: err, Message: err.Error(),
		})
		return
	}
	for _, e := range eval.Errors {
		s.logger.Warn("recoverable evaluation error", "rule", e.Rule, "error", e.Err)
	}
	results.Summary = eval.Summary

	violations := eval.Violations
	if s.fixes != nil {
		patternByID := make(map[string]types.AggregatedPattern, len(patterns))
		for _, p := range patterns {
			patternByID[p.ID] = p
		}
		obsByViolation := make(map[string]types.PatternObservation)
		for id, candidates := range outliers {
			for _, o := range candidates {
				obsByViolation[rules.ViolationID(o.File, id, o.Range)] = o
			}
		}
		for i := range violations {
			v := &violations[i]
			v.QuickFixes = s.fixes.Generate(*v, patternByID[v.PatternID], obsByViolation[v.ID])
		}
	}

	violations = append(violations, normalizeRaw(rawViolations)...)
	results.Violations = violations
	results.Stats.ViolationsFound = len(violations)
}

// normalizeRaw fills in ids and defaults for detector-asserted violations so
// they are stable and comparable with engine-produced ones.
func normalizeRaw(raw []types.Violation) []types.Violation {
	for i := range raw {
		v := &raw[i]
		if v.ID == "" {
			v.ID = rules.ViolationID(v.File, v.PatternID, v.Range)
		}
		if !v.Severity.Valid() {
			v.Severity = types.SeverityWarning
		}
		if v.Occurrences == 0 {
			v.Occurrences = 1
		}
	}
	sort.Slice(raw, func(i, j int) bool {
		if raw[i].File != raw[j].File {
			return raw[i].File < raw[j].File
		}
		return raw[i].ID < raw[j].ID
	})
	return raw
}

// persist writes the pass outcome. Only the orchestrator writes, and only
// after the pass is complete.
func (s *Service) persist(ctx context.Context, results *ScanResults) error {
	if err := s.store.ReplacePatterns(ctx, results.Patterns); err != nil {
		return err
	}
	activeIDs := make([]string, 0, len(results.Violations))
	for i := range results.Violations {
		v := &results.Violations[i]
		if err := s.store.UpsertViolation(ctx, v); err != nil {
			return err
		}
		activeIDs = append(activeIDs, v.ID)
	}

	// Files that failed to read produced no observations this pass. Their
	// stored violations have not been verified gone, so keep them active
	// rather than letting ResolveMissing close them.
	if errored := erroredFiles(results.Errors); len(errored) > 0 {
		prior, err := s.store.ListActiveViolations(ctx)
		if err != nil {
			return err
		}
		for _, v := range prior {
			if errored[v.File] {
				activeIDs = append(activeIDs, v.ID)
			}
		}
	}

	resolved, err := s.store.ResolveMissing(ctx, activeIDs, time.Now().UTC())
	if err != nil {
		return err
	}
	results.Stats.ViolationsResolved = resolved
	return nil
}

// erroredFiles collects the paths of files whose errors carry a file, so
// persistence can exempt their stored violations from resolution.
func erroredFiles(errs []ScanError) map[string]bool {
	files := make(map[string]bool, len(errs))
	for _, e := range errs {
		if e.File != "" {
			files[e.File] = true
		}
	}
	return files
}

// storeHistory adapts the storage layer to the rule engine's History.
type storeHistory struct {
	store storage.Store
}

func (h storeHistory) Lookup(ctx context.Context, id string) (*rules.Record, error) {
	firstSeen, occurrences, ok, err := h.store.GetViolationHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &rules.Record{FirstSeen: firstSeen, Occurrences: occurrences}, nil
}

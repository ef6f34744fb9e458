// Package detect defines the boundary between the driftlint core and the
// pattern detectors that feed it. A detector examines one file at a time and
// emits raw pattern observations; it never sees cross-file state. The core
// treats detectors as opaque, possibly-fallible functions: a detector may
// return an error or an empty result, and neither aborts a scan.
package detect

import (
	"context"

	"github.com/driftlint/driftlint/internal/types"
)

// FileContext is everything a detector receives about one file. The core
// hands detectors raw content and identity; it never parses source itself.
type FileContext struct {
	// Path is the absolute path on disk.
	Path string

	// RelPath is the path relative to the project root. Observations must
	// reference files by RelPath so results are machine-independent.
	RelPath string

	// Language is the detected source language, e.g. "go", "typescript".
	Language string

	// Content is the full file content.
	Content []byte

	// ContentHash is the hex sha256 of Content.
	ContentHash string

	// ProjectRoot is the absolute project root directory.
	ProjectRoot string
}

// DetectorResult is what one detector returns for one file.
type DetectorResult struct {
	// Observations are pattern sightings for aggregation.
	Observations []types.PatternObservation

	// RawViolations are violations the detector asserts directly, without
	// waiting for cross-file aggregation (e.g. a syntax-level rule).
	RawViolations []types.Violation

	// Confidence is the detector's overall confidence in this file's result.
	Confidence float64

	// Metadata carries category-specific detail for downstream consumers.
	Metadata *types.DetectorMetadata
}

// Detector extracts raw pattern observations from one file.
//
// Detectors must be side-effect-free with respect to cross-file state: any
// shared statistics are computed by the aggregator after collection, never
// inside a detector. Warmup may be called once per scan worker and must be
// safe to invoke repeatedly.
type Detector interface {
	// Name returns the unique identifier for this detector.
	Name() string

	// Category returns the pattern category this detector feeds,
	// e.g. "error-handling", "naming", "imports".
	Category() string

	// Languages returns the languages this detector understands.
	// An empty slice means all languages.
	Languages() []string

	// Warmup loads or initializes any per-worker state (compiled queries,
	// grammars, caches). Idempotent.
	Warmup(ctx context.Context) error

	// Detect examines one file and returns observations. Returning an error
	// marks the file as failed for this detector without aborting the batch.
	Detect(ctx context.Context, file FileContext) (*DetectorResult, error)
}

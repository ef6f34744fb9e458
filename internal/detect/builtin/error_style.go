package builtin

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/driftlint/driftlint/internal/detect"
	"github.com/driftlint/driftlint/internal/types"
)

const (
	patternErrorHandling = "error-handling-style"

	variantTryCatch     = "try-catch"
	variantPromiseCatch = "promise-catch"
)

// ErrorStyleDetector observes how a JavaScript/TypeScript file handles
// asynchronous errors: structured try/catch blocks vs .catch() chaining.
type ErrorStyleDetector struct {
	warmup sync.Once

	tryRe   *regexp.Regexp
	catchRe *regexp.Regexp
}

// NewErrorStyleDetector creates the error-handling style detector.
func NewErrorStyleDetector() *ErrorStyleDetector {
	return &ErrorStyleDetector{}
}

// Name implements detect.Detector.
func (d *ErrorStyleDetector) Name() string { return "error_style" }

// Category implements detect.Detector.
func (d *ErrorStyleDetector) Category() string { return "error-handling" }

// Languages implements detect.Detector.
func (d *ErrorStyleDetector) Languages() []string {
	return []string{"javascript", "typescript"}
}

// Warmup implements detect.Detector.
func (d *ErrorStyleDetector) Warmup(ctx context.Context) error {
	d.warmup.Do(func() {
		d.tryRe = regexp.MustCompile(`^\s*try\s*\{`)
		d.catchRe = regexp.MustCompile(`\.catch\s*\(`)
	})
	return nil
}

// Detect implements detect.Detector.
func (d *ErrorStyleDetector) Detect(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error) {
	if err := d.Warmup(ctx); err != nil {
		return nil, err
	}

	result := &detect.DetectorResult{Confidence: 0.9}
	meta := &types.ErrorHandlingMetadata{}

	lines := strings.Split(string(file.Content), "\n")
	for i, line := range lines {
		if loc := d.tryRe.FindStringIndex(line); loc != nil {
			meta.TryCatchBlocks++
			result.Observations = append(result.Observations, observation(
				patternErrorHandling, d.Category(), file.RelPath,
				lineRange(i, loc[0], loc[1]),
				variantTryCatch, "try/catch", 0.9,
			))
		}
		if loc := d.catchRe.FindStringIndex(line); loc != nil {
			meta.PromiseChains++
			result.Observations = append(result.Observations, observation(
				patternErrorHandling, d.Category(), file.RelPath,
				lineRange(i, loc[0], loc[1]),
				variantPromiseCatch, ".catch() chaining", 0.9,
			))
		}
	}

	result.Metadata = &types.DetectorMetadata{
		Category:      d.Category(),
		ErrorHandling: meta,
	}
	return result, nil
}

// observation builds a PatternObservation with the common fields filled in.
func observation(patternID, category, file string, r types.Range, sig, desc string, conf float64) types.PatternObservation {
	return types.PatternObservation{
		PatternID:          patternID,
		Category:           category,
		File:               file,
		Range:              r,
		VariantSignature:   sig,
		VariantDescription: desc,
		Confidence:         conf,
	}
}

// lineRange builds a single-line range at zero-indexed line i.
func lineRange(i, startChar, endChar int) types.Range {
	return types.Range{
		Start: types.Position{Line: i, Character: startChar},
		End:   types.Position{Line: i, Character: endChar},
	}
}

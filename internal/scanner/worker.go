package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"

	"github.com/driftlint/driftlint/internal/detect"
)

// worker processes files one at a time. Each pool goroutine owns exactly one
// worker, so per-worker detector warmup state is never shared.
type worker struct {
	registry    *detect.Registry
	projectRoot string
	logger      *slog.Logger
	warmed      map[string]bool
}

func newWorker(registry *detect.Registry, projectRoot string, logger *slog.Logger) *worker {
	return &worker{
		registry:    registry,
		projectRoot: projectRoot,
		logger:      logger,
		warmed:      make(map[string]bool),
	}
}

// warmup initializes every registered detector once for this worker. A
// detector that fails warmup is retried lazily on first use.
func (w *worker) warmup(ctx context.Context) {
	for _, name := range w.registry.Names() {
		d, _ := w.registry.Get(name)
		if err := d.Warmup(ctx); err != nil {
			w.logger.Warn("detector warmup failed", "detector", name, "error", err)
			continue
		}
		w.warmed[name] = true
	}
}

// process reads one file and runs every applicable detector over it. A read
// failure fails the whole file; a detector failure is recorded and the
// remaining detectors still run.
func (w *worker) process(ctx context.Context, f FileRef) WorkerFileResult {
	result := WorkerFileResult{File: f}

	content, err := os.ReadFile(f.Path)
	if err != nil {
		result.Errors = append(result.Errors, newScanError(f.RelPath, "", err))
		return result
	}

	hash := sha256.Sum256(content)
	contentHash := hex.EncodeToString(hash[:])
	if f.ContentHash != "" && f.ContentHash != contentHash {
		result.Errors = append(result.Errors, newScanError(f.RelPath, "", ErrHashMismatch))
		return result
	}

	fctx := detect.FileContext{
		Path:        f.Path,
		RelPath:     f.RelPath,
		Language:    f.Language,
		Content:     content,
		ContentHash: contentHash,
		ProjectRoot: w.projectRoot,
	}

	for _, d := range w.registry.ForLanguage(f.Language) {
		if ctx.Err() != nil {
			return result
		}
		if !w.warmed[d.Name()] {
			if err := d.Warmup(ctx); err != nil {
				result.Errors = append(result.Errors, newScanError(f.RelPath, d.Name(), err))
				continue
			}
			w.warmed[d.Name()] = true
		}

		dr, err := d.Detect(ctx, fctx)
		if err != nil {
			result.Errors = append(result.Errors, newScanError(f.RelPath, d.Name(), err))
			continue
		}
		if dr == nil {
			continue
		}
		result.Observations = append(result.Observations, dr.Observations...)
		result.RawViolations = append(result.RawViolations, dr.RawViolations...)
	}
	return result
}

package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const (
	defaultDebounce = 500 * time.Millisecond

	// Recomputes are rate-limited so a storm of file events (branch switch,
	// formatter run) produces a handful of passes rather than hundreds.
	recomputesPerSecond = 2
	recomputeBurst      = 1
)

// Watcher runs the scanner in incremental mode: an initial full pass, then
// re-scans of only the files that change, recomputing aggregation over the
// merged observation set after each delta.
type Watcher struct {
	svc      *Service
	root     string
	debounce time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	// OnResults, when set, receives the results of every recompute.
	OnResults func(*ScanResults)

	mu     sync.Mutex
	merged map[string]WorkerFileResult
}

// NewWatcher builds a watcher over the service's project root.
func NewWatcher(svc *Service) *Watcher {
	return &Watcher{
		svc:      svc,
		root:     svc.opts.ProjectRoot,
		debounce: defaultDebounce,
		limiter:  rate.NewLimiter(recomputesPerSecond, recomputeBurst),
		logger:   svc.logger,
		merged:   make(map[string]WorkerFileResult),
	}
}

// Run blocks until ctx is cancelled. It performs one full scan, then watches
// for filesystem changes and recomputes incrementally.
func (w *Watcher) Run(ctx context.Context) error {
	files, err := DiscoverFiles(w.root)
	if err != nil {
		return err
	}
	results, err := w.svc.Scan(ctx, files)
	if err != nil {
		return err
	}
	w.seed(results)
	w.emit(results)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addDirs(fsw, w.root); err != nil {
		return err
	}

	// Events are coalesced per path: a path becomes "dirty" on its first
	// event and is flushed once no event has touched it for the debounce
	// window.
	dirty := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev, dirty)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watch error", "error", err)

		case now := <-ticker.C:
			ready := w.takeReady(dirty, now)
			if len(ready) == 0 {
				continue
			}
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			w.recompute(ctx, ready)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, dirty map[string]time.Time) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirs(fsw, ev.Name); err != nil {
				w.logger.Warn("watching new directory", "dir", ev.Name, "error", err)
			}
			return
		}
	}
	if LanguageForPath(ev.Name) == "" {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		dirty[ev.Name] = time.Now()
	}
}

// takeReady removes and returns the dirty paths whose debounce window has
// elapsed.
func (w *Watcher) takeReady(dirty map[string]time.Time, now time.Time) []string {
	var ready []string
	for path, last := range dirty {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(dirty, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// recompute re-scans the changed files, folds them into the merged
// observation set, and re-runs the full aggregation and evaluation pipeline.
// Deleted files drop their observations, so violations sourced from them
// disappear on the next pass.
func (w *Watcher) recompute(ctx context.Context, paths []string) {
	var refs []FileRef
	var removed []string
	for _, path := range paths {
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if _, err := os.Stat(path); err != nil {
			removed = append(removed, rel)
			continue
		}
		refs = append(refs, FileRef{Path: path, RelPath: rel, Language: LanguageForPath(path)})
	}

	w.mu.Lock()
	for _, rel := range removed {
		delete(w.merged, rel)
	}
	w.mu.Unlock()

	results, err := w.svc.Scan(ctx, w.refsForPass(refs))
	if err != nil {
		w.logger.Warn("incremental recompute failed", "error", err)
		return
	}
	w.seed(results)
	w.emit(results)
}

// refsForPass merges the changed refs with the refs of every previously
// scanned file, so aggregation always sees the whole project.
func (w *Watcher) refsForPass(changed []FileRef) []FileRef {
	seen := make(map[string]bool, len(changed))
	refs := make([]FileRef, 0, len(changed))
	for _, r := range changed {
		seen[r.RelPath] = true
		refs = append(refs, r)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for rel, fr := range w.merged {
		if !seen[rel] {
			refs = append(refs, fr.File)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].RelPath < refs[j].RelPath })
	return refs
}

func (w *Watcher) seed(results *ScanResults) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, fr := range results.FileResults {
		if len(fr.Errors) > 0 {
			continue
		}
		w.merged[fr.File.RelPath] = fr
	}
}

func (w *Watcher) emit(results *ScanResults) {
	if w.OnResults != nil {
		w.OnResults(results)
	}
}

// addDirs registers dir and every subdirectory with the watcher, skipping
// hidden and dependency directories the discovery walk also skips.
func (w *Watcher) addDirs(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

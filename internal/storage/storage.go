// Package storage defines the persistence boundary for learned patterns,
// violation history, and approved variants. The engine only speaks to these
// narrow repository-style interfaces; the backing store is swappable.
//
// Writes happen only from the scan orchestrator after a complete pass, never
// from workers, so aggregate counts can never interleave.
package storage

import (
	"context"
	"time"

	"github.com/driftlint/driftlint/internal/storage/sqlite"
	"github.com/driftlint/driftlint/internal/types"
)

// Store is the full persistence interface.
type Store interface {
	// Patterns: the aggregated snapshot is replaced wholesale each pass.
	ReplacePatterns(ctx context.Context, patterns []types.AggregatedPattern) error
	GetPatterns(ctx context.Context) ([]types.AggregatedPattern, error)
	GetPattern(ctx context.Context, id string) (*types.AggregatedPattern, error)

	// Violations. Resolved violations keep their rows so a reappearing
	// deviation with the same id reattaches its firstSeen and occurrence
	// history.
	UpsertViolation(ctx context.Context, v *types.Violation) error
	GetViolation(ctx context.Context, id string) (*types.Violation, error)
	ListActiveViolations(ctx context.Context) ([]*types.Violation, error)
	ResolveViolation(ctx context.Context, id string, at time.Time) error

	// ResolveMissing resolves every active violation whose id is not in
	// activeIDs, returning how many were resolved. Called after a full pass;
	// deviations that disappeared from the scanned files are done.
	ResolveMissing(ctx context.Context, activeIDs []string, at time.Time) (int, error)

	// GetViolationHistory returns prior sighting data for a violation id,
	// including resolved rows. ok is false when the id has never been seen.
	GetViolationHistory(ctx context.Context, id string) (firstSeen time.Time, occurrences int, ok bool, err error)

	// Approved variants (satisfies variants.Repo).
	CreateVariant(ctx context.Context, v *types.ApprovedVariant) error
	DeleteVariant(ctx context.Context, id string) error
	ListVariants(ctx context.Context) ([]*types.ApprovedVariant, error)

	Close() error
}

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file path. The special value ":memory:"
	// creates an in-memory database, useful for tests.
	Path string
}

// DefaultConfig returns a config with the conventional database location.
func DefaultConfig() *Config {
	return &Config{Path: ".driftlint/driftlint.db"}
}

// New creates the SQLite-backed store.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	return sqlite.New(cfg.Path)
}

// Package variants records intentionally-approved deviations and suppresses
// matching violation candidates before they surface. Approved variants are
// created and destroyed only by explicit approver action, independent of scan
// cadence; suppressed candidates stay in aggregate pattern statistics so
// pattern-health metrics remain accurate.
package variants

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/driftlint/driftlint/internal/types"
)

// Repo is the persistence boundary for approved variants.
type Repo interface {
	CreateVariant(ctx context.Context, v *types.ApprovedVariant) error
	DeleteVariant(ctx context.Context, id string) error
	ListVariants(ctx context.Context) ([]*types.ApprovedVariant, error)
}

// Manager owns the approved-variant lifecycle and answers suppression checks.
// IsSuppressed works off an in-memory snapshot; call Refresh before a scan
// pass so every candidate in the pass sees the same approval set.
type Manager struct {
	repo Repo

	mu    sync.RWMutex
	cache []*types.ApprovedVariant
}

// NewManager creates a manager over the given repository.
func NewManager(repo Repo) *Manager {
	return &Manager{repo: repo}
}

// Refresh reloads the approval snapshot from the repository.
func (m *Manager) Refresh(ctx context.Context) error {
	list, err := m.repo.ListVariants(ctx)
	if err != nil {
		return fmt.Errorf("loading approved variants: %w", err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	m.mu.Lock()
	m.cache = list
	m.mu.Unlock()
	return nil
}

// Approve records a new approved deviation. The scope must name a file or a
// glob, and the reason is mandatory. Approvals are audit records, not
// silencing switches.
func (m *Manager) Approve(ctx context.Context, patternID string, scope types.VariantScope, reason, approver string) (*types.ApprovedVariant, error) {
	if patternID == "" {
		return nil, fmt.Errorf("approving variant: pattern id is required")
	}
	if reason == "" {
		return nil, fmt.Errorf("approving variant: a reason is required")
	}
	if scope.File == "" && scope.Glob == "" {
		return nil, fmt.Errorf("approving variant: scope must name a file or a glob")
	}
	if scope.Glob != "" && !doublestar.ValidatePattern(scope.Glob) {
		return nil, fmt.Errorf("approving variant: invalid glob %q", scope.Glob)
	}
	if scope.Range != nil && !scope.Range.IsValid() {
		return nil, fmt.Errorf("approving variant: invalid range %s", scope.Range)
	}

	v := &types.ApprovedVariant{
		ID:         uuid.NewString(),
		PatternID:  patternID,
		Scope:      scope,
		Reason:     reason,
		Approver:   approver,
		ApprovedAt: time.Now().UTC(),
	}
	if err := m.repo.CreateVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("storing approved variant: %w", err)
	}

	m.mu.Lock()
	m.cache = append(m.cache, v)
	m.mu.Unlock()
	return v, nil
}

// Revoke deletes an approved variant by id.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if err := m.repo.DeleteVariant(ctx, id); err != nil {
		return fmt.Errorf("revoking variant %s: %w", id, err)
	}

	m.mu.Lock()
	for i, v := range m.cache {
		if v.ID == id {
			m.cache = append(m.cache[:i], m.cache[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// List returns all approved variants.
func (m *Manager) List(ctx context.Context) ([]*types.ApprovedVariant, error) {
	return m.repo.ListVariants(ctx)
}

// IsSuppressed reports whether a violation candidate at (patternID, file,
// rng) falls within an approved variant's scope. Checked before a candidate
// outlier is materialized into a surfaced violation.
func (m *Manager) IsSuppressed(patternID, file string, rng types.Range) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.cache {
		if v.PatternID != patternID {
			continue
		}
		if !scopeMatchesFile(v.Scope, file) {
			continue
		}
		if v.Scope.Range != nil && !v.Scope.Range.Contains(rng) {
			continue
		}
		return true
	}
	return false
}

// scopeMatchesFile checks the file/glob part of a scope against a relative
// path.
func scopeMatchesFile(scope types.VariantScope, file string) bool {
	if scope.File != "" {
		return scope.File == file
	}
	if scope.Glob != "" {
		ok, err := doublestar.Match(scope.Glob, file)
		return err == nil && ok
	}
	return false
}

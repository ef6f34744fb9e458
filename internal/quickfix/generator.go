// Package quickfix produces ranked, previewable code transforms for
// violations. Fix providers are pluggable per pattern category; the generator
// ranks their candidates by confidence, breaks ties by how invasive the
// transform is, and marks exactly one candidate preferred when it clears the
// confidence floor. Fix generation failures degrade gracefully: a violation
// surfaces with no quick fix rather than failing evaluation.
package quickfix

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/driftlint/driftlint/internal/types"
)

// DefaultMinConfidence is the floor a candidate must clear to be preferred.
const DefaultMinConfidence = 0.7

// Candidate is an unranked fix proposal from a provider.
type Candidate struct {
	Title      string
	Type       types.FixType
	Edit       types.WorkspaceEdit
	Confidence float64
}

// Provider produces fix candidates for violations of one pattern category.
// An empty Category applies to every category.
type Provider interface {
	Category() string
	Provide(v types.Violation, p types.AggregatedPattern, outlier types.PatternObservation) []Candidate
}

// ContentProvider fetches current file content for preview rendering.
// Returning an error only disables the preview, never the fix.
type ContentProvider func(file string) (string, error)

// Generator ranks fix candidates and attaches previews.
type Generator struct {
	providers     []Provider
	minConfidence float64
	content       ContentProvider
	logger        *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMinConfidence overrides the preferred-candidate floor.
func WithMinConfidence(min float64) Option {
	return func(g *Generator) { g.minConfidence = min }
}

// WithContentProvider enables unified-diff previews.
func WithContentProvider(cp ContentProvider) Option {
	return func(g *Generator) { g.content = cp }
}

// WithLogger sets the logger used for degraded-fix reporting.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator builds a generator over the given providers.
func NewGenerator(providers []Provider, opts ...Option) *Generator {
	g := &Generator{
		providers:     providers,
		minConfidence: DefaultMinConfidence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the ranked quick fixes for one violation. A provider
// panic or an invalid candidate drops that candidate only.
func (g *Generator) Generate(v types.Violation, p types.AggregatedPattern, outlier types.PatternObservation) []types.QuickFix {
	var candidates []Candidate
	for _, provider := range g.providers {
		if cat := provider.Category(); cat != "" && cat != p.Category {
			continue
		}
		candidates = append(candidates, g.provide(provider, v, p, outlier)...)
	}

	var fixes []types.QuickFix
	for _, c := range candidates {
		if err := g.validate(c, v); err != nil {
			g.logger.Debug("dropping fix candidate", "violation", v.ID, "title", c.Title, "reason", err)
			continue
		}
		fixes = append(fixes, types.QuickFix{
			Title:      c.Title,
			Type:       c.Type,
			Edit:       c.Edit,
			Confidence: c.Confidence,
		})
	}
	if len(fixes) == 0 {
		return nil
	}

	// Rank: confidence descending, then least invasive fix type, then title
	// so the order is total.
	sort.Slice(fixes, func(i, j int) bool {
		if fixes[i].Confidence != fixes[j].Confidence {
			return fixes[i].Confidence > fixes[j].Confidence
		}
		if fixes[i].Type.Rank() != fixes[j].Type.Rank() {
			return fixes[i].Type.Rank() < fixes[j].Type.Rank()
		}
		return fixes[i].Title < fixes[j].Title
	})

	if fixes[0].Confidence >= g.minConfidence {
		fixes[0].IsPreferred = true
	}

	if g.content != nil {
		for i := range fixes {
			fixes[i].Preview = g.preview(fixes[i].Edit)
		}
	}
	return fixes
}

// provide invokes one provider, converting a panic into zero candidates.
func (g *Generator) provide(p Provider, v types.Violation, pattern types.AggregatedPattern, outlier types.PatternObservation) (out []Candidate) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("fix provider panicked", "violation", v.ID, "panic", fmt.Sprint(r))
			out = nil
		}
	}()
	return p.Provide(v, pattern, outlier)
}

// validate enforces the candidate contract: a known fix type, a sane
// confidence, edits confined to the violation's file, and no overlapping
// edits within a file.
func (g *Generator) validate(c Candidate, v types.Violation) error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown fix type %q", c.Type)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", c.Confidence)
	}
	if len(c.Edit.Changes) == 0 {
		return fmt.Errorf("empty edit")
	}
	for _, file := range c.Edit.Files() {
		if file != v.File {
			return fmt.Errorf("edit targets %s, violation is in %s", file, v.File)
		}
	}
	return c.Edit.Validate()
}

// Package aictx is the boundary to AI collaborators. The core never calls a
// network or inference service; it only records which capabilities an
// embedding application has registered per pattern category, and builds plain
// request payloads for violations whose availability flags are set. Actually
// sending a request is entirely the caller's business.
package aictx

import (
	"fmt"

	"github.com/driftlint/driftlint/internal/types"
)

// Capability describes what an AI collaborator offers for one category.
type Capability struct {
	Explain bool
	Fix     bool
}

// Registry is an immutable map of pattern category to registered capability.
// It satisfies the rule engine's CapabilityChecker.
type Registry struct {
	byCategory map[string]Capability
}

// NewRegistry copies the given capability map into an immutable registry.
func NewRegistry(caps map[string]Capability) *Registry {
	copied := make(map[string]Capability, len(caps))
	for k, v := range caps {
		copied[k] = v
	}
	return &Registry{byCategory: copied}
}

// CanExplain reports whether an explanation capability is registered for the
// category.
func (r *Registry) CanExplain(category string) bool {
	return r.byCategory[category].Explain
}

// CanFix reports whether a fix-generation capability is registered for the
// category.
func (r *Registry) CanFix(category string) bool {
	return r.byCategory[category].Fix
}

// ExplainRequest is the context handed to an explanation collaborator.
type ExplainRequest struct {
	Violation types.Violation         `json:"violation"`
	Pattern   types.AggregatedPattern `json:"pattern"`

	// Snippet is the source region around the violation.
	Snippet string `json:"snippet"`

	// SimilarExamples are conforming instances of the dominant variant,
	// useful for explaining what the codebase does instead.
	SimilarExamples []string `json:"similar_examples,omitempty"`
}

// FixRequest is the context handed to a fix-generation collaborator.
type FixRequest struct {
	Violation types.Violation         `json:"violation"`
	Pattern   types.AggregatedPattern `json:"pattern"`
	Snippet   string                  `json:"snippet"`

	// ExistingFixes lets the collaborator avoid proposing what the local
	// generator already produced.
	ExistingFixes []types.QuickFix `json:"existing_fixes,omitempty"`
}

// BuildExplainRequest assembles an explanation request. It refuses to build
// one for a violation whose explain flag is not set, which keeps the
// availability decision in one place.
func BuildExplainRequest(v types.Violation, p types.AggregatedPattern, snippet string, similar []string) (*ExplainRequest, error) {
	if !v.AIExplainAvailable {
		return nil, fmt.Errorf("no explanation capability registered for category %q", v.Category)
	}
	return &ExplainRequest{
		Violation:       v,
		Pattern:         p,
		Snippet:         snippet,
		SimilarExamples: similar,
	}, nil
}

// BuildFixRequest assembles a fix-generation request, guarded by the fix
// availability flag.
func BuildFixRequest(v types.Violation, p types.AggregatedPattern, snippet string) (*FixRequest, error) {
	if !v.AIFixAvailable {
		return nil, fmt.Errorf("no fix capability registered for category %q", v.Category)
	}
	return &FixRequest{
		Violation:     v,
		Pattern:       p,
		Snippet:       snippet,
		ExistingFixes: v.QuickFixes,
	}, nil
}

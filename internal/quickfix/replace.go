package quickfix

import (
	"fmt"

	"github.com/driftlint/driftlint/internal/types"
)

// ReplaceProvider offers the generic rewrite: replace the violating range
// with the dominant variant's canonical text. It only fires when the dominant
// variant's text is site-independent enough to reuse verbatim, which is why
// its confidence is modest. Category-specific providers that understand the
// construct should outrank it.
type ReplaceProvider struct {
	// Confidence assigned to generated candidates. Defaults to 0.5.
	Confidence float64
}

// Category implements Provider. The replace provider applies to every
// category.
func (p *ReplaceProvider) Category() string { return "" }

// Provide implements Provider.
func (p *ReplaceProvider) Provide(v types.Violation, pattern types.AggregatedPattern, outlier types.PatternObservation) []Candidate {
	dominant, ok := pattern.Dominant()
	if !ok || dominant.CanonicalText == "" {
		return nil
	}
	if outlier.MatchedText == "" || outlier.MatchedText == dominant.CanonicalText {
		return nil
	}

	confidence := p.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	return []Candidate{{
		Title: fmt.Sprintf("Replace with %s", pattern.DominantDescription),
		Type:  types.FixReplace,
		Edit: types.WorkspaceEdit{
			Changes: map[string][]types.TextEdit{
				v.File: {{Range: v.Range, NewText: dominant.CanonicalText}},
			},
		},
		Confidence: confidence,
	}}
}

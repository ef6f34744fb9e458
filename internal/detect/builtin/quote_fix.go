package builtin

import (
	"strings"

	"github.com/driftlint/driftlint/internal/quickfix"
	"github.com/driftlint/driftlint/internal/types"
)

// QuoteFixProvider rewrites an outlier import specifier to the dominant quote
// style. The transform swaps only the quote characters, so it is safe for any
// specifier that does not itself contain the target quote.
type QuoteFixProvider struct{}

// Category implements quickfix.Provider.
func (p *QuoteFixProvider) Category() string { return "imports" }

// Provide implements quickfix.Provider.
func (p *QuoteFixProvider) Provide(v types.Violation, pattern types.AggregatedPattern, outlier types.PatternObservation) []quickfix.Candidate {
	if pattern.ID != patternQuoteStyle || outlier.MatchedText == "" {
		return nil
	}

	var target string
	switch pattern.DominantVariant {
	case "single-quote":
		target = `'`
	case "double-quote":
		target = `"`
	default:
		return nil
	}

	spec := strings.Trim(outlier.MatchedText, `'"`)
	if strings.Contains(spec, target) {
		// Re-quoting would corrupt the specifier.
		return nil
	}

	return []quickfix.Candidate{{
		Title: "Use " + pattern.DominantDescription,
		Type:  types.FixReplace,
		Edit: types.WorkspaceEdit{
			Changes: map[string][]types.TextEdit{
				v.File: {{Range: v.Range, NewText: target + spec + target}},
			},
		},
		Confidence: 0.9,
	}}
}

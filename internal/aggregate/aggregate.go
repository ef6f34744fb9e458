// Package aggregate turns per-file pattern observations into cross-file
// learned conventions. It decides, for each pattern, which variant is
// dominant and with what confidence, and classifies everything else as an
// outlier.
//
// Aggregation is single-threaded and deterministic: the caller must hand it
// the full observation set for a pass (scanner workers have already merged
// and sorted their results), and identical input always produces identical
// output regardless of the order workers completed in.
package aggregate

import (
	"sort"

	"github.com/driftlint/driftlint/internal/types"
)

// maxEvidence caps how many sample locations a pattern retains.
const maxEvidence = 5

// Engine computes aggregated patterns from observations.
type Engine struct {
	// MinOccurrences is the significance floor: patterns with fewer total
	// observations have their confidence capped (see Score).
	MinOccurrences int
}

// New creates an aggregation engine with the given significance floor.
func New(minOccurrences int) *Engine {
	if minOccurrences < 1 {
		minOccurrences = 1
	}
	return &Engine{MinOccurrences: minOccurrences}
}

// Aggregate groups observations by pattern id, then by variant signature,
// elects a dominant variant per pattern, and scores confidence. The returned
// patterns are sorted by id.
func (e *Engine) Aggregate(observations []types.PatternObservation) []types.AggregatedPattern {
	// Sort a copy so grouping and tie-breaks never depend on input order.
	obs := make([]types.PatternObservation, len(observations))
	copy(obs, observations)
	sortObservations(obs)

	byPattern := make(map[string][]types.PatternObservation)
	var patternIDs []string
	for _, o := range obs {
		if _, seen := byPattern[o.PatternID]; !seen {
			patternIDs = append(patternIDs, o.PatternID)
		}
		byPattern[o.PatternID] = append(byPattern[o.PatternID], o)
	}
	sort.Strings(patternIDs)

	patterns := make([]types.AggregatedPattern, 0, len(patternIDs))
	for _, id := range patternIDs {
		patterns = append(patterns, e.aggregateOne(id, byPattern[id]))
	}
	return patterns
}

// aggregateOne builds one AggregatedPattern from its (sorted) observations.
func (e *Engine) aggregateOne(id string, obs []types.PatternObservation) types.AggregatedPattern {
	type variantAcc struct {
		variant   types.Variant
		firstFile string
		textMixed bool
	}

	accs := make(map[string]*variantAcc)
	var sigs []string
	for _, o := range obs {
		acc, ok := accs[o.VariantSignature]
		if !ok {
			acc = &variantAcc{
				variant: types.Variant{
					Signature:   o.VariantSignature,
					Description: o.VariantDescription,
				},
				firstFile: o.File,
			}
			accs[o.VariantSignature] = acc
			sigs = append(sigs, o.VariantSignature)
		}
		acc.variant.Occurrences++
		// CanonicalText survives only when every observation of the variant
		// carries the same source text. Site-dependent text (an import quote
		// pattern matches a different module specifier at every site) must
		// not become a rewrite target.
		if o.MatchedText != "" && !acc.textMixed {
			switch acc.variant.CanonicalText {
			case "":
				acc.variant.CanonicalText = o.MatchedText
			case o.MatchedText:
			default:
				acc.textMixed = true
				acc.variant.CanonicalText = ""
			}
		}
		if len(acc.variant.Files) == 0 || acc.variant.Files[len(acc.variant.Files)-1] != o.File {
			acc.variant.Files = append(acc.variant.Files, o.File)
		}
	}
	sort.Strings(sigs)

	// Dominant variant: highest count wins; equal counts break
	// lexicographically by signature, then by earliest file path. The
	// comparison is total, so the election is stable across runs.
	dominant := sigs[0]
	for _, sig := range sigs[1:] {
		a, b := accs[sig], accs[dominant]
		switch {
		case a.variant.Occurrences > b.variant.Occurrences:
			dominant = sig
		case a.variant.Occurrences == b.variant.Occurrences && sig < dominant:
			dominant = sig
		case a.variant.Occurrences == b.variant.Occurrences && sig == dominant && a.firstFile < b.firstFile:
			dominant = sig
		}
	}

	pattern := types.AggregatedPattern{
		ID:                  id,
		Category:            obs[0].Category,
		DominantVariant:     dominant,
		DominantDescription: accs[dominant].variant.Description,
		TotalObservations:   len(obs),
	}
	for _, sig := range sigs {
		pattern.Variants = append(pattern.Variants, accs[sig].variant)
	}
	pattern.Confidence = Score(accs[dominant].variant.Occurrences, len(obs), e.MinOccurrences)

	for _, o := range obs {
		if o.VariantSignature != dominant {
			continue
		}
		pattern.Evidence = append(pattern.Evidence, o.File+" "+o.Range.String())
		if len(pattern.Evidence) == maxEvidence {
			break
		}
	}
	return pattern
}

// Outliers returns the observations that do not match the pattern's dominant
// variant, in deterministic (file, range, signature) order. Each outlier is a
// violation candidate unless an approved variant suppresses it.
func (e *Engine) Outliers(pattern types.AggregatedPattern, observations []types.PatternObservation) []types.PatternObservation {
	var out []types.PatternObservation
	for _, o := range observations {
		if o.PatternID == pattern.ID && o.VariantSignature != pattern.DominantVariant {
			out = append(out, o)
		}
	}
	sortObservations(out)
	return out
}

// sortObservations orders observations by (pattern, file, range, signature)
// so every downstream decision sees a canonical order.
func sortObservations(obs []types.PatternObservation) {
	sort.Slice(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.PatternID != b.PatternID {
			return a.PatternID < b.PatternID
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Before(b.Range.Start)
		}
		return a.VariantSignature < b.VariantSignature
	})
}

package aggregate

// Score computes the confidence that a pattern's dominant variant is truly
// the codebase's convention.
//
// The score is the dominant variant's share of all observations, shrunk by a
// sample-size factor n/(n+shrinkage):
//
//	score = (dominant/total) * total/(total+2)
//
// Properties (tested):
//   - bounded in [0,1]
//   - monotonically non-decreasing in share (total fixed)
//   - monotonically non-decreasing in total (share fixed)
//   - approaches the raw share as total grows
//
// Below the minimum-occurrences floor the score is additionally capped at
// 0.5, so one or two files can never produce a confident judgment. The
// shrinkage constant 2 is a tuning decision, not an external contract.
func Score(dominant, total, minOccurrences int) float64 {
	if total <= 0 || dominant <= 0 {
		return 0
	}
	if dominant > total {
		dominant = total
	}

	share := float64(dominant) / float64(total)
	score := share * float64(total) / float64(total+2)

	if total < minOccurrences && score > 0.5 {
		score = 0.5
	}
	if score > 1 {
		score = 1
	}
	return score
}

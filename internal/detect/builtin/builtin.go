// Package builtin ships a small set of line-oriented detectors so driftlint
// is useful out of the box. They are intentionally shallow: real framework
// detectors plug in through the same detect.Detector interface and can do
// full parsing elsewhere. Builtins only look at lines and regexes.
package builtin

import (
	"github.com/driftlint/driftlint/internal/detect"
)

// All returns the full built-in detector set.
func All() []detect.Detector {
	return []detect.Detector{
		NewErrorStyleDetector(),
		NewQuoteStyleDetector(),
		NewIndentStyleDetector(),
	}
}

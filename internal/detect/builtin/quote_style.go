package builtin

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/driftlint/driftlint/internal/detect"
	"github.com/driftlint/driftlint/internal/types"
)

const patternQuoteStyle = "import-quote-style"

// QuoteStyleDetector observes whether import specifiers use single or double
// quotes. It supplies canonical replacement text, so outliers get an
// automatic replace fix.
type QuoteStyleDetector struct {
	warmup sync.Once

	importRe *regexp.Regexp
}

// NewQuoteStyleDetector creates the import quote style detector.
func NewQuoteStyleDetector() *QuoteStyleDetector {
	return &QuoteStyleDetector{}
}

// Name implements detect.Detector.
func (d *QuoteStyleDetector) Name() string { return "quote_style" }

// Category implements detect.Detector.
func (d *QuoteStyleDetector) Category() string { return "imports" }

// Languages implements detect.Detector.
func (d *QuoteStyleDetector) Languages() []string {
	return []string{"javascript", "typescript"}
}

// Warmup implements detect.Detector.
func (d *QuoteStyleDetector) Warmup(ctx context.Context) error {
	d.warmup.Do(func() {
		// Captures the quoted module specifier of an import or require.
		d.importRe = regexp.MustCompile(`(?:import\b[^'"]*|require\s*\()\s*(['"])([^'"]+)(['"])`)
	})
	return nil
}

// Detect implements detect.Detector.
func (d *QuoteStyleDetector) Detect(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error) {
	if err := d.Warmup(ctx); err != nil {
		return nil, err
	}

	result := &detect.DetectorResult{Confidence: 0.95}
	meta := &types.ImportMetadata{}

	lines := strings.Split(string(file.Content), "\n")
	for i, line := range lines {
		m := d.importRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		quote := line[m[2]:m[3]]
		spec := line[m[4]:m[5]]
		if strings.HasPrefix(spec, ".") {
			meta.Relative++
		} else {
			meta.Absolute++
		}

		var sig, desc string
		if quote == `'` {
			sig, desc = "single-quote", "single-quoted imports"
		} else {
			sig, desc = "double-quote", "double-quoted imports"
		}

		// Range covers the full quoted specifier so a replace fix can swap
		// the quote characters in place.
		obs := observation(
			patternQuoteStyle, d.Category(), file.RelPath,
			lineRange(i, m[2], m[7]),
			sig, desc, 0.95,
		)
		obs.MatchedText = quote + spec + quote
		result.Observations = append(result.Observations, obs)
	}

	result.Metadata = &types.DetectorMetadata{
		Category: d.Category(),
		Imports:  meta,
	}
	return result, nil
}

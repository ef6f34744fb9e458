package builtin

import (
	"context"
	"strings"

	"github.com/driftlint/driftlint/internal/detect"
	"github.com/driftlint/driftlint/internal/types"
)

const patternIndentStyle = "indent-style"

// IndentStyleDetector observes whether a file indents with tabs or spaces.
// It emits one observation per file, placed at the first indented line, so
// the learned pattern counts files rather than lines.
type IndentStyleDetector struct{}

// NewIndentStyleDetector creates the indentation style detector.
func NewIndentStyleDetector() *IndentStyleDetector {
	return &IndentStyleDetector{}
}

// Name implements detect.Detector.
func (d *IndentStyleDetector) Name() string { return "indent_style" }

// Category implements detect.Detector.
func (d *IndentStyleDetector) Category() string { return "formatting" }

// Languages implements detect.Detector.
func (d *IndentStyleDetector) Languages() []string { return nil }

// Warmup implements detect.Detector.
func (d *IndentStyleDetector) Warmup(ctx context.Context) error { return nil }

// Detect implements detect.Detector.
func (d *IndentStyleDetector) Detect(ctx context.Context, file detect.FileContext) (*detect.DetectorResult, error) {
	tabs, spaces := 0, 0
	firstTab, firstSpace := -1, -1

	lines := strings.Split(string(file.Content), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "\t"):
			tabs++
			if firstTab < 0 {
				firstTab = i
			}
		case strings.HasPrefix(line, "  "):
			spaces++
			if firstSpace < 0 {
				firstSpace = i
			}
		}
	}

	result := &detect.DetectorResult{
		Confidence: 0.8,
		Metadata: &types.DetectorMetadata{
			Category:  d.Category(),
			Structure: &types.StructureMetadata{Lines: len(lines)},
		},
	}

	if tabs == 0 && spaces == 0 {
		return result, nil
	}

	sig, desc, line := "tabs", "tab indentation", firstTab
	if spaces > tabs {
		sig, desc, line = "spaces", "space indentation", firstSpace
	}

	// Per-file majority vote. Confidence reflects how lopsided the file is.
	total := tabs + spaces
	conf := float64(max(tabs, spaces)) / float64(total)

	result.Observations = append(result.Observations, observation(
		patternIndentStyle, d.Category(), file.RelPath,
		lineRange(line, 0, 1),
		sig, desc, conf,
	))
	return result, nil
}

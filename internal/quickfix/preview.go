package quickfix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/driftlint/driftlint/internal/types"
)

// preview renders a unified diff of the edit. Any failure yields an empty
// preview; the fix itself is unaffected.
func (g *Generator) preview(edit types.WorkspaceEdit) string {
	var out strings.Builder
	for _, file := range edit.Files() {
		before, err := g.content(file)
		if err != nil {
			g.logger.Debug("skipping fix preview", "file", file, "reason", err)
			return ""
		}
		after, err := ApplyEdits(before, edit.Changes[file])
		if err != nil {
			g.logger.Debug("skipping fix preview", "file", file, "reason", err)
			return ""
		}
		edits := myers.ComputeEdits(span.URIFromPath(file), before, after)
		out.WriteString(fmt.Sprint(gotextdiff.ToUnified("a/"+file, "b/"+file, before, edits)))
	}
	return out.String()
}

// ApplyEdits applies non-overlapping text edits to content and returns the
// result. Ranges use zero-indexed line/character positions; characters index
// bytes within the line.
func ApplyEdits(content string, edits []types.TextEdit) (string, error) {
	sorted := make([]types.TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Before(sorted[j].Range.Start)
	})

	// Apply back to front so earlier offsets stay valid.
	result := content
	for i := len(sorted) - 1; i >= 0; i-- {
		ed := sorted[i]
		start, err := offsetOf(content, ed.Range.Start)
		if err != nil {
			return "", err
		}
		end, err := offsetOf(content, ed.Range.End)
		if err != nil {
			return "", err
		}
		if end < start {
			return "", fmt.Errorf("edit range %s is inverted", ed.Range)
		}
		result = result[:start] + ed.NewText + result[end:]
	}
	return result, nil
}

// offsetOf converts a position to a byte offset within content.
func offsetOf(content string, pos types.Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("negative position %d:%d", pos.Line, pos.Character)
	}
	offset := 0
	line := 0
	for line < pos.Line {
		idx := strings.IndexByte(content[offset:], '\n')
		if idx < 0 {
			return 0, fmt.Errorf("line %d past end of file", pos.Line)
		}
		offset += idx + 1
		line++
	}
	lineEnd := len(content)
	if idx := strings.IndexByte(content[offset:], '\n'); idx >= 0 {
		lineEnd = offset + idx
	}
	if offset+pos.Character > lineEnd {
		return 0, fmt.Errorf("character %d past end of line %d", pos.Character, pos.Line)
	}
	return offset + pos.Character, nil
}

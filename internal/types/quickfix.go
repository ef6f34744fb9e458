package types

import (
	"fmt"
	"sort"
)

// FixType classifies a quick fix by the kind of transform it applies.
// The order of the constants doubles as the ranking tie-break: when two
// candidates have equal confidence, the less invasive transform wins.
type FixType string

const (
	FixReplace FixType = "replace"
	FixWrap    FixType = "wrap"
	FixExtract FixType = "extract"
	FixImport  FixType = "import"
	FixRename  FixType = "rename"
	FixMove    FixType = "move"
	FixDelete  FixType = "delete"
)

// fixTypeRanks orders fix types from least to most invasive.
var fixTypeRanks = map[FixType]int{
	FixReplace: 0,
	FixWrap:    1,
	FixExtract: 2,
	FixImport:  3,
	FixRename:  4,
	FixMove:    5,
	FixDelete:  6,
}

// Rank returns the fix type's invasiveness rank (lower is less invasive).
// Unknown types rank last.
func (t FixType) Rank() int {
	if r, ok := fixTypeRanks[t]; ok {
		return r
	}
	return len(fixTypeRanks)
}

// Valid reports whether t is a known fix type.
func (t FixType) Valid() bool {
	_, ok := fixTypeRanks[t]
	return ok
}

// TextEdit replaces one range of a file with new text.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"new_text"`
}

// WorkspaceEdit is the concrete change set a quick fix applies, keyed by
// relative file path. Edits within one file must not overlap.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes"`
}

// Files returns the edited file paths in sorted order.
func (e WorkspaceEdit) Files() []string {
	files := make([]string, 0, len(e.Changes))
	for f := range e.Changes {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Validate checks that every edit targets a valid range and that edits within
// each file are non-overlapping.
func (e WorkspaceEdit) Validate() error {
	for _, file := range e.Files() {
		edits := e.Changes[file]
		for _, ed := range edits {
			if !ed.Range.IsValid() {
				return fmt.Errorf("edit in %s has invalid range %s", file, ed.Range)
			}
		}
		sorted := make([]TextEdit, len(edits))
		copy(sorted, edits)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Range.Start.Before(sorted[j].Range.Start)
		})
		for i := 1; i < len(sorted); i++ {
			if sorted[i-1].Range.Overlaps(sorted[i].Range) {
				return fmt.Errorf("overlapping edits in %s: %s and %s",
					file, sorted[i-1].Range, sorted[i].Range)
			}
		}
	}
	return nil
}

// QuickFix is one candidate transform resolving a violation. At most one
// candidate per violation is marked preferred.
type QuickFix struct {
	Title string  `json:"title"`
	Type  FixType `json:"type"`

	Edit WorkspaceEdit `json:"edit"`

	// IsPreferred marks the single top-ranked candidate above the minimum
	// confidence floor.
	IsPreferred bool `json:"is_preferred"`

	// Confidence estimates how safely the transform preserves program
	// semantics (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Preview is an optional unified diff of the change.
	Preview string `json:"preview,omitempty"`
}

package types

// DetectorMetadata carries category-specific detail a detector attaches to
// its per-file result. It is a tagged union keyed by Category: exactly one of
// the pointer arms is expected to be set, matching the category name.
type DetectorMetadata struct {
	Category string `json:"category"`

	Naming        *NamingMetadata        `json:"naming,omitempty"`
	ErrorHandling *ErrorHandlingMetadata `json:"error_handling,omitempty"`
	Imports       *ImportMetadata        `json:"imports,omitempty"`
	Structure     *StructureMetadata     `json:"structure,omitempty"`
}

// NamingMetadata summarizes identifier casing seen in one file.
type NamingMetadata struct {
	CaseCounts   map[string]int `json:"case_counts"`   // e.g. "camelCase" -> 14
	Exported     int            `json:"exported"`
	Unexported   int            `json:"unexported"`
	SampleIdents []string       `json:"sample_idents,omitempty"`
}

// ErrorHandlingMetadata summarizes error-handling constructs in one file.
type ErrorHandlingMetadata struct {
	TryCatchBlocks int  `json:"try_catch_blocks"`
	PromiseChains  int  `json:"promise_chains"`
	SwallowedCount int  `json:"swallowed_count"`
	HasGlobalHook  bool `json:"has_global_hook"`
}

// ImportMetadata summarizes import style in one file.
type ImportMetadata struct {
	Relative    int  `json:"relative"`
	Absolute    int  `json:"absolute"`
	Grouped     bool `json:"grouped"`
	MaxGroupGap int  `json:"max_group_gap"`
}

// StructureMetadata summarizes file layout facts.
type StructureMetadata struct {
	Declarations int `json:"declarations"`
	Exports      int `json:"exports"`
	Lines        int `json:"lines"`
}

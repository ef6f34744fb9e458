package detect

import (
	"fmt"
	"sort"
)

// Registry is an immutable set of detectors, constructed once and passed into
// the scanner by dependency injection. There is deliberately no package-level
// registry and no mutation after construction: every consumer sees the same
// detector set for the lifetime of a scan.
type Registry struct {
	byName map[string]Detector
	names  []string
}

// NewRegistry builds a registry from the given detectors. Duplicate names are
// rejected.
func NewRegistry(detectors ...Detector) (*Registry, error) {
	byName := make(map[string]Detector, len(detectors))
	names := make([]string, 0, len(detectors))

	for _, d := range detectors {
		name := d.Name()
		if name == "" {
			return nil, fmt.Errorf("detector with empty name (category %q)", d.Category())
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("detector %q registered twice", name)
		}
		byName[name] = d
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{byName: byName, names: names}, nil
}

// Get returns a detector by name.
func (r *Registry) Get(name string) (Detector, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns all detector names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	return len(r.byName)
}

// ForLanguage returns the detectors applicable to a language, in name order.
// Detectors with an empty language list apply to every language.
func (r *Registry) ForLanguage(language string) []Detector {
	var out []Detector
	for _, name := range r.names {
		d := r.byName[name]
		langs := d.Languages()
		if len(langs) == 0 {
			out = append(out, d)
			continue
		}
		for _, l := range langs {
			if l == language {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

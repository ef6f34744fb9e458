package aictx

import (
	"testing"

	"github.com/driftlint/driftlint/internal/types"
)

func TestRegistryCapabilities(t *testing.T) {
	r := NewRegistry(map[string]Capability{
		"error-handling": {Explain: true, Fix: true},
		"naming":         {Explain: true},
	})

	if !r.CanExplain("error-handling") || !r.CanFix("error-handling") {
		t.Error("error-handling should have both capabilities")
	}
	if !r.CanExplain("naming") {
		t.Error("naming should be explainable")
	}
	if r.CanFix("naming") {
		t.Error("naming should not be fixable")
	}
	if r.CanExplain("imports") || r.CanFix("imports") {
		t.Error("unregistered category should have no capabilities")
	}
}

func TestRegistryCopiesInput(t *testing.T) {
	caps := map[string]Capability{"x": {Explain: true}}
	r := NewRegistry(caps)

	// Mutating the caller's map must not affect the registry.
	caps["x"] = Capability{}
	if !r.CanExplain("x") {
		t.Error("registry should hold its own copy of the capability map")
	}
}

func TestBuildExplainRequestGuarded(t *testing.T) {
	v := types.Violation{Category: "error-handling"}

	if _, err := BuildExplainRequest(v, types.AggregatedPattern{}, "snippet", nil); err == nil {
		t.Error("expected error when the explain flag is unset")
	}

	v.AIExplainAvailable = true
	req, err := BuildExplainRequest(v, types.AggregatedPattern{ID: "p"}, "snippet", []string{"a.ts 1:0-1:5"})
	if err != nil {
		t.Fatalf("BuildExplainRequest: %v", err)
	}
	if req.Pattern.ID != "p" || req.Snippet != "snippet" || len(req.SimilarExamples) != 1 {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestBuildFixRequestGuarded(t *testing.T) {
	v := types.Violation{
		Category:   "imports",
		QuickFixes: []types.QuickFix{{Title: "swap quotes"}},
	}

	if _, err := BuildFixRequest(v, types.AggregatedPattern{}, "snippet"); err == nil {
		t.Error("expected error when the fix flag is unset")
	}

	v.AIFixAvailable = true
	req, err := BuildFixRequest(v, types.AggregatedPattern{}, "snippet")
	if err != nil {
		t.Fatalf("BuildFixRequest: %v", err)
	}
	if len(req.ExistingFixes) != 1 {
		t.Errorf("expected existing fixes to be carried, got %+v", req.ExistingFixes)
	}
}

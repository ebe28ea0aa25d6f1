package analyzer

import (
	"context"
	"testing"

	"indexchan/internal/core/config"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
)

func buildFixture(t *testing.T) *resolver.ReferenceGraph {
	t.Helper()
	file := &parser.File{
		Path: "app.go",
		Definitions: []parser.Definition{
			{Name: "main", FullName: "main", Kind: parser.KindFunction, Exported: false, Location: parser.Location{Line: 1}, LOC: 3},
			{Name: "helper", FullName: "helper", Kind: parser.KindFunction, Exported: false, Location: parser.Location{Line: 10}, LOC: 2},
			{Name: "orphan", FullName: "orphan", Kind: parser.KindFunction, Exported: false, Location: parser.Location{Line: 20}, LOC: 2},
		},
		References: []parser.Reference{
			{Name: "helper", Location: parser.Location{Line: 2}},
		},
	}
	rg, _ := resolver.Build([]*parser.File{file}, resolver.BuildOptions{LocalFunctionsAreTargets: true})
	return rg
}

func TestAnalyze_ReachableThroughEntryPoint(t *testing.T) {
	rg := buildFixture(t)
	cfg := config.Reachability{EntryPointNames: []string{"main"}}

	report, err := Analyze(context.Background(), rg, nil, cfg, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	mainID := resolver.EntityID("app.go#main")
	helperID := resolver.EntityID("app.go#helper")
	orphanID := resolver.EntityID("app.go#orphan")

	if !report.Reachable[mainID] {
		t.Errorf("main should be reachable as an entry point")
	}
	if !report.Reachable[helperID] {
		t.Errorf("helper should be reachable via main's call")
	}
	if report.Reachable[orphanID] {
		t.Errorf("orphan should not be reachable")
	}

	var orphanTier SafetyTier
	for _, d := range report.Dead {
		if d.ID == orphanID {
			orphanTier = d.Tier
		}
	}
	if orphanTier != DefinitelySafe {
		t.Errorf("orphan should classify as DEFINITELY_SAFE, got %s", orphanTier)
	}
}

func TestAnalyze_UnresolvedReferenceDowngradesSafety(t *testing.T) {
	rg := buildFixture(t)
	cfg := config.Reachability{EntryPointNames: []string{"main"}}
	unresolved := []resolver.UnresolvedReference{
		{Reference: parser.Reference{Name: "orphan"}, File: "app.go"},
	}

	report, err := Analyze(context.Background(), rg, unresolved, cfg, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	orphanID := resolver.EntityID("app.go#orphan")
	var tier SafetyTier
	for _, d := range report.Dead {
		if d.ID == orphanID {
			tier = d.Tier
		}
	}
	if tier != NeedsReview {
		t.Errorf("orphan sharing a name with an unresolved reference should be NEEDS_REVIEW, got %s", tier)
	}
}

func TestAnalyze_TestPathMarkerDowngradesSafety(t *testing.T) {
	file := &parser.File{
		Path: "pkg/app_test.go",
		Definitions: []parser.Definition{
			{Name: "helperForTest", FullName: "helperForTest", Kind: parser.KindFunction, Location: parser.Location{Line: 1}, LOC: 2},
		},
	}
	rg, _ := resolver.Build([]*parser.File{file}, resolver.BuildOptions{LocalFunctionsAreTargets: true})
	cfg := config.Reachability{TestPathMarkers: []string{"test"}}

	report, err := Analyze(context.Background(), rg, nil, cfg, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	id := resolver.EntityID("pkg/app_test.go#helperForTest")

	var tier SafetyTier
	for _, d := range report.Dead {
		if d.ID == id {
			tier = d.Tier
		}
	}
	if tier != NeedsReview {
		t.Errorf("entity under a test path marker should be NEEDS_REVIEW, got %s", tier)
	}
}

type stubOracle struct {
	category   OracleCategory
	confidence float64
}

func (s stubOracle) Classify(context.Context, OracleRequest) (OracleVerdict, error) {
	return OracleVerdict{Category: s.category, Confidence: s.confidence}, nil
}

func TestApplyOracle_HighConfidenceKeepPromotesToNeedsReview(t *testing.T) {
	ent := &resolver.Entity{Definition: parser.Definition{Name: "x"}}
	tier, reason, err := applyOracle(context.Background(), stubOracle{category: OracleKeepForFuture, confidence: 0.99}, "x", ent, DefinitelySafe, "not reachable")
	if err != nil {
		t.Fatalf("applyOracle: %v", err)
	}
	if tier != NeedsReview {
		t.Errorf("expected NeedsReview, got %s", tier)
	}
	if reason == "not reachable" {
		t.Errorf("expected reason to be annotated with the oracle's input")
	}
}

func TestApplyOracle_HighConfidenceSafeToDeleteDemotesReviewToProbablySafe(t *testing.T) {
	ent := &resolver.Entity{Definition: parser.Definition{Name: "x"}}
	tier, _, err := applyOracle(context.Background(), stubOracle{category: OracleSafeToDelete, confidence: 0.99}, "x", ent, NeedsReview, "exported")
	if err != nil {
		t.Fatalf("applyOracle: %v", err)
	}
	if tier != ProbablySafe {
		t.Errorf("expected ProbablySafe, got %s", tier)
	}
}

func TestApplyOracle_SafeToDeleteNeverDemotesToDefinitelySafe(t *testing.T) {
	ent := &resolver.Entity{Definition: parser.Definition{Name: "x"}}
	tier, _, err := applyOracle(context.Background(), stubOracle{category: OracleSafeToDelete, confidence: 0.99}, "x", ent, DefinitelySafe, "not reachable")
	if err != nil {
		t.Fatalf("applyOracle: %v", err)
	}
	if tier != DefinitelySafe {
		t.Errorf("expected tier to stay DefinitelySafe, got %s", tier)
	}
}

func TestApplyOracle_LowConfidenceLeavesTierUnchanged(t *testing.T) {
	ent := &resolver.Entity{Definition: parser.Definition{Name: "x"}}
	tier, reason, err := applyOracle(context.Background(), stubOracle{category: OracleKeepForFuture, confidence: 0.1}, "x", ent, DefinitelySafe, "not reachable")
	if err != nil {
		t.Fatalf("applyOracle: %v", err)
	}
	if tier != DefinitelySafe || reason != "not reachable" {
		t.Errorf("expected tier/reason unchanged when oracle confidence is below threshold")
	}
}

func TestApplyOracle_NilOracleLeavesTierUnchanged(t *testing.T) {
	ent := &resolver.Entity{Definition: parser.Definition{Name: "x"}}
	tier, reason, err := applyOracle(context.Background(), nil, "x", ent, DefinitelySafe, "not reachable")
	if err != nil {
		t.Fatalf("applyOracle: %v", err)
	}
	if tier != DefinitelySafe || reason != "not reachable" {
		t.Errorf("expected tier/reason unchanged when no oracle is configured")
	}
}

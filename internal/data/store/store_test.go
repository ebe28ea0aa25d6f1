package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"indexchan/internal/core/config"
	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	st, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func buildRefreshInputs(t *testing.T) ([]*parser.File, *resolver.ReferenceGraph, []resolver.UnresolvedReference, analyzer.Report) {
	t.Helper()
	file := &parser.File{
		Path:        "app.go",
		Language:    "go",
		ContentHash: FileHash([]byte("package app")),
		ParsedAt:    time.Unix(0, 0),
		Definitions: []parser.Definition{
			{Name: "main", FullName: "main", Kind: parser.KindFunction, Exported: false, Location: parser.Location{Line: 1}, LOC: 3},
			{Name: "helper", FullName: "helper", Kind: parser.KindFunction, Exported: false, Location: parser.Location{Line: 10}, LOC: 2},
			{Name: "Orphan", FullName: "Orphan", Kind: parser.KindFunction, Exported: true, Location: parser.Location{Line: 20}, LOC: 2},
		},
		References: []parser.Reference{
			{Name: "helper", Location: parser.Location{Line: 2}},
		},
	}
	files := []*parser.File{file}
	rg, unresolved := resolver.Build(files, resolver.BuildOptions{LocalFunctionsAreTargets: true})
	report, err := analyzer.Analyze(context.Background(), rg, unresolved, config.Reachability{EntryPointNames: []string{"main"}}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return files, rg, unresolved, report
}

func TestStore_RefreshThenKnownFiles(t *testing.T) {
	st := openTestStore(t)
	files, rg, unresolved, report := buildRefreshInputs(t)

	result, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result.FilesChanged != 1 || result.FilesAdded != 0 {
		t.Errorf("expected the new file counted as changed, got %+v", result)
	}
	if result.Entities != len(rg.Entities) {
		t.Errorf("expected %d entities, got %d", len(rg.Entities), result.Entities)
	}

	known, err := st.KnownFiles()
	if err != nil {
		t.Fatalf("known files: %v", err)
	}
	hash, ok := known["app.go"]
	if !ok {
		t.Fatalf("expected app.go to be tracked")
	}
	if hash != files[0].ContentHash {
		t.Errorf("expected stored hash %q, got %q", files[0].ContentHash, hash)
	}
}

func TestStore_RefreshIsIdempotentOnUnchangedContent(t *testing.T) {
	st := openTestStore(t)
	files, rg, unresolved, report := buildRefreshInputs(t)

	if _, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	result, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if result.FilesChanged != 0 || result.FilesUnchanged != 1 {
		t.Errorf("expected the second refresh to see no change, got %+v", result)
	}
}

func TestStore_RefreshRemovesDeletedFiles(t *testing.T) {
	st := openTestStore(t)
	files, rg, unresolved, report := buildRefreshInputs(t)
	if _, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	result, err := st.Refresh(context.Background(), nil, rg, unresolved, report, []string{"app.go"})
	if err != nil {
		t.Fatalf("refresh with removal: %v", err)
	}
	if result.FilesRemoved != 1 {
		t.Errorf("expected 1 file removed, got %d", result.FilesRemoved)
	}

	known, err := st.KnownFiles()
	if err != nil {
		t.Fatalf("known files: %v", err)
	}
	if _, ok := known["app.go"]; ok {
		t.Errorf("expected app.go to no longer be tracked")
	}
}

func TestStore_SearchMatchesByNameOrFullName(t *testing.T) {
	st := openTestStore(t)
	files, rg, unresolved, report := buildRefreshInputs(t)
	if _, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rows, err := st.Search("help")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "helper" {
		t.Fatalf("expected a single match on helper, got %+v", rows)
	}

	rows, err = st.Search("nonexistent")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no matches, got %d", len(rows))
	}
}

func TestStore_DependenciesAndDependents(t *testing.T) {
	st := openTestStore(t)
	files, rg, unresolved, report := buildRefreshInputs(t)
	if _, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	mainID := string(resolver.EntityID("app.go#main"))
	helperID := string(resolver.EntityID("app.go#helper"))

	deps, err := st.Dependencies(mainID)
	if err != nil {
		t.Fatalf("dependencies: %v", err)
	}
	if len(deps) != 1 || deps[0] != helperID {
		t.Fatalf("expected main to depend on helper, got %v", deps)
	}

	// Dependents is resolved at file granularity (any entity declared in a
	// file that contains a resolved reference to the target), so every
	// entity in app.go comes back, main among them.
	dependents, err := st.Dependents(helperID)
	if err != nil {
		t.Fatalf("dependents: %v", err)
	}
	found := false
	for _, id := range dependents {
		if id == mainID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected main among helper's dependents, got %v", dependents)
	}
}

func TestStore_StatsReportsCountsAndDeadTiers(t *testing.T) {
	st := openTestStore(t)
	files, rg, unresolved, report := buildRefreshInputs(t)
	if _, err := st.Refresh(context.Background(), files, rg, unresolved, report, nil); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	stats, err := st.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Files != 1 {
		t.Errorf("expected 1 file, got %d", stats.Files)
	}
	if stats.Entities != len(rg.Entities) {
		t.Errorf("expected %d entities, got %d", len(rg.Entities), stats.Entities)
	}
	if stats.References != 1 {
		t.Errorf("expected 1 resolved reference, got %d", stats.References)
	}
	if len(stats.DeadByTier) == 0 {
		t.Errorf("expected at least one dead-code tier to be represented")
	}
}

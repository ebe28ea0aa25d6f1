package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func deadEntity(id, file string, line, loc int, tier analyzer.SafetyTier, reason string) analyzer.DeadEntity {
	ent := &resolver.Entity{
		ID:   resolver.EntityID(id),
		File: file,
		Definition: parser.Definition{
			Name:     filepath.Base(id),
			FullName: filepath.Base(id),
			Kind:     parser.KindFunction,
			Location: parser.Location{Line: line},
			LOC:      loc,
		},
	}
	return analyzer.DeadEntity{ID: ent.ID, Entity: ent, Tier: tier, Reason: reason}
}

func TestInit_CreatesStateDirAndDefaults(t *testing.T) {
	root := t.TempDir()

	if err := Init(root); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, StateDirName, "backups")); err != nil {
		t.Errorf("expected backups directory to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, StateDirName, "config.toml")); err != nil {
		t.Errorf("expected default config.toml to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, IgnoreFileName)); err != nil {
		t.Errorf("expected default ignore file to exist: %v", err)
	}
}

func TestInit_DoesNotOverwriteExistingConfig(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("first init: %v", err)
	}
	configPath := filepath.Join(root, StateDirName, "config.toml")
	if err := os.WriteFile(configPath, []byte("custom = true\n"), 0o644); err != nil {
		t.Fatalf("overwrite config: %v", err)
	}

	if err := Init(root); err != nil {
		t.Fatalf("second init: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != "custom = true\n" {
		t.Errorf("expected a second Init to leave an existing config untouched, got %q", string(data))
	}
}

func TestEngine_CleanRemovesDefinitelySafeEntities(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "app.go", "package main\nfunc deadFunc() {}\nfunc keepFunc() {}")

	scan := ScanResult{Analysis: analyzer.Report{Dead: []analyzer.DeadEntity{
		deadEntity("app.go#deadFunc", path, 2, 1, analyzer.DefinitelySafe, "not reachable"),
	}}}

	eng := &Engine{Root: root}
	result, err := eng.Clean(scan, CleanOptions{})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(result.Removed) != 1 || len(result.Skipped) != 0 {
		t.Fatalf("expected 1 removed and 0 skipped, got %+v", result)
	}
	if result.BackupID == "" {
		t.Errorf("expected a backup id to be recorded")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cleaned file: %v", err)
	}
	if strings.Contains(string(data), "deadFunc") {
		t.Errorf("expected deadFunc to be removed, got %q", string(data))
	}
	if !strings.Contains(string(data), "keepFunc") {
		t.Errorf("expected keepFunc to survive, got %q", string(data))
	}
}

func TestEngine_CleanDryRunLeavesFilesUntouched(t *testing.T) {
	root := t.TempDir()
	original := "package main\nfunc deadFunc() {}\nfunc keepFunc() {}"
	path := writeTestFile(t, root, "app.go", original)

	scan := ScanResult{Analysis: analyzer.Report{Dead: []analyzer.DeadEntity{
		deadEntity("app.go#deadFunc", path, 2, 1, analyzer.DefinitelySafe, "not reachable"),
	}}}

	eng := &Engine{Root: root}
	result, err := eng.Clean(scan, CleanOptions{DryRun: true})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(result.Removed) != 1 {
		t.Fatalf("expected the dry run to still report 1 removable entity, got %+v", result)
	}
	if result.BackupID != "" {
		t.Errorf("expected no backup to be created on a dry run, got %q", result.BackupID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != original {
		t.Errorf("expected a dry run to leave the file untouched, got %q", string(data))
	}
}

func TestEngine_CleanSafeOnlySkipsProbablySafe(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "app.go", "package main\nfunc deadFunc() {}\nfunc maybeFunc() {}")

	scan := ScanResult{Analysis: analyzer.Report{Dead: []analyzer.DeadEntity{
		deadEntity("app.go#deadFunc", path, 2, 1, analyzer.DefinitelySafe, "not reachable"),
		deadEntity("app.go#maybeFunc", path, 3, 1, analyzer.ProbablySafe, "unresolved reference shares this name"),
	}}}

	eng := &Engine{Root: root}
	result, err := eng.Clean(scan, CleanOptions{SafeOnly: true})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0].Tier != analyzer.DefinitelySafe {
		t.Fatalf("expected only the DEFINITELY_SAFE entity removed, got %+v", result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Tier != analyzer.ProbablySafe {
		t.Fatalf("expected the PROBABLY_SAFE entity skipped, got %+v", result.Skipped)
	}
}

func TestEngine_UndoRestoresCleanedFile(t *testing.T) {
	root := t.TempDir()
	original := "package main\nfunc deadFunc() {}\nfunc keepFunc() {}"
	path := writeTestFile(t, root, "app.go", original)

	scan := ScanResult{Analysis: analyzer.Report{Dead: []analyzer.DeadEntity{
		deadEntity("app.go#deadFunc", path, 2, 1, analyzer.DefinitelySafe, "not reachable"),
	}}}

	eng := &Engine{Root: root}
	if _, err := eng.Clean(scan, CleanOptions{}); err != nil {
		t.Fatalf("clean: %v", err)
	}

	restoreResult, err := eng.Undo("")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if restoreResult.RestoredCount != 1 {
		t.Fatalf("expected 1 file restored, got %+v", restoreResult)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(data) != original {
		t.Errorf("expected undo to restore the original content, got %q", string(data))
	}
}

func TestEngine_AnnotateInsertsMarkerAboveNeedsReviewEntity(t *testing.T) {
	root := t.TempDir()
	path := writeTestFile(t, root, "app.go", "package main\nfunc maybeUnused() {}")

	scan := ScanResult{Analysis: analyzer.Report{Dead: []analyzer.DeadEntity{
		deadEntity("app.go#maybeUnused", path, 2, 1, analyzer.NeedsReview, "exported; may be used externally"),
	}}}

	eng := &Engine{Root: root}
	result, err := eng.Annotate(scan, AnnotateOptions{})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if result.Annotated[path] != 1 {
		t.Fatalf("expected 1 annotation in %s, got %+v", path, result.Annotated)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read annotated file: %v", err)
	}
	if !strings.Contains(string(data), annotationPrefix) {
		t.Errorf("expected an annotation marker comment, got %q", string(data))
	}
}

func TestEngine_AnnotateSkipsDefinitelySafeEntities(t *testing.T) {
	root := t.TempDir()
	original := "package main\nfunc deadFunc() {}"
	path := writeTestFile(t, root, "app.go", original)

	scan := ScanResult{Analysis: analyzer.Report{Dead: []analyzer.DeadEntity{
		deadEntity("app.go#deadFunc", path, 2, 1, analyzer.DefinitelySafe, "not reachable"),
	}}}

	eng := &Engine{Root: root}
	result, err := eng.Annotate(scan, AnnotateOptions{})
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if len(result.Annotated) != 0 {
		t.Errorf("expected DEFINITELY_SAFE entities to be left for clean, not annotate, got %+v", result.Annotated)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != original {
		t.Errorf("expected the file to be untouched, got %q", string(data))
	}
}

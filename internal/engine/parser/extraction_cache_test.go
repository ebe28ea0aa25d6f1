package parser

import (
	"path/filepath"
	"testing"
)

func TestExtractionCache_PutThenGetHitsMemoryTier(t *testing.T) {
	cache, err := OpenExtractionCache(filepath.Join(t.TempDir(), "cache.bolt"), 4)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	f := &File{Path: "app.go", Language: "go", ContentHash: "abc"}
	cache.Put("go", "abc", f)

	got, ok := cache.Get("go", "abc")
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if got.Path != "app.go" {
		t.Errorf("expected the cached file's path to round-trip, got %q", got.Path)
	}
}

func TestExtractionCache_MissReturnsFalse(t *testing.T) {
	cache, err := OpenExtractionCache(filepath.Join(t.TempDir(), "cache.bolt"), 4)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	if _, ok := cache.Get("go", "nonexistent"); ok {
		t.Errorf("expected no hit for an unseen key")
	}
}

func TestExtractionCache_EvictionSpillsToDiskAndSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bolt")
	cache, err := OpenExtractionCache(path, 1)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	cache.Put("go", "first", &File{Path: "first.go", ContentHash: "first"})
	cache.Put("go", "second", &File{Path: "second.go", ContentHash: "second"})

	if got, ok := cache.Get("go", "second"); !ok || got.Path != "second.go" {
		t.Fatalf("expected the most recent entry to stay in memory, got %+v ok=%v", got, ok)
	}

	if err := cache.Close(); err != nil {
		t.Fatalf("close cache: %v", err)
	}

	reopened, err := OpenExtractionCache(path, 1)
	if err != nil {
		t.Fatalf("reopen cache: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("go", "first")
	if !ok {
		t.Fatalf("expected the evicted entry to have spilled to disk and survive reopen")
	}
	if got.Path != "first.go" {
		t.Errorf("expected the spilled file's path to round-trip, got %q", got.Path)
	}
}

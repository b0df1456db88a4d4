package scout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"aoe2scout/internal/domain"
)

func testNamer(name string) (string, bool) {
	if !strings.HasPrefix(name, "matches_") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "matches_"), ".json"), true
}

func TestImporterScan(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFetcher{}, &fakeResolver{})

	for _, name := range []string{"matches_u1.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var loaded []string
	load := func(path string) ([]domain.Match, error) {
		loaded = append(loaded, filepath.Base(path))
		return historyPage(t, 7).DomainMatches(), nil
	}
	im := NewImporter(svc, dir, load, testNamer, testLogger())
	im.Scan()

	if len(loaded) != 1 || loaded[0] != "matches_u1.json" {
		t.Fatalf("loaded = %v, want only matches_u1.json", loaded)
	}
	matches, _ := repo.LoadMatches("u1")
	if len(matches) != 1 || matches[0].GameID != "7" {
		t.Fatalf("stored = %v", matches)
	}

	// A second scan without file changes is a no-op.
	im.Scan()
	if len(loaded) != 1 {
		t.Errorf("rescan reloaded unchanged file: %v", loaded)
	}
}

func TestImporterStopCancelsPendingImports(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFetcher{}, &fakeResolver{})
	if err := os.WriteFile(filepath.Join(dir, "matches_u1.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	loads := 0
	load := func(path string) ([]domain.Match, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return nil, nil
	}
	im := NewImporter(svc, dir, load, testNamer, testLogger())

	im.scheduleImport("matches_u1.json")
	im.cancelPending()

	time.Sleep(importDebounce + 200*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if loads != 0 {
		t.Fatalf("loads = %d, want 0 after cancel", loads)
	}
}

func TestImporterLoadError(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFetcher{}, &fakeResolver{})
	if err := os.WriteFile(filepath.Join(dir, "matches_u1.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	load := func(path string) ([]domain.Match, error) {
		return nil, fmt.Errorf("bad json")
	}
	im := NewImporter(svc, dir, load, testNamer, testLogger())
	im.Scan()

	matches, _ := repo.LoadMatches("u1")
	if len(matches) != 0 {
		t.Fatalf("stored = %v, want none", matches)
	}
	// The failed file is retried on the next scan.
	im.Scan()
}

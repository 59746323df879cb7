package store

import (
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "ui-cache.json"), nil)
}

func TestGetMiss(t *testing.T) {
	s := testStore(t)
	if _, ok := s.Get("mcp-ui:search", "abc", "none"); ok {
		t.Fatal("Get on empty store = hit, want miss")
	}
}

func TestSetThenGet(t *testing.T) {
	s := testStore(t)
	s.Set("mcp-ui:search", "abc", "none", "<html></html>")

	entry, ok := s.Get("mcp-ui:search", "abc", "none")
	if !ok {
		t.Fatal("Get after Set = miss, want hit")
	}
	if got, want := entry.HTML, "<html></html>"; got != want {
		t.Fatalf("HTML = %q, want %q", got, want)
	}
	if got, want := entry.ToolName, "mcp-ui:search"; got != want {
		t.Fatalf("ToolName = %q, want %q", got, want)
	}
	if entry.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt is zero, want stamped")
	}
}

func TestSetOverwrites(t *testing.T) {
	s := testStore(t)
	s.Set("ns", "h1", "r1", "first")
	s.Set("ns", "h1", "r1", "second")

	entry, ok := s.Get("ns", "h1", "r1")
	if !ok {
		t.Fatal("Get = miss, want hit")
	}
	if got, want := entry.HTML, "second"; got != want {
		t.Fatalf("HTML = %q, want %q", got, want)
	}
	if got, want := s.Len(), 1; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestInvalidateNamespace(t *testing.T) {
	s := testStore(t)
	s.Set("ns-a", "h1", "r1", "a1")
	s.Set("ns-a", "h2", "r1", "a2")
	s.Set("ns-b", "h1", "r1", "b1")

	if got, want := s.Invalidate("ns-a"), 2; got != want {
		t.Fatalf("Invalidate(ns-a) = %d, want %d", got, want)
	}
	if _, ok := s.Get("ns-a", "h1", "r1"); ok {
		t.Fatal("ns-a entry survived invalidation")
	}
	if _, ok := s.Get("ns-b", "h1", "r1"); !ok {
		t.Fatal("ns-b entry removed by invalidating ns-a")
	}
}

func TestInvalidateMissingNamespace(t *testing.T) {
	s := testStore(t)
	s.Set("ns", "h1", "r1", "kept")
	if got, want := s.Invalidate("other"), 0; got != want {
		t.Fatalf("Invalidate(other) = %d, want %d", got, want)
	}
	if got, want := s.Len(), 1; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ui-cache.json")

	s := New(path, nil)
	s.Set("ns", "h1", "r1", "<html>persisted</html>")

	reloaded := New(path, nil)
	reloaded.Load()

	entry, ok := reloaded.Get("ns", "h1", "r1")
	if !ok {
		t.Fatal("Get after reload = miss, want hit")
	}
	if got, want := entry.HTML, "<html>persisted</html>"; got != want {
		t.Fatalf("HTML = %q, want %q", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope.json"), nil)
	s.Load()
	if got, want := s.Len(), 0; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui-cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	s := New(path, nil)
	s.Load()
	if got, want := s.Len(), 0; got != want {
		t.Fatalf("Len() after malformed load = %d, want %d", got, want)
	}

	// The store must stay usable and able to persist again.
	s.Set("ns", "h1", "r1", "fresh")
	if _, ok := s.Get("ns", "h1", "r1"); !ok {
		t.Fatal("Set after malformed load = miss, want hit")
	}
}

func TestSaveErrorsAreSwallowed(t *testing.T) {
	// A path under a file (not a directory) cannot be created.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	s := New(filepath.Join(blocker, "ui-cache.json"), nil)
	s.Set("ns", "h1", "r1", "unpersisted")

	// In-memory state is intact even though persistence failed.
	if _, ok := s.Get("ns", "h1", "r1"); !ok {
		t.Fatal("Get after failed save = miss, want hit")
	}
}

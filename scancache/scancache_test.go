package scancache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentskills/skillrt/descriptor"
)

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	got := s.Load()
	if len(got) != 0 {
		t.Fatalf("got %d entries for a missing cache file, want 0", len(got))
	}
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	entries := map[string]Entry{
		"/skills/pdf-fill": {
			Path:  "/skills/pdf-fill",
			Hash:  "abc123",
			MTime: time.Now().Truncate(time.Second),
			Descriptor: descriptor.Descriptor{
				Name:        "pdf-fill",
				Description: "Fill PDF forms",
				Path:        "/skills/pdf-fill",
			},
		},
	}
	if err := s.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Load()
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e, ok := got["/skills/pdf-fill"]
	if !ok {
		t.Fatalf("missing expected key in loaded cache: %+v", got)
	}
	if e.Hash != "abc123" || e.Descriptor.Name != "pdf-fill" {
		t.Fatalf("round-tripped entry mismatch: %+v", e)
	}
}

func TestStore_LoadCorruptIsEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	got := s.Load()
	if len(got) != 0 {
		t.Fatalf("got %d entries for a corrupt cache file, want 0", len(got))
	}
}

func TestStore_LoadVersionMismatchIsEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	raw := []byte(`{"version": 999, "entries": [{"path": "/x", "hash": "h"}]}`)
	if err := os.WriteFile(filepath.Join(dir, fileName), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	got := s.Load()
	if len(got) != 0 {
		t.Fatalf("got %d entries for a version mismatch, want 0", len(got))
	}
}

func TestStore_AcquireLockReclaimsStale(t *testing.T) {
	if testing.Short() {
		t.Skip("reclaim waits out the real acquireLock deadline")
	}
	dir := t.TempDir()
	s := New(dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// A lockfile left behind by a crashed writer: no live process will
	// ever remove it, so Save must reclaim it once its deadline passes
	// rather than blocking forever.
	if err := os.WriteFile(s.lockPath(), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Save(map[string]Entry{}); err != nil {
		t.Fatalf("Save should reclaim a stale lock: %v", err)
	}
}

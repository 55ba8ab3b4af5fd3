package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentskills/skillrt/skillerrors"
)

func writeSkillMD(t *testing.T, dir, frontmatterBody string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw := "---\n" + frontmatterBody + "\n---\nBody text.\n"
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRepository_RefreshThenList(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkillMD(t, filepath.Join(root, "pdf-fill"), "name: pdf-fill\ndescription: Fill PDF forms")

	r := New([]string{root}, t.TempDir())
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := r.List()
	if len(got) != 1 || got[0].Name != "pdf-fill" {
		t.Fatalf("unexpected catalog: %+v", got)
	}
}

func TestRepository_ListBeforeRefreshIsEmpty(t *testing.T) {
	t.Parallel()
	r := New([]string{t.TempDir()}, t.TempDir())
	if got := r.List(); len(got) != 0 {
		t.Fatalf("got %d entries before any Refresh, want 0", len(got))
	}
}

func TestRepository_OpenUnknownSkill(t *testing.T) {
	t.Parallel()
	r := New([]string{t.TempDir()}, t.TempDir())
	if _, err := r.Open("nope", "s1"); !errors.Is(err, skillerrors.ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestRepository_OpenKnownSkillReturnsHandle(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkillMD(t, filepath.Join(root, "pdf-fill"), "name: pdf-fill\ndescription: Fill PDF forms")

	r := New([]string{root}, t.TempDir())
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	h, err := r.Open("pdf-fill", "s1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.Descriptor().Name != "pdf-fill" {
		t.Fatalf("got descriptor name %q, want pdf-fill", h.Descriptor().Name)
	}
}

func TestRepository_ToPromptJSON(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkillMD(t, filepath.Join(root, "zeta"), "name: zeta\ndescription: Z skill")
	writeSkillMD(t, filepath.Join(root, "alpha"), "name: alpha\ndescription: A skill")

	r := New([]string{root}, t.TempDir())
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	out, err := r.ToPrompt(FormatJSON)
	if err != nil {
		t.Fatalf("ToPrompt: %v", err)
	}
	var entries []promptEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("unmarshal prompt json: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "alpha" || entries[1].Name != "zeta" {
		t.Fatalf("expected entries sorted by name, got %+v", entries)
	}
}

func TestRepository_ToPromptClaudeXML(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkillMD(t, filepath.Join(root, "pdf-fill"), "name: pdf-fill\ndescription: Fill PDF forms")

	r := New([]string{root}, t.TempDir())
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	out, err := r.ToPrompt(FormatClaudeXML)
	if err != nil {
		t.Fatalf("ToPrompt: %v", err)
	}
	if !containsAll(out, "<skills>", `name="pdf-fill"`, "<description>Fill PDF forms</description>") {
		t.Fatalf("unexpected xml output: %s", out)
	}
}

func TestRepository_Validate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkillMD(t, filepath.Join(root, "pdf-fill"), "name: pdf-fill\ndescription: Fill PDF forms")

	r := New([]string{root}, t.TempDir())
	results, err := r.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(results) != 1 || results[0].Descriptor == nil || results[0].Descriptor.Name != "pdf-fill" {
		t.Fatalf("unexpected validate results: %+v", results)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

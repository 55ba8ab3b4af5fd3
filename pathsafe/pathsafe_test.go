package pathsafe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentskills/skillrt/skillerrors"
)

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_Valid(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "references", "doc.md"), "hello")

	got, err := Resolve(root, "references/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rootReal, _ := filepath.EvalSymlinks(root)
	want := filepath.Join(rootReal, "references", "doc.md")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestResolve_Rejections(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "SKILL.md"), "---\n")

	cases := []struct {
		name string
		rel  string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"dotdot", "../../etc/passwd"},
		{"dotdot-embedded", "references/../../escape"},
		{"windows-drive", `C:\Windows\System32`},
		{"windows-unc", `\\server\share`},
		{"skill-md", "SKILL.md"},
		{"skill-md-dotslash", "./SKILL.md"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(root, tc.rel)
			if err == nil {
				t.Fatalf("expected error for %q", tc.rel)
			}
			if !errors.Is(err, skillerrors.ErrPathTraversal) {
				t.Fatalf("expected ErrPathTraversal, got %v", err)
			}
		})
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	outside := t.TempDir()
	mustWriteFile(t, filepath.Join(outside, "secret.txt"), "nope")

	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Resolve(root, "link.txt")
	if err == nil {
		t.Fatalf("expected traversal error for symlink escape")
	}
	if !errors.Is(err, skillerrors.ErrPathTraversal) {
		t.Fatalf("expected ErrPathTraversal, got %v", err)
	}
}

func TestResolve_NonexistentTarget(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	got, err := Resolve(root, "scripts/new.sh")
	if err != nil {
		t.Fatalf("unexpected error for nonexistent-but-valid target: %v", err)
	}
	rootReal, _ := filepath.EvalSymlinks(root)
	want := filepath.Join(rootReal, "scripts", "new.sh")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

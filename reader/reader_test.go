package reader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentskills/skillrt/policy"
	"github.com/agentskills/skillrt/skillerrors"
)

type fakeBudget struct {
	consumed int64
}

func (b *fakeBudget) BytesConsumed() int64 { return b.consumed }
func (b *fakeBudget) Charge(n int64)       { b.consumed += n }

func writeSkill(t *testing.T, root, rel, contents string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadText_Success(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkill(t, root, "references/doc.md", "hello world")

	r := New(policy.DefaultResource())
	budget := &fakeBudget{}

	res, err := r.ReadText(budget, root, "references/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Content) != "hello world" {
		t.Fatalf("content mismatch: %q", res.Content)
	}
	if res.Truncated {
		t.Fatalf("expected not truncated")
	}
	if budget.consumed != int64(len("hello world")) {
		t.Fatalf("budget not charged correctly: %d", budget.consumed)
	}
}

func TestReadText_DisallowedExtension(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkill(t, root, "references/doc.exe", "binary-ish")

	r := New(policy.DefaultResource())
	_, err := r.ReadText(&fakeBudget{}, root, "references/doc.exe")
	if !errors.Is(err, skillerrors.ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation, got %v", err)
	}
}

func TestReadText_SessionBudgetTruncates(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkill(t, root, "references/a.txt", string(bytes.Repeat([]byte("x"), 60)))
	writeSkill(t, root, "references/b.txt", string(bytes.Repeat([]byte("y"), 60)))

	p := policy.DefaultResource()
	p.MaxTotalBytesPerSession = 100
	r := New(p)
	budget := &fakeBudget{}

	first, err := r.ReadText(budget, root, "references/a.txt")
	if err != nil {
		t.Fatalf("unexpected error on first read: %v", err)
	}
	if first.Truncated {
		t.Fatalf("first read should not truncate")
	}

	second, err := r.ReadText(budget, root, "references/b.txt")
	if err != nil {
		t.Fatalf("unexpected error on second read: %v", err)
	}
	if !second.Truncated {
		t.Fatalf("second read should truncate against session budget")
	}
	if len(second.Content) != 40 {
		t.Fatalf("expected 40-byte truncated prefix, got %d", len(second.Content))
	}
}

func TestReadText_ExactFileLimitSucceeds(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p := policy.DefaultResource()
	p.MaxFileBytes = 10
	writeSkill(t, root, "references/exact.txt", "0123456789")

	r := New(p)
	res, err := r.ReadText(&fakeBudget{}, root, "references/exact.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Fatalf("exact-size file should not be truncated")
	}
	if len(res.Content) != 10 {
		t.Fatalf("expected 10 bytes, got %d", len(res.Content))
	}
}

func TestReadText_OverFileLimitTruncates(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	p := policy.DefaultResource()
	p.MaxFileBytes = 10
	writeSkill(t, root, "references/over.txt", "01234567890123")

	r := New(p)
	res, err := r.ReadText(&fakeBudget{}, root, "references/over.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Fatalf("expected truncated")
	}
	if len(res.Content) != 10 {
		t.Fatalf("expected 10 bytes, got %d", len(res.Content))
	}
}

func TestReadBinary_DisabledPolicy(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkill(t, root, "assets/img.bin", "binarydata")

	p := policy.DefaultResource()
	p.AllowBinaryAssets = false
	r := New(p)

	_, err := r.ReadBinary(&fakeBudget{}, root, "assets/img.bin")
	if !errors.Is(err, skillerrors.ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation, got %v", err)
	}
}

func TestReadBinary_OverLimitFails(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeSkill(t, root, "assets/big.bin", string(bytes.Repeat([]byte{0x01}, 100)))

	p := policy.DefaultResource()
	p.BinaryMaxBytes = 50
	r := New(p)

	_, err := r.ReadBinary(&fakeBudget{}, root, "assets/big.bin")
	if !errors.Is(err, skillerrors.ErrResourceTooLarge) {
		t.Fatalf("expected ErrResourceTooLarge, got %v", err)
	}
}

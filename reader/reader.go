// Package reader performs bounded reads of skill reference files and
// assets, enforcing extension and size policy and charging a per-session
// byte budget.
package reader

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

	"github.com/flexigpt/llmtools-go/fstool"

	"github.com/agentskills/skillrt/pathsafe"
	"github.com/agentskills/skillrt/policy"
	"github.com/agentskills/skillrt/skillerrors"
)

// Budget is the minimal per-session byte-accounting capability the reader
// needs. session.Session satisfies it structurally; neither package
// imports the other.
type Budget interface {
	BytesConsumed() int64
	Charge(n int64)
}

// TextResult is the outcome of a successful read_text call.
type TextResult struct {
	Content   []byte
	SHA256    string
	Truncated bool
}

// BinaryResult is the outcome of a successful read_binary call.
type BinaryResult struct {
	Content []byte
	SHA256  string
}

// Reader binds a Resource policy to the filesystem.
type Reader struct {
	policy policy.Resource
}

// New constructs a Reader bound to the given resource policy.
func New(p policy.Resource) *Reader {
	return &Reader{policy: p}
}

// ReadText implements read_text: the resolved file's extension must be
// allow-listed; the file is stat'd and compared against MaxFileBytes, then
// against the session's remaining budget. When only the per-session budget
// binds (the per-file limit is satisfied), the result is truncated at the
// last valid UTF-8 boundary rather than failed.
func (r *Reader) ReadText(budget Budget, skillRoot, relPath string) (TextResult, error) {
	abs, err := pathsafe.Resolve(skillRoot, relPath)
	if err != nil {
		return TextResult{}, err
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if !r.policy.AllowsTextExtension(ext) {
		return TextResult{}, fmt.Errorf("reader: extension %q not allowed: %w", ext, skillerrors.ErrPolicyViolation)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return TextResult{}, fmt.Errorf("reader: stat: %w", err)
	}
	if info.Mode().IsDir() {
		return TextResult{}, fmt.Errorf("reader: %q is a directory: %w", relPath, skillerrors.ErrInvalidArgument)
	}

	size := info.Size()
	if size > r.policy.MaxFileBytes {
		size = r.policy.MaxFileBytes
	}

	remaining := r.policy.MaxTotalBytesPerSession - budget.BytesConsumed()
	if remaining <= 0 {
		return TextResult{}, fmt.Errorf("reader: session budget exhausted: %w", skillerrors.ErrResourceTooLarge)
	}

	truncated := false
	readLen := size
	if info.Size() > r.policy.MaxFileBytes {
		truncated = true
	}
	if readLen > remaining {
		readLen = remaining
		truncated = true
	}

	f, err := os.Open(abs)
	if err != nil {
		return TextResult{}, fmt.Errorf("reader: open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, readLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return TextResult{}, fmt.Errorf("reader: read: %w", err)
	}
	buf = buf[:n]

	if truncated {
		buf = truncateUTF8(buf)
	}

	if int64(len(buf)) == 0 && remaining < size && truncated {
		return TextResult{}, fmt.Errorf("reader: truncation yields nothing: %w", skillerrors.ErrResourceTooLarge)
	}

	sum := sha256.Sum256(buf)
	budget.Charge(int64(len(buf)))

	return TextResult{
		Content:   buf,
		SHA256:    hex.EncodeToString(sum[:]),
		Truncated: truncated,
	}, nil
}

// truncateUTF8 trims buf backward to the last byte offset that does not
// split a multi-byte UTF-8 sequence.
func truncateUTF8(buf []byte) []byte {
	if utf8.Valid(buf) {
		return buf
	}
	for i := len(buf) - 1; i >= 0 && i > len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if utf8.Valid(buf[:i]) {
				return buf[:i]
			}
			return buf[:i]
		}
	}
	return buf
}

// ReadBinary implements read_binary. Binary reads are accept-or-reject by
// size, never truncated. The actual file I/O is delegated to
// fstool.ReadFile; see DESIGN.md for why the text path above is not also
// implemented through it.
func (r *Reader) ReadBinary(budget Budget, skillRoot, relPath string) (BinaryResult, error) {
	if !r.policy.AllowBinaryAssets {
		return BinaryResult{}, fmt.Errorf("reader: binary assets disabled: %w", skillerrors.ErrPolicyViolation)
	}

	abs, err := pathsafe.Resolve(skillRoot, relPath)
	if err != nil {
		return BinaryResult{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return BinaryResult{}, fmt.Errorf("reader: stat: %w", err)
	}
	if info.Size() > r.policy.BinaryMaxBytes {
		return BinaryResult{}, fmt.Errorf("reader: binary file exceeds %d bytes: %w", r.policy.BinaryMaxBytes, skillerrors.ErrResourceTooLarge)
	}

	remaining := r.policy.MaxTotalBytesPerSession - budget.BytesConsumed()
	if info.Size() > remaining {
		return BinaryResult{}, fmt.Errorf("reader: session budget insufficient for binary read: %w", skillerrors.ErrResourceTooLarge)
	}

	out, err := fstool.ReadFile(context.Background(), fstool.ReadFileArgs{
		Path:     abs,
		Encoding: "binary",
	})
	if err != nil {
		return BinaryResult{}, fmt.Errorf("reader: fstool read: %w", err)
	}
	content, err := binaryContentFrom(out)
	if err != nil {
		return BinaryResult{}, fmt.Errorf("reader: fstool output: %w", err)
	}

	sum := sha256.Sum256(content)
	budget.Charge(int64(len(content)))

	return BinaryResult{
		Content: content,
		SHA256:  hex.EncodeToString(sum[:]),
	}, nil
}

// binaryContentFrom extracts raw bytes from fstool's text-only output
// union: a binary-encoding read comes back as a base64 text item.
func binaryContentFrom(out []llmtoolsgoSpec.ToolStoreOutputUnion) ([]byte, error) {
	for _, item := range out {
		if item.Kind == llmtoolsgoSpec.ToolStoreOutputKindText && item.TextItem != nil {
			return base64.StdEncoding.DecodeString(item.TextItem.Text)
		}
	}
	return nil, fmt.Errorf("no text item in fstool output")
}

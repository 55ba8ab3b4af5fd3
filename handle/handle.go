// Package handle implements the lazy, progressive-disclosure accessor: a
// transient object bound to one descriptor and the runtime's
// policy/reader/runner, memoizing the SKILL.md body on first access.
package handle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentskills/skillrt/descriptor"
	"github.com/agentskills/skillrt/frontmatter"
	"github.com/agentskills/skillrt/reader"
	"github.com/agentskills/skillrt/runner"
	"github.com/agentskills/skillrt/skillerrors"
)

const skillMDName = "SKILL.md"

// Handle binds one descriptor to the shared reader/runner, lazily
// materializing its body. A Handle holds a session identifier rather than
// a pointer to a Session: the session manager resolves it at call time,
// which keeps handles and sessions from owning each other.
type Handle struct {
	descriptor descriptor.Descriptor
	reader     *reader.Reader
	runner     *runner.Runner
	sessionID  string

	mu   sync.Mutex
	body string
	have bool
}

// New binds a descriptor to the shared reader and runner for one session.
func New(d descriptor.Descriptor, r *reader.Reader, rn *runner.Runner, sessionID string) *Handle {
	return &Handle{descriptor: d, reader: r, runner: rn, sessionID: sessionID}
}

// Descriptor returns the bound metadata.
func (h *Handle) Descriptor() descriptor.Descriptor {
	return h.descriptor
}

// Instructions returns the SKILL.md body, reading and memoizing it on
// first call. The budget's byte accounting is charged exactly once
// regardless of how many times Instructions is subsequently called.
// Re-reads SKILL.md to detect a hash mismatch against the descriptor: if
// the file has changed since the scan recorded its digest, this fails
// with ErrSkillParseError rather than silently serving stale or drifted
// content.
func (h *Handle) Instructions(budget reader.Budget) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.have {
		return h.body, nil
	}

	raw, err := os.ReadFile(skillMDPath(h.descriptor.Path))
	if err != nil {
		return "", fmt.Errorf("handle: re-read SKILL.md: %w: %w", skillerrors.ErrSkillParseError, err)
	}
	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != h.descriptor.Hash {
		return "", fmt.Errorf("handle: SKILL.md changed since scan: %w", skillerrors.ErrSkillParseError)
	}

	result, err := frontmatter.Parse(string(raw))
	if err != nil {
		return "", err
	}

	budget.Charge(int64(len(result.Body)))
	h.body = result.Body
	h.have = true
	return h.body, nil
}

// ReadReference delegates to the text reader.
func (h *Handle) ReadReference(budget reader.Budget, relPath string) (reader.TextResult, error) {
	return h.reader.ReadText(budget, h.descriptor.Path, relPath)
}

// ReadAsset delegates to the binary reader.
func (h *Handle) ReadAsset(budget reader.Budget, relPath string) (reader.BinaryResult, error) {
	return h.reader.ReadBinary(budget, h.descriptor.Path, relPath)
}

// RunScript delegates to the script runner.
func (h *Handle) RunScript(ctx context.Context, relPath string, args []string, stdin []byte, timeoutS int) (runner.ExecutionResult, error) {
	return h.runner.Run(ctx, runner.Request{
		SkillName: h.descriptor.Name,
		SkillRoot: h.descriptor.Path,
		RelPath:   relPath,
		Args:      args,
		Stdin:     stdin,
		TimeoutS:  timeoutS,
	})
}

func skillMDPath(root string) string {
	return filepath.Join(root, skillMDName)
}

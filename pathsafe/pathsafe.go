// Package pathsafe resolves a caller-supplied relative path against a
// skill root, rejecting any path that escapes the root.
package pathsafe

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentskills/skillrt/skillerrors"
)

// Resolve maps relPath onto an absolute path inside root. It rejects:
// absolute paths, any ".." component, Windows drive ("C:") or UNC ("\\")
// prefixes, direct access to SKILL.md, and any path whose resolved real
// path (after symlink expansion) does not fall under root's real path.
//
// Normalization happens after symlink resolution: the raw join is resolved
// to its real path via filepath.EvalSymlinks before the prefix check, so a
// symlink that points outside root cannot be laundered by a clean-looking
// relative path.
func Resolve(root, relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("pathsafe: empty path: %w", skillerrors.ErrPathTraversal)
	}
	if hasWindowsPrefix(relPath) {
		return "", fmt.Errorf("pathsafe: windows drive/UNC prefix rejected: %w", skillerrors.ErrPathTraversal)
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("pathsafe: absolute path rejected: %w", skillerrors.ErrPathTraversal)
	}
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == ".." {
			return "", fmt.Errorf("pathsafe: %q traversal component: %w", relPath, skillerrors.ErrPathTraversal)
		}
	}
	if isSkillMD(relPath) {
		return "", fmt.Errorf("pathsafe: SKILL.md is not reachable via read: %w", skillerrors.ErrPathTraversal)
	}

	rootReal, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("pathsafe: resolve root: %w", err)
	}
	rootReal = filepath.Clean(rootReal)

	candidate := filepath.Join(rootReal, relPath)

	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		// The target may not exist yet (callers that create files); fall
		// back to resolving the nearest existing ancestor so a dangling
		// leaf doesn't defeat the traversal check entirely.
		real, err = resolveNearestExisting(candidate)
		if err != nil {
			return "", fmt.Errorf("pathsafe: resolve: %w", err)
		}
	}
	real = filepath.Clean(real)

	if !withinRoot(rootReal, real) {
		return "", fmt.Errorf("pathsafe: %q escapes root: %w", relPath, skillerrors.ErrPathTraversal)
	}
	return real, nil
}

func resolveNearestExisting(path string) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, base), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}
		base = filepath.Join(filepath.Base(dir), base)
		dir = parent
	}
}

func withinRoot(rootReal, candidateReal string) bool {
	if candidateReal == rootReal {
		return true
	}
	rel, err := filepath.Rel(rootReal, candidateReal)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isSkillMD(relPath string) bool {
	clean := filepath.Clean(filepath.ToSlash(relPath))
	return clean == "SKILL.md" || clean == "./SKILL.md"
}

func hasWindowsPrefix(p string) bool {
	if strings.HasPrefix(p, `\\`) {
		return true
	}
	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}

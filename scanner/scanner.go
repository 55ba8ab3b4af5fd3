// Package scanner implements the skill discovery walk: for each
// configured root, enumerate immediate subdirectories containing
// SKILL.md, build a descriptor.Descriptor for each, and consult/update the
// on-disk metadata cache keyed by content hash and mtime.
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentskills/skillrt/audit"
	"github.com/agentskills/skillrt/descriptor"
	"github.com/agentskills/skillrt/frontmatter"
	"github.com/agentskills/skillrt/scancache"
	"github.com/agentskills/skillrt/skillerrors"
)

const skillMDName = "SKILL.md"

// Scanner walks configured roots and builds the skill catalog.
type Scanner struct {
	cache  *scancache.Store
	sink   audit.Sink
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithSink overrides the audit sink (default audit.Nop{}).
func WithSink(s audit.Sink) Option {
	return func(sc *Scanner) { sc.sink = s }
}

// WithLogger overrides the *slog.Logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(sc *Scanner) {
		if l != nil {
			sc.logger = l
		}
	}
}

// New returns a Scanner backed by a metadata cache under cacheDir.
func New(cacheDir string, opts ...Option) *Scanner {
	sc := &Scanner{
		cache:  scancache.New(cacheDir),
		sink:   audit.Nop{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Scan walks roots in order and returns the resulting catalog. A bad
// individual skill (parse failure, missing SKILL.md, duplicate name,
// symlink escaping every root) is logged as an audit event and omitted; it
// never aborts the scan. An empty catalog is a valid result.
func (sc *Scanner) Scan(roots []string) ([]descriptor.Descriptor, error) {
	realRoots := make([]string, 0, len(roots))
	for _, r := range roots {
		real, err := filepath.EvalSymlinks(r)
		if err != nil {
			sc.logger.Warn("scanner: root unreadable", "root", r, "error", err)
			continue
		}
		realRoots = append(realRoots, filepath.Clean(real))
	}

	cached := sc.cache.Load()
	next := map[string]scancache.Entry{}

	byName := map[string]descriptor.Descriptor{}
	order := make([]string, 0, 16)

	for _, root := range realRoots {
		entries, err := os.ReadDir(root)
		if err != nil {
			sc.logger.Warn("scanner: read root", "root", root, "error", err)
			continue
		}
		for _, entry := range entries {
			if err := sc.scanOne(root, entry, realRoots, cached, next, byName, &order); err != nil {
				sc.logger.Debug("scanner: skip candidate", "root", root, "entry", entry.Name(), "error", err)
			}
		}
	}

	if err := sc.cache.Save(next); err != nil {
		sc.logger.Warn("scanner: cache save failed", "error", err)
	}

	out := make([]descriptor.Descriptor, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func (sc *Scanner) scanOne(
	root string,
	entry os.DirEntry,
	realRoots []string,
	cached map[string]scancache.Entry,
	next map[string]scancache.Entry,
	byName map[string]descriptor.Descriptor,
	order *[]string,
) error {
	if !entry.IsDir() {
		info, err := entry.Info()
		if err != nil || info.Mode()&fs.ModeSymlink == 0 {
			return nil
		}
	}

	skillDir := filepath.Join(root, entry.Name())

	if info, err := entry.Info(); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(skillDir)
		if err != nil || !underAnyRoot(target, realRoots) {
			sc.emit(audit.KindPolicyViolation, "", skillDir, 0, "", map[string]any{
				"reason": "symlink escapes configured roots",
			})
			return fmt.Errorf("symlink %q escapes configured roots", skillDir)
		}
		skillDir = target
	}

	skillMDPath := filepath.Join(skillDir, skillMDName)
	raw, err := os.ReadFile(skillMDPath)
	if err != nil {
		sc.emit(audit.KindError, "", skillDir, 0, "", map[string]any{
			"error":  err.Error(),
			"reason": "missing SKILL.md",
		})
		return err
	}
	info, err := os.Stat(skillMDPath)
	if err != nil {
		return nil
	}

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])
	mtime := info.ModTime()

	if hit, ok := cached[skillDir]; ok && hit.Hash == hash && hit.MTime.Equal(mtime) {
		next[skillDir] = hit
		sc.emit(audit.KindScan, hit.Descriptor.Name, skillDir, int64(len(raw)), hash, map[string]any{"parsed": false})
		return sc.admit(hit.Descriptor, byName, order)
	}

	result, err := frontmatter.Parse(string(raw))
	if err != nil {
		sc.emit(audit.KindError, "", skillDir, 0, hash, map[string]any{
			"error": err.Error(),
			"kind":  string(skillerrors.KindSkillParseError),
		})
		return err
	}

	d, err := buildDescriptor(result, skillDir, hash, mtime)
	if err != nil {
		sc.emit(audit.KindError, "", skillDir, 0, hash, map[string]any{
			"error": err.Error(),
			"kind":  string(skillerrors.KindSkillParseError),
		})
		return err
	}

	next[skillDir] = scancache.Entry{Path: skillDir, Hash: hash, MTime: mtime, Descriptor: d}
	sc.emit(audit.KindScan, d.Name, skillDir, int64(len(raw)), hash, map[string]any{"parsed": true})

	return sc.admit(d, byName, order)
}

// admit applies the first-wins collision rule: a name already claimed by
// an earlier root shadows this one, which is recorded but dropped rather
// than aborting the scan.
func (sc *Scanner) admit(d descriptor.Descriptor, byName map[string]descriptor.Descriptor, order *[]string) error {
	if existing, ok := byName[d.Name]; ok {
		if existing.Path == d.Path {
			return nil // same skill seen twice (shouldn't happen, but idempotent)
		}
		sc.emit(audit.KindScan, d.Name, d.Path, 0, d.Hash, map[string]any{
			"shadowed": true,
			"by":       existing.Path,
		})
		return fmt.Errorf("%w: %q shadowed by %q", skillerrors.ErrSkillAlreadyExists, d.Name, existing.Path)
	}
	byName[d.Name] = d
	*order = append(*order, d.Name)
	return nil
}

// reservedKeys are the frontmatter keys with a dedicated Descriptor field;
// everything else folds into Descriptor.Metadata so unknown keys are
// preserved rather than dropped.
var reservedKeys = map[string]struct{}{
	"name": {}, "description": {}, "license": {}, "compatibility": {},
	"metadata": {}, "allowed_tools": {},
}

func buildDescriptor(r frontmatter.Result, skillDir, hash string, mtime time.Time) (descriptor.Descriptor, error) {
	meta := r.Metadata

	name, _ := meta["name"].(string)
	description, _ := meta["description"].(string)
	license, _ := meta["license"].(string)

	compat := asStringKeyedMap(meta["compatibility"])
	metaMap := asStringKeyedMap(meta["metadata"])
	if metaMap == nil {
		metaMap = map[string]any{}
	}
	for k, v := range meta {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		metaMap[k] = v
	}

	allowedTools := asStringSlice(meta["allowed_tools"])

	return descriptor.Descriptor{
		Name:          name,
		Description:   description,
		Path:          skillDir,
		License:       license,
		Compatibility: compat,
		Metadata:      metaMap,
		AllowedTools:  allowedTools,
		Hash:          hash,
		MTime:         mtime,
	}, nil
}

func asStringKeyedMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out
	default:
		return nil
	}
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (sc *Scanner) emit(kind audit.Kind, skill, path string, n int64, sha string, detail map[string]any) {
	sc.sink.Append(audit.Event{
		Kind:   kind,
		Skill:  skill,
		Path:   path,
		Bytes:  n,
		SHA256: sha,
		Detail: detail,
	})
}

func underAnyRoot(target string, roots []string) bool {
	target = filepath.Clean(target)
	for _, r := range roots {
		if target == r {
			return true
		}
		if strings.HasPrefix(target, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Package repository implements the top-level registry: discovery,
// lookup, and prompt-catalog materialization, owning the descriptor
// table, the policies, the reader, and the runner.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/agentskills/skillrt/audit"
	"github.com/agentskills/skillrt/descriptor"
	"github.com/agentskills/skillrt/handle"
	"github.com/agentskills/skillrt/policy"
	"github.com/agentskills/skillrt/reader"
	"github.com/agentskills/skillrt/runner"
	"github.com/agentskills/skillrt/scanner"
	"github.com/agentskills/skillrt/skillerrors"
)

// catalog is the immutable snapshot swapped atomically on Refresh (swap
// pointer / copy-on-write, never mutated in place).
type catalog struct {
	ordered []descriptor.Descriptor
	byName  map[string]descriptor.Descriptor
}

// Repository owns the descriptor table, the policies, the reader, and the
// runner.
type Repository struct {
	roots   []string
	scanner *scanner.Scanner
	reader  *reader.Reader
	runner  *runner.Runner
	sink    audit.Sink
	logger  *slog.Logger

	snapshot atomic.Pointer[catalog]
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	resource  policy.Resource
	execution policy.Execution
	sink      audit.Sink
	logger    *slog.Logger
	runnerOpt []runner.Option
}

// WithResourcePolicy overrides policy.DefaultResource().
func WithResourcePolicy(p policy.Resource) Option {
	return func(o *options) { o.resource = p }
}

// WithExecutionPolicy overrides policy.DefaultExecution().
func WithExecutionPolicy(p policy.Execution) Option {
	return func(o *options) { o.execution = p }
}

// WithSink overrides the audit sink every component reports through
// (default audit.Nop{}).
func WithSink(s audit.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithLogger overrides the *slog.Logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRunnerOptions forwards options to the underlying runner.New (e.g.
// WithInterpreter, WithSandbox), primarily for tests.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(o *options) { o.runnerOpt = append(o.runnerOpt, opts...) }
}

// New constructs a Repository over roots (first-wins on name collision,
// earlier root shadows later) with a metadata cache under cacheDir. The
// catalog starts empty; call Refresh to populate it.
func New(roots []string, cacheDir string, opts ...Option) *Repository {
	o := &options{
		resource:  policy.DefaultResource(),
		execution: policy.DefaultExecution(),
		sink:      audit.Nop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	r := &Repository{
		roots:  append([]string(nil), roots...),
		reader: reader.New(o.resource),
		runner: runner.New(o.execution, o.runnerOpt...),
		sink:   o.sink,
		logger: o.logger,
		scanner: scanner.New(cacheDir,
			scanner.WithSink(o.sink),
			scanner.WithLogger(o.logger),
		),
	}
	r.snapshot.Store(&catalog{byName: map[string]descriptor.Descriptor{}})
	return r
}

// Refresh triggers a scan of every configured root and atomically replaces
// the descriptor table, returning the new catalog.
func (r *Repository) Refresh(ctx context.Context) ([]descriptor.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	descs, err := r.scanner.Scan(r.roots)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]descriptor.Descriptor, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
	}
	r.snapshot.Store(&catalog{ordered: descs, byName: byName})

	r.sink.Append(audit.Event{Kind: audit.KindScan, Detail: map[string]any{"count": len(descs)}})
	return r.List(), nil
}

// List returns the current catalog snapshot. Callers receive deep-enough
// copies via descriptor.Clone so mutating the result cannot corrupt the
// repository's own table.
func (r *Repository) List() []descriptor.Descriptor {
	snap := r.snapshot.Load()
	out := make([]descriptor.Descriptor, len(snap.ordered))
	for i, d := range snap.ordered {
		out[i] = d.Clone()
	}
	r.sink.Append(audit.Event{Kind: audit.KindList, Detail: map[string]any{"count": len(out)}})
	return out
}

// Open returns a new Handle bound to the named skill and sessionID, or
// fails with ErrSkillNotFound.
func (r *Repository) Open(name, sessionID string) (*handle.Handle, error) {
	snap := r.snapshot.Load()
	d, ok := snap.byName[name]
	if !ok {
		r.sink.Append(audit.Event{Kind: audit.KindOpen, Skill: name, Detail: map[string]any{"found": false}})
		return nil, fmt.Errorf("repository: %q: %w", name, skillerrors.ErrSkillNotFound)
	}
	r.sink.Append(audit.Event{Kind: audit.KindOpen, Skill: name, Detail: map[string]any{"found": true}})
	return handle.New(d.Clone(), r.reader, r.runner, sessionID), nil
}

// ValidateResult is one skill's outcome from Validate: exactly one of
// Descriptor or Err is set.
type ValidateResult struct {
	Path       string
	Descriptor *descriptor.Descriptor
	Err        error
}

// Validate re-scans every root and reports one result per skill that
// scanned cleanly, for the external CLI's `validate` subcommand to render.
// Skills the scan omits (parse failures, shadowed names, escaping
// symlinks) are not listed, so Err is never set in its results; those
// problems go to the audit sink. It does not mutate the live catalog; a
// bad skill here does not disqualify the others.
func (r *Repository) Validate(ctx context.Context) ([]ValidateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	descs, err := r.scanner.Scan(r.roots)
	if err != nil {
		return nil, err
	}
	out := make([]ValidateResult, 0, len(descs))
	for i := range descs {
		d := descs[i]
		out = append(out, ValidateResult{Path: d.Path, Descriptor: &d})
	}
	return out, nil
}

// Format selects the catalog prompt encoding for ToPrompt.
type Format string

const (
	FormatClaudeXML Format = "claude_xml"
	FormatJSON      Format = "json"
)

// promptEntry is the compact catalog object returned by to_prompt("json").
type promptEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Path         string   `json:"path"`
	AllowedTools []string `json:"allowed_tools,omitempty"`
}

// ToPrompt materializes the catalog in one of two forms for inclusion in
// an agent system prompt.
func (r *Repository) ToPrompt(format Format) (string, error) {
	snap := r.snapshot.Load()
	sorted := append([]descriptor.Descriptor(nil), snap.ordered...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	switch format {
	case FormatJSON:
		entries := make([]promptEntry, 0, len(sorted))
		for _, d := range sorted {
			entries = append(entries, promptEntry{
				Name:         d.Name,
				Description:  d.Description,
				Path:         d.Path,
				AllowedTools: d.AllowedTools,
			})
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return "", fmt.Errorf("repository: marshal json prompt: %w", err)
		}
		return string(raw), nil
	case FormatClaudeXML:
		return claudeXML(sorted)
	default:
		return "", fmt.Errorf("repository: unknown prompt format %q: %w", format, skillerrors.ErrInvalidArgument)
	}
}

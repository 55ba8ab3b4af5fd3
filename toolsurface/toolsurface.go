// Package toolsurface implements the five external tools (skills.list,
// skills.activate, skills.read, skills.run, skills.search), each returning
// a single envelope.Response. This is the uniform outward boundary: every
// typed error raised by a core component is converted here, and no typed
// error crosses it.
package toolsurface

import (
	"context"
	"strings"

	"github.com/agentskills/skillrt/audit"
	"github.com/agentskills/skillrt/envelope"
	"github.com/agentskills/skillrt/reader"
	"github.com/agentskills/skillrt/repository"
	"github.com/agentskills/skillrt/session"
	"github.com/agentskills/skillrt/skillerrors"
)

// Surface binds a Repository and a session Manager into the tool surface.
type Surface struct {
	repo     *repository.Repository
	sessions *session.Manager
}

// New binds repo and sessions into a Surface.
func New(repo *repository.Repository, sessions *session.Manager) *Surface {
	return &Surface{repo: repo, sessions: sessions}
}

type listEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Path         string   `json:"path"`
	License      string   `json:"license,omitempty"`
	AllowedTools []string `json:"allowed_tools,omitempty"`
}

// List implements skills.list: no inputs, returns the current catalog.
func (s *Surface) List(sessionID string) envelope.Response {
	return envelope.Safe("", func() (envelope.Response, error) {
		descs := s.repo.List()
		entries := make([]listEntry, 0, len(descs))
		for _, d := range descs {
			entries = append(entries, listEntry{
				Name: d.Name, Description: d.Description, Path: d.Path,
				License: d.License, AllowedTools: d.AllowedTools,
			})
		}
		return envelope.Metadata("", entries, map[string]any{"count": len(entries)}), nil
	})
}

// Activate implements skills.activate: selects name and returns its
// SKILL.md body, driving the session DISCOVERED -> SELECTED ->
// INSTRUCTIONS_LOADED.
func (s *Surface) Activate(sessionID, name string) envelope.Response {
	return envelope.Safe(name, func() (envelope.Response, error) {
		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			return envelope.Response{}, err
		}

		h, err := s.repo.Open(name, sessionID)
		if err != nil {
			return envelope.Response{}, err
		}

		if sess.State() == session.StateDiscovered {
			if err := sess.Transition(session.StateSelected); err != nil {
				return envelope.Response{}, err
			}
		}
		sess.SetSkillName(name)

		body, err := h.Instructions(sess)
		if err != nil {
			return envelope.Response{}, err
		}

		if sess.State() == session.StateSelected {
			if err := sess.Transition(session.StateInstructionsLoaded); err != nil {
				return envelope.Response{}, err
			}
		}

		sess.Audit(audit.Event{Kind: audit.KindActivate, Skill: name})
		return envelope.Instructions(name, body, nil), nil
	})
}

// Read implements skills.read: serves a reference (text) or asset
// (binary) file, chosen by extension, driving the session toward
// RESOURCE_NEEDED.
func (s *Surface) Read(sessionID, name, path string) envelope.Response {
	return envelope.Safe(name, func() (envelope.Response, error) {
		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			return envelope.Response{}, err
		}
		if err := ensureState(sess, session.StateResourceNeeded); err != nil {
			return envelope.Response{}, err
		}

		h, err := s.repo.Open(name, sessionID)
		if err != nil {
			return envelope.Response{}, err
		}

		if isTextPath(path) {
			res, err := h.ReadReference(sess, path)
			if err != nil {
				sess.Audit(errorAudit(name, path, err))
				return envelope.Response{}, err
			}
			sess.Audit(audit.Event{Kind: audit.KindRead, Skill: name, Path: path, Bytes: int64(len(res.Content)), SHA256: res.SHA256})
			return envelope.Reference(name, path, res.Content, res.SHA256, res.Truncated, nil), nil
		}

		res, err := h.ReadAsset(sess, path)
		if err != nil {
			sess.Audit(errorAudit(name, path, err))
			return envelope.Response{}, err
		}
		sess.Audit(audit.Event{Kind: audit.KindRead, Skill: name, Path: path, Bytes: int64(len(res.Content)), SHA256: res.SHA256})
		return envelope.Asset(name, path, res.Content, res.SHA256, nil), nil
	})
}

// RunArgs bundles the optional inputs to skills.run.
type RunArgs struct {
	Script   string
	Args     []string
	Stdin    []byte
	TimeoutS int
}

// Run implements skills.run: executes a script under policy, driving the
// session toward SCRIPT_NEEDED. Non-zero exit and timeout are reported,
// not raised, via the envelope's content.
func (s *Surface) Run(ctx context.Context, sessionID, name string, ra RunArgs) envelope.Response {
	return envelope.Safe(name, func() (envelope.Response, error) {
		sess, err := s.sessions.Get(sessionID)
		if err != nil {
			return envelope.Response{}, err
		}
		if err := ensureState(sess, session.StateScriptNeeded); err != nil {
			return envelope.Response{}, err
		}

		h, err := s.repo.Open(name, sessionID)
		if err != nil {
			return envelope.Response{}, err
		}

		res, err := h.RunScript(ctx, ra.Script, ra.Args, ra.Stdin, ra.TimeoutS)
		if err != nil {
			sess.Audit(audit.Event{Kind: audit.KindPolicyViolation, Skill: name, Path: ra.Script, Detail: map[string]any{
				"error_type": string(skillerrors.KindOf(err)),
				"error":      err.Error(),
			}})
			return envelope.Response{}, err
		}

		sess.Audit(audit.Event{Kind: audit.KindExecute, Skill: name, Path: ra.Script, Detail: map[string]any{
			"exit_code": res.ExitCode,
		}})

		content := map[string]any{
			"exit_code":   res.ExitCode,
			"stdout":      res.Stdout,
			"stderr":      res.Stderr,
			"duration_ms": res.DurationMS,
		}
		return envelope.ExecutionResult(name, content, res.Meta), nil
	})
}

// Search implements skills.search: a name-or-query substring match over
// the catalog. name narrows to one skill's metadata; without it, every
// catalog entry whose name or description contains query (case-
// insensitive) is returned.
func (s *Surface) Search(sessionID, name, query string) envelope.Response {
	return envelope.Safe(name, func() (envelope.Response, error) {
		descs := s.repo.List()
		q := strings.ToLower(query)

		entries := make([]listEntry, 0, len(descs))
		for _, d := range descs {
			if name != "" && d.Name != name {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(d.Name), q) && !strings.Contains(strings.ToLower(d.Description), q) {
				continue
			}
			entries = append(entries, listEntry{
				Name: d.Name, Description: d.Description, Path: d.Path,
				License: d.License, AllowedTools: d.AllowedTools,
			})
		}
		return envelope.SearchResults(name, entries, map[string]any{"count": len(entries)}), nil
	})
}

// ensureState transitions sess toward target only when it isn't already
// there, so a second call that stays within the same state (e.g. two
// sequential reads while RESOURCE_NEEDED) is a no-op rather than an
// illegal self-transition.
func ensureState(sess *session.Session, target session.State) error {
	if sess.State() == target {
		return nil
	}
	return sess.Transition(target)
}

func isTextPath(path string) bool {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return false
	}
	switch strings.ToLower(path[i:]) {
	case ".md", ".txt", ".json", ".yaml", ".yml", ".csv", ".tsv", ".rst":
		return true
	default:
		return false
	}
}

func errorAudit(skill, path string, err error) audit.Event {
	return audit.Event{
		Kind:  audit.KindPolicyViolation,
		Skill: skill,
		Path:  path,
		Detail: map[string]any{
			"error_type": string(skillerrors.KindOf(err)),
			"error":      err.Error(),
		},
	}
}

// NotFoundResponse is a convenience for callers (e.g. a CLI driver) that
// need to distinguish "no such session" from a tool-level error without
// importing the session package's sentinel directly.
func NotFoundResponse(skill string) envelope.Response {
	return envelope.Error(skill, skillerrors.ErrSessionNotFound, nil)
}

// *session.Session must satisfy reader.Budget: Read delegates session
// byte accounting straight into the reader without an adapter type.
var _ reader.Budget = (*session.Session)(nil)

// Package session implements the stateful container for one agent-skill
// conversation: its state machine, its artifact store, its audit trail,
// and its per-session byte budget. A Manager allocates, looks up, and
// bounds the lifetime of sessions; see manager.go.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentskills/skillrt/audit"
	"github.com/agentskills/skillrt/skillerrors"
)

// Session is a single agent-skill conversation's state container. Each
// session is single-owner; concurrent use of one session from multiple
// threads is undefined. The mutex here guards only the invariants this
// package itself must not corrupt (state, artifacts); it is not a promise
// of safe concurrent use by callers.
type Session struct {
	id        string
	sink      audit.Sink
	createdAt time.Time

	mu        sync.Mutex
	skillName string
	state     State
	artifacts map[string]any
	updatedAt time.Time
	closed    bool

	bytesConsumed atomic.Int64
}

func newSession(id string, sink audit.Sink, now time.Time) *Session {
	return &Session{
		id:        id,
		sink:      sink,
		createdAt: now,
		updatedAt: now,
		state:     StateDiscovered,
		artifacts: map[string]any{},
	}
}

// ID returns the session's globally unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SkillName returns the currently selected skill, if any.
func (s *Session) SkillName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skillName
}

// SetSkillName records the skill selected by a SELECTED transition.
func (s *Session) SetSkillName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skillName = name
}

// CreatedAt returns the session's allocation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the most recent state transition or
// artifact write.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Transition attempts (state -> next). It rejects an edge not in the
// allowed-edge set with ErrIllegalStateTransition and leaves the session's
// state unchanged: the state field only advances on success, or when the
// caller explicitly requests the FAILED transition.
func (s *Session) Transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return skillerrors.ErrSessionClosed
	}
	if !allowedTransition(s.state, next) {
		return fmt.Errorf("session: %s -> %s: %w", s.state, next, skillerrors.ErrIllegalStateTransition)
	}
	s.state = next
	s.updatedAt = time.Now()
	return nil
}

// SetArtifact stashes value under key. Keys are unique per session;
// re-using a key returns ErrDuplicateArtifactKey rather than silently
// overwriting.
func (s *Session) SetArtifact(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return skillerrors.ErrSessionClosed
	}
	if _, exists := s.artifacts[key]; exists {
		return fmt.Errorf("session: artifact key %q: %w", key, skillerrors.ErrDuplicateArtifactKey)
	}
	s.artifacts[key] = value
	s.updatedAt = time.Now()
	return nil
}

// Artifact returns the value stashed under key, if any.
func (s *Session) Artifact(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.artifacts[key]
	return v, ok
}

// Artifacts returns a snapshot copy of every stashed artifact.
func (s *Session) Artifacts() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.artifacts))
	for k, v := range s.artifacts {
		out[k] = v
	}
	return out
}

// BytesConsumed implements reader.Budget.
func (s *Session) BytesConsumed() int64 {
	return s.bytesConsumed.Load()
}

// Charge implements reader.Budget: it debits n bytes, called only for
// bytes actually returned to the caller.
func (s *Session) Charge(n int64) {
	s.bytesConsumed.Add(n)
}

// Audit appends an audit event, stamping its timestamp if unset. Within
// one session, audit events are appended in the order their operations
// complete.
func (s *Session) Audit(e audit.Event) {
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	s.sink.Append(e)
}

// Close marks the session closed; further operations on it fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Package audit defines the append-only event record and the sink
// capability that records it. Concrete sinks (in-memory, file-backed) live
// behind the Sink interface; core components depend only on the
// capability, never on a specific backend.
package audit

import (
	"sync"
	"time"
)

// Kind enumerates the small, fixed set of audit event kinds.
type Kind string

const (
	KindScan            Kind = "scan"
	KindList            Kind = "list"
	KindOpen            Kind = "open"
	KindActivate        Kind = "activate"
	KindRead            Kind = "read"
	KindExecute         Kind = "execute"
	KindPolicyViolation Kind = "policy_violation"
	KindError           Kind = "error"
)

// Event is one append-only audit record.
type Event struct {
	TS     time.Time
	Kind   Kind
	Skill  string
	Path   string // empty when not applicable
	Bytes  int64  // zero when not applicable
	SHA256 string // empty when not applicable
	Detail map[string]any
}

// Sink is the capability an audit consumer must provide: an append-only,
// thread-safe write path. Implementations own durability; Append itself
// never fails.
type Sink interface {
	Append(e Event)
}

// Memory is a thread-safe, process-lifetime sink that retains every event
// in order. It is the sink this module's tests exercise directly; the
// components themselves default to Nop when no sink is configured.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Append records e. Safe for concurrent use by multiple goroutines. Ordering
// is only guaranteed per-session, not globally, so no additional
// synchronization with session state is attempted here.
func (m *Memory) Append(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a snapshot copy of every event appended so far, in append
// order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Nop discards every event. Useful as a default when the caller has not
// configured durability and doesn't need in-memory retention either.
type Nop struct{}

func (Nop) Append(Event) {}

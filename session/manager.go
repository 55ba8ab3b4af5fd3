package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentskills/skillrt/audit"
	"github.com/agentskills/skillrt/skillerrors"
)

// DefaultTTL and DefaultMaxSessions bound the in-memory session store so a
// long-lived process doesn't accumulate abandoned sessions forever.
// Sessions live in memory for the process lifetime by default, but an LRU
// + TTL eviction policy keeps that memory bounded.
const (
	DefaultTTL         = 24 * time.Hour
	DefaultMaxSessions = 4096
)

type item struct {
	s        *Session
	lastUsed time.Time
}

// Manager allocates sessions on demand, looks them up by ID, and bounds
// the live set with an LRU + TTL eviction policy.
type Manager struct {
	mu sync.Mutex

	sink        audit.Sink
	ttl         time.Duration
	maxSessions int

	lru *list.List
	m   map[string]*list.Element
}

// Option configures a Manager.
type Option func(*Manager)

// WithSink overrides the audit sink every allocated session writes
// through (default audit.Nop{}).
func WithSink(s audit.Sink) Option {
	return func(m *Manager) { m.sink = s }
}

// WithTTL overrides DefaultTTL. A non-positive value disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithMaxSessions overrides DefaultMaxSessions. A non-positive value
// disables the cap.
func WithMaxSessions(n int) Option {
	return func(m *Manager) { m.maxSessions = n }
}

// NewManager returns a Manager with DefaultTTL/DefaultMaxSessions unless
// overridden by opts.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sink:        audit.Nop{},
		ttl:         DefaultTTL,
		maxSessions: DefaultMaxSessions,
		lru:         list.New(),
		m:           map[string]*list.Element{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New allocates a fresh session in StateDiscovered with a UUIDv7
// identifier and places it at the front of the LRU list. Recency is
// tracked by list order plus each item's lastUsed time, not by the ID.
func (m *Manager) New() *Session {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpiredLocked(now)
	m.evictOverLimitLocked()

	id := uuid.Must(uuid.NewV7()).String()
	s := newSession(id, m.sink, now)
	e := m.lru.PushFront(&item{s: s, lastUsed: now})
	m.m[id] = e

	m.evictOverLimitLocked()
	return s
}

// Get resolves a session ID to its Session, touching it for LRU/TTL
// purposes. Returns ErrSessionNotFound for an unknown, expired, or closed
// session.
func (m *Manager) Get(id string) (*Session, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpiredLocked(now)

	e, ok := m.m[id]
	if !ok {
		return nil, skillerrors.ErrSessionNotFound
	}
	it := e.Value.(*item)
	if it.s.Closed() {
		m.deleteElemLocked(e)
		return nil, skillerrors.ErrSessionNotFound
	}

	it.lastUsed = now
	m.lru.MoveToFront(e)
	return it.s, nil
}

// Close closes and evicts a session by ID. Closing an unknown ID is a
// no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.m[id]; ok {
		m.deleteElemLocked(e)
	}
}

// Len reports the number of live (non-expired) sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpiredLocked(time.Now())
	return m.lru.Len()
}

func (m *Manager) evictExpiredLocked(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for e := m.lru.Back(); e != nil; {
		prev := e.Prev()
		it := e.Value.(*item)
		if now.Sub(it.lastUsed) <= m.ttl {
			break
		}
		m.deleteElemLocked(e)
		e = prev
	}
}

func (m *Manager) evictOverLimitLocked() {
	if m.maxSessions <= 0 {
		return
	}
	for m.lru.Len() > m.maxSessions {
		e := m.lru.Back()
		if e == nil {
			return
		}
		m.deleteElemLocked(e)
	}
}

func (m *Manager) deleteElemLocked(e *list.Element) {
	it := e.Value.(*item)
	it.s.Close()
	delete(m.m, it.s.ID())
	m.lru.Remove(e)
}

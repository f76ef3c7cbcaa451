package session

import (
	"context"
	"sync"
	"time"
)

// ManagerConfig is shared by every gate the manager creates. IdleTTL, when set, evicts gates
// nobody used for that long.
type ManagerConfig struct {
	Verifier  Verifier
	Store     Store
	Tokens    *TokenIssuer
	KeyPrefix string
	Events    EventProducer
	IdleTTL   time.Duration
}

type managedGate struct {
	gate     *Gate
	refs     int
	lastUsed time.Time
}

// Manager holds one Gate per browser client. Only gates that carry a session or serve a request
// are kept; a visitor who never logged in costs nothing after the request ends.
type Manager struct {
	cfg ManagerConfig
	now func() time.Time

	mu        sync.Mutex
	gates     map[string]*managedGate
	lastSweep time.Time
}

// NewManager returns an empty registry.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg, now: time.Now, gates: make(map[string]*managedGate)}
}

// Acquire returns the client's gate for the duration of one request; release must be called
// when the request is done. A new gate is restored from the store before it is returned; a
// known gate is revalidated so a session revoked elsewhere or expired is dropped.
func (m *Manager) Acquire(ctx context.Context, clientID string) (*Gate, func()) {
	m.mu.Lock()
	now := m.now()
	m.sweepLocked(now)
	if e, ok := m.gates[clientID]; ok {
		e.refs++
		e.lastUsed = now
		m.mu.Unlock()
		e.gate.Revalidate(ctx)
		return e.gate, m.releaser(clientID, e.gate)
	}
	g := NewGate(GateConfig{
		ClientID:  clientID,
		Verifier:  m.cfg.Verifier,
		Store:     m.cfg.Store,
		Tokens:    m.cfg.Tokens,
		KeyPrefix: m.cfg.KeyPrefix + clientID + ":",
		Events:    m.cfg.Events,
	})
	m.gates[clientID] = &managedGate{gate: g, refs: 1, lastUsed: now}
	m.mu.Unlock()

	// Concurrent requests for the same client see Loading() == true until this returns.
	g.Restore(ctx)
	return g, m.releaser(clientID, g)
}

// Gate is Acquire for callers that do not hold the gate across a request.
func (m *Manager) Gate(ctx context.Context, clientID string) *Gate {
	g, release := m.Acquire(ctx, clientID)
	release()
	return g
}

func (m *Manager) releaser(clientID string, g *Gate) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			e, ok := m.gates[clientID]
			if !ok || e.gate != g {
				return
			}
			e.refs--
			e.lastUsed = m.now()
			if e.refs == 0 && g.idle() {
				delete(m.gates, clientID)
			}
		})
	}
}

// sweepLocked evicts unused gates idle past IdleTTL, at most once per minute.
func (m *Manager) sweepLocked(now time.Time) {
	if m.cfg.IdleTTL <= 0 || now.Sub(m.lastSweep) < time.Minute {
		return
	}
	m.lastSweep = now
	for id, e := range m.gates {
		if e.refs == 0 && now.Sub(e.lastUsed) > m.cfg.IdleTTL {
			delete(m.gates, id)
		}
	}
}

// Forget drops the in-memory gate; the stored record is untouched.
func (m *Manager) Forget(clientID string) {
	m.mu.Lock()
	delete(m.gates, clientID)
	m.mu.Unlock()
}

// Len is the number of gates held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gates)
}

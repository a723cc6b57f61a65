package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/podiumlabs/podium/internal/observe"
)

// ErrSessionNotFound is returned for lookups of unknown or already removed
// session IDs.
var ErrSessionNotFound = errors.New("coach: session not found")

// Default manager parameters.
const (
	defaultIdleTimeout  = 5 * time.Minute
	defaultReapInterval = 30 * time.Second
)

// SessionFactory builds a Session for a newly assigned ID. The manager owns
// ID generation so callers cannot collide.
type SessionFactory func(id, userID, difficulty string) (*Session, error)

// ManagerConfig configures a [Manager].
type ManagerConfig struct {
	// Factory builds sessions. Required.
	Factory SessionFactory

	// IdleTimeout is how long a session may go without activity before the
	// reaper removes it. Defaults to 5m if zero.
	IdleTimeout time.Duration

	// ReapInterval is how often the reaper scans. Defaults to 30s if zero.
	ReapInterval time.Duration

	// Metrics overrides the observability instruments. Defaults to the
	// package-level instance.
	Metrics *observe.Metrics
}

// Manager is the registry of live coaching sessions. It assigns IDs, hands
// out sessions by ID, and reaps sessions that have gone idle.
//
// All methods are safe for concurrent use.
type Manager struct {
	factory      SessionFactory
	idleTimeout  time.Duration
	reapInterval time.Duration
	met          *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Session

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a Manager. Call [Manager.Run] to start the idle reaper.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("coach: manager requires a session factory")
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	reap := cfg.ReapInterval
	if reap <= 0 {
		reap = defaultReapInterval
	}
	met := cfg.Metrics
	if met == nil {
		met = observe.DefaultMetrics()
	}
	return &Manager{
		factory:      cfg.Factory,
		idleTimeout:  idle,
		reapInterval: reap,
		met:          met,
		sessions:     make(map[string]*Session),
		done:         make(chan struct{}),
	}, nil
}

// Create builds and registers a new session and returns it.
func (m *Manager) Create(ctx context.Context, userID, difficulty string) (*Session, error) {
	id := uuid.NewString()
	s, err := m.factory(id, userID, difficulty)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.met.ActiveSessions.Add(ctx, 1)
	observe.Logger(ctx).Info("session created",
		"session_id", id,
		"user_id", userID,
		"difficulty", difficulty,
		"active_sessions", count)
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove unregisters the session with the given ID. The session itself is
// not ended; callers end it first so they can deliver the summary.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.met.ActiveSessions.Add(ctx, -1)
	return nil
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run blocks running the idle reaper until ctx is cancelled or [Manager.Stop]
// is called.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.reapIdle(ctx)
		}
	}
}

// Stop halts the reaper. Safe to call multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
}

// reapIdle ends and removes sessions whose last activity is older than the
// idle timeout.
func (m *Manager) reapIdle(ctx context.Context) {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		if _, err := s.End(ctx); err != nil && !errors.Is(err, ErrSessionEnded) {
			observe.Logger(ctx).Warn("ending idle session failed",
				"session_id", s.ID(), "error", err)
		}
		m.met.ActiveSessions.Add(ctx, -1)
		observe.Logger(ctx).Info("idle session reaped", "session_id", s.ID())
	}
}

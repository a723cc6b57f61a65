package coach

import (
	"context"
	"errors"
	"testing"
	"time"

	facialmock "github.com/podiumlabs/podium/pkg/provider/facial/mock"
	voicemock "github.com/podiumlabs/podium/pkg/provider/voice/mock"
)

func testFactory(opts ...Option) SessionFactory {
	return func(id, userID, difficulty string) (*Session, error) {
		return NewSession(id, userID, difficulty,
			&facialmock.Analyzer{Metrics: goodFacial()},
			&voicemock.Analyzer{Metrics: goodVoice()},
			opts...)
	}
}

func TestNewManager_RequiresFactory(t *testing.T) {
	if _, err := NewManager(ManagerConfig{}); err == nil {
		t.Fatal("expected error without a factory")
	}
}

func TestManager_CreateGetRemove(t *testing.T) {
	m, err := NewManager(ManagerConfig{Factory: testFactory()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "beginner")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID() == "" {
		t.Fatal("session ID is empty")
	}
	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}

	got, err := m.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}

	if err := m.Remove(ctx, s.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("count after remove = %d, want 0", m.Count())
	}
	// Remove does not end the session; callers end it first.
	if s.Ended() {
		t.Error("Remove ended the session")
	}
}

func TestManager_UnknownID(t *testing.T) {
	m, err := NewManager(ManagerConfig{Factory: testFactory()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := m.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get = %v, want ErrSessionNotFound", err)
	}
	if err := m.Remove(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Remove = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_CreateRejectsInvalidDifficulty(t *testing.T) {
	m, err := NewManager(ManagerConfig{Factory: testFactory()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := m.Create(context.Background(), "user-1", "impossible"); err == nil {
		t.Fatal("invalid difficulty accepted")
	}
	if m.Count() != 0 {
		t.Errorf("count = %d, want 0 after failed create", m.Count())
	}
}

func TestManager_ReapsIdleSessions(t *testing.T) {
	// Sessions report activity through a frozen clock far in the past, so
	// they are idle the moment the reaper looks.
	stale := newFakeClock()
	stale.t = time.Now().Add(-time.Hour)

	m, err := NewManager(ManagerConfig{
		Factory:     testFactory(withClock(stale.Now)),
		IdleTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	s, err := m.Create(ctx, "user-1", "beginner")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.reapIdle(ctx)

	if m.Count() != 0 {
		t.Errorf("count = %d, want 0 after reap", m.Count())
	}
	if !s.Ended() {
		t.Error("reaped session was not ended")
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after reap = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_ReapSkipsActiveSessions(t *testing.T) {
	m, err := NewManager(ManagerConfig{
		Factory:     testFactory(),
		IdleTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	if _, err := m.Create(ctx, "user-1", "beginner"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.reapIdle(ctx)

	if m.Count() != 1 {
		t.Errorf("count = %d, want 1 (fresh session kept)", m.Count())
	}
}

func TestManager_RunStops(t *testing.T) {
	m, err := NewManager(ManagerConfig{
		Factory:      testFactory(),
		ReapInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()

	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	m.Stop() // safe to call again
}

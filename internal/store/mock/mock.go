// Package mock provides an in-memory [store.Store] for tests and for running
// without a database.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/podiumlabs/podium/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps everything in memory. Safe for concurrent use.
type Store struct {
	// PingErr, when set, is returned by Ping. Lets tests drive readiness
	// failures.
	PingErr error

	mu           sync.Mutex
	sessions     map[string]store.SessionRecord
	scores       map[string][]store.ScoreEvent
	achievements map[string][]store.AchievementUnlock
	feedback     map[string][]store.FeedbackRecord
	summaries    map[string]store.SummaryRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		sessions:     make(map[string]store.SessionRecord),
		scores:       make(map[string][]store.ScoreEvent),
		achievements: make(map[string][]store.AchievementUnlock),
		feedback:     make(map[string][]store.FeedbackRecord),
		summaries:    make(map[string]store.SummaryRecord),
	}
}

// CreateSession implements [store.Store].
func (s *Store) CreateSession(_ context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

// EndSession implements [store.Store].
func (s *Store) EndSession(_ context.Context, sessionID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return store.ErrNotFound
	}
	rec.EndedAt = &endedAt
	s.sessions[sessionID] = rec
	return nil
}

// RecordScore implements [store.Store].
func (s *Store) RecordScore(_ context.Context, ev store.ScoreEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[ev.SessionID] = append(s.scores[ev.SessionID], ev)
	return nil
}

// RecordAchievement implements [store.Store]. Duplicate unlocks for the same
// session are dropped, matching the Postgres ON CONFLICT behaviour.
func (s *Store) RecordAchievement(_ context.Context, u store.AchievementUnlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.achievements[u.SessionID] {
		if have.AchievementID == u.AchievementID {
			return nil
		}
	}
	s.achievements[u.SessionID] = append(s.achievements[u.SessionID], u)
	return nil
}

// RecordFeedback implements [store.Store].
func (s *Store) RecordFeedback(_ context.Context, f store.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[f.SessionID] = append(s.feedback[f.SessionID], f)
	return nil
}

// SaveSummary implements [store.Store].
func (s *Store) SaveSummary(_ context.Context, sum store.SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.SessionID] = sum
	return nil
}

// GetSummary implements [store.Store].
func (s *Store) GetSummary(_ context.Context, sessionID string) (store.SummaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[sessionID]
	if !ok {
		return store.SummaryRecord{}, store.ErrNotFound
	}
	return sum, nil
}

// RecentScores implements [store.Store].
func (s *Store) RecentScores(_ context.Context, sessionID string, window time.Duration) ([]store.ScoreEvent, error) {
	cutoff := time.Now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []store.ScoreEvent{}
	for _, ev := range s.scores[sessionID] {
		if !ev.At.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Ping implements [store.Store].
func (s *Store) Ping(_ context.Context) error { return s.PingErr }

// Close implements [store.Store].
func (s *Store) Close() {}

// Session returns the stored record for a session. Test helper.
func (s *Store) Session(id string) (store.SessionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	return rec, ok
}

// Scores returns all recorded score events for a session. Test helper.
func (s *Store) Scores(sessionID string) []store.ScoreEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.ScoreEvent(nil), s.scores[sessionID]...)
}

// Achievements returns all recorded unlocks for a session. Test helper.
func (s *Store) Achievements(sessionID string) []store.AchievementUnlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.AchievementUnlock(nil), s.achievements[sessionID]...)
}

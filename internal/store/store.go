// Package store defines the persistence interface for Podium session data.
//
// Persistence is an append-mostly log: sessions are created, score events and
// achievement unlocks are appended while the session runs, and the summary is
// written once at the end. The interface is public so alternative backends
// (Postgres, in-memory, …) can be supplied without depending on internals.
//
// Every implementation must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for lookups of unknown session IDs.
var ErrNotFound = errors.New("store: not found")

// SessionRecord is the durable identity of one coaching session.
type SessionRecord struct {
	ID         string
	UserID     string
	Difficulty string
	StartedAt  time.Time
	EndedAt    *time.Time
}

// ScoreEvent is one scoring evaluation, recorded per frame.
type ScoreEvent struct {
	SessionID   string
	At          time.Time
	Total       float64
	Grade       string
	VoiceScore  float64
	FacialScore float64
	Combo       int
	Multiplier  float64
	FinalScore  int
	IsGoodFrame bool
}

// AchievementUnlock is one achievement unlock event.
type AchievementUnlock struct {
	SessionID     string
	AchievementID string
	Title         string
	XP            int
	At            time.Time
}

// FeedbackRecord is one delivered coaching line.
type FeedbackRecord struct {
	SessionID string
	At        time.Time
	Text      string
	Source    string
}

// SummaryRecord is the end-of-session aggregate, written once.
type SummaryRecord struct {
	SessionID       string
	AvgScore        float64
	MaxCombo        int
	TotalXP         int
	Trend           string
	DurationSeconds float64
	WordCount       int
	SummaryText     string
}

// Store persists session lifecycle data.
type Store interface {
	// CreateSession records a newly started session.
	CreateSession(ctx context.Context, rec SessionRecord) error

	// EndSession marks the session as ended at the given time.
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error

	// RecordScore appends one scoring evaluation.
	RecordScore(ctx context.Context, ev ScoreEvent) error

	// RecordAchievement appends one achievement unlock.
	RecordAchievement(ctx context.Context, u AchievementUnlock) error

	// RecordFeedback appends one delivered coaching line.
	RecordFeedback(ctx context.Context, f FeedbackRecord) error

	// SaveSummary writes the end-of-session summary. Writing twice for the
	// same session replaces the earlier row.
	SaveSummary(ctx context.Context, s SummaryRecord) error

	// GetSummary returns the summary for a session, or ErrNotFound.
	GetSummary(ctx context.Context, sessionID string) (SummaryRecord, error)

	// RecentScores returns the score events for a session recorded within
	// the given window, ordered chronologically.
	RecentScores(ctx context.Context, sessionID string, window time.Duration) ([]ScoreEvent, error)

	// Ping verifies the backend is reachable. Used by readiness checks.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}

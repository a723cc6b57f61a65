package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/podiumlabs/podium/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is the PostgreSQL-backed session store. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, establishes a connection pool to the database at dsn,
// and runs [Migrate] so all required tables exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// CreateSession implements [store.Store].
func (s *Store) CreateSession(ctx context.Context, rec store.SessionRecord) error {
	const q = `
		INSERT INTO sessions (id, user_id, difficulty, started_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, q, rec.ID, rec.UserID, rec.Difficulty, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("postgres store: create session: %w", err)
	}
	return nil
}

// EndSession implements [store.Store].
func (s *Store) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	const q = `UPDATE sessions SET ended_at = $2 WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, sessionID, endedAt)
	if err != nil {
		return fmt.Errorf("postgres store: end session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecordScore implements [store.Store].
func (s *Store) RecordScore(ctx context.Context, ev store.ScoreEvent) error {
	const q = `
		INSERT INTO score_events
		    (session_id, at, total, grade, voice_score, facial_score,
		     combo, multiplier, final_score, is_good_frame)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, q,
		ev.SessionID,
		ev.At,
		ev.Total,
		ev.Grade,
		ev.VoiceScore,
		ev.FacialScore,
		ev.Combo,
		ev.Multiplier,
		ev.FinalScore,
		ev.IsGoodFrame,
	)
	if err != nil {
		return fmt.Errorf("postgres store: record score: %w", err)
	}
	return nil
}

// RecordAchievement implements [store.Store]. Re-recording the same unlock
// for a session is a no-op, matching the at-most-once unlock semantics.
func (s *Store) RecordAchievement(ctx context.Context, u store.AchievementUnlock) error {
	const q = `
		INSERT INTO achievement_unlocks (session_id, achievement_id, title, xp, at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, achievement_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, q, u.SessionID, u.AchievementID, u.Title, u.XP, u.At)
	if err != nil {
		return fmt.Errorf("postgres store: record achievement: %w", err)
	}
	return nil
}

// RecordFeedback implements [store.Store].
func (s *Store) RecordFeedback(ctx context.Context, f store.FeedbackRecord) error {
	const q = `
		INSERT INTO feedback_entries (session_id, at, text, source)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, q, f.SessionID, f.At, f.Text, f.Source)
	if err != nil {
		return fmt.Errorf("postgres store: record feedback: %w", err)
	}
	return nil
}

// SaveSummary implements [store.Store]. Upserts on session_id.
func (s *Store) SaveSummary(ctx context.Context, sum store.SummaryRecord) error {
	const q = `
		INSERT INTO session_summaries
		    (session_id, avg_score, max_combo, total_xp, trend,
		     duration_seconds, word_count, summary_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
		    avg_score        = EXCLUDED.avg_score,
		    max_combo        = EXCLUDED.max_combo,
		    total_xp         = EXCLUDED.total_xp,
		    trend            = EXCLUDED.trend,
		    duration_seconds = EXCLUDED.duration_seconds,
		    word_count       = EXCLUDED.word_count,
		    summary_text     = EXCLUDED.summary_text`

	_, err := s.pool.Exec(ctx, q,
		sum.SessionID,
		sum.AvgScore,
		sum.MaxCombo,
		sum.TotalXP,
		sum.Trend,
		sum.DurationSeconds,
		sum.WordCount,
		sum.SummaryText,
	)
	if err != nil {
		return fmt.Errorf("postgres store: save summary: %w", err)
	}
	return nil
}

// GetSummary implements [store.Store].
func (s *Store) GetSummary(ctx context.Context, sessionID string) (store.SummaryRecord, error) {
	const q = `
		SELECT session_id, avg_score, max_combo, total_xp, trend,
		       duration_seconds, word_count, summary_text
		FROM   session_summaries
		WHERE  session_id = $1`

	var sum store.SummaryRecord
	err := s.pool.QueryRow(ctx, q, sessionID).Scan(
		&sum.SessionID,
		&sum.AvgScore,
		&sum.MaxCombo,
		&sum.TotalXP,
		&sum.Trend,
		&sum.DurationSeconds,
		&sum.WordCount,
		&sum.SummaryText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.SummaryRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.SummaryRecord{}, fmt.Errorf("postgres store: get summary: %w", err)
	}
	return sum, nil
}

// RecentScores implements [store.Store].
func (s *Store) RecentScores(ctx context.Context, sessionID string, window time.Duration) ([]store.ScoreEvent, error) {
	const q = `
		SELECT session_id, at, total, grade, voice_score, facial_score,
		       combo, multiplier, final_score, is_good_frame
		FROM   score_events
		WHERE  session_id = $1
		  AND  at >= now() - ($2::bigint * interval '1 microsecond')
		ORDER  BY at`

	rows, err := s.pool.Query(ctx, q, sessionID, window.Microseconds())
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent scores: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.ScoreEvent, error) {
		var ev store.ScoreEvent
		err := row.Scan(
			&ev.SessionID,
			&ev.At,
			&ev.Total,
			&ev.Grade,
			&ev.VoiceScore,
			&ev.FacialScore,
			&ev.Combo,
			&ev.Multiplier,
			&ev.FinalScore,
			&ev.IsGoodFrame,
		)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if events == nil {
		events = []store.ScoreEvent{}
	}
	return events, nil
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close implements [store.Store].
func (s *Store) Close() {
	s.pool.Close()
}

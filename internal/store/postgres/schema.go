// Package postgres provides a PostgreSQL-backed implementation of the Podium
// session store.
//
// All tables share a single [pgxpool.Pool]. [Migrate] is idempotent and safe
// to call on every application start.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// DDL — session lifecycle
// ─────────────────────────────────────────────────────────────────────────────

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT         PRIMARY KEY,
    user_id     TEXT         NOT NULL DEFAULT '',
    difficulty  TEXT         NOT NULL,
    started_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    ended_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id
    ON sessions (user_id);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at
    ON sessions (started_at);
`

// ─────────────────────────────────────────────────────────────────────────────
// DDL — per-frame events
// ─────────────────────────────────────────────────────────────────────────────

const ddlScoreEvents = `
CREATE TABLE IF NOT EXISTS score_events (
    id            BIGSERIAL    PRIMARY KEY,
    session_id    TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    at            TIMESTAMPTZ  NOT NULL DEFAULT now(),
    total         DOUBLE PRECISION NOT NULL,
    grade         TEXT         NOT NULL,
    voice_score   DOUBLE PRECISION NOT NULL,
    facial_score  DOUBLE PRECISION NOT NULL,
    combo         INT          NOT NULL,
    multiplier    DOUBLE PRECISION NOT NULL,
    final_score   INT          NOT NULL,
    is_good_frame BOOLEAN      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_events_session_at
    ON score_events (session_id, at);
`

const ddlAchievementUnlocks = `
CREATE TABLE IF NOT EXISTS achievement_unlocks (
    session_id     TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    achievement_id TEXT         NOT NULL,
    title          TEXT         NOT NULL DEFAULT '',
    xp             INT          NOT NULL DEFAULT 0,
    at             TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, achievement_id)
);
`

const ddlFeedbackEntries = `
CREATE TABLE IF NOT EXISTS feedback_entries (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    at          TIMESTAMPTZ  NOT NULL DEFAULT now(),
    text        TEXT         NOT NULL,
    source      TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_feedback_entries_session_at
    ON feedback_entries (session_id, at);
`

// ─────────────────────────────────────────────────────────────────────────────
// DDL — summaries
// ─────────────────────────────────────────────────────────────────────────────

const ddlSessionSummaries = `
CREATE TABLE IF NOT EXISTS session_summaries (
    session_id       TEXT         PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
    avg_score        DOUBLE PRECISION NOT NULL,
    max_combo        INT          NOT NULL,
    total_xp         INT          NOT NULL,
    trend            TEXT         NOT NULL DEFAULT '',
    duration_seconds DOUBLE PRECISION NOT NULL,
    word_count       INT          NOT NULL,
    summary_text     TEXT         NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates or ensures all required tables and indexes exist. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlSessions,
		ddlScoreEvents,
		ddlAchievementUnlocks,
		ddlFeedbackEntries,
		ddlSessionSummaries,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

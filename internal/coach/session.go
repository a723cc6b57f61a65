// Package coach implements the per-session orchestrator of the coaching
// pipeline. A Session owns one speaker's lifecycle: it ingests facial frames
// and audio chunks, keeps the latest metric snapshots and the transcript
// buffer, sequences the scoring, combo, achievement, and message engines on
// every scoring request, and produces rate-limited LLM coaching text with a
// deterministic fallback.
//
// Sessions are independent; nothing is shared across them except the
// immutable difficulty and achievement catalogues. Within a session all
// state mutation is serialised by one mutex, so the surrounding transport
// can be as concurrent as it likes.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/podiumlabs/podium/internal/game"
	"github.com/podiumlabs/podium/internal/observe"
	"github.com/podiumlabs/podium/internal/scoring"
	"github.com/podiumlabs/podium/internal/transcript"
	"github.com/podiumlabs/podium/pkg/metrics"
	"github.com/podiumlabs/podium/pkg/provider/facial"
	"github.com/podiumlabs/podium/pkg/provider/llm"
	"github.com/podiumlabs/podium/pkg/provider/voice"
)

var (
	// ErrInsufficientData is returned when scoring is requested before both
	// a facial and a voice snapshot exist. Recoverable; the caller should
	// retry after more ingestion.
	ErrInsufficientData = errors.New("coach: insufficient data for scoring")

	// ErrSessionEnded is returned by operations on a session after End.
	ErrSessionEnded = errors.New("coach: session has ended")
)

// Default coaching-call bounds. The interval matches the original product
// behaviour: feedback more often than every 3 s is noise, not coaching.
const (
	defaultFeedbackInterval = 3 * time.Second
	defaultFeedbackTimeout  = 10 * time.Second
	defaultSummaryTimeout   = 30 * time.Second

	// perfectFrameScore is the total score a frame needs to count towards
	// the perfect-minute achievement streak.
	perfectFrameScore = 90

	// eyeContactStreakMin is the eye-contact level a frame needs to count
	// towards the eye-contact achievement streak.
	eyeContactStreakMin = 0.9
)

// FeedbackEntry is one delivered coaching line.
type FeedbackEntry struct {
	At     time.Time `json:"at"`
	Text   string    `json:"text"`
	Source string    `json:"source"`
}

// FrameResult aggregates everything one scoring evaluation produces.
type FrameResult struct {
	Score      scoring.Result   `json:"score"`
	Combo      game.ComboUpdate `json:"combo"`
	BaseScore  float64          `json:"base_score"`
	FinalScore int              `json:"final_score"`

	Messages        []game.Message     `json:"messages"`
	NewAchievements []game.Achievement `json:"new_achievements,omitempty"`
}

// Summary is the end-of-session aggregate.
type Summary struct {
	SessionID  string             `json:"session_id"`
	UserID     string             `json:"user_id"`
	Difficulty metrics.Difficulty `json:"difficulty"`

	Scores       scoring.Summary    `json:"scores"`
	MaxCombo     int                `json:"max_combo"`
	Achievements []game.Achievement `json:"achievements"`
	TotalXP      int                `json:"total_xp"`

	DurationSeconds float64 `json:"duration_seconds"`
	WordCount       int     `json:"word_count"`
	FeedbackCount   int     `json:"feedback_count"`

	// SummaryText is the coach's closing narrative, LLM-written when the
	// backend is healthy, canned otherwise.
	SummaryText string `json:"summary_text"`
}

// Session orchestrates one speaker's coaching session.
type Session struct {
	id         string
	userID     string
	difficulty metrics.Difficulty

	facial facial.Analyzer
	voice  voice.Analyzer
	coach  llm.Provider
	met    *observe.Metrics
	now    func() time.Time

	feedbackInterval time.Duration
	feedbackTimeout  time.Duration

	mu           sync.Mutex
	ended        bool
	startedAt    time.Time
	lastActivity time.Time
	frames       int
	latestFacial *metrics.FacialMetrics
	latestVoice  *metrics.VoiceMetrics
	counters     game.Counters
	feedbackLog  []FeedbackEntry
	lastFeedback time.Time

	scorer       *scoring.Engine
	combo        *game.ComboEngine
	achievements *game.AchievementEngine
	transcripts  *transcript.Buffer

	// flight collapses concurrent feedback requests into one LLM call.
	flight singleflight.Group
}

// Option configures a Session.
type Option func(*Session)

// WithCoach sets the LLM backend used for feedback and summary text. Without
// one, the session always uses the deterministic rule-based text.
func WithCoach(p llm.Provider) Option {
	return func(s *Session) { s.coach = p }
}

// WithFeedbackInterval overrides the minimum spacing between coach feedback
// generations.
func WithFeedbackInterval(d time.Duration) Option {
	return func(s *Session) { s.feedbackInterval = d }
}

// WithFeedbackTimeout overrides the per-call LLM deadline.
func WithFeedbackTimeout(d time.Duration) Option {
	return func(s *Session) { s.feedbackTimeout = d }
}

// WithMetrics overrides the observability instruments. Tests pass an
// isolated instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.met = m }
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a Session for the given identifiers and difficulty.
// An unrecognised difficulty string is rejected here rather than silently
// defaulted, so configuration bugs surface at construction.
func NewSession(id, userID, difficulty string, facialAnalyzer facial.Analyzer, voiceAnalyzer voice.Analyzer, opts ...Option) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("coach: session id must not be empty")
	}
	if facialAnalyzer == nil || voiceAnalyzer == nil {
		return nil, fmt.Errorf("coach: facial and voice analyzers are required")
	}
	d, err := metrics.ParseDifficulty(difficulty)
	if err != nil {
		return nil, fmt.Errorf("coach: %w", err)
	}

	s := &Session{
		id:               id,
		userID:           userID,
		difficulty:       d,
		facial:           facialAnalyzer,
		voice:            voiceAnalyzer,
		now:              time.Now,
		feedbackInterval: defaultFeedbackInterval,
		feedbackTimeout:  defaultFeedbackTimeout,
		scorer:           scoring.NewEngine(d),
		combo:            game.NewComboEngine(d),
		achievements:     game.NewAchievementEngine(),
		transcripts:      transcript.NewBuffer(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.met == nil {
		s.met = observe.DefaultMetrics()
	}
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user's identifier.
func (s *Session) UserID() string { return s.userID }

// Difficulty returns the session difficulty.
func (s *Session) Difficulty() metrics.Difficulty { return s.difficulty }

// Ended reports whether End has been called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// LastActivity returns the time of the most recent ingest or scoring call.
// The manager's idle reaper reads this.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// IngestVideoFrame runs facial analysis on one JPEG frame and stores the
// result as the latest facial snapshot. Analyzer failure is recovered
// locally: the snapshot is replaced with an explicitly flagged unknown one,
// never left stale, and the returned error is nil. Only a closed session
// returns an error.
func (s *Session) IngestVideoFrame(ctx context.Context, frameJPEG []byte) (metrics.FacialMetrics, error) {
	if s.Ended() {
		return metrics.FacialMetrics{}, ErrSessionEnded
	}

	start := s.now()
	snap, err := s.facial.AnalyzeFrame(ctx, frameJPEG)
	s.met.FacialAnalysisDuration.Record(ctx, s.now().Sub(start).Seconds())
	if err != nil {
		observe.Logger(ctx).Warn("facial analysis failed, storing unknown snapshot",
			"session_id", s.id, "error", err)
		s.met.RecordAnalyzerError(ctx, "facial")
		snap = metrics.UnknownFacial()
	}

	s.mu.Lock()
	s.latestFacial = &snap
	s.frames++
	s.lastActivity = s.now()
	s.mu.Unlock()

	return snap, nil
}

// IngestAudioChunk folds one chunk of mono PCM samples (and optionally the
// transcript segment recognised from it) into the voice analysis and the
// transcript buffer, then stores the refreshed voice snapshot. Analyzer
// failure is recovered with a flagged unknown snapshot, like video.
func (s *Session) IngestAudioChunk(ctx context.Context, samples []float32, sampleRate int, transcriptSegment string) (metrics.VoiceMetrics, error) {
	if s.Ended() {
		return metrics.VoiceMetrics{}, ErrSessionEnded
	}

	s.voice.ProcessAudio(samples, sampleRate)
	if seg := strings.TrimSpace(transcriptSegment); seg != "" {
		s.voice.ProcessTranscript(seg)
		s.transcripts.Append(seg)
	}

	snap, err := s.voice.Snapshot()
	if err != nil {
		observe.Logger(ctx).Warn("voice analysis failed, storing unknown snapshot",
			"session_id", s.id, "error", err)
		s.met.RecordAnalyzerError(ctx, "voice")
		snap = metrics.UnknownVoice()
	}

	s.mu.Lock()
	s.latestVoice = &snap
	s.lastActivity = s.now()
	s.mu.Unlock()

	return snap, nil
}

// ScoreFrame runs one scoring evaluation over whatever snapshots are latest
// right now. It fails with ErrInsufficientData until both a facial and a
// voice snapshot exist. Everything here is CPU-bound; no I/O happens under
// the lock.
func (s *Session) ScoreFrame(ctx context.Context) (FrameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return FrameResult{}, ErrSessionEnded
	}
	if s.latestFacial == nil || s.latestVoice == nil {
		return FrameResult{}, ErrInsufficientData
	}
	s.lastActivity = s.now()

	content := s.transcripts.ContentMetrics(s.now().Sub(s.startedAt))
	pacing := pacingFrom(s.latestVoice)

	result := s.scorer.CalculateScore(s.latestVoice, s.latestFacial, &content, pacing)

	base := game.BaseScore(result.Facial.Score, result.Voice.Score)
	upd := s.combo.Update(base)
	final := game.FinalScore(base, upd.Multiplier)

	s.advanceCounters(result, upd)
	unlocked := s.achievements.Check(s.counters)

	s.met.RecordScoreCalculation(ctx, string(s.difficulty), string(result.Grade))
	if upd.Status == game.ComboBroken {
		s.met.ComboBreaks.Add(ctx, 1)
	}
	for _, a := range unlocked {
		s.met.RecordAchievementUnlock(ctx, a.ID)
		observe.Logger(ctx).Info("achievement unlocked",
			"session_id", s.id, "achievement", a.ID, "xp", a.XP)
	}

	return FrameResult{
		Score:           result,
		Combo:           upd,
		BaseScore:       base,
		FinalScore:      final,
		Messages:        game.SelectMessages(s.latestFacial, s.latestVoice),
		NewAchievements: unlocked,
	}, nil
}

// advanceCounters maintains the consecutive-frame streaks achievements are
// judged on. Must be called with s.mu held.
func (s *Session) advanceCounters(result scoring.Result, upd game.ComboUpdate) {
	s.counters.Combo = upd.Combo

	if result.Total >= perfectFrameScore {
		s.counters.PerfectFrames++
	} else {
		s.counters.PerfectFrames = 0
	}
	if s.latestVoice.FillerWordDetected == "" {
		s.counters.FillerFreeFrames++
	} else {
		s.counters.FillerFreeFrames = 0
	}
	if s.latestFacial.FaceDetected && s.latestFacial.EyeContact >= eyeContactStreakMin {
		s.counters.EyeContactFrames++
	} else {
		s.counters.EyeContactFrames = 0
	}
}

// RequestFeedback produces one short coaching line. It never propagates a
// coach failure to the caller: inside the rate-limit window or before any
// data has arrived it returns "", and when the LLM fails or times out it
// returns the deterministic rule-based text instead. Concurrent requests
// share a single in-flight LLM call.
func (s *Session) RequestFeedback(ctx context.Context, contextHint string) (string, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return "", ErrSessionEnded
	}
	if s.latestFacial == nil || s.latestVoice == nil {
		s.mu.Unlock()
		s.met.RecordFeedbackRequest(ctx, "no_data")
		return "", nil
	}
	if s.now().Sub(s.lastFeedback) < s.feedbackInterval {
		s.mu.Unlock()
		s.met.RecordFeedbackRequest(ctx, "rate_limited")
		return "", nil
	}
	facialSnap := *s.latestFacial
	voiceSnap := *s.latestVoice
	s.mu.Unlock()

	tail := s.transcripts.Tail(transcriptTailWords)

	text, err, _ := s.flight.Do("feedback", func() (any, error) {
		return s.generateFeedback(ctx, facialSnap, voiceSnap, tail, contextHint), nil
	})
	if err != nil {
		// The flight function never errors; defensive only for the contract.
		return "", nil
	}
	return text.(string), nil
}

// generateFeedback runs the LLM call with timeout and fallback, then records
// the delivered line. The caller holds no locks.
func (s *Session) generateFeedback(ctx context.Context, facialSnap metrics.FacialMetrics, voiceSnap metrics.VoiceMetrics, tail, contextHint string) string {
	source := "fallback"
	text := ""

	if s.coach != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.feedbackTimeout)
		defer cancel()

		start := s.now()
		resp, err := s.coach.Complete(callCtx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Messages: []llm.Message{
				{Role: "user", Content: buildFeedbackPrompt(facialSnap, voiceSnap, tail, contextHint)},
			},
			Temperature: 0.7,
			MaxTokens:   200,
		})
		s.met.FeedbackDuration.Record(ctx, s.now().Sub(start).Seconds())

		if err != nil {
			observe.Logger(ctx).Warn("coach LLM failed, using rule-based feedback",
				"session_id", s.id, "error", err)
		} else if resp != nil {
			text = strings.TrimSpace(resp.Content)
			source = "llm"
		}
	}

	if text == "" {
		text = ruleBasedFeedback(facialSnap, voiceSnap)
		source = "fallback"
	}
	s.met.RecordFeedbackRequest(ctx, source)

	s.mu.Lock()
	s.lastFeedback = s.now()
	s.feedbackLog = append(s.feedbackLog, FeedbackEntry{At: s.lastFeedback, Text: text, Source: source})
	s.mu.Unlock()

	return text
}

// End closes the session and returns its aggregate summary. The closing
// narrative uses the coach LLM when available and degrades to a canned line.
// Further operations on the session fail with ErrSessionEnded.
func (s *Session) End(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return Summary{}, ErrSessionEnded
	}
	s.ended = true

	duration := s.now().Sub(s.startedAt).Seconds()
	feedbackCount := len(s.feedbackLog)
	recent := recentFeedbackTexts(s.feedbackLog, 5)
	s.mu.Unlock()

	scores := s.scorer.Summary()
	unlocked := s.achievements.Unlocked()

	sum := Summary{
		SessionID:       s.id,
		UserID:          s.userID,
		Difficulty:      s.difficulty,
		Scores:          scores,
		MaxCombo:        s.combo.MaxCombo(),
		Achievements:    unlocked,
		TotalXP:         s.achievements.TotalXP(),
		DurationSeconds: duration,
		WordCount:       s.transcripts.WordCount(),
		FeedbackCount:   feedbackCount,
		SummaryText:     fallbackSummary,
	}

	if s.coach != nil && scores.TotalFrames > 0 {
		callCtx, cancel := context.WithTimeout(ctx, defaultSummaryTimeout)
		defer cancel()

		resp, err := s.coach.Complete(callCtx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Messages: []llm.Message{
				{Role: "user", Content: buildSummaryPrompt(scores, duration, sum.WordCount, sum.MaxCombo, sum.TotalXP, recent)},
			},
			Temperature: 0.7,
			MaxTokens:   600,
		})
		if err != nil {
			observe.Logger(ctx).Warn("coach summary failed, using canned text",
				"session_id", s.id, "error", err)
		} else if resp != nil && strings.TrimSpace(resp.Content) != "" {
			sum.SummaryText = strings.TrimSpace(resp.Content)
		}
	}

	observe.Logger(ctx).Info("session ended",
		"session_id", s.id,
		"user_id", s.userID,
		"frames", scores.TotalFrames,
		"avg_score", scores.AvgScore,
		"max_combo", sum.MaxCombo,
		"xp", sum.TotalXP)

	return sum, nil
}

// Reset returns the session to a fresh active state: engines, counters,
// transcript, snapshots, and history are all dropped. The identifiers and
// difficulty stay.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scorer.Reset()
	s.combo.Reset()
	s.achievements.Reset()
	s.transcripts.Reset()
	s.voice.Reset()

	s.ended = false
	s.frames = 0
	s.latestFacial = nil
	s.latestVoice = nil
	s.counters = game.Counters{}
	s.feedbackLog = nil
	s.lastFeedback = time.Time{}
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
}

// pacingFrom lifts the analyzer-reported pause observations into a
// PacingMetrics group. Returns nil when no pause signal is present so the
// scorer treats pacing as "no data".
func pacingFrom(v *metrics.VoiceMetrics) *metrics.PacingMetrics {
	if v.PauseFrequency == nil && v.AvgPauseLength == nil && v.RhythmConsistency == nil {
		return nil
	}
	return &metrics.PacingMetrics{
		PauseFrequency:    v.PauseFrequency,
		AvgPauseLength:    v.AvgPauseLength,
		RhythmConsistency: v.RhythmConsistency,
	}
}

// recentFeedbackTexts returns the last n delivered feedback lines.
func recentFeedbackTexts(log []FeedbackEntry, n int) []string {
	if len(log) > n {
		log = log[len(log)-n:]
	}
	out := make([]string, 0, len(log))
	for _, e := range log {
		out = append(out, e.Text)
	}
	return out
}

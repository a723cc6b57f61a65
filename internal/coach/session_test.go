package coach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/podiumlabs/podium/pkg/metrics"
	facialmock "github.com/podiumlabs/podium/pkg/provider/facial/mock"
	"github.com/podiumlabs/podium/pkg/provider/llm"
	llmmock "github.com/podiumlabs/podium/pkg/provider/llm/mock"
	voicemock "github.com/podiumlabs/podium/pkg/provider/voice/mock"
)

var errAnalyzer = errors.New("analyzer unavailable")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// goodFacial and goodVoice are snapshots strong enough to extend a combo at
// any difficulty.
func goodFacial() metrics.FacialMetrics {
	return metrics.FacialMetrics{
		FaceDetected:      true,
		Engagement:        0.9,
		EyeContact:        0.95,
		Smile:             0.8,
		Emotion:           metrics.EmotionHappiness,
		EmotionConfidence: 0.9,
	}
}

func goodVoice() metrics.VoiceMetrics {
	return metrics.VoiceMetrics{
		Clarity:           0.9,
		VolumeConsistency: 0.9,
		VolumeDB:          -20,
		PitchVariation:    10,
		PitchQuality:      metrics.PitchExpressive,
		SpeechRateQuality: metrics.RateOptimal,
		OverallScore:      90,
	}
}

type sessionFixture struct {
	session *Session
	facial  *facialmock.Analyzer
	voice   *voicemock.Analyzer
	clock   *fakeClock
}

func newTestSession(t *testing.T, difficulty string, opts ...Option) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		facial: &facialmock.Analyzer{Metrics: goodFacial()},
		voice:  &voicemock.Analyzer{Metrics: goodVoice()},
		clock:  newFakeClock(),
	}
	opts = append([]Option{withClock(f.clock.Now)}, opts...)
	s, err := NewSession("sess-1", "user-1", difficulty, f.facial, f.voice, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	f.session = s
	return f
}

func (f *sessionFixture) ingestBoth(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.session.IngestVideoFrame(ctx, []byte("jpeg")); err != nil {
		t.Fatalf("IngestVideoFrame: %v", err)
	}
	if _, err := f.session.IngestAudioChunk(ctx, make([]float32, 1600), 16000, ""); err != nil {
		t.Fatalf("IngestAudioChunk: %v", err)
	}
}

func TestNewSession_Validation(t *testing.T) {
	fa := &facialmock.Analyzer{}
	vo := &voicemock.Analyzer{}

	if _, err := NewSession("", "u", "beginner", fa, vo); err == nil {
		t.Error("empty id accepted")
	}
	if _, err := NewSession("s", "u", "nightmare", fa, vo); err == nil {
		t.Error("invalid difficulty accepted")
	}
	if _, err := NewSession("s", "u", "beginner", nil, vo); err == nil {
		t.Error("nil facial analyzer accepted")
	}
	if _, err := NewSession("s", "u", "beginner", fa, nil); err == nil {
		t.Error("nil voice analyzer accepted")
	}
}

func TestScoreFrame_InsufficientData(t *testing.T) {
	f := newTestSession(t, "beginner")
	ctx := context.Background()

	if _, err := f.session.ScoreFrame(ctx); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}

	// One snapshot alone is still not enough.
	if _, err := f.session.IngestVideoFrame(ctx, []byte("jpeg")); err != nil {
		t.Fatalf("IngestVideoFrame: %v", err)
	}
	if _, err := f.session.ScoreFrame(ctx); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err after video only = %v, want ErrInsufficientData", err)
	}
}

func TestScoreFrame_FullFlow(t *testing.T) {
	f := newTestSession(t, "intermediate")
	f.ingestBoth(t)

	r, err := f.session.ScoreFrame(context.Background())
	if err != nil {
		t.Fatalf("ScoreFrame: %v", err)
	}

	if r.Score.Total <= 0 {
		t.Errorf("total = %v, want positive", r.Score.Total)
	}
	if !r.Score.Voice.HadData || !r.Score.Facial.HadData {
		t.Error("voice and facial components should have data")
	}
	// No transcript and no pause data: content and pacing are flagged neutral.
	if r.Score.Content.HadData || r.Score.Pacing.HadData {
		t.Error("content and pacing should be flagged as no-data")
	}
	if r.BaseScore <= 0 {
		t.Errorf("base score = %v, want positive", r.BaseScore)
	}
	if r.FinalScore <= 0 {
		t.Errorf("final score = %d, want positive", r.FinalScore)
	}
	if len(r.Messages) == 0 {
		t.Error("strong snapshots should produce positive messages")
	}
}

func TestIngestVideoFrame_AnalyzerFailureStoresUnknown(t *testing.T) {
	f := newTestSession(t, "beginner")
	f.facial.AnalyzeErr = errAnalyzer

	snap, err := f.session.IngestVideoFrame(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("analyzer failure must not surface: %v", err)
	}
	if snap.FaceDetected {
		t.Error("FaceDetected = true, want flagged unknown")
	}
	if snap.Emotion != metrics.EmotionUnknown {
		t.Errorf("emotion = %q, want unknown", snap.Emotion)
	}
}

func TestIngestAudioChunk_SnapshotFailureStoresUnknown(t *testing.T) {
	f := newTestSession(t, "beginner")
	f.voice.SnapshotErr = errAnalyzer

	snap, err := f.session.IngestAudioChunk(context.Background(), make([]float32, 160), 16000, "")
	if err != nil {
		t.Fatalf("analyzer failure must not surface: %v", err)
	}
	if snap.SpeechRateQuality != metrics.RateUnknown || snap.PitchQuality != metrics.PitchUnknown {
		t.Errorf("snapshot = %+v, want flagged unknown", snap)
	}
}

func TestIngestAudioChunk_TranscriptSegment(t *testing.T) {
	f := newTestSession(t, "beginner")

	_, err := f.session.IngestAudioChunk(context.Background(), make([]float32, 160), 16000, "hello everyone")
	if err != nil {
		t.Fatalf("IngestAudioChunk: %v", err)
	}

	if len(f.voice.TranscriptCalls) != 1 || f.voice.TranscriptCalls[0] != "hello everyone" {
		t.Errorf("transcript calls = %v, want the segment forwarded", f.voice.TranscriptCalls)
	}
	if got := f.session.transcripts.WordCount(); got != 2 {
		t.Errorf("buffered word count = %d, want 2", got)
	}

	// Blank segments are not forwarded.
	_, _ = f.session.IngestAudioChunk(context.Background(), make([]float32, 160), 16000, "   ")
	if len(f.voice.TranscriptCalls) != 1 {
		t.Errorf("blank segment forwarded: %v", f.voice.TranscriptCalls)
	}
}

func TestRequestFeedback_NoDataDeclines(t *testing.T) {
	f := newTestSession(t, "beginner")

	text, err := f.session.RequestFeedback(context.Background(), "")
	if err != nil {
		t.Fatalf("RequestFeedback: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty before any data", text)
	}
}

func TestRequestFeedback_LLMAndRateLimit(t *testing.T) {
	coachLLM := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Slow your pace slightly."},
	}
	f := newTestSession(t, "beginner", WithCoach(coachLLM))
	f.ingestBoth(t)
	ctx := context.Background()

	text, err := f.session.RequestFeedback(ctx, "")
	if err != nil {
		t.Fatalf("RequestFeedback: %v", err)
	}
	if text != "Slow your pace slightly." {
		t.Errorf("text = %q, want the coach line", text)
	}
	if len(coachLLM.CompleteCalls) != 1 {
		t.Fatalf("coach calls = %d, want 1", len(coachLLM.CompleteCalls))
	}

	// Inside the interval: declined silently, no coach call, no log entry.
	text, err = f.session.RequestFeedback(ctx, "")
	if err != nil || text != "" {
		t.Fatalf("rate-limited request = (%q, %v), want empty and nil", text, err)
	}
	if len(coachLLM.CompleteCalls) != 1 {
		t.Errorf("coach calls = %d, want still 1", len(coachLLM.CompleteCalls))
	}
	f.session.mu.Lock()
	logged := len(f.session.feedbackLog)
	f.session.mu.Unlock()
	if logged != 1 {
		t.Errorf("feedback log length = %d, want 1 (declined request leaves no trace)", logged)
	}

	// Past the interval the coach speaks again.
	f.clock.Advance(defaultFeedbackInterval)
	text, err = f.session.RequestFeedback(ctx, "focus on pacing")
	if err != nil || text == "" {
		t.Fatalf("post-interval request = (%q, %v), want text", text, err)
	}
	if len(coachLLM.CompleteCalls) != 2 {
		t.Errorf("coach calls = %d, want 2", len(coachLLM.CompleteCalls))
	}
}

func TestRequestFeedback_LLMFailureFallsBack(t *testing.T) {
	coachLLM := &llmmock.Provider{CompleteErr: errAnalyzer}
	f := newTestSession(t, "beginner", WithCoach(coachLLM))
	f.voice.Metrics.FillerWordDetected = "um"
	f.ingestBoth(t)

	text, err := f.session.RequestFeedback(context.Background(), "")
	if err != nil {
		t.Fatalf("RequestFeedback: %v", err)
	}
	// The rule-based fallback leads with the most urgent tier.
	if text != `Filler word: "um"` {
		t.Errorf("text = %q, want the rule-based filler warning", text)
	}
}

func TestRequestFeedback_TimeoutFallsBack(t *testing.T) {
	coachLLM := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "too late"},
		CompleteDelay: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	f := newTestSession(t, "beginner",
		WithCoach(coachLLM),
		WithFeedbackTimeout(5*time.Millisecond),
	)
	f.ingestBoth(t)

	text, err := f.session.RequestFeedback(context.Background(), "")
	if err != nil {
		t.Fatalf("RequestFeedback: %v", err)
	}
	if text == "" || text == "too late" {
		t.Errorf("text = %q, want rule-based fallback after timeout", text)
	}
}

func TestRequestFeedback_NoCoachUsesRules(t *testing.T) {
	f := newTestSession(t, "beginner")
	f.ingestBoth(t)

	text, err := f.session.RequestFeedback(context.Background(), "")
	if err != nil {
		t.Fatalf("RequestFeedback: %v", err)
	}
	if text == "" {
		t.Error("text is empty, want rule-based coaching line")
	}
}

func TestAchievementUnlockedAtTenCombo(t *testing.T) {
	f := newTestSession(t, "expert")
	f.ingestBoth(t)
	ctx := context.Background()

	var unlockedAt int
	for i := 1; i <= 10; i++ {
		r, err := f.session.ScoreFrame(ctx)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		for _, a := range r.NewAchievements {
			if a.ID == "first_combo" {
				unlockedAt = i
			}
		}
	}
	if unlockedAt != 10 {
		t.Errorf("first_combo unlocked at frame %d, want 10", unlockedAt)
	}
}

func TestEnd_Summary(t *testing.T) {
	coachLLM := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "You held strong eye contact throughout."},
	}
	f := newTestSession(t, "intermediate", WithCoach(coachLLM))
	f.ingestBoth(t)
	ctx := context.Background()

	if _, err := f.session.ScoreFrame(ctx); err != nil {
		t.Fatalf("ScoreFrame: %v", err)
	}
	f.clock.Advance(90 * time.Second)

	sum, err := f.session.End(ctx)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sum.SessionID != "sess-1" || sum.UserID != "user-1" {
		t.Errorf("identifiers = (%q, %q)", sum.SessionID, sum.UserID)
	}
	if sum.Difficulty != metrics.DifficultyIntermediate {
		t.Errorf("difficulty = %q", sum.Difficulty)
	}
	if sum.Scores.TotalFrames != 1 {
		t.Errorf("total frames = %d, want 1", sum.Scores.TotalFrames)
	}
	if sum.DurationSeconds != 90 {
		t.Errorf("duration = %v, want 90", sum.DurationSeconds)
	}
	if sum.SummaryText != "You held strong eye contact throughout." {
		t.Errorf("summary text = %q, want the coach narrative", sum.SummaryText)
	}

	// Every operation now fails with ErrSessionEnded.
	if _, err := f.session.ScoreFrame(ctx); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("ScoreFrame after End: %v", err)
	}
	if _, err := f.session.IngestVideoFrame(ctx, nil); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("IngestVideoFrame after End: %v", err)
	}
	if _, err := f.session.RequestFeedback(ctx, ""); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("RequestFeedback after End: %v", err)
	}
	if _, err := f.session.End(ctx); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("second End: %v", err)
	}
}

func TestEnd_SummaryLLMFailureUsesCannedText(t *testing.T) {
	coachLLM := &llmmock.Provider{CompleteErr: errAnalyzer}
	f := newTestSession(t, "beginner", WithCoach(coachLLM))
	f.ingestBoth(t)

	ctx := context.Background()
	if _, err := f.session.ScoreFrame(ctx); err != nil {
		t.Fatalf("ScoreFrame: %v", err)
	}

	sum, err := f.session.End(ctx)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sum.SummaryText != fallbackSummary {
		t.Errorf("summary text = %q, want canned fallback", sum.SummaryText)
	}
}

func TestEnd_NoFramesSkipsCoach(t *testing.T) {
	coachLLM := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "unused"},
	}
	f := newTestSession(t, "beginner", WithCoach(coachLLM))

	sum, err := f.session.End(context.Background())
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sum.SummaryText != fallbackSummary {
		t.Errorf("summary text = %q, want canned fallback for empty session", sum.SummaryText)
	}
	if len(coachLLM.CompleteCalls) != 0 {
		t.Errorf("coach calls = %d, want 0 without scored frames", len(coachLLM.CompleteCalls))
	}
}

func TestReset_ReturnsToFreshState(t *testing.T) {
	f := newTestSession(t, "expert")
	f.ingestBoth(t)
	ctx := context.Background()

	if _, err := f.session.ScoreFrame(ctx); err != nil {
		t.Fatalf("ScoreFrame: %v", err)
	}
	if _, err := f.session.End(ctx); err != nil {
		t.Fatalf("End: %v", err)
	}

	f.session.Reset()

	if f.session.Ended() {
		t.Error("session still ended after Reset")
	}
	if f.voice.ResetCallCount != 1 {
		t.Errorf("voice analyzer resets = %d, want 1", f.voice.ResetCallCount)
	}
	if _, err := f.session.ScoreFrame(ctx); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("post-reset ScoreFrame = %v, want ErrInsufficientData (snapshots dropped)", err)
	}

	f.ingestBoth(t)
	if _, err := f.session.ScoreFrame(ctx); err != nil {
		t.Errorf("post-reset scoring failed: %v", err)
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/podiumlabs/podium/internal/coach"
	storemock "github.com/podiumlabs/podium/internal/store/mock"
	"github.com/podiumlabs/podium/pkg/audio"
	"github.com/podiumlabs/podium/pkg/metrics"
	facialmock "github.com/podiumlabs/podium/pkg/provider/facial/mock"
	"github.com/podiumlabs/podium/pkg/provider/llm"
	llmmock "github.com/podiumlabs/podium/pkg/provider/llm/mock"
	sttmock "github.com/podiumlabs/podium/pkg/provider/stt/mock"
	voicemock "github.com/podiumlabs/podium/pkg/provider/voice/mock"
)

// clientMsg mirrors ClientFrame with an encodable payload.
type clientMsg struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// receivedFrame is the client-side view of a ServerFrame.
type receivedFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type serverFixture struct {
	ts    *httptest.Server
	store *storemock.Store
	stt   *sttmock.Transcriber
	llm   *llmmock.Provider
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		store: storemock.New(),
		stt:   &sttmock.Transcriber{Texts: []string{"hello everyone welcome"}},
		llm: &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{Content: "Nice steady pace."},
		},
	}

	factory := func(id, userID, difficulty string) (*coach.Session, error) {
		return coach.NewSession(id, userID, difficulty,
			&facialmock.Analyzer{Metrics: metrics.FacialMetrics{
				FaceDetected:      true,
				Engagement:        0.9,
				EyeContact:        0.95,
				Smile:             0.8,
				Emotion:           metrics.EmotionHappiness,
				EmotionConfidence: 0.9,
			}},
			&voicemock.Analyzer{Metrics: metrics.VoiceMetrics{
				Clarity:           0.9,
				VolumeConsistency: 0.9,
				VolumeDB:          -20,
				PitchVariation:    10,
				PitchQuality:      metrics.PitchExpressive,
				SpeechRateQuality: metrics.RateOptimal,
				OverallScore:      90,
			}},
			coach.WithCoach(f.llm),
		)
	}
	mgr, err := coach.NewManager(coach.ManagerConfig{Factory: factory})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	srv, err := New(Config{
		Manager:     mgr,
		Transcriber: f.stt,
		Store:       f.store,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f.ts = httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(f.ts.Close)
	return f
}

func (f *serverFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/v1/session" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) receivedFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frame receivedFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func sendFrame(t *testing.T, conn *websocket.Conn, msg clientMsg) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func decodePayload(t *testing.T, frame receivedFrame, v any) {
	t.Helper()
	if err := json.Unmarshal(frame.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", frame.Type, err)
	}
}

func TestSessionProtocol_FullFlow(t *testing.T) {
	f := newServerFixture(t)
	conn := f.dial(t, "?user_id=user-1&difficulty=expert")
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Scoring before any media yields a recoverable error frame.
	sendFrame(t, conn, clientMsg{Type: TypeScoreRequest})
	frame := readFrame(t, conn)
	if frame.Type != TypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	var errPayload ErrorPayload
	decodePayload(t, frame, &errPayload)
	if errPayload.Code != "insufficient_data" || errPayload.Fatal {
		t.Fatalf("error payload = %+v, want non-fatal insufficient_data", errPayload)
	}

	// Stream one video frame and one audio chunk.
	sendFrame(t, conn, clientMsg{Type: TypeVideoFrame, Payload: VideoFramePayload{Frame: []byte("jpeg-bytes")}})

	pcm := audio.Int16sToBytes(make([]int16, 1600))
	sendFrame(t, conn, clientMsg{Type: TypeAudioChunk, Payload: AudioChunkPayload{Data: pcm}})

	frame = readFrame(t, conn)
	if frame.Type != TypeVoiceUpdate {
		t.Fatalf("frame type = %q, want voice_update", frame.Type)
	}
	var voicePayload VoiceUpdatePayload
	decodePayload(t, frame, &voicePayload)
	if voicePayload.Transcript != "hello everyone welcome" {
		t.Errorf("transcript = %q, want the transcriber output", voicePayload.Transcript)
	}

	// Now scoring succeeds: score_update followed by game_update.
	sendFrame(t, conn, clientMsg{Type: TypeScoreRequest})
	frame = readFrame(t, conn)
	if frame.Type != TypeScoreUpdate {
		t.Fatalf("frame type = %q, want score_update", frame.Type)
	}
	var scorePayload ScoreUpdatePayload
	decodePayload(t, frame, &scorePayload)
	if scorePayload.Score.Total <= 0 {
		t.Errorf("total = %v, want positive", scorePayload.Score.Total)
	}

	frame = readFrame(t, conn)
	if frame.Type != TypeGameUpdate {
		t.Fatalf("frame type = %q, want game_update", frame.Type)
	}
	var gamePayload GameUpdatePayload
	decodePayload(t, frame, &gamePayload)
	if gamePayload.FinalScore <= 0 {
		t.Errorf("final score = %d, want positive", gamePayload.FinalScore)
	}

	// Coaching feedback comes from the configured LLM.
	sendFrame(t, conn, clientMsg{Type: TypeFeedbackRequest})
	frame = readFrame(t, conn)
	if frame.Type != TypeFeedback {
		t.Fatalf("frame type = %q, want feedback", frame.Type)
	}
	var fbPayload FeedbackPayload
	decodePayload(t, frame, &fbPayload)
	if fbPayload.Text != "Nice steady pace." {
		t.Errorf("feedback = %q, want the coach line", fbPayload.Text)
	}

	// Ending the session delivers the summary and persists it.
	sendFrame(t, conn, clientMsg{Type: TypeEndSession})
	frame = readFrame(t, conn)
	if frame.Type != TypeSessionSummary {
		t.Fatalf("frame type = %q, want session_summary", frame.Type)
	}
	var sumPayload SessionSummaryPayload
	decodePayload(t, frame, &sumPayload)
	sum := sumPayload.Summary
	if sum.Scores.TotalFrames != 1 {
		t.Errorf("total frames = %d, want 1", sum.Scores.TotalFrames)
	}
	if sum.UserID != "user-1" || sum.Difficulty != metrics.DifficultyExpert {
		t.Errorf("summary identity = (%q, %q)", sum.UserID, sum.Difficulty)
	}

	// Persistence side effects.
	if _, ok := f.store.Session(sum.SessionID); !ok {
		t.Error("session start was not persisted")
	}
	if got := len(f.store.Scores(sum.SessionID)); got != 1 {
		t.Errorf("persisted scores = %d, want 1", got)
	}
	if _, err := f.store.GetSummary(context.Background(), sum.SessionID); err != nil {
		t.Errorf("persisted summary lookup: %v", err)
	}

	// The REST summary endpoint serves the persisted record.
	resp, err := http.Get(f.ts.URL + "/v1/sessions/" + sum.SessionID + "/summary")
	if err != nil {
		t.Fatalf("summary GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode summary body: %v", err)
	}
	if body["session_id"] != sum.SessionID {
		t.Errorf("summary session_id = %v", body["session_id"])
	}
}

func TestSessionProtocol_InvalidDifficulty(t *testing.T) {
	f := newServerFixture(t)
	conn := f.dial(t, "?difficulty=bogus")
	defer conn.Close(websocket.StatusNormalClosure, "")

	frame := readFrame(t, conn)
	if frame.Type != TypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	var payload ErrorPayload
	decodePayload(t, frame, &payload)
	if payload.Code != "invalid_session" || !payload.Fatal {
		t.Errorf("payload = %+v, want fatal invalid_session", payload)
	}
}

func TestSessionProtocol_UnknownFrameType(t *testing.T) {
	f := newServerFixture(t)
	conn := f.dial(t, "")
	defer conn.Close(websocket.StatusNormalClosure, "")

	sendFrame(t, conn, clientMsg{Type: "bogus"})
	frame := readFrame(t, conn)
	if frame.Type != TypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	var payload ErrorPayload
	decodePayload(t, frame, &payload)
	if payload.Code != "unknown_type" || payload.Fatal {
		t.Errorf("payload = %+v, want non-fatal unknown_type", payload)
	}
}

func TestSessionProtocol_TranscriberFailureDegrades(t *testing.T) {
	f := newServerFixture(t)
	f.stt.TranscribeErr = context.DeadlineExceeded
	conn := f.dial(t, "")
	defer conn.Close(websocket.StatusNormalClosure, "")

	pcm := audio.Int16sToBytes(make([]int16, 160))
	sendFrame(t, conn, clientMsg{Type: TypeAudioChunk, Payload: AudioChunkPayload{Data: pcm}})

	frame := readFrame(t, conn)
	if frame.Type != TypeVoiceUpdate {
		t.Fatalf("frame type = %q, want voice_update despite transcriber failure", frame.Type)
	}
	var payload VoiceUpdatePayload
	decodePayload(t, frame, &payload)
	if payload.Transcript != "" {
		t.Errorf("transcript = %q, want empty on transcriber failure", payload.Transcript)
	}
}

func TestSummaryLookup_NotFound(t *testing.T) {
	f := newServerFixture(t)

	resp, err := http.Get(f.ts.URL + "/v1/sessions/unknown/summary")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(f.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestNew_RequiresManager(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without a manager")
	}
}

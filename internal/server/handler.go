package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/podiumlabs/podium/internal/coach"
	"github.com/podiumlabs/podium/internal/game"
	"github.com/podiumlabs/podium/internal/observe"
	"github.com/podiumlabs/podium/internal/store"
	"github.com/podiumlabs/podium/pkg/audio"
)

// defaultPCMSampleRate is assumed for pcm16 audio chunks that omit one.
const defaultPCMSampleRate = 16000

// sessionConn handles one client's WebSocket for the lifetime of a session.
type sessionConn struct {
	srv     *Server
	conn    *websocket.Conn
	session *coach.Session

	// opus is created lazily on the first opus-encoded chunk.
	opus *audio.OpusDecoder
}

// handleSession upgrades the request and runs the session loop. The session
// is created from query parameters: user_id (optional) and difficulty
// (optional, falls back to the configured default).
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "error", err)
		return
	}

	userID := r.URL.Query().Get("user_id")
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		difficulty = s.defaultDifficulty
	}

	ctx := r.Context()

	sess, err := s.manager.Create(ctx, userID, difficulty)
	if err != nil {
		_ = wsjson.Write(ctx, conn, ServerFrame{
			Type:    TypeError,
			Payload: ErrorPayload{Code: "invalid_session", Message: err.Error(), Fatal: true},
		})
		conn.Close(websocket.StatusPolicyViolation, "invalid session parameters")
		return
	}
	s.persistSessionStart(ctx, sess)

	sc := &sessionConn{srv: s, conn: conn, session: sess}
	sc.run(ctx)
}

// run drives the read loop until the client ends the session, disconnects,
// or the server shuts down.
func (sc *sessionConn) run(ctx context.Context) {
	defer func() {
		if err := sc.srv.manager.Remove(ctx, sc.session.ID()); err != nil && !errors.Is(err, coach.ErrSessionNotFound) {
			observe.Logger(ctx).Warn("session remove failed", "session_id", sc.session.ID(), "error", err)
		}
		sc.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var frame ClientFrame
		if err := wsjson.Read(ctx, sc.conn, &frame); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				sc.endQuietly(ctx)
				return
			}
			observe.Logger(ctx).Warn("websocket read failed",
				"session_id", sc.session.ID(), "error", err)
			sc.endQuietly(ctx)
			return
		}

		done, err := sc.dispatch(ctx, frame)
		if err != nil {
			sc.writeError(ctx, "processing_failed", err.Error(), false)
		}
		if done {
			return
		}
	}
}

// dispatch routes one client frame. Returns done=true when the session is
// over and the connection should close.
func (sc *sessionConn) dispatch(ctx context.Context, frame ClientFrame) (done bool, err error) {
	switch frame.Type {
	case TypeVideoFrame:
		return false, sc.handleVideoFrame(ctx, frame.Payload)
	case TypeAudioChunk:
		return false, sc.handleAudioChunk(ctx, frame.Payload)
	case TypeScoreRequest:
		return false, sc.handleScoreRequest(ctx)
	case TypeFeedbackRequest:
		return false, sc.handleFeedbackRequest(ctx, frame.Payload)
	case TypeEndSession:
		return true, sc.handleEndSession(ctx)
	default:
		sc.writeError(ctx, "unknown_type", fmt.Sprintf("unknown frame type %q", frame.Type), false)
		return false, nil
	}
}

func (sc *sessionConn) handleVideoFrame(ctx context.Context, payload json.RawMessage) error {
	var p VideoFramePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode video_frame: %w", err)
	}
	if len(p.Frame) == 0 {
		return errors.New("video_frame: empty frame")
	}

	// Analyzer failures are absorbed into the snapshot; nothing to report.
	_, err := sc.session.IngestVideoFrame(ctx, p.Frame)
	return err
}

func (sc *sessionConn) handleAudioChunk(ctx context.Context, payload json.RawMessage) error {
	var p AudioChunkPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode audio_chunk: %w", err)
	}
	if len(p.Data) == 0 {
		return errors.New("audio_chunk: empty data")
	}

	samples, sampleRate, err := sc.decodeAudio(p)
	if err != nil {
		return err
	}

	segment := ""
	if sc.srv.transcriber != nil {
		start := time.Now()
		segment, err = sc.srv.transcriber.Transcribe(ctx, samples)
		sc.srv.met.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			observe.Logger(ctx).Warn("transcription failed",
				"session_id", sc.session.ID(), "error", err)
			sc.srv.met.RecordAnalyzerError(ctx, "stt")
			segment = ""
		}
	}

	voice, err := sc.session.IngestAudioChunk(ctx, samples, sampleRate, segment)
	if err != nil {
		return err
	}

	return sc.write(ctx, ServerFrame{
		Type:    TypeVoiceUpdate,
		Payload: VoiceUpdatePayload{Voice: voice, Transcript: segment},
	})
}

// decodeAudio converts an audio chunk payload to mono float32 samples.
func (sc *sessionConn) decodeAudio(p AudioChunkPayload) ([]float32, int, error) {
	switch p.Encoding {
	case EncodingOpus:
		if sc.opus == nil {
			dec, err := audio.NewOpusDecoder()
			if err != nil {
				return nil, 0, fmt.Errorf("audio_chunk: create opus decoder: %w", err)
			}
			sc.opus = dec
		}
		pcm, err := sc.opus.Decode(p.Data)
		if err != nil {
			return nil, 0, fmt.Errorf("audio_chunk: opus decode: %w", err)
		}
		return audio.PCMToFloat32Mono(pcm, audio.OpusChannels), audio.OpusSampleRate, nil

	case EncodingPCM16, "":
		rate := p.SampleRate
		if rate <= 0 {
			rate = defaultPCMSampleRate
		}
		return audio.PCMToFloat32(p.Data), rate, nil

	default:
		return nil, 0, fmt.Errorf("audio_chunk: unknown encoding %q", p.Encoding)
	}
}

func (sc *sessionConn) handleScoreRequest(ctx context.Context) error {
	result, err := sc.session.ScoreFrame(ctx)
	if errors.Is(err, coach.ErrInsufficientData) {
		sc.writeError(ctx, "insufficient_data", "no facial or voice data yet", false)
		return nil
	}
	if err != nil {
		return err
	}

	sc.srv.persistScore(ctx, sc.session.ID(), result)

	if err := sc.write(ctx, ServerFrame{
		Type:    TypeScoreUpdate,
		Payload: ScoreUpdatePayload{Score: result.Score},
	}); err != nil {
		return err
	}
	if err := sc.write(ctx, ServerFrame{
		Type: TypeGameUpdate,
		Payload: GameUpdatePayload{
			Combo:      result.Combo,
			BaseScore:  result.BaseScore,
			FinalScore: result.FinalScore,
			Messages:   result.Messages,
		},
	}); err != nil {
		return err
	}
	for _, a := range result.NewAchievements {
		sc.srv.persistAchievement(ctx, sc.session.ID(), a)
		if err := sc.write(ctx, ServerFrame{
			Type:    TypeAchievement,
			Payload: AchievementPayload{Achievement: a},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (sc *sessionConn) handleFeedbackRequest(ctx context.Context, payload json.RawMessage) error {
	var p FeedbackRequestPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode feedback_request: %w", err)
		}
	}

	text, err := sc.session.RequestFeedback(ctx, p.Context)
	if err != nil {
		return err
	}
	if text != "" {
		sc.srv.persistFeedback(ctx, sc.session.ID(), text)
	}

	return sc.write(ctx, ServerFrame{
		Type:    TypeFeedback,
		Payload: FeedbackPayload{Text: text},
	})
}

func (sc *sessionConn) handleEndSession(ctx context.Context) error {
	summary, err := sc.session.End(ctx)
	if err != nil {
		return err
	}

	sc.srv.persistSummary(ctx, summary)

	return sc.write(ctx, ServerFrame{
		Type:    TypeSessionSummary,
		Payload: SessionSummaryPayload{Summary: summary},
	})
}

// endQuietly ends the session on disconnect so its summary is persisted even
// when the client never sent end_session.
func (sc *sessionConn) endQuietly(ctx context.Context) {
	// The request context is gone once the connection drops; give the
	// summary generation its own deadline.
	endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	summary, err := sc.session.End(endCtx)
	if err != nil {
		if !errors.Is(err, coach.ErrSessionEnded) {
			observe.Logger(ctx).Warn("end on disconnect failed",
				"session_id", sc.session.ID(), "error", err)
		}
		return
	}
	sc.srv.persistSummary(endCtx, summary)
}

func (sc *sessionConn) write(ctx context.Context, frame ServerFrame) error {
	if err := wsjson.Write(ctx, sc.conn, frame); err != nil {
		return fmt.Errorf("server: write %s frame: %w", frame.Type, err)
	}
	return nil
}

func (sc *sessionConn) writeError(ctx context.Context, code, msg string, fatal bool) {
	err := sc.write(ctx, ServerFrame{
		Type:    TypeError,
		Payload: ErrorPayload{Code: code, Message: msg, Fatal: fatal},
	})
	if err != nil {
		observe.Logger(ctx).Warn("error frame write failed",
			"session_id", sc.session.ID(), "error", err)
	}
}

// ─── Persistence helpers ─────────────────────────────────────────────────────
//
// Persistence is best-effort: a storage failure is logged, never surfaced to
// the client and never blocks the scoring path.

func (s *Server) persistSessionStart(ctx context.Context, sess *coach.Session) {
	if s.store == nil {
		return
	}
	err := s.store.CreateSession(ctx, store.SessionRecord{
		ID:         sess.ID(),
		UserID:     sess.UserID(),
		Difficulty: string(sess.Difficulty()),
		StartedAt:  time.Now(),
	})
	if err != nil {
		observe.Logger(ctx).Warn("persist session start failed",
			"session_id", sess.ID(), "error", err)
	}
}

func (s *Server) persistScore(ctx context.Context, sessionID string, r coach.FrameResult) {
	if s.store == nil {
		return
	}
	err := s.store.RecordScore(ctx, store.ScoreEvent{
		SessionID:   sessionID,
		At:          time.Now(),
		Total:       r.Score.Total,
		Grade:       string(r.Score.Grade),
		VoiceScore:  r.Score.Voice.Score,
		FacialScore: r.Score.Facial.Score,
		Combo:       r.Combo.Combo,
		Multiplier:  r.Combo.Multiplier,
		FinalScore:  r.FinalScore,
		IsGoodFrame: r.Score.IsGoodFrame,
	})
	if err != nil {
		observe.Logger(ctx).Warn("persist score failed", "session_id", sessionID, "error", err)
	}
}

func (s *Server) persistAchievement(ctx context.Context, sessionID string, a game.Achievement) {
	if s.store == nil {
		return
	}
	err := s.store.RecordAchievement(ctx, store.AchievementUnlock{
		SessionID:     sessionID,
		AchievementID: a.ID,
		Title:         a.Name,
		XP:            a.XP,
		At:            time.Now(),
	})
	if err != nil {
		observe.Logger(ctx).Warn("persist achievement failed", "session_id", sessionID, "error", err)
	}
}

func (s *Server) persistFeedback(ctx context.Context, sessionID, text string) {
	if s.store == nil {
		return
	}
	err := s.store.RecordFeedback(ctx, store.FeedbackRecord{
		SessionID: sessionID,
		At:        time.Now(),
		Text:      text,
		Source:    "coach",
	})
	if err != nil {
		observe.Logger(ctx).Warn("persist feedback failed", "session_id", sessionID, "error", err)
	}
}

func (s *Server) persistSummary(ctx context.Context, sum coach.Summary) {
	if s.store == nil {
		return
	}
	if err := s.store.EndSession(ctx, sum.SessionID, time.Now()); err != nil && !errors.Is(err, store.ErrNotFound) {
		observe.Logger(ctx).Warn("persist session end failed", "session_id", sum.SessionID, "error", err)
	}
	err := s.store.SaveSummary(ctx, store.SummaryRecord{
		SessionID:       sum.SessionID,
		AvgScore:        sum.Scores.AvgScore,
		MaxCombo:        sum.MaxCombo,
		TotalXP:         sum.TotalXP,
		Trend:           string(sum.Scores.Trend),
		DurationSeconds: sum.DurationSeconds,
		WordCount:       sum.WordCount,
		SummaryText:     sum.SummaryText,
	})
	if err != nil {
		observe.Logger(ctx).Warn("persist summary failed", "session_id", sum.SessionID, "error", err)
	}
}

package server

import (
	"encoding/json"

	"github.com/podiumlabs/podium/internal/coach"
	"github.com/podiumlabs/podium/internal/game"
	"github.com/podiumlabs/podium/internal/scoring"
	"github.com/podiumlabs/podium/pkg/metrics"
)

// Client frame types.
const (
	TypeVideoFrame      = "video_frame"
	TypeAudioChunk      = "audio_chunk"
	TypeScoreRequest    = "score_request"
	TypeFeedbackRequest = "feedback_request"
	TypeEndSession      = "end_session"
)

// Server frame types.
const (
	TypeScoreUpdate    = "score_update"
	TypeGameUpdate     = "game_update"
	TypeVoiceUpdate    = "voice_update"
	TypeFeedback       = "feedback"
	TypeAchievement    = "achievement"
	TypeSessionSummary = "session_summary"
	TypeError          = "error"
)

// Audio encodings accepted in audio_chunk frames.
const (
	EncodingPCM16 = "pcm16"
	EncodingOpus  = "opus"
)

// ClientFrame is the envelope for every message a client sends. Payload
// decoding is deferred until the type is known.
type ClientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// VideoFramePayload carries one JPEG frame, base64-encoded by json.
type VideoFramePayload struct {
	// Frame is the JPEG image bytes.
	Frame []byte `json:"frame"`
}

// AudioChunkPayload carries one chunk of speech audio.
type AudioChunkPayload struct {
	// Data is the encoded audio bytes.
	Data []byte `json:"data"`

	// Encoding is "pcm16" (little-endian mono) or "opus" (48 kHz stereo
	// packets). Defaults to pcm16.
	Encoding string `json:"encoding,omitempty"`

	// SampleRate is the PCM sample rate in Hz. Ignored for opus. Defaults
	// to 16000.
	SampleRate int `json:"sample_rate,omitempty"`
}

// FeedbackRequestPayload optionally narrows what the coach should focus on.
type FeedbackRequestPayload struct {
	Context string `json:"context,omitempty"`
}

// ServerFrame is the envelope for every message the server sends.
type ServerFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ScoreUpdatePayload is sent in response to a score_request.
type ScoreUpdatePayload struct {
	Score scoring.Result `json:"score"`
}

// GameUpdatePayload carries the combo and arcade-score state after a
// scoring evaluation.
type GameUpdatePayload struct {
	Combo      game.ComboUpdate `json:"combo"`
	BaseScore  float64          `json:"base_score"`
	FinalScore int              `json:"final_score"`
	Messages   []game.Message   `json:"messages"`
}

// FeedbackPayload carries one coaching line. Empty text means the request
// was declined (rate limited or no data yet).
type FeedbackPayload struct {
	Text string `json:"text"`
}

// AchievementPayload announces one newly unlocked achievement.
type AchievementPayload struct {
	Achievement game.Achievement `json:"achievement"`
}

// VoiceUpdatePayload reports the refreshed voice snapshot after an
// audio_chunk, with the transcript segment recognised from it.
type VoiceUpdatePayload struct {
	Voice      metrics.VoiceMetrics `json:"voice"`
	Transcript string               `json:"transcript,omitempty"`
}

// SessionSummaryPayload is the final frame before the connection closes.
type SessionSummaryPayload struct {
	Summary coach.Summary `json:"summary"`
}

// ErrorPayload reports a recoverable protocol or processing error. The
// connection stays open unless Fatal is set.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal,omitempty"`
}

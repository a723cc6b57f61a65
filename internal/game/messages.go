package game

import (
	"fmt"

	"github.com/podiumlabs/podium/pkg/metrics"
)

// MessageTier is the severity of a feedback message.
type MessageTier string

const (
	TierPositive MessageTier = "positive"
	TierWarning  MessageTier = "warning"
	TierError    MessageTier = "error"
)

// Message is one short feedback line shown to the speaker in real time.
type Message struct {
	Tier MessageTier `json:"type"`
	Text string      `json:"message"`
	Icon string      `json:"icon"`
}

// maxMessages caps how many feedback messages one frame can carry.
const maxMessages = 3

// SelectMessages evaluates the fixed threshold predicates against the latest
// facial and voice snapshots and returns at most maxMessages messages.
//
// Predicates are evaluated in declared order: positives first, then warnings,
// then errors. The truncation to three therefore favours encouragement over
// criticism when many predicates fire at once — that ordering is deliberate.
func SelectMessages(facial *metrics.FacialMetrics, voice *metrics.VoiceMetrics) []Message {
	var msgs []Message
	add := func(tier MessageTier, text, icon string) {
		msgs = append(msgs, Message{Tier: tier, Text: text, Icon: icon})
	}

	if facial != nil {
		if facial.EyeContact > 0.8 {
			add(TierPositive, "Great eye contact!", "eye")
		}
		if facial.Smile > 0.6 {
			add(TierPositive, "Confident smile!", "smile")
		}
	}
	if voice != nil {
		if voice.PitchVariation > 15 {
			add(TierPositive, "Good vocal variety!", "music")
		}
		if voice.SpeechRateWPM >= 120 && voice.SpeechRateWPM <= 160 {
			add(TierPositive, "Perfect pace!", "target")
		}
	}

	if facial != nil {
		if facial.EyeContact < 0.4 {
			add(TierWarning, "Look at the camera", "eye-off")
		}
		if facial.Smile < 0.2 {
			add(TierWarning, "Try smiling more", "smile")
		}
	}
	if voice != nil {
		if voice.VolumeDB < -40 {
			add(TierWarning, "Speak louder", "volume")
		}
		if voice.PitchVariation < 5 {
			add(TierWarning, "Vary your tone", "trending-up")
		}
	}

	if voice != nil {
		if voice.FillerWordDetected != "" {
			add(TierError, fmt.Sprintf("Filler word: %q", voice.FillerWordDetected), "alert-triangle")
		}
		if voice.SpeakingTooFast {
			add(TierError, "Slow down!", "zap-off")
		}
		if voice.SpeakingTooSlow {
			add(TierError, "Speed up a bit", "zap")
		}
	}
	if facial != nil && !facial.FaceDetected {
		add(TierError, "Face not detected", "camera-off")
	}

	if len(msgs) > maxMessages {
		msgs = msgs[:maxMessages]
	}
	return msgs
}

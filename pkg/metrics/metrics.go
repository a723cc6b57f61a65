// Package metrics defines the shared metric records exchanged between the
// analyzers, the scoring core, and the transport layer.
//
// Each record is a typed snapshot of one signal stream. Optional fields use
// pointers so that "no data" is representable as nil and is never confused
// with a measured zero — the scoring engine excludes nil fields from its
// weighted averages instead of substituting placeholder constants.
package metrics

// Emotion is the categorical facial emotion reported by the facial analyzer.
type Emotion string

const (
	EmotionHappiness Emotion = "happiness"
	EmotionSurprise  Emotion = "surprise"
	EmotionConfident Emotion = "confident"
	EmotionNeutral   Emotion = "neutral"
	EmotionSad       Emotion = "sad"
	EmotionAnger     Emotion = "anger"
	EmotionFear      Emotion = "fear"
	EmotionUnknown   Emotion = "unknown"
)

// FacialMetrics is a per-frame snapshot from the facial analyzer.
// Score fields are in [0,1].
type FacialMetrics struct {
	// FaceDetected reports whether the analyzer found a face in the frame.
	// When false all score fields are zero and Emotion is EmotionUnknown.
	FaceDetected bool `json:"face_detected"`

	// Engagement is the overall facial-engagement score.
	Engagement float64 `json:"engagement_score"`

	// EyeContact estimates how directly the speaker looks at the camera.
	EyeContact float64 `json:"eye_contact_score"`

	// Smile is the smile-intensity score.
	Smile float64 `json:"smile_score"`

	// Emotion is the dominant classified emotion.
	Emotion Emotion `json:"emotion"`

	// EmotionConfidence is the classifier's confidence in Emotion, in [0,1].
	EmotionConfidence float64 `json:"emotion_confidence"`
}

// UnknownFacial returns the snapshot stored when the facial analyzer fails.
// It is explicitly flagged rather than reusing the previous stale value, so
// scoring never runs silently on outdated facial data.
func UnknownFacial() FacialMetrics {
	return FacialMetrics{FaceDetected: false, Emotion: EmotionUnknown}
}

// RateQuality classifies the measured speech rate.
type RateQuality string

const (
	RateTooFast RateQuality = "too_fast"
	RateTooSlow RateQuality = "too_slow"
	RateOptimal RateQuality = "optimal"
	RateUnknown RateQuality = "unknown"
)

// PitchQuality classifies the measured pitch variation.
type PitchQuality string

const (
	PitchMonotone   PitchQuality = "monotone"
	PitchAdequate   PitchQuality = "adequate"
	PitchExpressive PitchQuality = "expressive"
	PitchUnknown    PitchQuality = "unknown"
)

// VoiceMetrics is a per-chunk snapshot from the voice analyzer.
type VoiceMetrics struct {
	// SpeechRateWPM is the estimated speech rate in words per minute.
	SpeechRateWPM float64 `json:"speech_rate_wpm"`

	// SpeechRateQuality classifies SpeechRateWPM against the ideal band.
	SpeechRateQuality RateQuality `json:"speech_rate_quality"`

	// SpeakingTooFast / SpeakingTooSlow are convenience flags derived from
	// SpeechRateQuality, consumed by the feedback selector.
	SpeakingTooFast bool `json:"speaking_too_fast"`
	SpeakingTooSlow bool `json:"speaking_too_slow"`

	// PitchHz is the estimated fundamental frequency.
	PitchHz float64 `json:"pitch_hz"`

	// PitchVariation is the pitch spread in semitones over the recent window.
	PitchVariation float64 `json:"pitch_variation_semitones"`

	// PitchQuality classifies PitchVariation.
	PitchQuality PitchQuality `json:"pitch_quality"`

	// Clarity is the articulation-clarity score in [0,1].
	Clarity float64 `json:"clarity_score"`

	// VolumeDB is the chunk loudness in decibels (RMS, dBFS).
	VolumeDB float64 `json:"volume_db"`

	// VolumeConsistency is the loudness stability score in [0,1].
	VolumeConsistency float64 `json:"volume_consistency"`

	// FillerWords lists the filler tokens detected in the chunk transcript.
	FillerWords []string `json:"filler_words,omitempty"`

	// FillerWordDetected is the most recent filler token, empty when none.
	FillerWordDetected string `json:"filler_word_detected,omitempty"`

	// FillerDensity is the percentage of transcript words that are fillers.
	FillerDensity float64 `json:"filler_word_density"`

	// OverallScore is the analyzer's own 0–100 blend, used by the combo
	// engine's fast two-signal base score.
	OverallScore float64 `json:"overall_voice_score"`

	// Pause observations reported by the analyzer. Nil when the analyzer
	// cannot measure pauses for this chunk; the pacing score then excludes
	// the missing sub-signal instead of assuming a default.
	PauseFrequency    *float64 `json:"pause_frequency,omitempty"`
	AvgPauseLength    *float64 `json:"avg_pause_length,omitempty"`
	RhythmConsistency *float64 `json:"rhythm_consistency,omitempty"`
}

// UnknownVoice returns the snapshot stored when the voice analyzer fails.
func UnknownVoice() VoiceMetrics {
	return VoiceMetrics{
		SpeechRateQuality: RateUnknown,
		PitchQuality:      PitchUnknown,
	}
}

// ContentMetrics is derived from the accumulated session transcript.
// An empty transcript yields WordCount 0 and nil quality fields — never a
// placeholder constant.
type ContentMetrics struct {
	// WordCount is the total number of words accumulated so far.
	WordCount int `json:"word_count"`

	// UniqueWords is the number of distinct (case-folded) words.
	UniqueWords int `json:"unique_words"`

	// WordsPerSecond is the speaking density over the session. Nil when the
	// elapsed time is unknown or no words have been spoken.
	WordsPerSecond *float64 `json:"words_per_second,omitempty"`

	// Clarity is a lexical-complexity proxy in [0,100].
	Clarity *float64 `json:"clarity,omitempty"`

	// StructureQuality is a transcript-length proxy in [0,100].
	StructureQuality *float64 `json:"structure_quality,omitempty"`

	// VocabularyQuality is a type/token diversity ratio mapped to [0,100].
	VocabularyQuality *float64 `json:"vocabulary_quality,omitempty"`
}

// PacingMetrics describes the pause and rhythm structure of recent speech.
// Nil fields mean the signal was not measurable.
type PacingMetrics struct {
	// PauseFrequency is pauses per second.
	PauseFrequency *float64 `json:"pause_frequency,omitempty"`

	// AvgPauseLength is the mean pause duration in seconds.
	AvgPauseLength *float64 `json:"avg_pause_length,omitempty"`

	// RhythmConsistency is the rhythm stability score in [0,1].
	RhythmConsistency *float64 `json:"rhythm_consistency,omitempty"`
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 { return &v }

// Package voice defines the Analyzer interface for voice-quality analysis.
//
// An analyzer consumes the session's audio and recognised transcript as they
// arrive and produces VoiceMetrics snapshots on demand. Analyzers are
// stateful: rolling windows for loudness, pitch, and speech rate live inside
// the implementation, so each session owns exactly one analyzer instance.
package voice

import "github.com/podiumlabs/podium/pkg/metrics"

// Analyzer is the abstraction over any voice-quality backend.
//
// Implementations must be safe for concurrent use: the audio ingest
// goroutine feeds ProcessAudio while the scoring loop calls Snapshot.
type Analyzer interface {
	// ProcessAudio folds one chunk of mono float32 samples normalised to
	// [-1.0, 1.0] into the rolling analysis windows.
	ProcessAudio(samples []float32, sampleRate int)

	// ProcessTranscript folds one recognised transcript segment into the
	// speech-rate and filler-word analysis.
	ProcessTranscript(segment string)

	// Snapshot derives the current VoiceMetrics from the rolling state.
	// Returns an error when not enough audio has been observed to produce a
	// meaningful snapshot.
	Snapshot() (metrics.VoiceMetrics, error)

	// Reset clears all rolling state.
	Reset()
}

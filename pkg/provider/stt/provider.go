// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// A transcriber converts buffered utterance audio into text. The coaching
// pipeline flushes an utterance when it detects end-of-speech silence, so the
// interface is chunk-oriented rather than streaming: one buffered utterance
// in, one recognised segment out.
//
// Implementations must be safe for concurrent use; sessions transcribe in
// parallel.
package stt

import "context"

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe runs speech recognition over one utterance of mono float32
	// samples normalised to [-1.0, 1.0]. It returns the recognised text,
	// which may be empty when the audio contains no speech.
	//
	// Returns an error if recognition fails or ctx is cancelled first.
	Transcribe(ctx context.Context, samples []float32) (string, error)

	// Close releases backend resources. Transcribe must not be called after
	// Close. Calling Close more than once is safe.
	Close() error
}

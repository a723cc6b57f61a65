// Package mock provides a test double for the voice.Analyzer interface.
package mock

import (
	"sync"

	"github.com/podiumlabs/podium/pkg/metrics"
	"github.com/podiumlabs/podium/pkg/provider/voice"
)

// Analyzer is a mock implementation of voice.Analyzer.
// Set Metrics and SnapshotErr to control Snapshot; call records accumulate
// for inspection after the test.
type Analyzer struct {
	mu sync.Mutex

	// Metrics is returned by Snapshot when SnapshotErr is nil.
	Metrics metrics.VoiceMetrics

	// SnapshotErr, if non-nil, is returned as the error from Snapshot.
	SnapshotErr error

	// AudioCalls records the sample counts passed to ProcessAudio.
	AudioCalls []int

	// TranscriptCalls records the segments passed to ProcessTranscript.
	TranscriptCalls []string

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int
}

// ProcessAudio records the call.
func (a *Analyzer) ProcessAudio(samples []float32, _ int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AudioCalls = append(a.AudioCalls, len(samples))
}

// ProcessTranscript records the call.
func (a *Analyzer) ProcessTranscript(segment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.TranscriptCalls = append(a.TranscriptCalls, segment)
}

// Snapshot returns Metrics, SnapshotErr.
func (a *Analyzer) Snapshot() (metrics.VoiceMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Metrics, a.SnapshotErr
}

// Reset records the call.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ResetCallCount++
}

// Ensure Analyzer implements voice.Analyzer at compile time.
var _ voice.Analyzer = (*Analyzer)(nil)

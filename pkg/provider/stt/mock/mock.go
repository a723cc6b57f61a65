// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/podiumlabs/podium/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// SampleCount is the length of the samples slice passed to Transcribe.
	SampleCount int
}

// Transcriber is a mock implementation of stt.Transcriber.
// Zero values cause methods to return zero values and nil errors.
type Transcriber struct {
	mu sync.Mutex

	// Texts is the sequence of results returned by consecutive Transcribe
	// calls. After the sequence is exhausted the last entry repeats; an empty
	// slice returns "".
	Texts []string

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Transcribe records the call and returns the next configured text.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := len(t.TranscribeCalls)
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Ctx: ctx, SampleCount: len(samples)})
	if t.TranscribeErr != nil {
		return "", t.TranscribeErr
	}
	if len(t.Texts) == 0 {
		return "", nil
	}
	if idx >= len(t.Texts) {
		idx = len(t.Texts) - 1
	}
	return t.Texts[idx], nil
}

// Close records the call and returns nil.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CloseCallCount++
	return nil
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)

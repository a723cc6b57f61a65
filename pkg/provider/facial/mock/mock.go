// Package mock provides a test double for the facial.Analyzer interface.
package mock

import (
	"context"
	"sync"

	"github.com/podiumlabs/podium/pkg/metrics"
	"github.com/podiumlabs/podium/pkg/provider/facial"
)

// AnalyzeCall records a single invocation of AnalyzeFrame.
type AnalyzeCall struct {
	// Ctx is the context passed to AnalyzeFrame.
	Ctx context.Context
	// FrameSize is the byte length of the frame passed to AnalyzeFrame.
	FrameSize int
}

// Analyzer is a mock implementation of facial.Analyzer.
type Analyzer struct {
	mu sync.Mutex

	// Metrics is returned by AnalyzeFrame when AnalyzeErr is nil.
	Metrics metrics.FacialMetrics

	// AnalyzeErr, if non-nil, is returned as the error from AnalyzeFrame.
	AnalyzeErr error

	// AnalyzeCalls records every invocation of AnalyzeFrame in order.
	AnalyzeCalls []AnalyzeCall
}

// AnalyzeFrame records the call and returns Metrics, AnalyzeErr.
func (a *Analyzer) AnalyzeFrame(ctx context.Context, frameJPEG []byte) (metrics.FacialMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AnalyzeCalls = append(a.AnalyzeCalls, AnalyzeCall{Ctx: ctx, FrameSize: len(frameJPEG)})
	if a.AnalyzeErr != nil {
		return metrics.FacialMetrics{}, a.AnalyzeErr
	}
	return a.Metrics, nil
}

// Ensure Analyzer implements facial.Analyzer at compile time.
var _ facial.Analyzer = (*Analyzer)(nil)

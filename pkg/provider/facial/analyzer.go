// Package facial defines the Analyzer interface for facial-expression
// analysis backends.
//
// A facial analyzer takes one captured video frame and returns a
// FacialMetrics snapshot: engagement, eye contact, smile intensity, and the
// dominant classified emotion. Vision inference typically runs in a separate
// service, so the interface is context-aware and per-frame.
package facial

import (
	"context"

	"github.com/podiumlabs/podium/pkg/metrics"
)

// Analyzer is the abstraction over any facial-analysis backend.
//
// Implementations must be safe for concurrent use; frames from multiple
// sessions are analyzed in parallel.
type Analyzer interface {
	// AnalyzeFrame runs facial analysis over one JPEG-encoded video frame.
	// A frame with no detectable face returns a snapshot with
	// FaceDetected=false rather than an error; errors mean the analysis
	// itself failed.
	AnalyzeFrame(ctx context.Context, frameJPEG []byte) (metrics.FacialMetrics, error)
}

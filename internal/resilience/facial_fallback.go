package resilience

import (
	"context"

	"github.com/podiumlabs/podium/pkg/metrics"
	"github.com/podiumlabs/podium/pkg/provider/facial"
)

// FacialFallback implements [facial.Analyzer] with automatic failover across
// multiple vision backends. Sessions tolerate analyzer failures by flagging
// the snapshot as unknown, but the breaker keeps a dead vision service from
// adding a full request timeout to every frame.
type FacialFallback struct {
	group *FallbackGroup[facial.Analyzer]
}

// Compile-time interface assertion.
var _ facial.Analyzer = (*FacialFallback)(nil)

// NewFacialFallback creates a [FacialFallback] with primary as the preferred
// backend.
func NewFacialFallback(primary facial.Analyzer, primaryName string, cfg FallbackConfig) *FacialFallback {
	return &FacialFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional facial analyzer as a fallback.
func (f *FacialFallback) AddFallback(name string, analyzer facial.Analyzer) {
	f.group.AddFallback(name, analyzer)
}

// AnalyzeFrame sends the frame to the first healthy analyzer.
func (f *FacialFallback) AnalyzeFrame(ctx context.Context, frameJPEG []byte) (metrics.FacialMetrics, error) {
	return ExecuteWithResult(f.group, func(a facial.Analyzer) (metrics.FacialMetrics, error) {
		return a.AnalyzeFrame(ctx, frameJPEG)
	})
}

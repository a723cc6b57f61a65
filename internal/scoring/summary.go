package scoring

import (
	"gonum.org/v1/gonum/stat"
)

// Trend classifies how the total score developed over the session, comparing
// the mean of the first half of the history against the second half with a
// 5% relative-change deadband.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// trendMinSamples is the history length above which a trend is computed.
const trendMinSamples = 5

// Summary aggregates a session's score history.
type Summary struct {
	AvgScore float64 `json:"avg_score"`
	MaxScore float64 `json:"max_score"`
	MinScore float64 `json:"min_score"`

	// ComponentAverages holds the per-component mean scores.
	ComponentAverages map[Component]float64 `json:"component_averages"`

	BestComponent  Component `json:"best_component,omitempty"`
	WorstComponent Component `json:"worst_component,omitempty"`

	Trend       Trend `json:"improvement_trend"`
	TotalFrames int   `json:"total_frames"`
	GoodFrames  int   `json:"good_frames_count"`
}

// Summary computes the aggregate view of the score history so far. An empty
// history yields a zero summary with TrendInsufficientData.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	history := make([]Result, len(e.history))
	copy(history, e.history)
	e.mu.Unlock()

	if len(history) == 0 {
		return Summary{
			Trend:             TrendInsufficientData,
			ComponentAverages: map[Component]float64{},
		}
	}

	totals := make([]float64, len(history))
	voice := make([]float64, len(history))
	facial := make([]float64, len(history))
	content := make([]float64, len(history))
	pacing := make([]float64, len(history))
	good := 0

	for i, r := range history {
		totals[i] = r.Total
		voice[i] = r.Voice.Score
		facial[i] = r.Facial.Score
		content[i] = r.Content.Score
		pacing[i] = r.Pacing.Score
		if r.IsGoodFrame {
			good++
		}
	}

	averages := map[Component]float64{
		ComponentVoice:   round1(stat.Mean(voice, nil)),
		ComponentFacial:  round1(stat.Mean(facial, nil)),
		ComponentContent: round1(stat.Mean(content, nil)),
		ComponentPacing:  round1(stat.Mean(pacing, nil)),
	}

	best, worst := extremeComponents(averages)

	maxScore, minScore := totals[0], totals[0]
	for _, t := range totals[1:] {
		if t > maxScore {
			maxScore = t
		}
		if t < minScore {
			minScore = t
		}
	}

	return Summary{
		AvgScore:          round1(stat.Mean(totals, nil)),
		MaxScore:          round1(maxScore),
		MinScore:          round1(minScore),
		ComponentAverages: averages,
		BestComponent:     best,
		WorstComponent:    worst,
		Trend:             classifyTrend(totals),
		TotalFrames:       len(history),
		GoodFrames:        good,
	}
}

// classifyTrend splits totals into halves and compares their means. Fewer
// than trendMinSamples+1 samples cannot support a trend claim.
func classifyTrend(totals []float64) Trend {
	if len(totals) <= trendMinSamples {
		return TrendInsufficientData
	}

	half := len(totals) / 2
	first := stat.Mean(totals[:half], nil)
	second := stat.Mean(totals[half:], nil)

	switch {
	case second > first*1.05:
		return TrendImproving
	case second < first*0.95:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// extremeComponents returns the best and worst scoring components. Iteration
// uses a fixed order so equal averages resolve deterministically.
func extremeComponents(averages map[Component]float64) (best, worst Component) {
	order := []Component{ComponentVoice, ComponentFacial, ComponentContent, ComponentPacing}
	best, worst = order[0], order[0]
	for _, c := range order[1:] {
		if averages[c] > averages[best] {
			best = c
		}
		if averages[c] < averages[worst] {
			worst = c
		}
	}
	return best, worst
}

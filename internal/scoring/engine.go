// Package scoring implements the difficulty-weighted composite score for a
// coaching session.
//
// The Engine converts the four metric groups (voice, facial, content, pacing)
// into a single 0–100 score with a letter grade, ranked strengths and
// weaknesses, and a weighted feedback priority list. Component scorers are
// total functions: a missing metric group degrades to a neutral 50 that is
// flagged as "no data" rather than silently blending into the average.
//
// One Engine is owned by one session; it keeps the session's append-only
// score history from which the end-of-session summary is derived.
package scoring

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/podiumlabs/podium/pkg/metrics"
)

// Component names one of the four scored signal groups.
type Component string

const (
	ComponentVoice   Component = "voice"
	ComponentFacial  Component = "facial"
	ComponentContent Component = "content"
	ComponentPacing  Component = "pacing"
)

// Grade is the ordinal letter grade derived from the total score.
type Grade string

// neutralScore is returned for a metric group with no data. It is always
// paired with HadData=false so consumers can tell it apart from a computed 50.
const neutralScore = 50.0

// ComponentScore pairs a 0–100 component score with a flag recording whether
// any input data backed it.
type ComponentScore struct {
	Score   float64 `json:"score"`
	HadData bool    `json:"had_data"`
}

// Result is one scoring evaluation. Results are value types; the Engine
// appends a copy to the session history on every CalculateScore call.
type Result struct {
	Total   float64        `json:"total_score"`
	Voice   ComponentScore `json:"voice"`
	Facial  ComponentScore `json:"facial"`
	Content ComponentScore `json:"content"`
	Pacing  ComponentScore `json:"pacing"`

	Grade       Grade `json:"grade"`
	IsGoodFrame bool  `json:"is_good_frame"`

	// Strengths are the top components scoring at least 70, best first.
	// Weaknesses are the bottom components scoring below 75, worst first.
	Strengths  []Component `json:"strengths"`
	Weaknesses []Component `json:"weaknesses"`

	// FeedbackPriority ranks components by weight×(100−score): the most
	// important and worst performing area first. At most three entries.
	FeedbackPriority []Component `json:"feedback_priority"`

	Timestamp time.Time `json:"timestamp"`
}

// Engine computes scores for one session. Safe for concurrent use; in
// practice the owning session serialises calls anyway.
type Engine struct {
	difficulty metrics.Difficulty
	weights    metrics.Weights

	mu      sync.Mutex
	history []Result
}

// NewEngine creates an Engine for the given (already validated) difficulty.
func NewEngine(d metrics.Difficulty) *Engine {
	return &Engine{
		difficulty: d,
		weights:    d.Weights(),
	}
}

// Difficulty returns the difficulty this engine was built for.
func (e *Engine) Difficulty() metrics.Difficulty { return e.difficulty }

// CalculateScore scores one frame from the latest metric snapshots. Nil
// groups score a flagged neutral 50. The result is appended to the session
// history as a side effect.
func (e *Engine) CalculateScore(voice *metrics.VoiceMetrics, facial *metrics.FacialMetrics, content *metrics.ContentMetrics, pacing *metrics.PacingMetrics) Result {
	r := Result{
		Voice:     scoreVoice(voice),
		Facial:    scoreFacial(facial),
		Content:   scoreContent(content),
		Pacing:    scorePacing(pacing),
		Timestamp: time.Now().UTC(),
	}

	total := r.Voice.Score*e.weights.Voice +
		r.Facial.Score*e.weights.Facial +
		r.Content.Score*e.weights.Content +
		r.Pacing.Score*e.weights.Pacing
	r.Total = round1(clamp(total, 0, 100))

	r.Voice.Score = round1(r.Voice.Score)
	r.Facial.Score = round1(r.Facial.Score)
	r.Content.Score = round1(r.Content.Score)
	r.Pacing.Score = round1(r.Pacing.Score)

	r.Grade = gradeFor(r.Total)
	r.IsGoodFrame = r.Total >= e.weights.MinScoreThreshold
	r.Strengths, r.Weaknesses = performanceAreas(r)
	r.FeedbackPriority = e.prioritize(r)

	e.mu.Lock()
	e.history = append(e.history, r)
	e.mu.Unlock()

	return r
}

// History returns a copy of the session's score history, oldest first.
func (e *Engine) History() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Result, len(e.history))
	copy(out, e.history)
	return out
}

// Reset drops the score history. Used when a session is reset mid-stream.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

// ─── Component scorers ───────────────────────────────────────────────────────

// pitchQualityScores maps the categorical pitch quality to a 0–100 bucket.
var pitchQualityScores = map[metrics.PitchQuality]float64{
	metrics.PitchMonotone:   40,
	metrics.PitchAdequate:   70,
	metrics.PitchExpressive: 95,
}

// rateQualityScores maps the categorical speech-rate quality to a 0–100 bucket.
var rateQualityScores = map[metrics.RateQuality]float64{
	metrics.RateTooFast: 60,
	metrics.RateTooSlow: 60,
	metrics.RateOptimal: 100,
}

// emotionScores maps each emotion to a base appropriateness score; the final
// contribution is scaled by the classifier's confidence.
var emotionScores = map[metrics.Emotion]float64{
	metrics.EmotionHappiness: 95,
	metrics.EmotionSurprise:  90,
	metrics.EmotionConfident: 85,
	metrics.EmotionNeutral:   70,
	metrics.EmotionSad:       40,
	metrics.EmotionAnger:     30,
	metrics.EmotionFear:      35,
}

func scoreVoice(m *metrics.VoiceMetrics) ComponentScore {
	if m == nil {
		return ComponentScore{Score: neutralScore}
	}

	clarity := m.Clarity * 100
	volumeConsistency := m.VolumeConsistency * 100

	pitchQuality, ok := pitchQualityScores[m.PitchQuality]
	if !ok {
		pitchQuality = 70
	}
	rateQuality, ok := rateQualityScores[m.SpeechRateQuality]
	if !ok {
		rateQuality = 80
	}

	fillerScore := math.Max(0, 100-m.FillerDensity*10)

	score := clarity*0.25 +
		volumeConsistency*0.20 +
		pitchQuality*0.25 +
		fillerScore*0.15 +
		rateQuality*0.15

	return ComponentScore{Score: clamp(score, 0, 100), HadData: true}
}

func scoreFacial(m *metrics.FacialMetrics) ComponentScore {
	if m == nil {
		return ComponentScore{Score: neutralScore}
	}

	emotionBase, ok := emotionScores[m.Emotion]
	if !ok {
		emotionBase = 70
	}
	emotionScore := emotionBase * m.EmotionConfidence

	score := m.Engagement*100*0.35 +
		m.EyeContact*100*0.30 +
		m.Smile*100*0.20 +
		emotionScore*0.15

	return ComponentScore{Score: clamp(score, 0, 100), HadData: true}
}

func scoreContent(m *metrics.ContentMetrics) ComponentScore {
	if m == nil || m.WordCount == 0 {
		return ComponentScore{Score: neutralScore}
	}

	// Word-density banding: 1.5–3.5 words/sec is ideal, the adjacent bands
	// score 80, everything else 50. Unknown rate defaults to 80.
	density := 80.0
	if m.WordsPerSecond != nil && *m.WordsPerSecond > 0 {
		wps := *m.WordsPerSecond
		switch {
		case wps >= 1.5 && wps <= 3.5:
			density = 100
		case (wps >= 1.0 && wps < 1.5) || (wps > 3.5 && wps <= 4.5):
			density = 80
		default:
			density = 50
		}
	}

	// Weighted sum over the sub-signals that are present. Missing quality
	// proxies are excluded and the remaining weights renormalised, so a nil
	// field never contributes a phantom default.
	sum := density * 0.30
	used := 0.30
	for _, part := range []struct {
		v *float64
		w float64
	}{
		{m.Clarity, 0.25},
		{m.StructureQuality, 0.25},
		{m.VocabularyQuality, 0.20},
	} {
		if part.v != nil {
			sum += *part.v * part.w
			used += part.w
		}
	}

	return ComponentScore{Score: clamp(sum/used, 0, 100), HadData: true}
}

func scorePacing(m *metrics.PacingMetrics) ComponentScore {
	if m == nil || (m.PauseFrequency == nil && m.AvgPauseLength == nil && m.RhythmConsistency == nil) {
		return ComponentScore{Score: neutralScore}
	}

	sum, used := 0.0, 0.0

	if m.PauseFrequency != nil {
		// Ideal band 0.2–0.6 pauses/sec; score drops with distance from it.
		f := *m.PauseFrequency
		freqScore := 100.0
		switch {
		case f < 0.1 || f > 0.7:
			freqScore = 60
		case f < 0.2 || f > 0.6:
			freqScore = 80
		}
		sum += freqScore * 0.35
		used += 0.35
	}

	if m.AvgPauseLength != nil {
		// Ideal band 0.5–1.5 s average pause.
		l := *m.AvgPauseLength
		pauseScore := 100.0
		switch {
		case l < 0.3 || l > 2.0:
			pauseScore = 60
		case l < 0.5 || l > 1.5:
			pauseScore = 80
		}
		sum += pauseScore * 0.35
		used += 0.35
	}

	if m.RhythmConsistency != nil {
		sum += *m.RhythmConsistency * 100 * 0.30
		used += 0.30
	}

	return ComponentScore{Score: clamp(sum/used, 0, 100), HadData: true}
}

// ─── Grading and ranking ─────────────────────────────────────────────────────

// gradeTable maps inclusive lower bounds to grades, checked in order.
// Ties at a boundary take the higher grade.
var gradeTable = []struct {
	min   float64
	grade Grade
}{
	{90, "A+"},
	{85, "A"},
	{80, "B+"},
	{75, "B"},
	{70, "C+"},
	{65, "C"},
	{60, "D"},
}

func gradeFor(total float64) Grade {
	for _, g := range gradeTable {
		if total >= g.min {
			return g.grade
		}
	}
	return "F"
}

// performanceAreas ranks components into strengths (top 2 scoring ≥70,
// descending) and weaknesses (bottom 2 scoring <75, ascending). The ≥70
// filter is hard: a component below 70 is never a strength even when it
// ranks in the top two.
func performanceAreas(r Result) (strengths, weaknesses []Component) {
	ranked := rankedComponents(r)

	for _, c := range ranked[:2] {
		if c.score >= 70 {
			strengths = append(strengths, c.name)
		}
	}
	for i := len(ranked) - 1; i >= len(ranked)-2; i-- {
		if ranked[i].score < 75 {
			weaknesses = append(weaknesses, ranked[i].name)
		}
	}
	return strengths, weaknesses
}

// prioritize ranks all components by weight×(100−score) descending and
// returns the top three.
func (e *Engine) prioritize(r Result) []Component {
	type prio struct {
		name       Component
		importance float64
	}
	prios := []prio{
		{ComponentVoice, e.weights.Voice * (100 - r.Voice.Score)},
		{ComponentFacial, e.weights.Facial * (100 - r.Facial.Score)},
		{ComponentContent, e.weights.Content * (100 - r.Content.Score)},
		{ComponentPacing, e.weights.Pacing * (100 - r.Pacing.Score)},
	}
	sort.SliceStable(prios, func(i, j int) bool { return prios[i].importance > prios[j].importance })

	out := make([]Component, 0, 3)
	for _, p := range prios[:3] {
		out = append(out, p.name)
	}
	return out
}

type rankedComponent struct {
	name  Component
	score float64
}

// rankedComponents returns the four components sorted by score descending.
// The sort is stable so equal scores keep the voice/facial/content/pacing
// declaration order, making tie-breaks deterministic.
func rankedComponents(r Result) []rankedComponent {
	ranked := []rankedComponent{
		{ComponentVoice, r.Voice.Score},
		{ComponentFacial, r.Facial.Score},
		{ComponentContent, r.Content.Score},
		{ComponentPacing, r.Pacing.Score},
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package metrics

import "fmt"

// Difficulty selects the weight tables and thresholds used by the scoring and
// game engines. It is fixed for the lifetime of a session.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyExpert       Difficulty = "expert"
)

// IsValid reports whether d is a recognised difficulty level.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyExpert:
		return true
	}
	return false
}

// ParseDifficulty validates s and returns it as a Difficulty. Unrecognised
// values are rejected rather than silently defaulted, so configuration bugs
// surface at session construction instead of skewing every score afterwards.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(s)
	if !d.IsValid() {
		return "", fmt.Errorf("metrics: invalid difficulty %q; valid values: beginner, intermediate, expert", s)
	}
	return d, nil
}

// Weights holds the per-difficulty composite-score weights and the good-frame
// threshold. The four component weights sum to 1.
type Weights struct {
	Voice   float64
	Facial  float64
	Content float64
	Pacing  float64

	// MinScoreThreshold is the total score at or above which a frame counts
	// as "good".
	MinScoreThreshold float64
}

// difficultyWeights is the fixed per-difficulty weight table. Voice quality
// dominates for beginners; content quality dominates for experts.
var difficultyWeights = map[Difficulty]Weights{
	DifficultyBeginner:     {Voice: 0.35, Facial: 0.30, Content: 0.20, Pacing: 0.15, MinScoreThreshold: 50},
	DifficultyIntermediate: {Voice: 0.30, Facial: 0.25, Content: 0.30, Pacing: 0.15, MinScoreThreshold: 65},
	DifficultyExpert:       {Voice: 0.25, Facial: 0.20, Content: 0.40, Pacing: 0.15, MinScoreThreshold: 80},
}

// Weights returns the composite-score weight set for d.
// Unknown difficulties fall back to intermediate weights; construction paths
// reject invalid difficulties before this can matter.
func (d Difficulty) Weights() Weights {
	if w, ok := difficultyWeights[d]; ok {
		return w
	}
	return difficultyWeights[DifficultyIntermediate]
}

// comboRules is the fixed per-difficulty combo table: the score a frame must
// reach to count as good, and how many consecutive good frames produce one
// combo tick.
var comboRules = map[Difficulty]struct {
	threshold float64
	increment int
}{
	DifficultyBeginner:     {threshold: 50, increment: 3},
	DifficultyIntermediate: {threshold: 65, increment: 2},
	DifficultyExpert:       {threshold: 80, increment: 1},
}

// GoodScoreThreshold returns the combo engine's good-performance threshold.
func (d Difficulty) GoodScoreThreshold() float64 {
	if r, ok := comboRules[d]; ok {
		return r.threshold
	}
	return comboRules[DifficultyIntermediate].threshold
}

// ComboIncrement returns how many consecutive good frames are needed per
// combo tick. Beginners tick every 3rd good frame against a low threshold;
// experts tick every good frame against a high one. The combined curve is
// preserved exactly as tuned, not re-derived.
func (d Difficulty) ComboIncrement() int {
	if r, ok := comboRules[d]; ok {
		return r.increment
	}
	return comboRules[DifficultyIntermediate].increment
}

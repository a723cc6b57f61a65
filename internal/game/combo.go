// Package game implements the moment-to-moment gamification layer: the combo
// state machine, the achievement catalogue, and the threshold-based feedback
// message selector.
//
// The combo engine deliberately uses a fast two-signal blend of the facial
// and voice scores rather than the scoring engine's full four-signal model:
// gamification reacts per frame, while the authoritative score is computed
// separately by the scoring package.
package game

import (
	"math"

	"github.com/podiumlabs/podium/pkg/metrics"
)

// ComboStatus labels the combo state after an update.
type ComboStatus string

const (
	// ComboStart means no combo has been built yet.
	ComboStart ComboStatus = "START"

	// ComboGoodStart through ComboLegendary are the sustained-performance
	// tiers, keyed on the current combo count.
	ComboGoodStart   ComboStatus = "GOOD_START"
	ComboOnFire      ComboStatus = "ON_FIRE"
	ComboUnstoppable ComboStatus = "UNSTOPPABLE"
	ComboLegendary   ComboStatus = "LEGENDARY"

	// ComboBroken is emitted exactly once, on the update that drops a live
	// combo back to zero.
	ComboBroken ComboStatus = "COMBO_BROKEN"

	// ComboKeepTrying is emitted when performance is poor but there was no
	// combo to break.
	ComboKeepTrying ComboStatus = "KEEP_TRYING"
)

// breakBuffer is the hysteresis band below the good-score threshold. A frame
// inside the band neither extends nor breaks the combo, so a single marginal
// frame cannot flicker a long combo away.
const breakBuffer = 20

// ComboUpdate is the outcome of one ComboEngine.Update call.
type ComboUpdate struct {
	Combo      int         `json:"combo"`
	MaxCombo   int         `json:"max_combo"`
	Multiplier float64     `json:"multiplier"`
	Status     ComboStatus `json:"combo_status"`
}

// ComboEngine tracks consecutive good performance for one session.
// Not safe for concurrent use; the owning session serialises updates.
type ComboEngine struct {
	threshold float64
	increment int

	combo           int
	maxCombo        int
	consecutiveGood int
}

// NewComboEngine creates a ComboEngine using the given difficulty's
// good-score threshold and combo increment.
func NewComboEngine(d metrics.Difficulty) *ComboEngine {
	return &ComboEngine{
		threshold: d.GoodScoreThreshold(),
		increment: d.ComboIncrement(),
	}
}

// Update advances the state machine with one frame's base score and returns
// the resulting combo state.
//
// Scores at or above the threshold extend the good streak; every increment'th
// consecutive good frame adds a combo tick. Scores more than breakBuffer
// below the threshold break the combo (or emit KEEP_TRYING when there was
// none). Scores inside the buffer leave the state untouched.
func (c *ComboEngine) Update(score float64) ComboUpdate {
	var status ComboStatus

	switch {
	case score >= c.threshold:
		c.consecutiveGood++
		if c.consecutiveGood%c.increment == 0 {
			c.combo++
			if c.combo > c.maxCombo {
				c.maxCombo = c.combo
			}
		}
		status = statusFor(c.combo)

	case score < c.threshold-breakBuffer:
		if c.combo > 0 {
			status = ComboBroken
		} else {
			status = ComboKeepTrying
		}
		c.combo = 0
		c.consecutiveGood = 0

	default:
		// Hysteresis band: hold the combo.
		status = statusFor(c.combo)
	}

	return ComboUpdate{
		Combo:      c.combo,
		MaxCombo:   c.maxCombo,
		Multiplier: multiplierFor(c.combo),
		Status:     status,
	}
}

// Combo returns the current combo count.
func (c *ComboEngine) Combo() int { return c.combo }

// MaxCombo returns the highest combo reached this session. It never
// decreases until Reset.
func (c *ComboEngine) MaxCombo() int { return c.maxCombo }

// Reset returns the engine to the zero state.
func (c *ComboEngine) Reset() {
	c.combo = 0
	c.maxCombo = 0
	c.consecutiveGood = 0
}

func statusFor(combo int) ComboStatus {
	switch {
	case combo == 0:
		return ComboStart
	case combo < 10:
		return ComboGoodStart
	case combo < 30:
		return ComboOnFire
	case combo < 60:
		return ComboUnstoppable
	default:
		return ComboLegendary
	}
}

// multiplierFor maps the combo count to the step multiplier table. The steps
// are intentionally discontinuous; crossing a tier is a visible reward.
func multiplierFor(combo int) float64 {
	switch {
	case combo < 10:
		return 1.0
	case combo < 30:
		return 1.5
	case combo < 60:
		return 2.0
	default:
		return 3.0
	}
}

// BaseScore is the fast per-frame blend feeding the combo engine:
// 60% facial, 40% voice, both on the 0–100 scale.
func BaseScore(facialScore, voiceScore float64) float64 {
	return facialScore*0.6 + voiceScore*0.4
}

// FinalScore applies the combo multiplier to a base score and rounds to the
// nearest integer point.
func FinalScore(baseScore, multiplier float64) int {
	return int(math.Round(baseScore * multiplier))
}

package coach

import (
	"github.com/podiumlabs/podium/internal/game"
	"github.com/podiumlabs/podium/pkg/metrics"
)

// fallbackSummary is returned when the LLM summary fails. Generic but never
// silent.
const fallbackSummary = "Great session! Keep practicing and you'll see continued improvement."

// defaultFeedback is the rule-based text when no predicate fires.
const defaultFeedback = "You're doing well. Keep your energy up and stay connected with your audience."

// ruleBasedFeedback builds a deterministic coaching sentence from the same
// threshold predicates the real-time message selector uses. It backs the LLM
// coach so the speaker never goes without feedback when the model is down.
func ruleBasedFeedback(facial metrics.FacialMetrics, voice metrics.VoiceMetrics) string {
	msgs := game.SelectMessages(&facial, &voice)
	if len(msgs) == 0 {
		return defaultFeedback
	}

	// Lead with the most urgent tier so the fallback corrects before it
	// praises; the selector orders positives first.
	for _, tier := range []game.MessageTier{game.TierError, game.TierWarning, game.TierPositive} {
		for _, m := range msgs {
			if m.Tier == tier {
				return m.Text
			}
		}
	}
	return defaultFeedback
}

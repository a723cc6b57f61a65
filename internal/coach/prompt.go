package coach

import (
	"fmt"
	"strings"

	"github.com/podiumlabs/podium/internal/scoring"
	"github.com/podiumlabs/podium/pkg/metrics"
)

// systemPrompt frames every coaching completion. The hard 15-20 word budget
// keeps feedback speakable inside the real-time loop.
const systemPrompt = `You are an expert speech and presentation coach with expertise in:
- Public speaking and presentation skills
- Vocal techniques (pitch, clarity, pace, volume)
- Non-verbal communication (facial expressions, eye contact, posture)
- Emotional intelligence and engagement
- Real-time performance feedback

Your role is to provide IMMEDIATE, ACTIONABLE, and ENCOURAGING feedback to speakers.

IMPORTANT GUIDELINES:
1. Keep feedback SHORT - maximum 2 sentences (15-20 words)
2. Be SPECIFIC - reference exact metrics when possible
3. Be ACTIONABLE - tell them what to do, not just what to improve
4. Be ENCOURAGING - always maintain a positive, constructive tone
5. Focus on THE MOST CRITICAL ISSUE at any given moment
6. Use simple, direct language

FEEDBACK TYPES:
- PRAISE: When performance is good, acknowledge it genuinely
- CORRECTION: When performance drops, suggest specific improvement
- REMINDER: When they slip on something good, remind them to maintain it
- ENCOURAGEMENT: When struggling, offer support and next steps

Examples of good feedback:
- "Great energy! Maintain that smile."
- "Slow down slightly - clarity increased. Well done!"
- "Pause before key points to let them land."
- "Your pitch is engaging. Keep that variety!"

METRICS YOU'LL RECEIVE:
- Voice metrics: pitch, clarity, speech rate, volume consistency
- Facial metrics: smile score, eye contact, engagement level
- Content: filler words, sentence structure, topic flow
- Overall scores (0-100 scale)

Respond ONLY with feedback - no explanations, meta-commentary, or preamble.`

// transcriptTailWords is how many recent words of the transcript the prompt
// carries. Enough for the model to reference what was said, small enough to
// keep the prompt cheap.
const transcriptTailWords = 20

// buildFeedbackPrompt assembles the per-request metric snapshot the coach
// model sees.
func buildFeedbackPrompt(facial metrics.FacialMetrics, voice metrics.VoiceMetrics, transcriptTail, context string) string {
	strengths, weaknesses := performanceAreas(facial, voice)

	var b strings.Builder
	b.WriteString("Based on the current performance metrics, provide ONE concise, actionable tip (maximum 15-20 words):\n\n")

	fmt.Fprintf(&b, "VOICE METRICS:\n")
	fmt.Fprintf(&b, "- Speech Rate: %.0f WPM (%s)\n", voice.SpeechRateWPM, voice.SpeechRateQuality)
	fmt.Fprintf(&b, "- Clarity Score: %.0f%%\n", voice.Clarity*100)
	fmt.Fprintf(&b, "- Volume Consistency: %.0f%%\n", voice.VolumeConsistency*100)
	fmt.Fprintf(&b, "- Pitch Variation: %s (%.1f semitones)\n", voice.PitchQuality, voice.PitchVariation)
	fmt.Fprintf(&b, "- Voice Score: %.0f/100\n", voice.OverallScore)
	fmt.Fprintf(&b, "- Filler Words: %s\n\n", fillerList(voice.FillerWords))

	fmt.Fprintf(&b, "FACIAL/ENGAGEMENT METRICS:\n")
	fmt.Fprintf(&b, "- Primary Emotion: %s (%.0f%% confidence)\n", facial.Emotion, facial.EmotionConfidence*100)
	fmt.Fprintf(&b, "- Engagement Score: %.0f%%\n", facial.Engagement*100)
	fmt.Fprintf(&b, "- Eye Contact: %.0f%%\n", facial.EyeContact*100)
	fmt.Fprintf(&b, "- Smile: %.0f%%\n\n", facial.Smile*100)

	if transcriptTail != "" {
		fmt.Fprintf(&b, "RECENT TRANSCRIPT: %q\n\n", transcriptTail)
	}

	fmt.Fprintf(&b, "IDENTIFIED STRENGTHS: %s\n", orDefault(strings.Join(strengths, ", "), "Building up..."))
	fmt.Fprintf(&b, "CURRENT FOCUS AREAS: %s\n", orDefault(strings.Join(weaknesses, ", "), "Monitor overall quality"))

	if context != "" {
		fmt.Fprintf(&b, "\nCONTEXT: %s\n", context)
	}

	b.WriteString("\nProvide ONLY feedback - be brief, specific, and actionable. No meta-commentary.")
	return b.String()
}

// buildSummaryPrompt assembles the end-of-session summary request.
func buildSummaryPrompt(s scoring.Summary, durationSec float64, wordCount, maxCombo, totalXP int, recentFeedback []string) string {
	var b strings.Builder
	b.WriteString("Based on this entire practice session, provide a comprehensive, encouraging summary (2-3 paragraphs):\n\n")

	fmt.Fprintf(&b, "SESSION STATISTICS:\n")
	fmt.Fprintf(&b, "- Frames Scored: %d (%d good)\n", s.TotalFrames, s.GoodFrames)
	fmt.Fprintf(&b, "- Average Score: %.0f/100 (best %.0f, worst %.0f)\n", s.AvgScore, s.MaxScore, s.MinScore)
	fmt.Fprintf(&b, "- Max Combo: %dx\n", maxCombo)
	fmt.Fprintf(&b, "- XP Earned: %d\n", totalXP)
	fmt.Fprintf(&b, "- Total Duration: %.0f seconds\n", durationSec)
	fmt.Fprintf(&b, "- Words Spoken: %d\n", wordCount)
	fmt.Fprintf(&b, "- Trend: %s\n\n", s.Trend)

	fmt.Fprintf(&b, "STRONGEST AREA: %s\n", s.BestComponent)
	fmt.Fprintf(&b, "WEAKEST AREA: %s\n\n", s.WorstComponent)

	if len(recentFeedback) > 0 {
		b.WriteString("FEEDBACK HISTORY:\n")
		for i, f := range recentFeedback {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Provide an encouraging but honest summary that:
1. Celebrates their efforts and improvements
2. Identifies key takeaways
3. Suggests focused practice areas
4. Motivates them to continue improving`)
	return b.String()
}

// performanceAreas derives the prompt's strength/focus lines from the same
// fixed thresholds the rule-based fallback uses. At most two of each.
func performanceAreas(facial metrics.FacialMetrics, voice metrics.VoiceMetrics) (strengths, weaknesses []string) {
	if voice.OverallScore > 75 {
		strengths = append(strengths, "Strong voice quality")
	}
	if voice.Clarity > 0.8 {
		strengths = append(strengths, "Excellent clarity")
	}
	if voice.PitchQuality == metrics.PitchExpressive {
		strengths = append(strengths, "Good pitch variation")
	}
	if facial.Engagement > 0.7 {
		strengths = append(strengths, "High engagement")
	}
	if facial.Smile > 0.6 {
		strengths = append(strengths, "Good smile frequency")
	}

	switch voice.SpeechRateQuality {
	case metrics.RateTooFast:
		weaknesses = append(weaknesses, "Speaking too fast")
	case metrics.RateTooSlow:
		weaknesses = append(weaknesses, "Speaking too slowly")
	}
	if voice.Clarity < 0.6 {
		weaknesses = append(weaknesses, "Clarity needs work")
	}
	if voice.VolumeConsistency < 0.6 {
		weaknesses = append(weaknesses, "Improve volume consistency")
	}
	if voice.PitchQuality == metrics.PitchMonotone {
		weaknesses = append(weaknesses, "Add pitch variety")
	}
	if len(voice.FillerWords) > 0 {
		weaknesses = append(weaknesses, "Reduce filler words")
	}
	if facial.Engagement < 0.5 {
		weaknesses = append(weaknesses, "Low engagement")
	}
	if facial.EyeContact < 0.5 {
		weaknesses = append(weaknesses, "Increase eye contact")
	}

	if len(strengths) > 2 {
		strengths = strengths[:2]
	}
	if len(weaknesses) > 2 {
		weaknesses = weaknesses[:2]
	}
	return strengths, weaknesses
}

func fillerList(words []string) string {
	if len(words) == 0 {
		return "None detected"
	}
	return strings.Join(words, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

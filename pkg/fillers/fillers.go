// Package fillers detects speech disfluency tokens ("um", "uh", "like", …)
// in transcript text.
//
// Detection is two-stage: an exact lexicon lookup for the canonical filler
// vocabulary (including multi-word fillers such as "you know"), then a
// phonetic pass using Double Metaphone codes with Jaro-Winkler ranking so
// that transcription variants like "umm" or "uhh" still register as fillers.
package fillers

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultLexicon is the canonical filler vocabulary. Multi-word entries are
// matched against the raw lowercased segment; single words are matched token
// by token.
var defaultLexicon = []string{
	"um", "uh", "like", "you know", "so", "actually",
	"basically", "literally", "kind of", "sort of", "i mean",
	"ah", "er", "hmm", "well", "okay", "you see", "right",
}

// phoneticThreshold is the minimum Jaro-Winkler similarity a phonetic
// candidate must reach before a token counts as a filler variant.
const phoneticThreshold = 0.88

// Detector finds filler words in transcript segments. Read-only after
// construction; safe for concurrent use.
type Detector struct {
	single map[string]struct{}
	multi  []string

	// codes maps a Double Metaphone code to the canonical single-word
	// fillers producing it.
	codes map[string][]string
}

// Option configures a Detector.
type Option func(*Detector)

// WithLexicon replaces the default filler vocabulary.
func WithLexicon(words []string) Option {
	return func(d *Detector) {
		d.single = make(map[string]struct{})
		d.multi = nil
		d.codes = make(map[string][]string)
		for _, w := range words {
			d.index(strings.ToLower(strings.TrimSpace(w)))
		}
	}
}

// New creates a Detector with the default lexicon.
func New(opts ...Option) *Detector {
	d := &Detector{
		single: make(map[string]struct{}),
		codes:  make(map[string][]string),
	}
	for _, w := range defaultLexicon {
		d.index(w)
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Detector) index(w string) {
	if w == "" {
		return
	}
	if strings.Contains(w, " ") {
		d.multi = append(d.multi, w)
		return
	}
	d.single[w] = struct{}{}
	p, s := matchr.DoubleMetaphone(w)
	if p != "" {
		d.codes[p] = append(d.codes[p], w)
	}
	if s != "" && s != p {
		d.codes[s] = append(d.codes[s], w)
	}
}

// Detect returns the filler tokens found in segment, in order of appearance.
// Each occurrence is reported; callers wanting a set can deduplicate.
func (d *Detector) Detect(segment string) []string {
	lower := strings.ToLower(segment)
	var found []string

	for _, phrase := range d.multi {
		if strings.Contains(lower, phrase) {
			found = append(found, phrase)
		}
	}

	for _, token := range Tokenize(lower) {
		if _, ok := d.single[token]; ok {
			found = append(found, token)
			continue
		}
		if canonical := d.phoneticMatch(token); canonical != "" {
			found = append(found, canonical)
		}
	}
	return found
}

// phoneticMatch returns the canonical filler that token is a phonetic
// variant of, or "" when there is none.
func (d *Detector) phoneticMatch(token string) string {
	if len(token) < 2 || len(token) > 6 {
		return ""
	}
	p, s := matchr.DoubleMetaphone(token)

	best := ""
	bestScore := 0.0
	for _, code := range []string{p, s} {
		if code == "" {
			continue
		}
		for _, candidate := range d.codes[code] {
			if score := matchr.JaroWinkler(token, candidate, false); score > bestScore {
				best, bestScore = candidate, score
			}
		}
	}
	if bestScore >= phoneticThreshold {
		return best
	}
	return ""
}

// Density returns the percentage of words in segment that are fillers.
// A segment with no words has density 0.
func (d *Detector) Density(segment string) float64 {
	words := Tokenize(strings.ToLower(segment))
	if len(words) == 0 {
		return 0
	}
	return float64(len(d.Detect(segment))) / float64(len(words)) * 100
}

// Tokenize splits text into lowercase word tokens, stripping surrounding
// punctuation. Empty tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(f, ".,;:!?\"'()[]{}…—-")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

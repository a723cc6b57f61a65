// Package transcript accumulates the recognised speech of one session and
// derives content metrics from it.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/podiumlabs/podium/pkg/fillers"
	"github.com/podiumlabs/podium/pkg/metrics"
)

// Buffer collects transcript segments for one session. Safe for concurrent
// use: the speech recogniser appends while the scoring loop reads.
type Buffer struct {
	mu       sync.Mutex
	segments []string
	words    []string
	unique   map[string]struct{}
}

// NewBuffer returns an empty transcript buffer.
func NewBuffer() *Buffer {
	return &Buffer{unique: make(map[string]struct{})}
}

// Append adds one recognised segment. Blank segments are ignored.
func (b *Buffer) Append(segment string) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return
	}

	tokens := fillers.Tokenize(strings.ToLower(segment))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.segments = append(b.segments, segment)
	b.words = append(b.words, tokens...)
	for _, t := range tokens {
		b.unique[t] = struct{}{}
	}
}

// WordCount returns the number of words accumulated so far.
func (b *Buffer) WordCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.words)
}

// Text returns the full transcript joined with spaces.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.segments, " ")
}

// Tail returns the last n words of the transcript joined with spaces. Used
// to build compact coaching prompts without shipping the whole session.
func (b *Buffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.words) == 0 {
		return ""
	}
	if n > len(b.words) {
		n = len(b.words)
	}
	return strings.Join(b.words[len(b.words)-n:], " ")
}

// Reset clears the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.segments = nil
	b.words = nil
	b.unique = make(map[string]struct{})
}

// ContentMetrics derives the content snapshot from the transcript so far.
// An empty transcript yields WordCount 0 with every quality field nil; the
// scoring engine then treats content as "no data" instead of scoring
// silence. Elapsed is the speaking time so far; pass 0 when unknown and
// WordsPerSecond stays nil.
func (b *Buffer) ContentMetrics(elapsed time.Duration) metrics.ContentMetrics {
	b.mu.Lock()
	words := len(b.words)
	unique := len(b.unique)
	meanLen := 0.0
	if words > 0 {
		total := 0
		for _, w := range b.words {
			total += len(w)
		}
		meanLen = float64(total) / float64(words)
	}
	b.mu.Unlock()

	m := metrics.ContentMetrics{WordCount: words, UniqueWords: unique}
	if words == 0 {
		return m
	}

	if elapsed > 0 {
		m.WordsPerSecond = metrics.Float(float64(words) / elapsed.Seconds())
	}
	m.Clarity = metrics.Float(clarityProxy(meanLen))
	m.StructureQuality = metrics.Float(structureProxy(words))
	m.VocabularyQuality = metrics.Float(vocabularyProxy(unique, words))
	return m
}

// clarityProxy maps the mean word length onto [0,100]. Mid-length words
// (4–6 characters) read as the clearest register; very short or very long
// averages suggest mumbling fragments or jargon runs.
func clarityProxy(meanWordLen float64) float64 {
	switch {
	case meanWordLen >= 4 && meanWordLen <= 6:
		return 90
	case meanWordLen >= 3 && meanWordLen < 4, meanWordLen > 6 && meanWordLen <= 7.5:
		return 75
	default:
		return 60
	}
}

// structureProxy rewards having enough material to carry an argument. It is
// a transcript-length heuristic, not a discourse parse.
func structureProxy(words int) float64 {
	switch {
	case words >= 100:
		return 85
	case words >= 40:
		return 75
	case words >= 15:
		return 65
	default:
		return 55
	}
}

// vocabularyProxy maps the type/token ratio onto [0,100]. The ratio shrinks
// naturally as transcripts grow, so the bands are generous at the low end.
func vocabularyProxy(unique, words int) float64 {
	ratio := float64(unique) / float64(words)
	switch {
	case ratio >= 0.7:
		return 90
	case ratio >= 0.5:
		return 80
	case ratio >= 0.35:
		return 70
	default:
		return 55
	}
}

// Package basic implements voice.Analyzer with local signal processing: RMS
// loudness, autocorrelation pitch tracking, silence-run pause detection, and
// transcript-driven speech-rate and filler analysis. No external service is
// involved, which keeps the per-chunk cost low enough for the real-time loop.
package basic

import (
	"errors"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/podiumlabs/podium/pkg/audio"
	"github.com/podiumlabs/podium/pkg/fillers"
	"github.com/podiumlabs/podium/pkg/metrics"
	"github.com/podiumlabs/podium/pkg/provider/voice"
)

// ErrNoAudio is returned by Snapshot before any audio has been processed.
var ErrNoAudio = errors.New("voice: no audio processed yet")

const (
	// silenceRMS is the normalised RMS amplitude below which a chunk counts
	// as silence.
	silenceRMS = 0.01

	// minPauseMs is the shortest silent run recorded as a deliberate pause.
	minPauseMs = 300

	// windowSize caps the rolling loudness and pitch windows.
	windowSize = 100

	// rateWindow is how far back transcript segments count towards the
	// rolling words-per-minute estimate.
	rateWindow = 30 * time.Second

	// Pitch search range for the autocorrelation tracker.
	minPitchHz = 60
	maxPitchHz = 400

	// Speech-rate classification thresholds in words per minute.
	tooFastWPM = 180
	tooSlowWPM = 100
)

// Compile-time assertion that Analyzer satisfies voice.Analyzer.
var _ voice.Analyzer = (*Analyzer)(nil)

// wordEvent is one transcript segment's word count with its arrival time.
type wordEvent struct {
	at    time.Time
	words int
}

// Analyzer is a local voice-quality analyzer for one session.
type Analyzer struct {
	detector *fillers.Detector
	now      func() time.Time

	mu sync.Mutex

	chunks       int
	voicedChunks int

	volumeDB []float64
	pitchHz  []float64

	// Pause tracking.
	silentMs   int
	inSilence  bool
	pauseLens  []float64
	elapsedSec float64

	// Transcript-derived state.
	events       []wordEvent
	totalWords   int
	totalFillers int
	recentFiller string
	fillerWords  []string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDetector replaces the default filler-word detector.
func WithDetector(d *fillers.Detector) Option {
	return func(a *Analyzer) { a.detector = d }
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer with empty rolling state.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		detector: fillers.New(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ProcessAudio implements voice.Analyzer.
func (a *Analyzer) ProcessAudio(samples []float32, sampleRate int) {
	if len(samples) == 0 || sampleRate <= 0 {
		return
	}

	rms := audio.RMS(samples)
	chunkMs := len(samples) * 1000 / sampleRate

	a.mu.Lock()
	defer a.mu.Unlock()

	a.chunks++
	a.elapsedSec += float64(chunkMs) / 1000

	if rms < silenceRMS {
		a.silentMs += chunkMs
		a.inSilence = true
		return
	}

	// Voiced chunk: close out any pause run first.
	if a.inSilence && a.silentMs >= minPauseMs {
		a.pauseLens = append(a.pauseLens, float64(a.silentMs)/1000)
	}
	a.inSilence = false
	a.silentMs = 0
	a.voicedChunks++

	a.volumeDB = push(a.volumeDB, audio.RMSToDB(rms))
	if hz := estimatePitch(samples, sampleRate); hz > 0 {
		a.pitchHz = push(a.pitchHz, hz)
	}
}

// ProcessTranscript implements voice.Analyzer.
func (a *Analyzer) ProcessTranscript(segment string) {
	words := len(fillers.Tokenize(segment))
	if words == 0 {
		return
	}
	detected := a.detector.Detect(segment)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, wordEvent{at: a.now(), words: words})
	a.totalWords += words
	a.totalFillers += len(detected)
	a.fillerWords = append(a.fillerWords, detected...)
	if len(detected) > 0 {
		a.recentFiller = detected[len(detected)-1]
	} else {
		a.recentFiller = ""
	}
}

// Snapshot implements voice.Analyzer.
func (a *Analyzer) Snapshot() (metrics.VoiceMetrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chunks == 0 {
		return metrics.VoiceMetrics{}, ErrNoAudio
	}

	m := metrics.UnknownVoice()

	m.VolumeDB, m.VolumeConsistency = a.volumeStats()
	m.PitchHz, m.PitchVariation, m.PitchQuality = a.pitchStats()
	m.Clarity = a.clarity(m.VolumeConsistency)

	m.SpeechRateWPM = a.rollingWPM()
	switch {
	case a.totalWords == 0:
		m.SpeechRateQuality = metrics.RateUnknown
	case m.SpeechRateWPM > tooFastWPM:
		m.SpeechRateQuality = metrics.RateTooFast
		m.SpeakingTooFast = true
	case m.SpeechRateWPM < tooSlowWPM:
		m.SpeechRateQuality = metrics.RateTooSlow
		m.SpeakingTooSlow = true
	default:
		m.SpeechRateQuality = metrics.RateOptimal
	}

	if a.totalWords > 0 {
		m.FillerDensity = float64(a.totalFillers) / float64(a.totalWords) * 100
	}
	m.FillerWordDetected = a.recentFiller
	if len(a.fillerWords) > 0 {
		m.FillerWords = append([]string(nil), a.fillerWords...)
	}

	if a.elapsedSec > 0 && len(a.pauseLens) > 0 {
		m.PauseFrequency = metrics.Float(float64(len(a.pauseLens)) / a.elapsedSec)
		m.AvgPauseLength = metrics.Float(stat.Mean(a.pauseLens, nil))
		m.RhythmConsistency = metrics.Float(rhythmConsistency(a.pauseLens))
	}

	m.OverallScore = overallScore(m)
	return m, nil
}

// Reset implements voice.Analyzer.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	*a = Analyzer{detector: a.detector, now: a.now}
}

// volumeStats returns the latest loudness in dBFS and the loudness stability
// score in [0,1].
func (a *Analyzer) volumeStats() (db, consistency float64) {
	if len(a.volumeDB) == 0 {
		return audio.RMSToDB(0), 0
	}
	db = a.volumeDB[len(a.volumeDB)-1]

	if len(a.volumeDB) < 2 {
		return db, 1
	}
	sd := stat.StdDev(a.volumeDB, nil)
	// 20 dB of swing maps to zero consistency.
	consistency = clamp01(1 - sd/20)
	return db, consistency
}

// pitchStats returns the latest fundamental frequency, the pitch spread in
// semitones over the window, and its categorical quality.
func (a *Analyzer) pitchStats() (hz, variation float64, quality metrics.PitchQuality) {
	if len(a.pitchHz) < 3 {
		return 0, 0, metrics.PitchUnknown
	}
	hz = a.pitchHz[len(a.pitchHz)-1]

	lo, hi := a.pitchHz[0], a.pitchHz[0]
	for _, p := range a.pitchHz[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	variation = 12 * math.Log2(hi/lo)

	switch {
	case variation < 5:
		quality = metrics.PitchMonotone
	case variation > 15:
		quality = metrics.PitchExpressive
	default:
		quality = metrics.PitchAdequate
	}
	return hz, variation, quality
}

// clarity is an articulation proxy in [0,1]: speakers who keep a steady
// loudness and spend most chunks voiced tend to articulate, while long
// dropouts and wild level swings read as mumbling.
func (a *Analyzer) clarity(volumeConsistency float64) float64 {
	voicedRatio := float64(a.voicedChunks) / float64(a.chunks)
	return clamp01(0.5*voicedRatio + 0.5*volumeConsistency)
}

// rollingWPM estimates words per minute over the recent rateWindow.
func (a *Analyzer) rollingWPM() float64 {
	cutoff := a.now().Add(-rateWindow)

	words := 0
	var oldest time.Time
	for _, e := range a.events {
		if e.at.Before(cutoff) {
			continue
		}
		if oldest.IsZero() || e.at.Before(oldest) {
			oldest = e.at
		}
		words += e.words
	}
	if words == 0 {
		return 0
	}

	span := a.now().Sub(oldest).Seconds()
	if span < 1 {
		span = 1
	}
	return float64(words) / span * 60
}

// rhythmConsistency maps the coefficient of variation of pause lengths onto
// [0,1]; evenly spaced pauses score high.
func rhythmConsistency(pauses []float64) float64 {
	if len(pauses) < 2 {
		return 1
	}
	mean := stat.Mean(pauses, nil)
	if mean == 0 {
		return 1
	}
	return clamp01(1 - stat.StdDev(pauses, nil)/mean)
}

// overallScore blends the snapshot into the analyzer's own 0–100 score used
// by the combo engine's fast base score.
func overallScore(m metrics.VoiceMetrics) float64 {
	pitch := 70.0
	switch m.PitchQuality {
	case metrics.PitchMonotone:
		pitch = 40
	case metrics.PitchExpressive:
		pitch = 95
	}
	rate := 80.0
	switch m.SpeechRateQuality {
	case metrics.RateTooFast, metrics.RateTooSlow:
		rate = 60
	case metrics.RateOptimal:
		rate = 100
	}
	filler := math.Max(0, 100-m.FillerDensity*10)

	score := m.Clarity*100*0.25 +
		m.VolumeConsistency*100*0.20 +
		pitch*0.25 +
		filler*0.15 +
		rate*0.15
	return math.Min(100, math.Max(0, score))
}

// estimatePitch runs a plain autocorrelation over the chunk and returns the
// strongest fundamental in [minPitchHz, maxPitchHz], or 0 when the chunk is
// unvoiced.
func estimatePitch(samples []float32, sampleRate int) float64 {
	minLag := sampleRate / maxPitchHz
	maxLag := sampleRate / minPitchHz
	if maxLag >= len(samples) {
		return 0
	}

	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	if energy == 0 {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(samples); i++ {
			corr += float64(samples[i]) * float64(samples[i+lag])
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	// Voicing gate: the periodic peak must carry a meaningful share of the
	// total energy, otherwise the chunk is noise.
	if bestLag == 0 || bestCorr/energy < 0.3 {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}

func push(window []float64, v float64) []float64 {
	window = append(window, v)
	if len(window) > windowSize {
		window = window[1:]
	}
	return window
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

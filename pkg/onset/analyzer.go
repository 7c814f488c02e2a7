package onset

import (
	"fmt"
	"sync"

	"github.com/realtime-ai/ferrolight/pkg/audio"
)

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	SampleRate      int
	HistorySeconds  float64
	FrameLength     int
	HopLength       int
	DelaySeconds    float64
	// ModeChangeWraps is the number of history-length stretches of audio per
	// mode change. The default of 100 over a 0.5 s history changes mode about
	// every 50 s.
	ModeChangeWraps int
	Peaks           *PeakOptions
}

// DefaultAnalyzerConfig returns the 44.1kHz analysis setup.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleRate:      audio.DefaultSampleRate,
		HistorySeconds:  0.5,
		FrameLength:     DefaultFrameLength,
		HopLength:       DefaultHopLength,
		DelaySeconds:    0.2,
		ModeChangeWraps: 100,
	}
}

// Result is the analysis of one hop.
type Result struct {
	Pulse    bool
	Strength float64
	SetMode  bool
	Tempo    float64 // BPM hint, valid when SetMode is set
}

// Analyzer combines the rolling buffer, onset tracker, change gate and tempo
// estimator. It is driven by one goroutine, one hop at a time.
type Analyzer struct {
	cfg     AnalyzerConfig
	buf     *audio.RollingBuffer
	tracker *Tracker
	gate    *Gate
	tempo   TempoEstimator

	lastTempo float64
	mu        sync.Mutex
}

// NewAnalyzer creates an analyzer. A nil curve selects STFTCurve and a nil
// tempo estimator selects FixedTempo(DefaultTempo).
func NewAnalyzer(cfg AnalyzerConfig, curve EnergyCurve, tempo TempoEstimator) *Analyzer {
	def := DefaultAnalyzerConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.HistorySeconds <= 0 {
		cfg.HistorySeconds = def.HistorySeconds
	}
	if cfg.FrameLength <= 0 {
		cfg.FrameLength = def.FrameLength
	}
	if cfg.HopLength <= 0 {
		cfg.HopLength = def.HopLength
	}

	peaks := DefaultPeakOptions(cfg.SampleRate, cfg.HopLength)
	if cfg.Peaks != nil {
		peaks = *cfg.Peaks
	}
	if curve == nil {
		curve = NewSTFTCurve(cfg.FrameLength, cfg.HopLength)
	}
	if tempo == nil {
		tempo = FixedTempo(DefaultTempo)
	}

	return &Analyzer{
		cfg: cfg,
		buf: audio.NewRollingBuffer(int(float64(cfg.SampleRate) * cfg.HistorySeconds)),
		tracker: NewTracker(curve, TrackerConfig{
			SampleRate:   cfg.SampleRate,
			HopLength:    cfg.HopLength,
			DelaySeconds: cfg.DelaySeconds,
			Peaks:        peaks,
		}),
		gate:      NewGate(cfg.ModeChangeWraps),
		tempo:     tempo,
		lastTempo: DefaultTempo,
	}
}

// Analyze appends one mono hop and reports what it triggered. While the
// buffer is warming up no pulse is reported.
func (a *Analyzer) Analyze(frame []int16) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	wrapped, err := a.buf.Append(frame)
	if err != nil {
		return Result{}, fmt.Errorf("append hop: %w", err)
	}

	res := Result{
		SetMode: a.gate.Observe(wrapped),
		Tempo:   a.lastTempo,
	}
	if !a.buf.Warm() {
		return res, nil
	}

	window, err := a.buf.Window(a.buf.History())
	if err != nil {
		return res, fmt.Errorf("read window: %w", err)
	}
	v, env := a.tracker.detect(window, len(frame))
	res.Pulse = v.Fired
	res.Strength = v.Strength

	if res.SetMode && env != nil {
		frameRate := float64(a.cfg.SampleRate) / float64(a.cfg.HopLength)
		if bpm := a.tempo.Estimate(env, frameRate); bpm > 0 {
			a.lastTempo = bpm
			res.Tempo = bpm
		}
	}
	return res, nil
}

// Warm reports whether the history window holds only real samples.
func (a *Analyzer) Warm() bool {
	return a.buf.Warm()
}

// DelayFrames returns the tracker's decision lag in frames.
func (a *Analyzer) DelayFrames() int {
	return a.tracker.DelayFrames()
}

package onset

import (
	"math"

	"github.com/realtime-ai/ferrolight/pkg/audio"
)

// degenerateRange is the smallest curve range treated as signal. Flat curves
// (silence, DC) produce no peaks.
const degenerateRange = 1e-9

// Verdict is the outcome of one detection.
type Verdict struct {
	Fired    bool
	Strength float64 // max normalised curve value over the checked frames
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	SampleRate   int
	HopLength    int     // curve frame hop in samples
	DelaySeconds float64 // how far behind the live edge decisions are made
	Peaks        PeakOptions
}

// DefaultTrackerConfig returns the configuration used at 44.1kHz.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		SampleRate:   audio.DefaultSampleRate,
		HopLength:    DefaultHopLength,
		DelaySeconds: 0.2,
		Peaks:        DefaultPeakOptions(audio.DefaultSampleRate, DefaultHopLength),
	}
}

// Tracker decides whether the most recent hop, seen DelaySeconds late,
// contains an onset.
type Tracker struct {
	curve       EnergyCurve
	cfg         TrackerConfig
	delayFrames int
}

// NewTracker creates a tracker over the given energy curve.
func NewTracker(curve EnergyCurve, cfg TrackerConfig) *Tracker {
	if cfg.HopLength <= 0 {
		cfg.HopLength = DefaultHopLength
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if curve == nil {
		curve = NewSTFTCurve(DefaultFrameLength, cfg.HopLength)
	}
	return &Tracker{
		curve:       curve,
		cfg:         cfg,
		delayFrames: int(float64(cfg.SampleRate) * cfg.DelaySeconds / float64(cfg.HopLength)),
	}
}

// DelayFrames returns the decision lag in curve frames.
func (t *Tracker) DelayFrames() int {
	return t.delayFrames
}

// Detect reports whether a peak falls in the frames covering the latest
// hopLen samples, DelayFrames behind the end of the curve.
func (t *Tracker) Detect(window []int16, hopLen int) Verdict {
	v, _ := t.detect(window, hopLen)
	return v
}

// detect also returns the normalised curve, or nil when it was degenerate.
func (t *Tracker) detect(window []int16, hopLen int) (Verdict, []float64) {
	env := t.curve.Curve(audio.Normalize(window))
	if !normalizeMinMax(env) {
		return Verdict{}, nil
	}

	peaks := PickPeaks(env, t.cfg.Peaks)
	isPeak := make(map[int]struct{}, len(peaks))
	for _, p := range peaks {
		isPeak[p] = struct{}{}
	}

	var v Verdict
	framesToCheck := hopLen / t.cfg.HopLength
	base := len(env) - t.delayFrames
	for i := 0; i < framesToCheck; i++ {
		idx := base + i
		if idx < 0 || idx >= len(env) {
			continue
		}
		if env[idx] > v.Strength {
			v.Strength = env[idx]
		}
		if _, ok := isPeak[idx]; ok {
			v.Fired = true
		}
	}
	return v, env
}

// normalizeMinMax rescales x to [0,1] in place. It returns false when the
// range is degenerate.
func normalizeMinMax(x []float64) bool {
	if len(x) == 0 {
		return false
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng < degenerateRange || math.IsNaN(rng) {
		return false
	}
	for i, v := range x {
		x[i] = (v - lo) / rng
	}
	return true
}

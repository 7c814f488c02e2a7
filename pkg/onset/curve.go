// Package onset turns a rolling window of audio into discrete pulse and
// mode-change verdicts.
//
// The energy curve itself is pluggable through EnergyCurve. STFTCurve is the
// default: a centred short-time Fourier transform, converted to decibels,
// reduced to positive spectral flux per frame.
//
// Usage:
//
//	a := onset.NewAnalyzer(onset.DefaultAnalyzerConfig(), nil, nil)
//	res, err := a.Analyze(monoHop)
//	if res.Pulse { ... }
package onset

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// DefaultFrameLength is the STFT window size.
	DefaultFrameLength = 2048
	// DefaultHopLength is the STFT hop and the onset frame granularity.
	DefaultHopLength = 512

	amin  = 1e-10
	topDB = 80.0
)

// EnergyCurve maps normalised samples to a one-dimensional onset strength
// curve at fixed hop granularity.
type EnergyCurve interface {
	Curve(samples []float64) []float64
}

// STFTCurve computes an onset strength curve from the spectral flux of a
// decibel-scaled magnitude spectrogram.
type STFTCurve struct {
	frameLength int
	hopLength   int
	lag         int
	window      []float64
}

var _ EnergyCurve = (*STFTCurve)(nil)

// NewSTFTCurve creates a curve with the given frame and hop lengths.
func NewSTFTCurve(frameLength, hopLength int) *STFTCurve {
	if frameLength <= 0 {
		frameLength = DefaultFrameLength
	}
	if hopLength <= 0 {
		hopLength = DefaultHopLength
	}
	// periodic Hann: symmetric window of L+1 points, last one dropped
	win := window.Hann(frameLength + 1)[:frameLength]
	return &STFTCurve{
		frameLength: frameLength,
		hopLength:   hopLength,
		lag:         1,
		window:      win,
	}
}

// Frames returns the curve length for n input samples.
func (c *STFTCurve) Frames(n int) int {
	return 1 + n/c.hopLength
}

// Curve implements EnergyCurve.
func (c *STFTCurve) Curve(y []float64) []float64 {
	nFrames := c.Frames(len(y))
	db := c.spectrogramDB(y, nFrames)

	env := make([]float64, nFrames)
	offset := c.lag + c.frameLength/(2*c.hopLength)
	for f := c.lag; f < nFrames; f++ {
		idx := f - c.lag + offset
		if idx >= nFrames {
			break
		}
		cur, prev := db[f], db[f-c.lag]
		var sum float64
		for k := range cur {
			if d := cur[k] - prev[k]; d > 0 {
				sum += d
			}
		}
		env[idx] = sum / float64(len(cur))
	}
	return env
}

func (c *STFTCurve) spectrogramDB(y []float64, nFrames int) [][]float64 {
	pad := c.frameLength / 2
	padded := make([]float64, len(y)+2*pad)
	copy(padded[pad:], y)

	bins := c.frameLength/2 + 1
	out := make([][]float64, nFrames)
	frame := make([]float64, c.frameLength)
	maxDB := math.Inf(-1)

	for f := 0; f < nFrames; f++ {
		start := f * c.hopLength
		for i := range frame {
			frame[i] = padded[start+i] * c.window[i]
		}
		spectrum := fft.FFTReal(frame)

		row := make([]float64, bins)
		for k := 0; k < bins; k++ {
			row[k] = 10 * math.Log10(math.Max(amin, cmplx.Abs(spectrum[k])))
			if row[k] > maxDB {
				maxDB = row[k]
			}
		}
		out[f] = row
	}

	floor := maxDB - topDB
	for _, row := range out {
		for k, v := range row {
			if v < floor {
				row[k] = floor
			}
		}
	}
	return out
}

// MockCurve is a test double for EnergyCurve.
type MockCurve struct {
	// CurveFunc is called by Curve. If nil, a flat curve of Length zeros is returned.
	CurveFunc func(samples []float64) []float64
	// Length is the flat curve length used when CurveFunc is nil.
	Length int

	calls int
	mu    sync.Mutex
}

var _ EnergyCurve = (*MockCurve)(nil)

// NewMockCurve returns a MockCurve that always yields curve.
func NewMockCurve(curve []float64) *MockCurve {
	return &MockCurve{
		CurveFunc: func([]float64) []float64 {
			out := make([]float64, len(curve))
			copy(out, curve)
			return out
		},
	}
}

// Curve implements EnergyCurve.
func (m *MockCurve) Curve(samples []float64) []float64 {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CurveFunc != nil {
		return m.CurveFunc(samples)
	}
	return make([]float64, m.Length)
}

// Calls returns the number of Curve invocations.
func (m *MockCurve) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

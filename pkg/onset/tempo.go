package onset

// DefaultTempo is the tempo reported when nothing better is known.
const DefaultTempo = 120.0

// TempoEstimator produces a tempo hint in BPM from a normalised onset curve
// sampled at frameRate frames per second.
type TempoEstimator interface {
	Estimate(env []float64, frameRate float64) float64
}

// FixedTempo always reports the same tempo.
type FixedTempo float64

// Estimate implements TempoEstimator.
func (f FixedTempo) Estimate([]float64, float64) float64 {
	return float64(f)
}

// AutocorrTempo picks the lag with the strongest curve autocorrelation inside
// [MinBPM, MaxBPM]. The sum is left unnormalised so shorter lags win ties
// against their multiples. It needs a curve longer than the slowest lag; shorter
// curves and silent ones fall back to Fallback.
type AutocorrTempo struct {
	MinBPM   float64
	MaxBPM   float64
	Fallback float64
}

// DefaultAutocorrTempo covers 60-180 BPM.
func DefaultAutocorrTempo() AutocorrTempo {
	return AutocorrTempo{MinBPM: 60, MaxBPM: 180, Fallback: DefaultTempo}
}

// Estimate implements TempoEstimator.
func (a AutocorrTempo) Estimate(env []float64, frameRate float64) float64 {
	if frameRate <= 0 || a.MinBPM <= 0 || a.MaxBPM <= a.MinBPM {
		return a.Fallback
	}
	minLag := int(frameRate * 60 / a.MaxBPM)
	maxLag := int(frameRate * 60 / a.MinBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		return a.Fallback
	}

	bestLag, best := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var r float64
		for i := 0; i+lag < len(env); i++ {
			r += env[i] * env[i+lag]
		}
		if r > best {
			best, bestLag = r, lag
		}
	}
	if bestLag == 0 {
		return a.Fallback
	}
	return 60 * frameRate / float64(bestLag)
}

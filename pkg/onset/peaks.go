package onset

// PeakOptions configures PickPeaks. Window sizes are in frames.
type PeakOptions struct {
	PreMax  int     // frames before n in the local-maximum window
	PostMax int     // frames after n (exclusive end) in the local-maximum window
	PreAvg  int     // frames before n in the averaging window
	PostAvg int     // frames after n (exclusive end) in the averaging window
	Wait    int     // minimum frames between accepted peaks
	Delta   float64 // margin over the local average
}

// DefaultPeakOptions returns 30ms max/wait windows and 100ms average windows
// expressed in frames of hopLength samples.
func DefaultPeakOptions(sampleRate, hopLength int) PeakOptions {
	frames := func(seconds float64) int {
		return int(seconds * float64(sampleRate) / float64(hopLength))
	}
	return PeakOptions{
		PreMax:  frames(0.03),
		PostMax: 1,
		PreAvg:  frames(0.10),
		PostAvg: frames(0.10) + 1,
		Wait:    frames(0.03),
		Delta:   0.5,
	}
}

// PickPeaks returns the indices of x that are local maxima over
// [n-PreMax, n+PostMax), exceed the mean over [n-PreAvg, n+PostAvg) by at
// least Delta, are non-zero, and lie more than Wait frames after the
// previously accepted peak. Windows are clipped at the edges.
func PickPeaks(x []float64, o PeakOptions) []int {
	if o.PostMax < 1 {
		o.PostMax = 1
	}
	if o.PostAvg < 1 {
		o.PostAvg = 1
	}

	var peaks []int
	last := -1 << 30
	for n := range x {
		v := x[n]
		if v == 0 {
			continue
		}

		lo, hi := clampRange(n-o.PreMax, n+o.PostMax, len(x))
		isMax := true
		for i := lo; i < hi; i++ {
			if x[i] > v {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}

		lo, hi = clampRange(n-o.PreAvg, n+o.PostAvg, len(x))
		var sum float64
		for i := lo; i < hi; i++ {
			sum += x[i]
		}
		if v < sum/float64(hi-lo)+o.Delta {
			continue
		}

		if n > last+o.Wait {
			peaks = append(peaks, n)
			last = n
		}
	}
	return peaks
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

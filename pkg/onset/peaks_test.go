package onset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPeakOptions(t *testing.T) {
	o := DefaultPeakOptions(44100, 512)
	assert.Equal(t, PeakOptions{
		PreMax:  2,
		PostMax: 1,
		PreAvg:  8,
		PostAvg: 9,
		Wait:    2,
		Delta:   0.5,
	}, o)
}

func TestPickPeaks(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		opts PeakOptions
		want []int
	}{
		{
			name: "single spike",
			x:    []float64{0, 0, 1, 0, 0, 0, 0, 0, 0, 0},
			opts: PeakOptions{PreMax: 2, PostMax: 1, PreAvg: 2, PostAvg: 1, Delta: 0.1},
			want: []int{2},
		},
		{
			name: "wait suppresses close peak",
			x:    []float64{0, 1, 0, 1, 0, 0},
			opts: PeakOptions{PreMax: 1, PostMax: 1, PreAvg: 1, PostAvg: 1, Wait: 3},
			want: []int{1},
		},
		{
			name: "short wait keeps both",
			x:    []float64{0, 1, 0, 1, 0, 0},
			opts: PeakOptions{PreMax: 1, PostMax: 1, PreAvg: 1, PostAvg: 1, Wait: 1},
			want: []int{1, 3},
		},
		{
			name: "delta above local mean rejects",
			x:    []float64{0, 0.5, 0.4, 0},
			opts: PeakOptions{PreMax: 1, PostMax: 1, PreAvg: 1, PostAvg: 2, Delta: 0.5},
			want: nil,
		},
		{
			name: "smaller delta accepts",
			x:    []float64{0, 0.5, 0.4, 0},
			opts: PeakOptions{PreMax: 1, PostMax: 1, PreAvg: 1, PostAvg: 2, Delta: 0.1},
			want: []int{1},
		},
		{
			name: "zeros never peak",
			x:    []float64{0, 0, 0, 0},
			opts: PeakOptions{PreMax: 1, PostMax: 1, PreAvg: 1, PostAvg: 1},
			want: nil,
		},
		{
			name: "empty input",
			x:    nil,
			opts: DefaultPeakOptions(44100, 512),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickPeaks(tt.x, tt.opts))
		})
	}
}

func TestPickPeaks_SpacingRespectsWait(t *testing.T) {
	x := make([]float64, 200)
	for i := range x {
		if i%3 == 0 {
			x[i] = 1
		}
	}
	o := PeakOptions{PreMax: 1, PostMax: 1, PreAvg: 2, PostAvg: 2, Wait: 5, Delta: 0.1}

	peaks := PickPeaks(x, o)
	assert.NotEmpty(t, peaks)
	for i := 1; i < len(peaks); i++ {
		assert.Greater(t, peaks[i]-peaks[i-1], o.Wait)
	}
}

package audio

import (
	"encoding/binary"
	"math"
)

const (
	// BytesPerSample is the size of one S16LE sample.
	BytesPerSample = 2
	// Int16Max is the normalisation divisor for int16 PCM.
	Int16Max = float64(math.MaxInt16)
)

// DecodeS16LE converts little-endian 16-bit PCM bytes to samples.
// A trailing odd byte is ignored.
func DecodeS16LE(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
	}
	return out
}

// EncodeS16LE converts samples to little-endian 16-bit PCM bytes.
func EncodeS16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s))
	}
	return out
}

// LeftChannel returns every channels-th sample starting at index 0, i.e. the
// first channel of an interleaved block.
func LeftChannel(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(interleaved))
		copy(out, interleaved)
		return out
	}
	out := make([]int16, 0, len(interleaved)/channels+1)
	for i := 0; i < len(interleaved); i += channels {
		out = append(out, interleaved[i])
	}
	return out
}

// Normalize maps int16 samples onto [-1, 1].
func Normalize(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / Int16Max
	}
	return out
}

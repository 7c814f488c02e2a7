// Package audio provides audio processing utilities.
//
// RollingBuffer keeps the most recent history of a mono sample stream for
// onset analysis. The backing store is four times the history length; when
// the write cursor would run past the end, the trailing history is copied to
// the front and the cursor restarts there, so a full history window is always
// one contiguous slice.
//
// Main features:
//   - Contiguous windowed read-back of up to history samples
//   - Compaction amortised to O(history) every 3*history appended samples
//   - Zeroed pre-roll so a window is addressable from the first append
//
// Usage:
//
//	rb := NewRollingBuffer(22050) // 0.5s at 44.1kHz
//	wrapped, err := rb.Append(hop)
//	y, err := rb.Window(22050)
package audio

import (
	"errors"
	"sync"
)

var (
	// ErrInsufficientHistory is returned when a window longer than the history is requested.
	ErrInsufficientHistory = errors.New("audio: insufficient history")
	// ErrHopTooLarge is returned when a single append would not fit after compaction.
	ErrHopTooLarge = errors.New("audio: hop larger than buffer headroom")
)

// RollingBuffer is a compacting circular store of int16 samples.
type RollingBuffer struct {
	data    []int16
	history int // samples guaranteed readable behind the cursor
	t       int // write cursor
	filled  int // real samples appended, saturating at history
	total   int // logical stream position
	mu      sync.Mutex
}

// NewRollingBuffer creates a buffer that retains history samples.
// Capacity is 4 * history.
func NewRollingBuffer(history int) *RollingBuffer {
	if history <= 0 {
		history = 1
	}
	return &RollingBuffer{
		data:    make([]int16, history*4),
		history: history,
		t:       history,
	}
}

// Append stores one hop. It reports whether the logical stream position
// crossed a multiple of the history length, which is what callers count as a
// buffer wraparound.
func (rb *RollingBuffer) Append(samples []int16) (bool, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(samples)
	if n == 0 {
		return false, nil
	}
	if n > len(rb.data)-rb.history {
		return false, ErrHopTooLarge
	}

	if rb.t+n > len(rb.data) {
		copy(rb.data[:rb.history], rb.data[rb.t-rb.history:rb.t])
		rb.t = rb.history
	}
	copy(rb.data[rb.t:], samples)
	rb.t += n

	rb.filled += n
	if rb.filled > rb.history {
		rb.filled = rb.history
	}

	prev := rb.total
	rb.total += n
	return rb.total/rb.history != prev/rb.history, nil
}

// Window returns a copy of the most recent length samples, oldest first.
func (rb *RollingBuffer) Window(length int) ([]int16, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if length <= 0 || length > rb.history {
		return nil, ErrInsufficientHistory
	}
	out := make([]int16, length)
	copy(out, rb.data[rb.t-length:rb.t])
	return out, nil
}

// Filled returns how many real samples back the current history, up to History().
func (rb *RollingBuffer) Filled() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.filled
}

// Warm reports whether the whole history window holds real samples.
func (rb *RollingBuffer) Warm() bool {
	return rb.Filled() >= rb.history
}

// History returns the history length in samples.
func (rb *RollingBuffer) History() int {
	return rb.history
}

// Capacity returns the total capacity of the backing store.
func (rb *RollingBuffer) Capacity() int {
	return len(rb.data)
}

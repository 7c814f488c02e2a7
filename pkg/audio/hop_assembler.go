package audio

import (
	"log"
	"sync"
)

const (
	// DefaultSampleRate is the capture rate the analyzer is tuned for.
	DefaultSampleRate = 44100
	// DefaultChannels is interleaved stereo.
	DefaultChannels = 2
	// DefaultHopFrames is hop_length (512) * hops per analysis (3).
	DefaultHopFrames = 1536
)

// HopAssemblerConfig 配置
type HopAssemblerConfig struct {
	Channels  int // interleaved channels per frame
	HopFrames int // frames per emitted hop
	MaxHops   int // backlog bound; oldest hops are discarded beyond it
}

// DefaultHopAssemblerConfig returns the capture defaults.
func DefaultHopAssemblerConfig() HopAssemblerConfig {
	return HopAssemblerConfig{
		Channels:  DefaultChannels,
		HopFrames: DefaultHopFrames,
		MaxHops:   32,
	}
}

// HopAssembler turns arbitrarily sized PCM callbacks from a capture device
// into fixed-size interleaved hops. It only buffers and slices; it never
// resamples.
type HopAssembler struct {
	buffer []byte
	mu     sync.Mutex

	channels    int
	bytesPerHop int
	maxBytes    int
	dropped     uint64
}

// NewHopAssembler creates an assembler with cfg, filling zero fields with defaults.
func NewHopAssembler(cfg HopAssemblerConfig) *HopAssembler {
	def := DefaultHopAssemblerConfig()
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.HopFrames <= 0 {
		cfg.HopFrames = def.HopFrames
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = def.MaxHops
	}

	bytesPerHop := cfg.HopFrames * cfg.Channels * BytesPerSample
	return &HopAssembler{
		buffer:      make([]byte, 0, bytesPerHop*4),
		channels:    cfg.Channels,
		bytesPerHop: bytesPerHop,
		maxBytes:    bytesPerHop * cfg.MaxHops,
	}
}

// Write appends S16LE PCM bytes.
func (h *HopAssembler) Write(data []byte) {
	if len(data) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffer = append(h.buffer, data...)

	if over := len(h.buffer) - h.maxBytes; over > 0 {
		// drop whole hops from the front so alignment is kept
		drop := ((over + h.bytesPerHop - 1) / h.bytesPerHop) * h.bytesPerHop
		h.buffer = h.buffer[drop:]
		h.dropped += uint64(drop / h.bytesPerHop)
		log.Printf("[HopAssembler] backlog full, dropped %d hops (total %d)", drop/h.bytesPerHop, h.dropped)
	}
}

// Next returns the next complete hop as interleaved samples, or false if
// less than one hop is buffered.
func (h *HopAssembler) Next() ([]int16, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.buffer) < h.bytesPerHop {
		return nil, false
	}
	hop := DecodeS16LE(h.buffer[:h.bytesPerHop])
	h.buffer = h.buffer[h.bytesPerHop:]
	return hop, true
}

// Available returns the number of buffered bytes.
func (h *HopAssembler) Available() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buffer)
}

// Dropped returns the number of hops discarded because of backlog.
func (h *HopAssembler) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// BytesPerHop returns the size of one hop in bytes.
func (h *HopAssembler) BytesPerHop() int {
	return h.bytesPerHop
}

// Clear discards buffered data.
func (h *HopAssembler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffer = h.buffer[:0]
}

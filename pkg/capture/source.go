// Package capture records interleaved PCM from an audio device and cuts it
// into fixed-size hops.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/realtime-ai/ferrolight/pkg/audio"
)

// ErrDeviceNotFound is returned when no capture device matches Config.DeviceName.
var ErrDeviceNotFound = errors.New("capture: device not found")

// Config describes the capture device and hop size.
type Config struct {
	SampleRate int
	Channels   int
	HopFrames  int // frames per hop, per channel
	MaxHops    int // backlog before old hops are dropped
	QueueSize  int // hops buffered for the consumer

	// DeviceName selects the first capture device whose name contains it.
	// Empty uses the system default, e.g. a PulseAudio monitor source.
	DeviceName string

	PeriodMs uint32
}

// DefaultConfig returns 44.1kHz stereo with 1536-frame hops.
func DefaultConfig() Config {
	hc := audio.DefaultHopAssemblerConfig()
	return Config{
		SampleRate: audio.DefaultSampleRate,
		Channels:   hc.Channels,
		HopFrames:  hc.HopFrames,
		MaxHops:    hc.MaxHops,
		QueueSize:  8,
		PeriodMs:   10,
	}
}

// Source delivers hops of interleaved samples on a channel.
type Source struct {
	cfg       Config
	assembler *audio.HopAssembler
	hops      chan []int16
	notify    chan struct{}

	audioContext  *malgo.AllocatedContext
	captureDevice *malgo.Device

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSource creates a source. No device is opened until Start.
func NewSource(cfg Config) *Source {
	def := DefaultConfig()
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = def.MaxHops
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.HopFrames <= 0 {
		cfg.HopFrames = def.HopFrames
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.PeriodMs == 0 {
		cfg.PeriodMs = def.PeriodMs
	}

	return &Source{
		cfg: cfg,
		assembler: audio.NewHopAssembler(audio.HopAssemblerConfig{
			Channels:  cfg.Channels,
			HopFrames: cfg.HopFrames,
			MaxHops:   cfg.MaxHops,
		}),
		hops:   make(chan []int16, cfg.QueueSize),
		notify: make(chan struct{}, 1),
	}
}

// Hops returns the hop channel. It is closed after Stop.
func (s *Source) Hops() <-chan []int16 {
	return s.hops
}

// Dropped returns how many hops were discarded because the consumer fell behind.
func (s *Source) Dropped() uint64 {
	return s.assembler.Dropped()
}

// Start opens the capture device and begins delivering hops.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize context: %w", err)
	}
	s.audioContext = mctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.PeriodSizeInMilliseconds = s.cfg.PeriodMs
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(s.cfg.Channels)
	deviceConfig.SampleRate = uint32(s.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if s.cfg.DeviceName != "" {
		devices, err := mctx.Devices(malgo.Capture)
		if err != nil {
			s.release()
			return fmt.Errorf("failed to list capture devices: %w", err)
		}
		found := false
		for i := range devices {
			if strings.Contains(devices[i].Name(), s.cfg.DeviceName) {
				deviceConfig.Capture.DeviceID = devices[i].ID.Pointer()
				log.Printf("[Capture] using device %q", devices[i].Name())
				found = true
				break
			}
		}
		if !found {
			s.release()
			return fmt.Errorf("%w: %q", ErrDeviceNotFound, s.cfg.DeviceName)
		}
	}

	s.captureDevice, err = malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, inputSamples []byte, _ uint32) {
			s.feed(inputSamples)
		},
	})
	if err != nil {
		s.release()
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.pump(pumpCtx)

	if err := s.captureDevice.Start(); err != nil {
		cancel()
		s.wg.Wait()
		s.release()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	log.Printf("[Capture] started: %d Hz, %d ch, %d frames per hop", s.cfg.SampleRate, s.cfg.Channels, s.cfg.HopFrames)
	return nil
}

// feed is the device callback: buffer the bytes and wake the pump.
func (s *Source) feed(data []byte) {
	s.assembler.Write(data)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pump moves completed hops to the consumer until ctx ends, then closes Hops.
func (s *Source) pump(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.hops)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}

		for {
			hop, ok := s.assembler.Next()
			if !ok {
				break
			}
			select {
			case s.hops <- hop:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop closes the device and the hop channel.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.captureDevice != nil {
		if err := s.captureDevice.Stop(); err != nil {
			log.Printf("[Capture] stop device: %v", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.wg.Wait()
	}
	s.release()
	if n := s.assembler.Available(); n > 0 {
		log.Printf("[Capture] discarding %d buffered bytes", n)
		s.assembler.Clear()
	}
	log.Printf("[Capture] stopped, %d hops dropped", s.assembler.Dropped())
	return nil
}

func (s *Source) release() {
	if s.captureDevice != nil {
		s.captureDevice.Uninit()
		s.captureDevice = nil
	}
	if s.audioContext != nil {
		_ = s.audioContext.Uninit()
		s.audioContext.Free()
		s.audioContext = nil
	}
}

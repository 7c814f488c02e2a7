package light

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// DefaultSPIDevice is bus 0, chip select 0.
const DefaultSPIDevice = "/dev/spidev0.0"

// DefaultSPISpeedHz clocks 8 SPI bits per WS2812 bit.
const DefaultSPISpeedHz = 8000000

// SPIStrip writes frames to a WS2812 strip through a spidev character device.
type SPIStrip struct {
	device string
	f      *os.File
	mu     sync.Mutex
}

// OpenSPIStrip opens device and sets its maximum clock speed.
func OpenSPIStrip(device string, speedHz uint32) (*SPIStrip, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open spi device: %w", err)
	}
	if err := setMaxSpeed(f, speedHz); err != nil {
		f.Close()
		return nil, fmt.Errorf("set spi speed: %w", err)
	}

	log.Printf("[SPIStrip] opened %s at %d Hz", device, speedHz)
	return &SPIStrip{device: device, f: f}, nil
}

// Write implements engine.Driver.
func (s *SPIStrip) Write(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return os.ErrClosed
	}
	if _, err := s.f.Write(Encode(f)); err != nil {
		return fmt.Errorf("write %s: %w", s.device, err)
	}
	return nil
}

// Close releases the device.
func (s *SPIStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

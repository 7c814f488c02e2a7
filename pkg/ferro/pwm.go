package ferro

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// DefaultPWMChip is the first PWM controller exposed through sysfs.
const DefaultPWMChip = "/sys/class/pwm/pwmchip0"

// DefaultPWMFrequency is the coil switching frequency.
const DefaultPWMFrequency = 500

// PWMConfig maps coils to channels of a sysfs PWM chip.
type PWMConfig struct {
	Chip      string
	Channels  [NumCoils]int
	Frequency int // Hz
}

// DefaultPWMConfig returns channels 0-3 of pwmchip0 at 500 Hz.
func DefaultPWMConfig() PWMConfig {
	return PWMConfig{
		Chip:      DefaultPWMChip,
		Channels:  [NumCoils]int{0, 1, 2, 3},
		Frequency: DefaultPWMFrequency,
	}
}

// SysfsPWM drives the coils through the Linux PWM sysfs interface.
type SysfsPWM struct {
	cfg      PWMConfig
	periodNs int64
	last     [NumCoils]int64
	closed   bool
	mu       sync.Mutex
}

// OpenSysfsPWM exports and enables each coil's channel with zero duty.
func OpenSysfsPWM(cfg PWMConfig) (*SysfsPWM, error) {
	if cfg.Frequency <= 0 {
		cfg.Frequency = DefaultPWMFrequency
	}
	p := &SysfsPWM{
		cfg:      cfg,
		periodNs: int64(time.Second) / int64(cfg.Frequency),
	}

	for c, ch := range cfg.Channels {
		if err := p.setup(ch); err != nil {
			return nil, fmt.Errorf("setup %s on channel %d: %w", Coil(c), ch, err)
		}
	}

	log.Printf("[SysfsPWM] %s channels %v at %d Hz", cfg.Chip, cfg.Channels, cfg.Frequency)
	return p, nil
}

func (p *SysfsPWM) channelDir(ch int) string {
	return filepath.Join(p.cfg.Chip, "pwm"+strconv.Itoa(ch))
}

func (p *SysfsPWM) setup(ch int) error {
	dir := p.channelDir(ch)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeAttr(filepath.Join(p.cfg.Chip, "export"), strconv.Itoa(ch)); err != nil {
			return err
		}
	}
	if err := writeAttr(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
		return err
	}
	if err := writeAttr(filepath.Join(dir, "period"), strconv.FormatInt(p.periodNs, 10)); err != nil {
		return err
	}
	return writeAttr(filepath.Join(dir, "enable"), "1")
}

// Write implements engine.Driver. Unchanged channels are not rewritten.
func (p *SysfsPWM) Write(d Duty) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return os.ErrClosed
	}
	for c, ch := range p.cfg.Channels {
		ns := p.dutyNs(d[c])
		if ns == p.last[c] {
			continue
		}
		if err := writeAttr(filepath.Join(p.channelDir(ch), "duty_cycle"), strconv.FormatInt(ns, 10)); err != nil {
			return fmt.Errorf("%s: %w", Coil(c), err)
		}
		p.last[c] = ns
	}
	return nil
}

func (p *SysfsPWM) dutyNs(percent float64) int64 {
	switch {
	case percent <= 0:
		return 0
	case percent >= 100:
		return p.periodNs
	default:
		return int64(float64(p.periodNs) * percent / 100)
	}
}

// Close zeroes and disables every channel.
func (p *SysfsPWM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for _, ch := range p.cfg.Channels {
		dir := p.channelDir(ch)
		for _, kv := range [][2]string{{"duty_cycle", "0"}, {"enable", "0"}} {
			if err := writeAttr(filepath.Join(dir, kv[0]), kv[1]); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func writeAttr(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

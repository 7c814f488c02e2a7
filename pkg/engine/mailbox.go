package engine

import (
	"errors"
	"sync"
)

// ErrStopped is returned when posting to a mailbox after Stop.
var ErrStopped = errors.New("engine: stopped")

// Mailbox is a single-slot command inbox. A newer SetMode or Pulse replaces
// an untaken one; Stop latches, discards anything pending and is returned by
// every later Take.
type Mailbox struct {
	mu      sync.Mutex
	pending Command
	stopped bool
	dropped uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Post stores cmd. It never blocks.
func (m *Mailbox) Post(cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	if _, ok := cmd.(Stop); ok {
		m.stopped = true
		m.pending = nil
		return nil
	}
	if m.pending != nil {
		m.dropped++
	}
	m.pending = cmd
	return nil
}

// Take removes and returns the pending command, if any.
func (m *Mailbox) Take() (Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return Stop{}, true
	}
	if m.pending == nil {
		return nil, false
	}
	cmd := m.pending
	m.pending = nil
	return cmd, true
}

// Stopped reports whether Stop has been posted.
func (m *Mailbox) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Dropped returns how many commands were overwritten before being taken.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

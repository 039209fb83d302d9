// Package notify delivers "sensor data changed" signals from push channels.
// Payloads are ignored; receipt alone means the store should be re-read.
package notify

import (
	"context"
	"sync"
)

// Notifier subscribes to a change channel. The returned channel closes when ctx is cancelled.
type Notifier interface {
	Name() string
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// Announcer publishes a change event for other processes to pick up
type Announcer interface {
	Announce(ctx context.Context) error
}

// Signal is a coalescing one-slot channel: any number of Fire calls while a
// signal is pending collapse into one.
type Signal struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

// NewSignal creates an open signal
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// C returns the receive side
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Fire marks a change as pending. It never blocks and is a no-op after Close.
func (s *Signal) Fire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Close closes the receive side. Safe to call more than once.
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

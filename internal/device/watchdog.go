package device

import "sync"

// Watchdog is a liveness timer that resets the board unless petted in time.
type Watchdog interface {
	Pet() error
	Close() error
}

// NopWatchdog stands in when no hardware watchdog is configured. It counts pets.
type NopWatchdog struct {
	mu   sync.Mutex
	pets int
}

// Pet records a pet.
func (n *NopWatchdog) Pet() error {
	n.mu.Lock()
	n.pets++
	n.mu.Unlock()
	return nil
}

// Pets returns how many times Pet was called.
func (n *NopWatchdog) Pets() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pets
}

// Close does nothing.
func (n *NopWatchdog) Close() error { return nil }

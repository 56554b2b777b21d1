package core

import (
	"errors"
	"fmt"
)

// ReadyToken is exchanged by the two units before either enters its loop.
const ReadyToken uint32 = 69

var errHandshakeStopped = errors.New("handshake: stopped")

// Handshake is the one-time startup rendezvous between the units. The radio unit
// announces itself and the sensor unit acknowledges with the same token.
type Handshake struct {
	toA chan uint32
	toB chan uint32
}

// NewHandshake returns a fresh rendezvous.
func NewHandshake() *Handshake {
	return &Handshake{toA: make(chan uint32, 1), toB: make(chan uint32, 1)}
}

// Announce is called by unit B. It sends the ready token and waits for the
// acknowledgement.
func (h *Handshake) Announce(stop <-chan struct{}) error {
	return h.announce(ReadyToken, stop)
}

func (h *Handshake) announce(token uint32, stop <-chan struct{}) error {
	select {
	case h.toA <- token:
	case <-stop:
		return errHandshakeStopped
	}
	select {
	case r := <-h.toB:
		if r != ReadyToken {
			return fmt.Errorf("handshake: unit B got token %d, want %d", r, ReadyToken)
		}
		return nil
	case <-stop:
		return errHandshakeStopped
	}
}

// Acknowledge is called by unit A. It waits for the ready token, verifies it and
// answers with the same token.
func (h *Handshake) Acknowledge(stop <-chan struct{}) error {
	select {
	case r := <-h.toA:
		if r != ReadyToken {
			return fmt.Errorf("handshake: unit A got token %d, want %d", r, ReadyToken)
		}
	case <-stop:
		return errHandshakeStopped
	}
	h.toB <- ReadyToken
	return nil
}

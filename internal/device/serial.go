package device

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	serial "go.bug.st/serial"
)

// ErrReadTimeout is returned by ReadLine when no full line arrived in time.
var ErrReadTimeout = errors.New("read timeout")

var errNotOpen = errors.New("serial port not open")

// SerialDevice implements Device over go.bug.st/serial.
type SerialDevice struct {
	port serial.Port
	r    *bufio.Reader
	dev  string
	baud int

	// pending holds a read started by an earlier ReadLine that timed out, so the
	// next call picks up its result instead of racing a second reader.
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewSerialDevice opens dev at baud 8N1.
func NewSerialDevice(dev string, baud int) (*SerialDevice, error) {
	s := &SerialDevice{dev: dev, baud: baud}
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open (re)opens the port. It is a no-op when the port is already open.
func (s *SerialDevice) Open() error {
	if s.port != nil {
		return nil
	}
	p, err := serial.Open(s.dev, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("open serial %s: %w", s.dev, err)
	}
	s.port = p
	s.r = bufio.NewReader(p)
	s.pending = nil
	return nil
}

// Close closes the underlying serial connection.
func (s *SerialDevice) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// ReadLine reads a single line, blocking until newline or timeout.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	if s.port == nil {
		return "", errNotOpen
	}
	ch := s.pending
	if ch == nil {
		ch = make(chan readResult, 1)
		r := s.r
		go func() {
			line, err := r.ReadString('\n')
			ch <- readResult{line, err}
		}()
	}
	s.pending = nil

	if timeout <= 0 {
		res := <-ch
		return res.line, res.err
	}
	select {
	case res := <-ch:
		return res.line, res.err
	case <-time.After(timeout):
		s.pending = ch
		return "", ErrReadTimeout
	}
}

// WriteLine writes a single line followed by '\n' to the serial port.
func (s *SerialDevice) WriteLine(line string) error {
	if s.port == nil {
		return errNotOpen
	}
	_, err := s.port.Write(append([]byte(line), '\n'))
	return err
}

package util

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

// VirtualSerial manages socat-created PTY pairs so the simulator and the tracker
// can talk on a bench without hardware.
type VirtualSerial struct {
	mu     sync.Mutex
	cmds   []*exec.Cmd
	links  []string
	closed bool
}

// NewVirtualSerial initializes an empty manager.
func NewVirtualSerial() *VirtualSerial {
	return &VirtualSerial{}
}

// CreatePair starts socat linking two PTYs at the given paths and waits until both
// links exist.
func (m *VirtualSerial) CreatePair(left, right string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("virtual serial manager closed")
	}

	cmd := exec.Command(
		"socat", "-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	)
	cmd.Stdout = log.Writer()
	cmd.Stderr = log.Writer()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}
	log.Printf("[virt-serial] started socat (pid=%d): %s <-> %s", cmd.Process.Pid, left, right)
	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if exists(left) && exists(right) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("socat links %s, %s did not appear", left, right)
}

// Cleanup stops the socat processes and removes the links.
func (m *VirtualSerial) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process != nil {
			log.Printf("[virt-serial] killing socat pid=%d", cmd.Process.Pid)
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}
	for _, path := range m.links {
		if exists(path) {
			_ = os.Remove(path)
			log.Printf("[virt-serial] removed link: %s", path)
		}
	}
	log.Printf("[virt-serial] cleanup complete (%d pairs)", len(m.links)/2)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

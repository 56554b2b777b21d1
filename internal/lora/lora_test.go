package lora

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"HabTracker/internal/model"
	"HabTracker/internal/parser"
)

// loopLink hands written lines back to the reader.
type loopLink struct {
	lines []string
}

func (l *loopLink) ReadLine(time.Duration) (string, error) {
	if len(l.lines) == 0 {
		return "", io.EOF
	}
	s := l.lines[0]
	l.lines = l.lines[1:]
	return s + "\n", nil
}

func (l *loopLink) WriteLine(s string) error {
	l.lines = append(l.lines, s)
	return nil
}

func (l *loopLink) Close() error { return nil }

func TestSendReceive(t *testing.T) {
	link := &loopLink{}
	radio := NewOn(link, parser.NewCSVParser())
	sent := model.Telemetry{Callsign: "HAB1", Counter: 12, Time: "10:11:12", Lat: 51.5, Lon: -0.12, Alt: 4200, Mode: "launched"}

	line, err := radio.Send(sent)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasPrefix(line, "$$HAB1,12,10:11:12,") {
		t.Errorf("Expected CSV sentence, got %q", line)
	}
	got, err := radio.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Counter != 12 || got.Alt != 4200 || got.Mode != "launched" {
		t.Errorf("Expected round-tripped telemetry, got %+v", got)
	}
}

func TestReceiveErrors(t *testing.T) {
	link := &loopLink{lines: []string{"   ", "$$HAB1,garbage"}}
	radio := NewOn(link, parser.NewCSVParser())
	if _, err := radio.Receive(0); !errors.Is(err, ErrEmptyLine) {
		t.Errorf("Expected ErrEmptyLine, got %v", err)
	}
	if _, err := radio.Receive(0); err == nil {
		t.Error("Expected decode error for a corrupt sentence")
	}
	if _, err := radio.Receive(0); !errors.Is(err, io.EOF) {
		t.Errorf("Expected link error passed through, got %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("/dev/null", 9600, "morse"); err == nil {
		t.Error("Expected unknown wire format to fail")
	}
}

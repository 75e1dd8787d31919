package ux

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// syncBuffer guards a bytes.Buffer for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerStopJoinsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	out := &syncBuffer{}
	s := NewSpinner(out, "Working...")
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()

	output := out.String()
	if !strings.Contains(output, "Working...") {
		t.Errorf("spinner never rendered its message: %q", output)
	}

	// Nothing renders after Stop returns.
	settled := out.String()
	time.Sleep(150 * time.Millisecond)
	if got := out.String(); got != settled {
		t.Error("spinner wrote after Stop returned")
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSpinner(&syncBuffer{}, "")
	s.Stop()
	s.Stop()
}

func TestSpinnerRestart(t *testing.T) {
	defer goleak.VerifyNone(t)

	out := &syncBuffer{}
	s := NewSpinner(out, "Executing...")
	for i := 0; i < 2; i++ {
		s.Start()
		s.Start() // second Start is a no-op
		time.Sleep(150 * time.Millisecond)
		s.Stop()
	}
}

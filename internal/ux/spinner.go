package ux

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"-", "\\", "|", "/"}

// Spinner shows terminal activity while the agent thinks or a tool
// runs. Start launches the render goroutine; Stop joins it before
// returning, so no frame is ever written after Stop.
type Spinner struct {
	message  string
	out      io.Writer
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner writing to out.
func NewSpinner(out io.Writer, message string) *Spinner {
	if message == "" {
		message = "Thinking..."
	}
	return &Spinner{
		message:  message,
		out:      out,
		interval: 100 * time.Millisecond,
	}
}

// Start begins animating. Calling Start on a running spinner is a
// no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.spin(s.done, s.stopped)
}

// Stop halts the animation, clears the line, and waits for the render
// goroutine to exit.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
}

func (s *Spinner) spin(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-done:
			// Clear the spinner line.
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.message)+2))
			return
		case <-ticker.C:
			fmt.Fprintf(s.out, "\r%s %s",
				MutedStyle.Render(s.message), spinnerFrames[frame%len(spinnerFrames)])
			frame++
		}
	}
}

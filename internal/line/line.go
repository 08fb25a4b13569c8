// internal/line/line.go
// Package line defines how the listener reads the keyed line.
package line

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned by samplers read after Close
var ErrClosed = errors.New("line sampler closed")

// Sampler reports the current level of a keyed line.
// Level is called once per sampling tick from a single goroutine.
type Sampler interface {
	// Level returns true while the line is keyed
	Level() (bool, error)
	io.Closer
}

// Step holds a level for a duration.
type Step struct {
	On  bool
	For time.Duration
}

// Script is a Sampler that replays a fixed sequence of levels against the
// wall clock, starting at the first call to Level. After the last step it
// keeps reporting the final level.
type Script struct {
	steps []Step
	now   func() time.Time

	mu     sync.Mutex
	start  time.Time
	closed bool
}

// NewScript returns a Script over steps.
func NewScript(steps ...Step) *Script {
	return &Script{steps: steps, now: time.Now}
}

// Level returns the scripted level for the time elapsed since the first read.
func (s *Script) Level() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}
	return s.levelAt(now.Sub(s.start)), nil
}

func (s *Script) levelAt(elapsed time.Duration) bool {
	if len(s.steps) == 0 {
		return false
	}
	var end time.Duration
	for _, st := range s.steps {
		end += st.For
		if elapsed < end {
			return st.On
		}
	}
	return s.steps[len(s.steps)-1].On
}

// duration returns the total scripted time.
func (s *Script) duration() time.Duration {
	var total time.Duration
	for _, st := range s.steps {
		total += st.For
	}
	return total
}

// Close stops the script; later reads fail with ErrClosed.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

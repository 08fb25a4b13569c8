// internal/dsp/detector.go
package dsp

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be at least one block
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// DetectorConfig holds configuration for the tone detector.
type DetectorConfig struct {
	// Threshold is the magnitude (0.0-1.0) above which a block counts as tone (from config: threshold)
	Threshold float64
	// Hysteresis is consecutive agreeing blocks required to confirm a change (from config: hysteresis)
	Hysteresis int
}

// Detector turns audio into a keyed/unkeyed level. Samples arrive on the audio
// thread through Process; Keyed may be read from any goroutine.
type Detector struct {
	config   DetectorConfig
	goertzel *Goertzel

	mu      sync.Mutex
	pending []float32 // partial block carried between Process calls
	streak  int       // consecutive blocks disagreeing with the confirmed level

	keyed atomic.Bool
}

// NewDetector creates a new tone detector with the given configuration.
func NewDetector(cfg DetectorConfig, goertzel *Goertzel) (*Detector, error) {
	if goertzel == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	return &Detector{
		config:   cfg,
		goertzel: goertzel,
		pending:  make([]float32, 0, goertzel.BlockSize()),
	}, nil
}

// Process consumes samples, evaluating every complete block.
func (d *Detector) Process(samples []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blockSize := d.goertzel.BlockSize()
	for len(samples) > 0 {
		n := blockSize - len(d.pending)
		if n > len(samples) {
			n = len(samples)
		}
		d.pending = append(d.pending, samples[:n]...)
		samples = samples[n:]

		if len(d.pending) == blockSize {
			// pending holds exactly one block, so Magnitude cannot fail
			mag, _ := d.goertzel.Magnitude(d.pending)
			d.observe(mag > d.config.Threshold)
			d.pending = d.pending[:0]
		}
	}
}

// observe applies hysteresis to one block decision.
func (d *Detector) observe(tone bool) {
	if tone == d.keyed.Load() {
		d.streak = 0
		return
	}
	d.streak++
	if d.streak >= d.config.Hysteresis {
		d.keyed.Store(tone)
		d.streak = 0
	}
}

// Keyed returns the confirmed tone state.
func (d *Detector) Keyed() bool {
	return d.keyed.Load()
}

// reset clears buffered samples and returns to unkeyed.
func (d *Detector) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = d.pending[:0]
	d.streak = 0
	d.keyed.Store(false)
}

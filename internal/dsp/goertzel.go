// internal/dsp/goertzel.go
// Package dsp detects a keyed tone in audio so an audio input can serve as a line.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates not enough samples for the configured block size
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig holds configuration for the Goertzel algorithm.
type GoertzelConfig struct {
	// TargetFrequency is the frequency to detect in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per detection window (from config: block_size)
	BlockSize int
}

// Goertzel computes the magnitude of a single DFT bin over fixed-size blocks.
type Goertzel struct {
	blockSize   int
	coefficient float64 // 2 * cos(2πk/N)
	normalizer  float64 // 2 / N, so a full-scale sine reads about 1.0
}

// NewGoertzel creates a new Goertzel filter with the given configuration.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2.0 {
		return nil, ErrInvalidFrequency
	}

	omega := 2.0 * math.Pi * cfg.TargetFrequency / cfg.SampleRate
	return &Goertzel{
		blockSize:   cfg.BlockSize,
		coefficient: 2.0 * math.Cos(omega),
		normalizer:  2.0 / float64(cfg.BlockSize),
	}, nil
}

// BlockSize returns the configured block size
func (g *Goertzel) BlockSize() int {
	return g.blockSize
}

// Magnitude returns the normalized magnitude of the target frequency over the
// first BlockSize samples.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.blockSize {
		return 0, ErrInsufficientSamples
	}

	var s0, s1, s2 float64
	for i := 0; i < g.blockSize; i++ {
		s0 = float64(samples[i]) + g.coefficient*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - g.coefficient*s1*s2
	if power < 0 {
		// rounding
		power = 0
	}
	return math.Sqrt(power) * g.normalizer, nil
}

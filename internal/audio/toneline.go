// internal/audio/toneline.go
package audio

import (
	"context"
	"fmt"

	"github.com/ColonelBlimp/cwlistener/internal/dsp"
)

// ToneLineConfig configures an audio input used as a keyed line
type ToneLineConfig struct {
	Capture       Config
	ToneFrequency float64
	BlockSize     int
	Threshold     float64
	Hysteresis    int
}

// ToneLine reports the line as keyed while a tone is present on an audio input.
type ToneLine struct {
	capture  *Capture
	detector *dsp.Detector
	cancel   context.CancelFunc
}

// OpenToneLine starts capturing and detecting. The capture runs until Close.
func OpenToneLine(cfg ToneLineConfig) (*ToneLine, error) {
	detector, err := newToneDetector(cfg)
	if err != nil {
		return nil, err
	}

	capture := New(cfg.Capture)
	capture.SetCallback(detector.Process)
	if err := capture.Init(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := capture.Start(ctx); err != nil {
		cancel()
		_ = capture.Close()
		return nil, fmt.Errorf("start tone line: %w", err)
	}

	return &ToneLine{capture: capture, detector: detector, cancel: cancel}, nil
}

func newToneDetector(cfg ToneLineConfig) (*dsp.Detector, error) {
	g, err := dsp.NewGoertzel(dsp.GoertzelConfig{
		TargetFrequency: cfg.ToneFrequency,
		SampleRate:      float64(cfg.Capture.SampleRate),
		BlockSize:       cfg.BlockSize,
	})
	if err != nil {
		return nil, fmt.Errorf("tone filter: %w", err)
	}
	d, err := dsp.NewDetector(dsp.DetectorConfig{
		Threshold:  cfg.Threshold,
		Hysteresis: cfg.Hysteresis,
	}, g)
	if err != nil {
		return nil, fmt.Errorf("tone detector: %w", err)
	}
	return d, nil
}

// Level returns true while the tone is present.
func (l *ToneLine) Level() (bool, error) {
	if !l.capture.IsRunning() {
		return false, ErrNotRunning
	}
	return l.detector.Keyed(), nil
}

// Close stops capture and releases the device.
func (l *ToneLine) Close() error {
	l.cancel()
	return l.capture.Close()
}

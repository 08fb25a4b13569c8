// internal/audio/sidetone.go
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	// ErrInvalidVolume indicates volume must be within [0, 1]
	ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")
	// ErrNonIntegerPeriod indicates the tone period is not a whole number of samples
	ErrNonIntegerPeriod = errors.New("sample rate and frequency do not give an integer period length")
	// ErrInvalidTone indicates frequency and sample rate must be positive
	ErrInvalidTone = errors.New("tone frequency and sample rate must be positive")
)

// FadeFrames is the length of the fade applied when the key is released
const FadeFrames = 20

// SidetoneConfig configures the audible feedback tone
type SidetoneConfig struct {
	Frequency  float64 // Hz (from config: sidetone_frequency)
	SampleRate uint32  // Hz (from config: sidetone_sample_rate)
	Volume     float64 // 0.0-1.0 (from config: volume)
}

// defaultSidetoneConfig returns a 441 Hz tone at 44.1 kHz, which has an exact
// 100-sample period.
func defaultSidetoneConfig() SidetoneConfig {
	return SidetoneConfig{Frequency: 441, SampleRate: 44100, Volume: 0.1}
}

// toneGenerator produces the sidetone waveform one buffer at a time.
// It is only touched from the audio callback.
type toneGenerator struct {
	period     []float32 // one period of the scaled sine
	cursor     int       // index into period for the next frame
	wasKeyed   bool
	fadeFrames int
}

func newToneGenerator(cfg SidetoneConfig) (*toneGenerator, error) {
	if cfg.Volume < 0 || cfg.Volume > 1 || math.IsNaN(cfg.Volume) {
		return nil, ErrInvalidVolume
	}
	if cfg.Frequency <= 0 || cfg.SampleRate == 0 {
		return nil, ErrInvalidTone
	}
	length := float64(cfg.SampleRate) / cfg.Frequency
	if length != math.Floor(length) {
		return nil, fmt.Errorf("%w: %d Hz / %v Hz", ErrNonIntegerPeriod, cfg.SampleRate, cfg.Frequency)
	}

	period := make([]float32, int(length))
	for i := range period {
		period[i] = float32(cfg.Volume * math.Sin(2*math.Pi*cfg.Frequency/float64(cfg.SampleRate)*float64(i)))
	}
	return &toneGenerator{period: period, fadeFrames: FadeFrames}, nil
}

// fill writes the next len(out) frames for the given key state.
// Key-down starts abruptly; key-up plays one more buffer faded to silence.
func (g *toneGenerator) fill(out []float32, keyed bool) {
	if !keyed && !g.wasKeyed {
		clear(out)
		g.cursor = 0
		return
	}

	for i := range out {
		out[i] = g.period[g.cursor]
		g.cursor = (g.cursor + 1) % len(g.period)
	}

	if keyed {
		g.wasKeyed = true
		return
	}

	fade := min(g.fadeFrames, len(out))
	for i := range out {
		switch {
		case i >= fade:
			out[i] = 0
		case fade > 1:
			out[i] *= 1 - float32(i)/float32(fade-1)
		}
	}
	g.wasKeyed = false
	g.cursor = 0
}

// Sidetone plays a tone on the default output device while keyed.
type Sidetone struct {
	config SidetoneConfig
	gen    *toneGenerator
	keyed  atomic.Bool

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	scratch []float32
}

// NewSidetone validates cfg and prepares the waveform. No device is opened
// until Start.
func NewSidetone(cfg SidetoneConfig) (*Sidetone, error) {
	gen, err := newToneGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return &Sidetone{config: cfg, gen: gen}, nil
}

// SetKeyed switches the tone on or off. Safe from any goroutine.
func (s *Sidetone) SetKeyed(on bool) {
	s.keyed.Store(on)
}

// Start opens the playback device and begins streaming.
func (s *Sidetone) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return ErrAlreadyRunning
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = s.config.SampleRate

	onSendFrames := func(outputSamples, _ []byte, frameCount uint32) {
		if cap(s.scratch) < int(frameCount) {
			s.scratch = make([]float32, frameCount)
		}
		buf := s.scratch[:frameCount]
		s.gen.fill(buf, s.keyed.Load())
		float32ToBytes(outputSamples, buf)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		_ = freeContext(&ctx)
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = freeContext(&ctx)
		return fmt.Errorf("start playback device: %w", err)
	}

	s.ctx = ctx
	s.device = device
	return nil
}

// Close silences the tone and releases the device.
func (s *Sidetone) Close() error {
	s.keyed.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	return freeContext(&s.ctx)
}

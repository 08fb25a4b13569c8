// internal/audio/capture.go
// Package audio wraps miniaudio (malgo) for the audio line input and the sidetone output.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
)

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns capture defaults for tone keying
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		BufferSize:  256,
	}
}

// SampleCallback is called directly from the audio thread with mono samples.
// Must be non-blocking and fast.
type SampleCallback func(samples []float32)

// Capture records mono float32 audio from an input device
type Capture struct {
	config   Config
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	running  bool
	mu       sync.RWMutex
	callback SampleCallback
}

// New creates a new audio capture instance
func New(cfg Config) *Capture {
	return &Capture{config: cfg}
}

// SetCallback sets the sample callback. Set before calling Start().
func (c *Capture) SetCallback(cb SampleCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx
	return nil
}

// ListDevices returns available capture devices
func (c *Capture) ListDevices() ([]malgo.DeviceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins audio capture. Capture stops when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.RLock()
	running, initialized := c.running, c.ctx != nil
	c.mu.RUnlock()
	if running {
		return ErrAlreadyRunning
	}
	if !initialized {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1

	if c.config.DeviceIndex >= 0 {
		devices, err := c.ListDevices()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				c.config.DeviceIndex, len(devices))
		}
		deviceConfig.Capture.DeviceID = devices[c.config.DeviceIndex].ID.Pointer()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cb := c.callback
	onRecvFrames := func(_, inputSamples []byte, _ uint32) {
		if len(inputSamples) == 0 || cb == nil {
			return
		}
		cb(bytesToFloat32(inputSamples))
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}
	c.device = device
	c.running = true

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// Stop stops audio capture
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}
	c.stopDevice()
	return nil
}

// stopDevice must be called with mu held
func (c *Capture) stopDevice() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.running = false
}

// Close releases all audio resources
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.stopDevice()
	}
	return freeContext(&c.ctx)
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// freeContext uninitializes and frees *ctx, leaving it nil.
func freeContext(ctx **malgo.AllocatedContext) error {
	if *ctx == nil {
		return nil
	}
	err := (*ctx).Uninit()
	(*ctx).Free()
	*ctx = nil
	if err != nil {
		return fmt.Errorf("uninit context: %w", err)
	}
	return nil
}

// bytesToFloat32 decodes little-endian float32 samples; trailing partial samples are dropped
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}

// float32ToBytes encodes samples as little-endian float32 into out
func float32ToBytes(out []byte, samples []float32) {
	for i, s := range samples {
		if (i+1)*4 > len(out) {
			return
		}
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
}

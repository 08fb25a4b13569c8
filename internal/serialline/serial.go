// internal/serialline/serial.go
// Package serialline samples a straight key wired to the CTS line of a serial port.
package serialline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var (
	// ErrDeviceNotFound indicates the configured port is not present
	ErrDeviceNotFound = errors.New("serial device not found")
	// ErrNoMatchingDevice indicates no port matched the selection pattern
	ErrNoMatchingDevice = errors.New("no serial device matches pattern")
	// ErrNotOpen indicates the sampler was closed or never opened
	ErrNotOpen = errors.New("serial port not open")
)

// Device describes one serial port found on the system.
type Device struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// HardwareID renders USB identity the way port listings usually do.
func (d Device) HardwareID() string {
	if !d.IsUSB {
		return ""
	}
	id := fmt.Sprintf("USB VID:PID=%s:%s", d.VID, d.PID)
	if d.SerialNumber != "" {
		id += " SER=" + d.SerialNumber
	}
	return id
}

// Matches reports whether re matches the port name, product or hardware ID.
func (d Device) Matches(re *regexp.Regexp) bool {
	for _, field := range []string{d.Name, d.Product, d.HardwareID()} {
		if field != "" && re.MatchString(field) {
			return true
		}
	}
	return false
}

// ListDevices enumerates the serial ports on this machine.
func ListDevices() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	devices := make([]Device, 0, len(ports))
	for _, p := range ports {
		devices = append(devices, Device{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return devices, nil
}

// CompilePattern builds the case-insensitive selection pattern.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile serial pattern: %w", err)
	}
	return re, nil
}

// Select picks the port to listen on. An explicit name must be present in
// devices; otherwise the first device matching pattern wins.
func Select(devices []Device, explicit, pattern string) (string, error) {
	if explicit != "" {
		for _, d := range devices {
			if d.Name == explicit {
				return explicit, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, explicit)
	}

	re, err := CompilePattern(pattern)
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.Matches(re) {
			return d.Name, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrNoMatchingDevice, pattern)
}

// modemPort is the part of serial.Port the sampler needs.
type modemPort interface {
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	Close() error
}

// Sampler reads the CTS modem line of an open serial port.
type Sampler struct {
	name string

	mu   sync.Mutex
	port modemPort
}

// Open opens the named port at baud, 8N1.
func Open(name string, baud int) (*Sampler, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &Sampler{name: name, port: port}, nil
}

// Name returns the port name.
func (s *Sampler) Name() string {
	return s.name
}

// Level returns true while CTS is asserted.
func (s *Sampler) Level() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return false, ErrNotOpen
	}
	bits, err := s.port.GetModemStatusBits()
	if err != nil {
		return false, fmt.Errorf("read modem status on %s: %w", s.name, err)
	}
	return bits.CTS, nil
}

// Close releases the port. Closing twice is a no-op.
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("close serial port %s: %w", s.name, err)
	}
	return nil
}

// Describe renders a one-line listing entry for d.
func Describe(d Device) string {
	parts := []string{d.Name}
	if d.Product != "" {
		parts = append(parts, d.Product)
	}
	if id := d.HardwareID(); id != "" {
		parts = append(parts, id)
	}
	return strings.Join(parts, " - ")
}

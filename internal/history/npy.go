// internal/history/npy.go
// Package history saves and loads raw line samples as NumPy .npy files.
package history

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/ColonelBlimp/cwlistener/internal/cw"
)

var (
	// ErrInvalidFormat indicates the data is not a 1-D uint8 .npy array
	ErrInvalidFormat = errors.New("not a 1-D uint8 npy array")
	// ErrInvalidSample indicates a sample other than 0 or 1
	ErrInvalidSample = errors.New("sample must be 0 or 1")
)

const (
	magic       = "\x93NUMPY"
	headerAlign = 64
)

var shapeRe = regexp.MustCompile(`'shape':\s*\((\d+),\s*\)`)

// header builds the v1.0 header dict, padded so the data starts 64-byte aligned.
func header(n int) []byte {
	dict := fmt.Sprintf("{'descr': '|u1', 'fortran_order': False, 'shape': (%d,), }", n)
	// magic(6) + version(2) + header length(2) + dict + padding + newline
	prefix := len(magic) + 2 + 2
	total := prefix + len(dict) + 1
	if rem := total % headerAlign; rem != 0 {
		total += headerAlign - rem
	}
	pad := total - prefix - len(dict) - 1

	var b bytes.Buffer
	b.WriteString(dict)
	b.Write(bytes.Repeat([]byte{' '}, pad))
	b.WriteByte('\n')
	return b.Bytes()
}

// Write encodes samples as a .npy uint8 vector.
func Write(w io.Writer, samples []byte) error {
	h := header(len(samples))

	bw := bufio.NewWriter(w)
	bw.WriteString(magic)
	bw.Write([]byte{1, 0})
	var hl [2]byte
	binary.LittleEndian.PutUint16(hl[:], uint16(len(h)))
	bw.Write(hl[:])
	bw.Write(h)
	bw.Write(samples)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write npy: %w", err)
	}
	return nil
}

// Save writes samples to path, creating parent directories.
func Save(path string, samples []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close history file: %w", cerr)
		}
	}()
	return Write(f, samples)
}

// Read decodes a .npy uint8 vector of 0/1 samples holding at most
// cw.DefaultHistoryCapacity values.
func Read(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	var pre [10]byte
	if _, err := io.ReadFull(br, pre[:]); err != nil {
		return nil, fmt.Errorf("%w: short preamble", ErrInvalidFormat)
	}
	if string(pre[:6]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}
	if pre[6] != 1 || pre[7] != 0 {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrInvalidFormat, pre[6], pre[7])
	}

	h := make([]byte, binary.LittleEndian.Uint16(pre[8:10]))
	if _, err := io.ReadFull(br, h); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrInvalidFormat)
	}
	if !bytes.Contains(h, []byte("'descr': '|u1'")) {
		return nil, fmt.Errorf("%w: dtype is not |u1", ErrInvalidFormat)
	}
	if !bytes.Contains(h, []byte("'fortran_order': False")) {
		return nil, fmt.Errorf("%w: fortran order", ErrInvalidFormat)
	}
	m := shapeRe.FindSubmatch(h)
	if m == nil {
		return nil, fmt.Errorf("%w: shape is not 1-D", ErrInvalidFormat)
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: shape: %v", ErrInvalidFormat, err)
	}
	if n > cw.DefaultHistoryCapacity {
		return nil, fmt.Errorf("%w: %d samples exceeds the history capacity of %d", ErrInvalidFormat, n, cw.DefaultHistoryCapacity)
	}

	samples := make([]byte, n)
	if _, err := io.ReadFull(br, samples); err != nil {
		return nil, fmt.Errorf("%w: expected %d samples: %v", ErrInvalidFormat, n, err)
	}
	for i, s := range samples {
		if s > 1 {
			return nil, fmt.Errorf("%w: got %d at index %d", ErrInvalidSample, s, i)
		}
	}
	return samples, nil
}

// Load reads a .npy history file.
func Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

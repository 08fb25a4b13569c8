package history

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColonelBlimp/cwlistener/internal/cw"
)

func encode(t *testing.T, samples []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samples))
	return buf.Bytes()
}

func TestWrite_Layout(t *testing.T) {
	data := encode(t, []byte{0, 1, 1, 0})

	require.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY\x01\x00")))
	hl := int(binary.LittleEndian.Uint16(data[8:10]))
	dataStart := 10 + hl
	assert.Zero(t, dataStart%64, "data must start 64-byte aligned")
	assert.Equal(t, byte('\n'), data[dataStart-1])
	assert.Contains(t, string(data[10:dataStart]), "'shape': (4,)")
	assert.Equal(t, []byte{0, 1, 1, 0}, data[dataStart:])
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 117, 5000} {
		samples := make([]byte, n)
		for i := range samples {
			samples[i] = byte(i % 3 % 2)
		}
		got, err := Read(bytes.NewReader(encode(t, samples)))
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, samples, got, "n=%d", n)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.npy")
	samples := []byte{1, 0, 1, 1, 0}

	require.NoError(t, Save(path, samples))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.npy"))
	assert.Error(t, err)
}

func TestRead_Rejects(t *testing.T) {
	valid := encode(t, []byte{0, 1})
	hl := int(binary.LittleEndian.Uint16(valid[8:10]))

	replaceHeader := func(from, to string) []byte {
		out := bytes.Clone(valid)
		h := bytes.Replace(out[10:10+hl], []byte(from), []byte(to), 1)
		require.Len(t, h, hl)
		copy(out[10:], h)
		return out
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("\x93NUMPZ"), valid[6:]...)},
		{"version 2", append(append([]byte{}, valid[:6]...), append([]byte{2, 0}, valid[8:]...)...)},
		{"float dtype", replaceHeader("'|u1'", "'<f8'")},
		{"fortran order", replaceHeader("False", "True ")},
		{"2-D shape", replaceHeader("(2,), ", "(2,1) ")},
		{"truncated data", valid[:len(valid)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

// rawNPY assembles a v1.0 file from a header dict and body without validation.
func rawNPY(dict string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString("\x93NUMPY\x01\x00")
	h := dict + "\n"
	var hl [2]byte
	binary.LittleEndian.PutUint16(hl[:], uint16(len(h)))
	b.Write(hl[:])
	b.WriteString(h)
	b.Write(body)
	return b.Bytes()
}

func TestRead_RejectsOversizedShape(t *testing.T) {
	tests := []struct {
		name  string
		shape string
	}{
		{"beyond int range", "99999999999999999999999"},
		{"huge", "999999999999999"},
		{"one past capacity", strconv.Itoa(cw.DefaultHistoryCapacity + 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rawNPY("{'descr': '|u1', 'fortran_order': False, 'shape': ("+tt.shape+",), }", []byte{0, 1, 0})
			var err error
			require.NotPanics(t, func() {
				_, err = Read(bytes.NewReader(data))
			})
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestRead_AcceptsFullCapacity(t *testing.T) {
	samples := make([]byte, cw.DefaultHistoryCapacity)
	got, err := Read(bytes.NewReader(encode(t, samples)))
	require.NoError(t, err)
	assert.Len(t, got, cw.DefaultHistoryCapacity)
}

func TestRead_RejectsNonBinarySample(t *testing.T) {
	_, err := Read(bytes.NewReader(encode(t, []byte{0, 1, 2})))
	assert.ErrorIs(t, err, ErrInvalidSample)
}

func TestReplay(t *testing.T) {
	samples := make([]byte, 0, 110)
	samples = append(samples, make([]byte, 50)...)
	samples = append(samples, bytes.Repeat([]byte{1}, 10)...)
	samples = append(samples, make([]byte, 50)...)

	dec, err := cw.NewStreamDecoder(7)
	require.NoError(t, err)

	units, err := Replay(dec, samples, 100, time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "e", units[0].Text)
	assert.Equal(t, samples, dec.History())
}

func TestReplay_SavedHistory(t *testing.T) {
	src, err := cw.NewStreamDecoder(7)
	require.NoError(t, err)
	start := time.Unix(0, 0)
	for i := 0; i < 110; i++ {
		src.ProcessEventAt(i >= 50 && i < 60, start.Add(time.Duration(i)*10*time.Millisecond))
	}

	path := filepath.Join(t.TempDir(), "h.npy")
	require.NoError(t, Save(path, src.History()))
	loaded, err := Load(path)
	require.NoError(t, err)

	dec, err := cw.NewStreamDecoder(7)
	require.NoError(t, err)
	units, err := Replay(dec, loaded, 100, start)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "e", units[0].Text)
}

func TestReplay_InvalidRate(t *testing.T) {
	dec, err := cw.NewStreamDecoder(15)
	require.NoError(t, err)
	_, err = Replay(dec, []byte{0}, 0, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRate)
}

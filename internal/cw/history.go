// internal/cw/history.go
package cw

// DefaultHistoryCapacity is the number of raw samples kept per session
const DefaultHistoryCapacity = 1_000_000

// SampleHistory is a fixed-capacity ring of raw line samples (0 or 1).
// Once full, each append overwrites the oldest sample.
type SampleHistory struct {
	buf   []byte
	next  int // index the next sample is written to
	count int
}

// NewSampleHistory allocates a history holding at most capacity samples.
// Non-positive capacities fall back to DefaultHistoryCapacity.
func NewSampleHistory(capacity int) *SampleHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &SampleHistory{buf: make([]byte, capacity)}
}

// Append records one sample, evicting the oldest when full.
func (h *SampleHistory) Append(sample byte) {
	h.buf[h.next] = sample
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len returns the number of samples held.
func (h *SampleHistory) Len() int {
	return h.count
}

// Snapshot returns a copy of the held samples, oldest first.
func (h *SampleHistory) Snapshot() []byte {
	out := make([]byte, h.count)
	if h.count < len(h.buf) {
		copy(out, h.buf[:h.count])
		return out
	}
	n := copy(out, h.buf[h.next:])
	copy(out[n:], h.buf[:h.next])
	return out
}

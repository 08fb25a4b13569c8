// internal/history/replay.go
package history

import (
	"errors"
	"time"

	"github.com/ColonelBlimp/cwlistener/internal/cw"
)

// ErrInvalidRate indicates the replay sample rate must be positive
var ErrInvalidRate = errors.New("reads per second must be positive")

// Replay feeds samples through dec as if read at a steady readsPerSecond
// starting at start, and returns the decoded units in order.
func Replay(dec *cw.StreamDecoder, samples []byte, readsPerSecond int, start time.Time) ([]cw.Unit, error) {
	if readsPerSecond <= 0 {
		return nil, ErrInvalidRate
	}
	tick := time.Second / time.Duration(readsPerSecond)

	var units []cw.Unit
	for i, s := range samples {
		at := start.Add(time.Duration(i) * tick)
		if u, ok := dec.ProcessEventAt(s == 1, at); ok {
			units = append(units, u)
		}
	}
	return units, nil
}

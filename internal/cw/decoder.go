// internal/cw/decoder.go
package cw

import (
	"fmt"
	"strings"
	"time"
)

// lineState is the last level the decoder acted on.
type lineState int

const (
	// stateIdle means no level observed yet, or reset after a word boundary.
	// lastTime is meaningless while idle.
	stateIdle lineState = iota
	stateOff
	stateOn
)

func (s lineState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateOff:
		return "off"
	case stateOn:
		return "on"
	}
	return fmt.Sprintf("lineState(%d)", int(s))
}

// StreamDecoder turns a stream of line samples into decoded units.
//
// It is not safe for concurrent use. The sampling loop should own it and hand
// decoded units to consumers by value.
type StreamDecoder struct {
	wpm        float64
	timingUnit float64 // dit duration in seconds

	armed     bool // latched by the first on sample
	lastState lineState
	lastTime  time.Time

	buffer  SymbolBuffer
	stats   Stats
	history *SampleHistory
}

// NewStreamDecoder creates a decoder for the given sending speed.
func NewStreamDecoder(wpm float64) (*StreamDecoder, error) {
	unit, err := TimingUnit(wpm)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{
		wpm:        wpm,
		timingUnit: unit,
		lastState:  stateIdle,
		history:    NewSampleHistory(DefaultHistoryCapacity),
	}, nil
}

// ProcessEvent consumes one sample taken now.
func (d *StreamDecoder) ProcessEvent(on bool) (Unit, bool) {
	return d.ProcessEventAt(on, time.Now())
}

// ProcessEventAt consumes one sample taken at the given time and returns at
// most one decoded unit.
func (d *StreamDecoder) ProcessEventAt(on bool, at time.Time) (Unit, bool) {
	if on {
		d.history.Append(1)
	} else {
		d.history.Append(0)
	}

	d.armed = d.armed || on
	if !d.armed {
		return Unit{}, false
	}

	elapsed := IdleElapsedUnits
	if d.lastState != stateIdle {
		elapsed = ElapsedUnits(at.Sub(d.lastTime), d.timingUnit)
	}

	if on {
		return d.risingOrHeld(elapsed, at)
	}
	return d.fallingOrGap(elapsed, at)
}

// risingOrHeld handles an on sample.
func (d *StreamDecoder) risingOrHeld(elapsed float64, at time.Time) (Unit, bool) {
	switch d.lastState {
	case stateOff:
		// A gap just ended; it may already have been flushed mid-gap.
		d.lastState, d.lastTime = stateOn, at
		switch {
		case elapsed < InterCharLowerBound:
			d.buffer.Append(SymbolIntraCharSpace)
			d.stats.Record(CategoryIntraCharSpace, elapsed)
			return Unit{}, false
		case elapsed < InterWordLowerBound:
			d.stats.Record(CategoryInterCharSpace, elapsed)
			d.buffer.Append(SymbolInterCharSpace)
			return d.buffer.Flush()
		default:
			if elapsed < IdleElapsedUnits {
				d.stats.Record(CategoryInterWordSpace, elapsed)
			}
			d.buffer.Append(SymbolInterWordSpace)
			return d.buffer.Flush()
		}
	case stateOn:
		// Still keyed; the pulse length is only known at its trailing edge.
		return Unit{}, false
	case stateIdle:
		d.lastState, d.lastTime = stateOn, at
		return Unit{}, false
	}
	panic(fmt.Sprintf("cw: unexpected stored state %v", d.lastState))
}

// fallingOrGap handles an off sample.
func (d *StreamDecoder) fallingOrGap(elapsed float64, at time.Time) (Unit, bool) {
	switch d.lastState {
	case stateOff:
		switch {
		case elapsed >= InterWordLowerBound:
			d.buffer.Append(SymbolInterWordSpace)
			d.lastState, d.lastTime = stateIdle, time.Time{}
			return d.buffer.Flush()
		case elapsed >= InterCharLowerBound:
			// Keep waiting: the gap may still grow into a word space.
			return d.buffer.Flush()
		default:
			return Unit{}, false
		}
	case stateOn:
		if elapsed >= DahLowerBound {
			d.buffer.Append(SymbolDah)
			d.stats.Record(CategoryDah, elapsed)
		} else {
			d.buffer.Append(SymbolDit)
			d.stats.Record(CategoryDit, elapsed)
		}
		d.lastState, d.lastTime = stateOff, at
		return Unit{}, false
	case stateIdle:
		return Unit{}, false
	}
	panic(fmt.Sprintf("cw: unexpected stored state %v", d.lastState))
}

// WPM returns the configured speed.
func (d *StreamDecoder) WPM() float64 {
	return d.wpm
}

// TimingUnit returns the dit duration in seconds.
func (d *StreamDecoder) TimingUnit() float64 {
	return d.timingUnit
}

// Armed reports whether an on sample has been seen this session.
func (d *StreamDecoder) Armed() bool {
	return d.armed
}

// Pending returns the symbols buffered for the character being formed.
func (d *StreamDecoder) Pending() string {
	return d.buffer.String()
}

// Stats returns a copy of the per-category duration statistics.
func (d *StreamDecoder) Stats() Stats {
	return d.stats
}

// History returns the raw samples seen this session, oldest first.
func (d *StreamDecoder) History() []byte {
	return d.history.Snapshot()
}

// TimingReport returns one line per category with mean and observation count.
func (d *StreamDecoder) TimingReport() []StatLine {
	return d.stats.Lines()
}

// FormatTimingReport renders the timing report as plain text.
func FormatTimingReport(lines []StatLine) string {
	var b strings.Builder
	for _, l := range lines {
		mean := "None"
		if l.HasMean {
			mean = fmt.Sprintf("%.3f", l.Mean)
		}
		fmt.Fprintf(&b, "%s: Mean: %s || Observations: %d\n", l.Category, mean, l.Count)
	}
	return b.String()
}

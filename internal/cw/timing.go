// internal/cw/timing.go
package cw

import (
	"errors"
	"math"
	"time"
)

// Timing thresholds, in dit units. Every comparison is inclusive at the lower bound.
const (
	// DahLowerBound is the shortest on-duration classified as a dah
	DahLowerBound = 1.5
	// InterCharLowerBound is the shortest gap that ends a character
	InterCharLowerBound = 2.5
	// InterWordLowerBound is the shortest gap that ends a word
	InterWordLowerBound = 6.0

	// IdleElapsedUnits stands in for the elapsed time when there is no previous
	// timestamp to measure from. It exceeds every threshold above.
	IdleElapsedUnits = 1000.0

	// SecondsPerMinute is used for WPM calculations
	SecondsPerMinute = 60.0
	// DitsPerWord is the standard word "PARIS" = 50 dit units
	DitsPerWord = 50.0
)

// ErrInvalidWPM indicates WPM must be a positive, finite number
var ErrInvalidWPM = errors.New("WPM must be positive")

// TimingUnit returns the dit duration in seconds for the given speed.
func TimingUnit(wpm float64) (float64, error) {
	if !(wpm > 0) || math.IsInf(wpm, 1) {
		return 0, ErrInvalidWPM
	}
	return (SecondsPerMinute / DitsPerWord) * (1.0 / wpm), nil
}

// ElapsedUnits converts a measured duration into dit units.
func ElapsedUnits(elapsed time.Duration, unit float64) float64 {
	return elapsed.Seconds() / unit
}

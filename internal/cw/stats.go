// internal/cw/stats.go
package cw

import "fmt"

// Category names one of the five measured duration kinds.
type Category int

const (
	CategoryDit Category = iota
	CategoryDah
	CategoryIntraCharSpace
	CategoryInterCharSpace
	CategoryInterWordSpace

	numCategories
)

var categoryNames = [numCategories]string{
	CategoryDit:            "dit",
	CategoryDah:            "dah",
	CategoryIntraCharSpace: "intrachar_space",
	CategoryInterCharSpace: "interchar_space",
	CategoryInterWordSpace: "interword_space",
}

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{
		CategoryDit,
		CategoryDah,
		CategoryIntraCharSpace,
		CategoryInterCharSpace,
		CategoryInterWordSpace,
	}
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// RunningStat tracks the mean of an unbounded stream of observations.
// The zero value is ready to use.
type RunningStat struct {
	mean  float64
	count int
}

// Update folds one observation into the mean.
func (s *RunningStat) Update(x float64) {
	n := float64(s.count)
	s.mean = s.mean*(n/(n+1)) + x/(n+1)
	s.count++
}

// Mean returns the current mean. ok is false until the first Update.
func (s RunningStat) Mean() (mean float64, ok bool) {
	if s.count <= 0 {
		return 0, false
	}
	return s.mean, true
}

// Count returns the number of observations so far.
func (s RunningStat) Count() int {
	return s.count
}

func (s RunningStat) String() string {
	mean := "None"
	if m, ok := s.Mean(); ok {
		mean = fmt.Sprintf("%.3f", m)
	}
	return fmt.Sprintf("Mean: %s || Observations: %d", mean, s.count)
}

// Stats holds one RunningStat per Category.
type Stats [numCategories]RunningStat

// Record adds an observation to the given category.
func (s *Stats) Record(c Category, x float64) {
	s[c].Update(x)
}

// StatLine is one row of a timing report.
type StatLine struct {
	Category Category
	Mean     float64
	HasMean  bool
	Count    int
}

// Lines returns a report row for every category, in report order.
func (s *Stats) Lines() []StatLine {
	lines := make([]StatLine, 0, numCategories)
	for _, c := range Categories() {
		mean, ok := s[c].Mean()
		lines = append(lines, StatLine{
			Category: c,
			Mean:     mean,
			HasMean:  ok,
			Count:    s[c].Count(),
		})
	}
	return lines
}

// Package reduce collapses a window of raw scan values into a mean and a
// standard deviation.
package reduce

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/window"
)

// ErrInsufficientData marks a sample whose window held too few rows for the
// requested statistic. It is carried in Sample.Err, never returned as a failure.
var ErrInsufficientData = errors.New("insufficient data")

// Sample is the reduced value of one species over one window.
type Sample struct {
	Mean float64
	Std  float64 // >= 0, or NaN when undefined
	N    int
	Err  error
}

// Valid reports whether both statistics are defined.
func (s Sample) Valid() bool { return s.Err == nil }

// Reduce returns the mean and the standard deviation of values with
// sqrt(Σ(x-mean)²/(n-ddof)). ddof is chosen per call site.
func Reduce(values []float64, ddof int) Sample {
	n := len(values)
	s := Sample{Mean: math.NaN(), Std: math.NaN(), N: n}
	if n == 0 {
		s.Err = ErrInsufficientData
		return s
	}
	mean, err := stats.Mean(values)
	if err != nil {
		s.Err = ErrInsufficientData
		return s
	}
	s.Mean = mean
	if ddof < 0 || ddof >= n {
		s.Err = ErrInsufficientData
		return s
	}
	pv, err := stats.PopulationVariance(values)
	if err != nil {
		s.Err = ErrInsufficientData
		return s
	}
	v := pv * float64(n) / float64(n-ddof)
	if v < 0 {
		// rounding on constant input
		v = 0
	}
	s.Std = math.Sqrt(v)
	return s
}

// ReduceWindow reduces column col of tab over w.
func ReduceWindow(tab *table.Table, w window.Window, col, ddof int) Sample {
	return Reduce(tab.Slice(col, w.Lo, w.Hi), ddof)
}

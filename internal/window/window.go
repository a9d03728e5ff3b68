// Package window maps experiment conditions (a time step or a scan row) to
// row ranges of the sample table.
package window

import (
	"fmt"
	"math"
)

// DefaultWidth is the number of rows averaged per condition.
const DefaultWidth = 25

// Window is a half-open row range [Lo, Hi).
type Window struct {
	Lo, Hi int
	// Clamped is set when the range was cut at row 0 and is narrower than requested.
	Clamped bool
}

// Len returns the number of rows in the window.
func (w Window) Len() int {
	if w.Hi <= w.Lo {
		return 0
	}
	return w.Hi - w.Lo
}

// Empty reports whether the window covers no rows.
func (w Window) Empty() bool { return w.Len() == 0 }

func (w Window) String() string {
	s := fmt.Sprintf("[%d,%d)", w.Lo, w.Hi)
	if w.Clamped {
		s += "*"
	}
	return s
}

// Locate returns the window of the given width ending at the row nearest t/delta.
// t and delta are in minutes. A window that would start before row 0 is clamped.
func Locate(t, delta float64, width int) Window {
	end := int(math.Round(t / delta))
	return trailing(end, width)
}

func trailing(end, width int) Window {
	if end < 0 {
		end = 0
	}
	lo := end - width
	w := Window{Lo: lo, Hi: end}
	if lo < 0 {
		w.Lo = 0
		w.Clamped = true
	}
	return w
}

// RangeError is returned by Validate for a window that cannot be read from the table.
type RangeError struct {
	Window Window
	Rows   int
}

func (e *RangeError) Error() string {
	if e.Window.Hi > e.Rows {
		return fmt.Sprintf("window %s extends past the last row (%d rows)", e.Window, e.Rows)
	}
	return fmt.Sprintf("window %s is empty", e.Window)
}

// Validate checks that w is non-empty and lies inside a table of the given row count.
func Validate(w Window, rows int) error {
	if w.Hi > rows || w.Hi <= w.Lo || w.Lo < 0 {
		return &RangeError{Window: w, Rows: rows}
	}
	return nil
}

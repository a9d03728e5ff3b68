package window

import "math"

// Condition is one logical measurement point: a schedule step or a scan row.
type Condition struct {
	Index       int
	Temperature float64 // °C, meaningful only when Defined
	Defined     bool
	Elapsed     float64 // minutes since the start of the scan
	Window      Window
}

// Strategy produces the ordered list of conditions for a table with the given row count.
type Strategy interface {
	Conditions(rows int) []Condition
}

// Step is one discrete schedule entry.
type Step struct {
	Temperature float64
	Elapsed     float64
}

// Schedule windows each step at Elapsed/ScanningSpeed.
type Schedule struct {
	Steps         []Step
	ScanningSpeed float64 // minutes per row
	Width         int
}

// Conditions implements Strategy. rows is unused; out-of-range windows are
// reported later by Validate.
func (s Schedule) Conditions(rows int) []Condition {
	out := make([]Condition, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = Condition{
			Index:       i,
			Temperature: st.Temperature,
			Defined:     true,
			Elapsed:     st.Elapsed,
			Window:      Locate(st.Elapsed, s.ScanningSpeed, s.Width),
		}
	}
	return out
}

// TemperatureFunc maps elapsed minutes to a temperature; ok is false when the
// program defines no temperature at that time.
type TemperatureFunc func(elapsed float64) (temp float64, ok bool)

// Continuous turns every scan row into a condition and resolves its temperature
// through Program. Rows without a temperature are marked undefined.
type Continuous struct {
	Program       TemperatureFunc
	ScanningSpeed float64
	Width         int
}

// Conditions implements Strategy.
func (c Continuous) Conditions(rows int) []Condition {
	width := c.Width
	if width < 1 {
		width = 1
	}
	out := make([]Condition, rows)
	for i := 0; i < rows; i++ {
		t := float64(i) * c.ScanningSpeed
		cond := Condition{Index: i, Elapsed: t}
		if temp, ok := c.Program(t); ok {
			cond.Temperature = temp
			cond.Defined = true
			cond.Window = trailing(i+1, width)
		}
		out[i] = cond
	}
	return out
}

// Segment is one linear piece of a temperature program:
// T(t) = Start + Rate*(t-From) for From <= t < To.
type Segment struct {
	From  float64 `yaml:"from" mapstructure:"from"`
	To    float64 `yaml:"to" mapstructure:"to"`
	Start float64 `yaml:"start" mapstructure:"start"`
	Rate  float64 `yaml:"rate" mapstructure:"rate"` // °C per minute
}

// Program is a piecewise-linear temperature program.
type Program struct {
	Segments []Segment
}

// At implements TemperatureFunc. The first matching segment wins.
func (p Program) At(t float64) (float64, bool) {
	if math.IsNaN(t) {
		return 0, false
	}
	for _, s := range p.Segments {
		if t >= s.From && t < s.To {
			return s.Start + s.Rate*(t-s.From), true
		}
	}
	return 0, false
}

// RampProgram is the 75 → 300 → 75 °C program used for the Fe catalyst runs.
func RampProgram() Program {
	return Program{Segments: []Segment{
		{From: 60, To: 65, Start: 75},
		{From: 65, To: 290, Start: 75, Rate: 1},
		{From: 290, To: 295, Start: 300},
		{From: 295, To: 520, Start: 300, Rate: -1},
		{From: 520, To: 525, Start: 75},
	}}
}

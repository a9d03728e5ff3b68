package window

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateRoundTrip(t *testing.T) {
	const delta = 0.3521689
	times := []float64{60, 110, 160, 210, 240, 270, 300, 330, 360, 390, 420}
	for _, tm := range times {
		w := Locate(tm, delta, DefaultWidth)
		assert.Equal(t, int(math.Round(tm/delta)), w.Hi, "t=%v", tm)
		assert.Equal(t, DefaultWidth, w.Len(), "t=%v", tm)
		assert.False(t, w.Clamped)
	}
}

func TestLocateClampsAtRowZero(t *testing.T) {
	w := Locate(3, 0.5, 25)
	assert.Equal(t, Window{Lo: 0, Hi: 6, Clamped: true}, w)
	assert.Equal(t, 6, w.Len())
	assert.Equal(t, "[0,6)*", w.String())

	w = Locate(0, 0.5, 25)
	assert.True(t, w.Empty())
	assert.True(t, w.Clamped)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Window{Lo: 0, Hi: 10}, 10))

	err := Validate(Window{Lo: 5, Hi: 11}, 10)
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "past the last row")

	err = Validate(Window{Lo: 0, Hi: 0, Clamped: true}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestScheduleConditions(t *testing.T) {
	s := Schedule{
		Steps:         []Step{{Temperature: 100, Elapsed: 10}, {Temperature: 130, Elapsed: 20}},
		ScanningSpeed: 0.5,
		Width:         5,
	}
	conds := s.Conditions(100)
	require.Len(t, conds, 2)
	assert.Equal(t, Window{Lo: 15, Hi: 20}, conds[0].Window)
	assert.Equal(t, Window{Lo: 35, Hi: 40}, conds[1].Window)
	assert.True(t, conds[1].Defined)
	assert.Equal(t, 130.0, conds[1].Temperature)
	assert.Equal(t, 1, conds[1].Index)
}

func TestProgramAt(t *testing.T) {
	p := RampProgram()
	cases := []struct {
		t    float64
		want float64
		ok   bool
	}{
		{59.9, 0, false},
		{60, 75, true},
		{64.9, 75, true},
		{65, 75, true},
		{100, 110, true},
		{290, 300, true},
		{295, 300, true},
		{400, 195, true},
		{520, 75, true},
		{525, 0, false},
		{math.NaN(), 0, false},
	}
	for _, c := range cases {
		got, ok := p.At(c.t)
		assert.Equal(t, c.ok, ok, "t=%v", c.t)
		if c.ok {
			assert.InDelta(t, c.want, got, 1e-9, "t=%v", c.t)
		}
	}
}

func TestContinuousExcludesUndefinedRows(t *testing.T) {
	c := Continuous{Program: RampProgram().At, ScanningSpeed: 1, Width: 1}
	conds := c.Conditions(600)
	require.Len(t, conds, 600)
	for _, cond := range conds {
		inside := cond.Elapsed >= 60 && cond.Elapsed < 525
		assert.Equal(t, inside, cond.Defined, "row %d", cond.Index)
		if cond.Defined {
			assert.Equal(t, Window{Lo: cond.Index, Hi: cond.Index + 1}, cond.Window)
		} else {
			assert.True(t, cond.Window.Empty())
		}
	}
}

func TestContinuousTrailingWindow(t *testing.T) {
	always := func(float64) (float64, bool) { return 200, true }
	conds := Continuous{Program: always, ScanningSpeed: 0.5, Width: 3}.Conditions(5)
	assert.Equal(t, Window{Lo: 0, Hi: 1, Clamped: true}, conds[0].Window)
	assert.Equal(t, Window{Lo: 1, Hi: 4}, conds[3].Window)
	assert.Equal(t, 1.5, conds[3].Elapsed)
}

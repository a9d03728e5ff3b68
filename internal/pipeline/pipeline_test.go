package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/experiment"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/kinetics"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/window"
)

var (
	industryTemps = []float64{100, 130, 170, 200, 230, 260, 300, 350, 400, 450, 500}
	industryTimes = []float64{60, 110, 160, 210, 240, 270, 300, 330, 360, 390, 420}
)

const industrySpeed = 0.3521689

func industrySchedule() window.Schedule {
	steps := make([]window.Step, len(industryTemps))
	for i := range steps {
		steps[i] = window.Step{Temperature: industryTemps[i], Elapsed: industryTimes[i]}
	}
	return window.Schedule{Steps: steps, ScanningSpeed: industrySpeed, Width: window.DefaultWidth}
}

func flowChain() kinetics.Chain {
	return kinetics.Chain{Model: kinetics.FlowModel{FlowRate: 100, Volume: 0.1}}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

func TestRunConstantTableGivesNaNLogRate(t *testing.T) {
	tab, err := table.FromColumns("const", []string{"NO"}, [][]float64{constant(500, 500)})
	require.NoError(t, err)
	cfg := Config{
		Species: []Species{{Name: "NO", Background: 500}},
		Strategy: window.Schedule{
			Steps:         []window.Step{{Temperature: 100, Elapsed: 60}, {Temperature: 130, Elapsed: 110}, {Temperature: 170, Elapsed: 160}},
			ScanningSpeed: industrySpeed,
			Width:         window.DefaultWidth,
		},
		Chain: flowChain(),
	}
	res, err := Run(context.Background(), tab, cfg)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	for _, r := range res.Rows {
		assert.InDelta(t, 0, r.Record.Conversion.V, 1e-12)
		assert.Equal(t, 0.0, r.Record.Rate.V)
		assert.True(t, math.IsNaN(r.Record.LogRate.V))
		assert.Equal(t, 0.0, r.Samples[0].Std)
	}
	assert.NotEmpty(t, res.RunID)
}

func TestRunIndustrySchedule(t *testing.T) {
	const n = 1300
	tab, err := table.FromColumns("ramp", []string{"NO", "NH3"}, [][]float64{ramp(n, 500, 50), constant(n, 480)})
	require.NoError(t, err)
	cfg := Config{
		Species:  []Species{{Name: "NO", Background: 500}, {Name: "NH3", Background: 500, DDOF: 1}},
		Strategy: industrySchedule(),
		Chain:    flowChain(),
		Workers:  4,
		Fit:      true,
	}
	res, err := Run(context.Background(), tab, cfg)
	require.NoError(t, err)
	require.Len(t, res.Rows, 11)
	assert.Zero(t, res.Excluded)
	assert.Zero(t, res.Clamped)
	assert.Zero(t, res.Saturated)

	prevX := math.Inf(-1)
	for i, r := range res.Rows {
		assert.Equal(t, industryTemps[i], r.Condition.Temperature, "row %d", i)
		assert.Equal(t, i, r.Condition.Index)
		assert.Equal(t, int(math.Round(industryTimes[i]/industrySpeed)), r.Condition.Window.Hi)
		assert.Equal(t, window.DefaultWidth, r.Samples[0].N)
		assert.Greater(t, r.Record.Conversion.V, prevX, "conversion must increase, row %d", i)
		prevX = r.Record.Conversion.V
		assert.InDelta(t, 1/(273.15+industryTemps[i]), r.Record.InvT, 1e-15)
		assert.True(t, r.Record.Rate.OK())
		assert.True(t, r.Record.LogRate.OK())
		assert.Equal(t, 480.0, r.Samples[1].Mean)
	}
	require.NotNil(t, res.Fit)
	assert.Equal(t, 11, res.Fit.N)
}

func TestRunWindowPastEndIsConfigError(t *testing.T) {
	tab, err := table.FromColumns("short", []string{"NO"}, [][]float64{ramp(300, 500, 50)})
	require.NoError(t, err)
	_, err = Run(context.Background(), tab, Config{
		Species:  []Species{{Name: "NO", Background: 500}},
		Strategy: industrySchedule(),
		Chain:    flowChain(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, experiment.ErrConfig))
	var re *window.RangeError
	assert.True(t, errors.As(err, &re))
}

func TestRunClampedWindow(t *testing.T) {
	tab, err := table.FromColumns("t", []string{"NO"}, [][]float64{ramp(100, 500, 400)})
	require.NoError(t, err)
	cfg := Config{
		Species: []Species{{Name: "NO", Background: 500}},
		Strategy: window.Schedule{
			Steps:         []window.Step{{Temperature: 100, Elapsed: 5}, {Temperature: 150, Elapsed: 30}},
			ScanningSpeed: 0.5,
			Width:         25,
		},
		Chain: flowChain(),
	}
	var buf bytes.Buffer
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	res, err := Run(context.Background(), tab, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Clamped)
	assert.Equal(t, 10, res.Rows[0].Samples[0].N)
	assert.True(t, res.Rows[0].Condition.Window.Clamped)
	assert.Contains(t, buf.String(), "windows narrower than configured width")

	cfg.StrictWindows = true
	_, err = Run(context.Background(), tab, cfg)
	assert.ErrorIs(t, err, experiment.ErrConfig)
}

func TestRunContinuousExcludesUndefinedRows(t *testing.T) {
	const speed = 0.420432044105174
	const n = 1400
	tab, err := table.FromColumns("fe", []string{"NO"}, [][]float64{ramp(n, 503, 20)})
	require.NoError(t, err)
	cfg := Config{
		Species:  []Species{{Name: "NO", Background: 503}},
		Strategy: window.Continuous{Program: window.RampProgram().At, ScanningSpeed: speed, Width: 1},
		Chain:    kinetics.Chain{Model: kinetics.SurfaceModel{FlowRate: 83.33, Mass: 0.05, SurfaceArea: 100}},
		Workers:  8,
	}
	res, err := Run(context.Background(), tab, cfg)
	require.NoError(t, err)

	want := 0
	for i := 0; i < n; i++ {
		if tm := float64(i) * speed; tm >= 60 && tm < 525 {
			want++
		}
	}
	assert.Equal(t, want, len(res.Rows))
	assert.Equal(t, n-want, res.Excluded)
	prev := -1
	for _, r := range res.Rows {
		assert.GreaterOrEqual(t, r.Condition.Elapsed, 60.0)
		assert.Less(t, r.Condition.Elapsed, 525.0)
		assert.Greater(t, r.Condition.Index, prev, "rows must keep scan order")
		prev = r.Condition.Index
		assert.Equal(t, tab.Value(r.Condition.Index, 0), r.Samples[0].Mean)
	}
}

func TestRunConfigErrors(t *testing.T) {
	tab, err := table.FromColumns("t", []string{"NO", "NH3"}, [][]float64{constant(10, 1), constant(10, 1)})
	require.NoError(t, err)
	base := Config{
		Species:  []Species{{Name: "NO", Background: 500}, {Name: "NH3"}},
		Strategy: window.Schedule{Steps: []window.Step{{Temperature: 100, Elapsed: 5}}, ScanningSpeed: 1, Width: 2},
		Chain:    flowChain(),
	}
	cases := map[string]func(c *Config) (*table.Table, Config){
		"nil table":     func(c *Config) (*table.Table, Config) { return nil, *c },
		"no strategy":   func(c *Config) (*table.Table, Config) { c.Strategy = nil; return tab, *c },
		"species count": func(c *Config) (*table.Table, Config) { c.Species = c.Species[:1]; return tab, *c },
		"negative ddof": func(c *Config) (*table.Table, Config) { c.Species[1].DDOF = -1; return tab, *c },
		"empty window":  func(c *Config) (*table.Table, Config) { c.Strategy = window.Schedule{Steps: []window.Step{{Elapsed: 0}}, ScanningSpeed: 1, Width: 2}; return tab, *c },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			c.Species = append([]Species(nil), base.Species...)
			tb, cfg := mut(&c)
			_, err := Run(context.Background(), tb, cfg)
			assert.ErrorIs(t, err, experiment.ErrConfig)
		})
	}
}

func TestRunCanceled(t *testing.T) {
	tab, err := table.FromColumns("t", []string{"NO"}, [][]float64{ramp(1300, 500, 50)})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, tab, Config{
		Species:  []Species{{Name: "NO", Background: 500}},
		Strategy: industrySchedule(),
		Chain:    flowChain(),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromExperiment(t *testing.T) {
	e := experiment.Template("x")
	d := 2
	e.Species[1].DDOF = &d
	cfg := FromExperiment(e)
	require.Len(t, cfg.Species, 6)
	assert.Equal(t, 500.0, cfg.Species[0].Background)
	assert.Equal(t, 2, cfg.Species[1].DDOF)
	assert.Equal(t, 0, cfg.Species[2].DDOF)
	_, ok := cfg.Strategy.(window.Schedule)
	assert.True(t, ok)
}

func TestRunContinuousSurfaceRateFollowsRowConcentration(t *testing.T) {
	const f, m, s, c0 = 83.33, 0.05, 100.0, 503.0
	tab, err := table.FromColumns("fe", []string{"NO"}, [][]float64{{480, 300, 120, 450}})
	require.NoError(t, err)
	res, err := Run(context.Background(), tab, Config{
		Species:  []Species{{Name: "NO", Background: c0}},
		Strategy: window.Continuous{Program: window.Program{Segments: []window.Segment{{From: 0, To: 10, Start: 200}}}.At, ScanningSpeed: 1, Width: 1},
		Chain:    kinetics.Chain{Model: kinetics.SurfaceModel{FlowRate: f, Mass: m, SurfaceArea: s}},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 4)
	for i, r := range res.Rows {
		c := tab.Value(i, 0)
		want := -f * (1e-3 / 60) * (1 / 22.4) / (m * s) * math.Log(c/c0) * c
		assert.InDelta(t, want, r.Record.Rate.V, math.Abs(want)*1e-9, "row %d", i)
	}
	assert.Greater(t, res.Rows[2].Record.Rate.V, res.Rows[0].Record.Rate.V)
}

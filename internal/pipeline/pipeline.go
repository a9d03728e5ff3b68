// Package pipeline drives one run: locate windows, reduce them and derive the
// kinetics record of every condition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/experiment"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/kinetics"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/reduce"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/window"
)

// Species is the per-species reduction setting.
type Species struct {
	Name       string
	Background float64
	DDOF       int
}

// Config is the immutable description of a run.
type Config struct {
	Species  []Species // Species[0] is the limiting reagent
	Strategy window.Strategy
	Chain    kinetics.Chain
	// Workers bounds the reduction fan-out; <= 0 means GOMAXPROCS.
	Workers int
	// StrictWindows turns a window clamped at row 0 into a configuration error.
	StrictWindows bool
	// Fit requests an Arrhenius regression over the finished rows.
	Fit    bool
	Logger *slog.Logger
}

// FromExperiment builds a Config from an experiment file.
func FromExperiment(e *experiment.Experiment) Config {
	sp := make([]Species, len(e.Species))
	for i, s := range e.Species {
		sp[i] = Species{Name: s.Name, Background: s.Background, DDOF: e.SpeciesDDOF(i)}
	}
	return Config{
		Species:       sp,
		Strategy:      e.Strategy(),
		Chain:         e.Chain(),
		StrictWindows: e.StrictWindows,
	}
}

// Row is the finished result of one condition.
type Row struct {
	Condition window.Condition
	Samples   []reduce.Sample // one per species, table column order
	Record    kinetics.Record
}

// Result is the ordered outcome of a run.
type Result struct {
	RunID     string
	Rows      []Row
	Excluded  int // conditions without a temperature
	Saturated int
	Clamped   int
	Fit       *kinetics.Arrhenius
}

// Run executes the pipeline over tab. Configuration problems are reported
// before any reduction starts; numeric problems stay local to their row.
func Run(ctx context.Context, tab *table.Table, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tab == nil || tab.Rows == 0 {
		return nil, &experiment.ConfigError{Field: "table", Msg: "no data rows"}
	}
	if cfg.Strategy == nil {
		return nil, &experiment.ConfigError{Field: "strategy", Msg: "no window locator configured"}
	}
	if len(cfg.Species) == 0 {
		return nil, &experiment.ConfigError{Field: "species", Msg: "no species configured"}
	}
	if len(cfg.Species) != tab.Width() {
		return nil, &experiment.ConfigError{Field: "species", Msg: fmt.Sprintf("%d species configured but table has %d columns", len(cfg.Species), tab.Width())}
	}
	for i, s := range cfg.Species {
		if s.DDOF < 0 {
			return nil, &experiment.ConfigError{Field: fmt.Sprintf("species[%d].ddof", i), Msg: "must be >= 0"}
		}
	}

	res := &Result{RunID: uuid.NewString()}
	log = log.With("run_id", res.RunID, "table", tab.Name)

	conds := cfg.Strategy.Conditions(tab.Rows)
	active := make([]window.Condition, 0, len(conds))
	for _, c := range conds {
		if !c.Defined {
			res.Excluded++
			continue
		}
		if err := window.Validate(c.Window, tab.Rows); err != nil {
			return nil, &experiment.ConfigError{Field: fmt.Sprintf("condition[%d]", c.Index), Msg: "window out of range", Err: err}
		}
		if c.Window.Clamped {
			if cfg.StrictWindows {
				return nil, &experiment.ConfigError{
					Field: fmt.Sprintf("condition[%d]", c.Index),
					Msg:   fmt.Sprintf("window %s starts before row 0", c.Window),
				}
			}
			res.Clamped++
			log.Debug("window clamped at row 0", "condition", c.Index, "window", c.Window.String(), "rows", c.Window.Len())
		}
		active = append(active, c)
	}
	if res.Excluded > 0 {
		log.Debug("conditions without temperature excluded", "count", res.Excluded)
	}
	if res.Clamped > 0 {
		log.Warn("windows narrower than configured width", "count", res.Clamped)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log.Debug("reducing conditions", "conditions", len(active), "workers", workers)

	rows := make([]Row, len(active))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range active {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = reduceCondition(tab, cfg, active[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reduce conditions: %w", err)
	}

	for _, r := range rows {
		if r.Record.Conversion.Flags.Has(kinetics.FlagSaturated) {
			res.Saturated++
			log.Debug("conversion ratio saturated", "condition", r.Condition.Index,
				"temperature", r.Condition.Temperature, "clamped_to", kinetics.SaturatedConversion)
		}
	}
	if res.Saturated > 0 {
		log.Warn("conversion ratios clamped below 100%", "count", res.Saturated)
	}
	res.Rows = rows

	if cfg.Fit && !cfg.Chain.SkipRate {
		fit, err := kinetics.FitArrhenius(Records(rows))
		switch {
		case err == nil:
			res.Fit = &fit
		case errors.Is(err, kinetics.ErrTooFewPoints):
			log.Warn("arrhenius fit skipped", "usable_points", fit.N)
		default:
			return nil, err
		}
	}
	return res, nil
}

func reduceCondition(tab *table.Table, cfg Config, c window.Condition) Row {
	row := Row{Condition: c, Samples: make([]reduce.Sample, len(cfg.Species))}
	for j, s := range cfg.Species {
		row.Samples[j] = reduce.ReduceWindow(tab, c.Window, j, s.DDOF)
	}
	row.Record = cfg.Chain.Apply(row.Samples[0], cfg.Species[0].Background, c.Temperature, c.Defined)
	return row
}

// Records extracts the kinetics records in row order.
func Records(rows []Row) []kinetics.Record {
	out := make([]kinetics.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record
	}
	return out
}

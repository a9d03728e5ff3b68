package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/experiment"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/kinetics"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/pipeline"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/plot"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/report"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/table"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/utils"
)

// runFlags are shared by run and run-batch.
type runFlags struct {
	experiment string
	plot       bool
	fit        bool
	workers    int
	window     int
	strict     bool
	noRate     bool
	delimiter  string
	decimal    string
	thousands  string
	sheet      string
	quiet      bool
}

func (f *runFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.experiment, "experiment", "e", "", "experiment file or name in the experiments directory")
	c.Flags().BoolVar(&f.plot, "plot", false, "also write <data>_plot.xlsx with charts")
	c.Flags().BoolVar(&f.fit, "fit", false, "fit ln k against 1/T and print the Arrhenius parameters")
	c.Flags().IntVar(&f.workers, "workers", 0, "parallel reduction workers (0 = config or GOMAXPROCS)")
	c.Flags().IntVar(&f.window, "window", 0, "rows averaged per condition (overrides experiment)")
	c.Flags().BoolVar(&f.strict, "strict", false, "treat windows clamped at the first row as errors")
	c.Flags().BoolVar(&f.noRate, "no-rate", false, "stop after the conversion ratio")
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "column delimiter: ',' | ';' | 'tab' | 'whitespace' (overrides experiment)")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator: '.'|'comma' (overrides experiment)")
	c.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator: ','|'.'|'space' (overrides experiment)")
	c.Flags().StringVar(&f.sheet, "sheet", "", "XLSX: sheet name (overrides experiment)")
	c.Flags().BoolVar(&f.quiet, "quiet", false, "suppress the run summary")
}

// apply merges command-line overrides into e and revalidates it.
func (f *runFlags) apply(c *cobra.Command, e *experiment.Experiment) error {
	fl := c.Flags()
	if fl.Changed("window") {
		e.Window = f.window
	}
	if fl.Changed("strict") {
		e.StrictWindows = f.strict
	}
	if f.noRate {
		e.Rate.Model = experiment.ModelNone
	}
	if fl.Changed("delimiter") {
		e.Input.Delimiter = f.delimiter
	}
	if fl.Changed("decimal") {
		e.Input.Decimal = f.decimal
	}
	if fl.Changed("thousands") {
		e.Input.Thousands = f.thousands
	}
	if fl.Changed("sheet") {
		e.Input.Sheet = f.sheet
	}
	return e.Validate()
}

func (f *runFlags) effectiveWorkers(c *cobra.Command) int {
	if c.Flags().Changed("workers") || cfg == nil {
		return f.workers
	}
	return cfg.Workers
}

func (f *runFlags) wantPlot() bool {
	return f.plot || (cfg != nil && cfg.Plot)
}

// runOne reduces one data file and writes its report (and workbook when requested).
// reportPath may be empty to use the default location.
func runOne(ctx context.Context, c *cobra.Command, f *runFlags, e *experiment.Experiment, dataPath, reportPath string) (*pipeline.Result, error) {
	opt, err := e.TableOptions()
	if err != nil {
		return nil, err
	}
	tab, err := table.Load(dataPath, e.Columns(), opt)
	if err != nil {
		return nil, err
	}

	pc := pipeline.FromExperiment(e)
	pc.Workers = f.effectiveWorkers(c)
	pc.Fit = f.fit
	pc.Logger = logger.With("experiment", e.Name)
	res, err := pipeline.Run(ctx, tab, pc)
	if err != nil {
		return nil, err
	}

	outDir := ""
	if cfg != nil {
		outDir = cfg.OutputDir
	}
	if outDir != "" {
		if err := utils.EnsureDir(outDir); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if reportPath == "" {
		reportPath = utils.OutputPath(dataPath, outDir, filepath.Base(report.ReportPath(dataPath)))
	}
	units := make([]string, tab.Width())
	for j := range units {
		units[j] = tab.Unit(j, "ppm")
	}
	ropt := report.Options{RateUnit: pc.Chain.RateUnit(), SkipRate: pc.Chain.SkipRate, Units: units}
	if err := report.WriteFile(reportPath, tab.Species, res, ropt); err != nil {
		return nil, err
	}
	fmt.Printf("✓ Wrote report to %s\n", reportPath)

	if f.wantPlot() {
		plotPath := utils.OutputPath(dataPath, outDir, filepath.Base(plot.WorkbookPath(dataPath)))
		if err := plot.Workbook(plotPath, tab, res); err != nil {
			return nil, err
		}
		fmt.Printf("✓ Wrote workbook to %s\n", plotPath)
	}
	return res, nil
}

var (
	runOpts   runFlags
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run [data-file]",
	Short: "Reduce one data file with an experiment and write its report",
	Long: `Reduce one data file (whitespace/CSV/TSV text or XLSX) with the given
experiment. Without a data file the experiment's "source" is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadExperiment(runOpts.experiment)
		if err != nil {
			return err
		}
		if err := runOpts.apply(cmd, e); err != nil {
			return err
		}
		dataPath := e.Source
		if len(args) == 1 {
			dataPath = args[0]
		}
		if dataPath == "" {
			return errors.New("no data file given and experiment has no source")
		}
		res, err := runOne(cmd.Context(), cmd, &runOpts, e, dataPath, runOutput)
		if err != nil {
			return err
		}
		if res.Saturated > 0 {
			fmt.Printf("⚠ %d conversion ratio(s) clamped to %.5f%%\n", res.Saturated, kinetics.SaturatedConversion)
		}
		if !runOpts.quiet {
			fmt.Println()
			fmt.Print(report.Summary(res))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runOpts.register(runCmd)
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "report path (default <data>_report.txt)")
}

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/utils"
)

var (
	batchOpts     runFlags
	batchContinue bool
)

var runBatchCmd = &cobra.Command{
	Use:   "run-batch <files...>",
	Short: "Reduce several data files with the same experiment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandGlobs(args)
		if err != nil {
			return fmt.Errorf("expand inputs: %w", err)
		}

		total := len(files)
		failed := 0
		for i, path := range files {
			if !batchOpts.quiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			// Each file gets a fresh copy so overrides never leak between runs.
			e, err := loadExperiment(batchOpts.experiment)
			if err != nil {
				return err
			}
			if err := batchOpts.apply(cmd, e); err != nil {
				return err
			}
			res, err := runOne(cmd.Context(), cmd, &batchOpts, e, path, "")
			if err != nil {
				if !batchContinue {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				failed++
				fmt.Printf("⚠ %s: %v\n", filepath.Base(path), err)
				continue
			}
			if !batchOpts.quiet && res.Fit != nil {
				fmt.Printf("  Ea = %.2f kJ/mol (R² %.4f, %d points)\n", res.Fit.Ea/1000, res.Fit.R2, res.Fit.N)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runBatchCmd)
	batchOpts.register(runBatchCmd)
	runBatchCmd.Flags().BoolVar(&batchContinue, "keep-going", false, "continue with the next file after a failure")
}

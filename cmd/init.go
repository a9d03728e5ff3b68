package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/experiment"
)

var (
	initDescription string
	initMode        string
)

var initCmd = &cobra.Command{
	Use:   "init <experiment-name>",
	Short: "Write a template experiment file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var e *experiment.Experiment
		switch initMode {
		case experiment.ModeSchedule:
			e = experiment.Template(name)
			if cfg != nil && cfg.DefaultWindow > 0 {
				e.Window = cfg.DefaultWindow
			}
		case experiment.ModeContinuous:
			e = experiment.ContinuousTemplate(name)
		default:
			return fmt.Errorf("invalid --mode: %s (use schedule or continuous)", initMode)
		}
		e.Description = initDescription

		root, err := defaultExperimentsDir()
		if err != nil {
			return err
		}
		path := filepath.Join(root, name+experiment.FileExt)
		// Refuse to overwrite an existing experiment.
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("experiment already exists at %s", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat experiment: %w", err)
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if err := e.Save(path); err != nil {
			return err
		}
		fmt.Printf("✓ Experiment initialized: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "experiment description")
	initCmd.Flags().StringVar(&initMode, "mode", experiment.ModeSchedule, "template: schedule | continuous")
}

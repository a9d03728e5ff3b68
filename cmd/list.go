package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/experiment"
)

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := defaultExperimentsDir()
		if err != nil {
			return err
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			return err
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != experiment.FileExt {
				continue
			}
			names = append(names, strings.TrimSuffix(e.Name(), experiment.FileExt))
		}
		if len(names) == 0 {
			fmt.Println("(no experiments)")
			return nil
		}
		sort.Strings(names)
		for _, n := range names {
			if !listVerbose {
				fmt.Printf("- %s\n", n)
				continue
			}
			e, err := experiment.Load(filepath.Join(root, n+experiment.FileExt))
			if err != nil {
				fmt.Printf("- %s (invalid: %v)\n", n, err)
				continue
			}
			fmt.Printf("- %s: %s, %d species, %s model", n, e.Mode, len(e.Species), e.Rate.Model)
			if e.Description != "" {
				fmt.Printf(" (%s)", e.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "load each experiment and show its mode and model")
}

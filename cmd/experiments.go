package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/experiment"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/utils"
)

func defaultExperimentsDir() (string, error) {
	if cfg != nil && cfg.ExperimentsDir != "" {
		dir, err := utils.ExpandHome(cfg.ExperimentsDir)
		if err != nil {
			return "", err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return "", err
		}
		return dir, nil
	}
	dir, err := utils.HomeDir("experiments")
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// resolveExperiment accepts either a path to a YAML file or the name of an
// experiment in the experiments directory.
func resolveExperiment(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("experiment is required (-e <file.yaml|name>)")
	}
	ext := strings.ToLower(filepath.Ext(ref))
	if ext == ".yaml" || ext == ".yml" || strings.ContainsRune(ref, os.PathSeparator) {
		return ref, nil
	}
	root, err := defaultExperimentsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ref+experiment.FileExt), nil
}

func loadExperiment(ref string) (*experiment.Experiment, error) {
	path, err := resolveExperiment(ref)
	if err != nil {
		return nil, err
	}
	e, err := experiment.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load experiment: %w", err)
	}
	return e, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/utils"
	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/window"
)

// EnvPrefix is the prefix of environment overrides, e.g. RATECALC_WORKERS.
const EnvPrefix = "RATECALC"

// Global configuration structure.
type Global struct {
	ExperimentsDir string `mapstructure:"experiments_dir" yaml:"experiments_dir"`
	// DefaultWindow is the window width written into new experiment templates.
	DefaultWindow int    `mapstructure:"default_window" yaml:"default_window"`
	Workers       int    `mapstructure:"workers" yaml:"workers"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	Plot          bool   `mapstructure:"plot" yaml:"plot"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists the settings accepted by Set, in display order.
var Keys = []string{"experiments_dir", "default_window", "workers", "output_dir", "plot", "log_level"}

// Path returns the config file path: cfgFile when set, otherwise ~/.ratecalc/config.yaml.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return utils.HomeDir("config.yaml")
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.ratecalc/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, env, config file and defaults.
// Precedence: env > config file > defaults. A .env in the working directory
// only fills variables that are not already set.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("experiments_dir", "")
	v.SetDefault("default_window", window.DefaultWidth)
	v.SetDefault("workers", 0)
	v.SetDefault("output_dir", "")
	v.SetDefault("plot", false)
	v.SetDefault("log_level", "warn")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := utils.HomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ExperimentsDir == "" {
		dir, err := utils.HomeDir("experiments")
		if err != nil {
			return nil, err
		}
		c.ExperimentsDir = dir
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseLevel maps a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", s)
	}
}

// Set assigns key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "experiments_dir":
		c.ExperimentsDir = val
	case "default_window":
		var i int
		if _, err := fmt.Sscan(val, &i); err != nil || i < 1 {
			return fmt.Errorf("invalid int for default_window: %v", val)
		}
		c.DefaultWindow = i
	case "workers":
		var i int
		if _, err := fmt.Sscan(val, &i); err != nil || i < 0 {
			return fmt.Errorf("invalid int for workers: %v", val)
		}
		c.Workers = i
	case "output_dir":
		c.OutputDir = val
	case "plot":
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			c.Plot = true
		case "false", "0", "no", "off":
			c.Plot = false
		default:
			return fmt.Errorf("invalid bool for plot: %v", val)
		}
	case "log_level":
		if _, err := ParseLevel(val); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Get returns the string form of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "experiments_dir":
		return c.ExperimentsDir, nil
	case "default_window":
		return fmt.Sprint(c.DefaultWindow), nil
	case "workers":
		return fmt.Sprint(c.Workers), nil
	case "output_dir":
		return c.OutputDir, nil
	case "plot":
		return fmt.Sprint(c.Plot), nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ratecalc", "experiments"), c.ExperimentsDir)
	assert.Equal(t, 25, c.DefaultWindow)
	assert.Equal(t, 0, c.Workers)
	assert.False(t, c.Plot)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	p := filepath.Join(home, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte("workers: 2\nplot: true\noutput_dir: /tmp/out\n"), 0o644))
	t.Setenv("RATECALC_WORKERS", "6")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Workers)
	assert.True(t, c.Plot)
	assert.Equal(t, "/tmp/out", c.OutputDir)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RATECALC_LOG_LEVEL", "loud")
	_, err := Load("")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("workers", "4"))
	require.NoError(t, c.Set("plot", "yes"))
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".ratecalc", "config.yaml"))
	require.NoError(t, err)
	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Workers)
	assert.True(t, got.Plot)
}

func TestSetGet(t *testing.T) {
	cases := []struct {
		key, val string
		want     string
		wantErr  bool
	}{
		{"experiments_dir", "~/exp", "~/exp", false},
		{"default_window", "10", "10", false},
		{"default_window", "0", "", true},
		{"workers", "-1", "", true},
		{"workers", "8", "8", false},
		{"output_dir", "out", "out", false},
		{"plot", "off", "false", false},
		{"plot", "maybe", "", true},
		{"log_level", "DEBUG", "debug", false},
		{"log_level", "trace", "", true},
		{"api_key", "x", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			var c Global
			err := c.Set(tc.key, tc.val)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, err := c.Get(tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("info")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)
	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, c.Server.Addr, ":8080")
	assert.Equal(t, c.Engine.Debounce, 100*time.Millisecond)
	assert.Equal(t, c.Histogram.Bins, 20)
	assert.Equal(t, c.Defaults.ScatterX, "Temperature")
	assert.Equal(t, c.Defaults.Histogram, "RentedBikeCount")
	assert.Equal(t, c.DelimiterRune(), rune(0))
	assert.NilError(t, c.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.Engine.Debounce = 250 * time.Millisecond
	c.Data.Path = "bikes.tsv"
	c.Data.Delimiter = ";"
	assert.NilError(t, Save(c, path))

	got, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, got.Engine.Debounce, 250*time.Millisecond)
	assert.Equal(t, got.Data.Path, "bikes.tsv")
	assert.Equal(t, got.DelimiterRune(), ';')
	assert.Equal(t, got.View.Width, 600.0)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("histogram:\n  bins: 12\nlog:\n  level: warn\n"), 0o644))
	t.Setenv("LINKVIEW_HISTOGRAM_BINS", "7")

	c, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, c.Histogram.Bins, 7)
	assert.Equal(t, c.Log.Level, "warn")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("histogram:\n  bins: 0\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "histogram.bins")
}

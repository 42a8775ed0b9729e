package frostvale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFileYieldsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestLoadSettings_PartialFileOverridesOnlyNamedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frostvale.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
window_title = "Midwinter"
snow_count = 500
headless = true
`), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "Midwinter", settings.WindowTitle)
	assert.Equal(t, 500, settings.SnowCount)
	assert.True(t, settings.Headless)

	// Everything else stays at the defaults.
	assert.Equal(t, 1280, settings.WindowWidth)
	assert.Equal(t, 30, settings.TargetFPS)
	assert.Equal(t, int64(1931), settings.Seed)
	assert.Equal(t, 7, settings.HouseCount)
}

func TestLoadSettings_ParseErrorNamesTheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("window_width = [not toml"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse settings")
	assert.Contains(t, err.Error(), path)
}

func TestLoadSettings_ClampsHostileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostile.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
window_width = -5
window_height = 0
target_fps = -1
lod_bias = 0.0
snow_count = -100
tree_count = -3
`), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 1280, settings.WindowWidth)
	assert.Equal(t, 720, settings.WindowHeight)
	assert.Equal(t, 30, settings.TargetFPS)
	assert.Equal(t, float32(1.5), settings.LodBias)
	assert.Equal(t, 0, settings.SnowCount)
	assert.Equal(t, 0, settings.TreeCount)
}

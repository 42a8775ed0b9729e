package frostvale

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the on-disk configuration. Loading starts from
// DefaultSettings and unmarshals the file over it, so a partial file only
// overrides the keys it names.
type Settings struct {
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
	WindowTitle  string `toml:"window_title"`
	TargetFPS    int    `toml:"target_fps"`
	Seed         int64  `toml:"seed"`
	Headless     bool   `toml:"headless"`

	SnowCount    int     `toml:"snow_count"`
	FireflyCount int     `toml:"firefly_count"`
	MistCount    int     `toml:"mist_count"`
	HouseCount   int     `toml:"house_count"`
	TreeCount    int     `toml:"tree_count"`
	LodBias      float32 `toml:"lod_bias"`

	AmbiencePath  string `toml:"ambience_path"`
	GroundTexture string `toml:"ground_texture"`
}

func DefaultSettings() Settings {
	return Settings{
		WindowWidth:  1280,
		WindowHeight: 720,
		WindowTitle:  "Frostvale",
		TargetFPS:    30,
		Seed:         1931,
		SnowCount:    3000,
		FireflyCount: 64,
		MistCount:    48,
		HouseCount:   7,
		TreeCount:    24,
		LodBias:      1.5,
	}
}

// LoadSettings reads the TOML file at path. A missing file is not an error,
// it just yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse settings %q: %w", path, err)
	}
	settings.normalize()
	return settings, nil
}

// normalize clamps values the engine divides by or allocates from.
func (s *Settings) normalize() {
	if s.WindowWidth < 1 {
		s.WindowWidth = 1280
	}
	if s.WindowHeight < 1 {
		s.WindowHeight = 720
	}
	if s.TargetFPS < 1 {
		s.TargetFPS = 30
	}
	if s.LodBias <= 0 {
		s.LodBias = 1.5
	}
	if s.SnowCount < 0 {
		s.SnowCount = 0
	}
	if s.FireflyCount < 0 {
		s.FireflyCount = 0
	}
	if s.MistCount < 0 {
		s.MistCount = 0
	}
	if s.HouseCount < 0 {
		s.HouseCount = 0
	}
	if s.TreeCount < 0 {
		s.TreeCount = 0
	}
}

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// Directory watched for textures and shaders. Missing directories are tolerated.
	AssetDir string `toml:"asset_dir"`
	// Stop after this many ticks, 0 runs until the application quits.
	MaxFrames uint64 `toml:"max_frames"`
	// Number of workers decoding assets.
	Workers         int    `toml:"workers"`
	MaxTextureCount uint32 `toml:"max_texture_count"`
	MaxMeshCount    uint32 `toml:"max_mesh_count"`
	FlipTextures    bool   `toml:"flip_textures"`

	Renderer renderer.RendererConfig `toml:"renderer"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:       100,
		StartPosY:       100,
		StartWidth:      1280,
		StartHeight:     720,
		Name:            "framecore",
		LogLevel:        "info",
		AssetDir:        "assets",
		Workers:         2,
		MaxTextureCount: 256,
		MaxMeshCount:    256,
		Renderer:        renderer.DefaultRendererConfig(),
	}
}

// LoadApplicationConfig reads a TOML file on top of the defaults. Keys that are not present
// keep their default value.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read config %s: %s", path, err)
		return nil, err
	}
	return ParseApplicationConfig(data)
}

func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			err = fmt.Errorf("config line %d column %d: %w", row, col, err)
		}
		core.LogError(err.Error())
		return nil, err
	}
	config.Renderer.ApplyDefaults()
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.StartWidth, c.StartHeight)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxTextureCount == 0 || c.MaxMeshCount == 0 {
		return fmt.Errorf("max_texture_count and max_mesh_count must be positive")
	}
	return c.Renderer.Validate()
}

// Marshal returns the TOML form of the configuration.
func (c *ApplicationConfig) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/renderer"
)

func TestDefaultApplicationConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultApplicationConfig().Validate())
}

func TestLoadApplicationConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framecore.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "testbed"
log_level = "debug"
max_frames = 120

[renderer]
backend = "software"
frames_in_flight = 2
draw_width = 640
draw_height = 360

[[renderer.descriptor_ratios]]
type = "uniform_buffer"
ratio = 2
`), 0o644))

	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "testbed", config.Name)
	assert.Equal(t, "debug", config.LogLevel)
	assert.EqualValues(t, 120, config.MaxFrames)
	// untouched keys keep their defaults
	assert.EqualValues(t, 1280, config.StartWidth)
	assert.Equal(t, 2, config.Workers)

	assert.Equal(t, renderer.BackendSoftware, config.Renderer.Backend)
	assert.Equal(t, 2, config.Renderer.FramesInFlight)
	assert.EqualValues(t, 640, config.Renderer.DrawWidth)
	assert.EqualValues(t, 1000, config.Renderer.FenceTimeoutMs)
	assert.Equal(t, 64, config.Renderer.StagingMaxBuffers)
	require.Len(t, config.Renderer.DescriptorRatios, 1)
	assert.Equal(t, "uniform_buffer", config.Renderer.DescriptorRatios[0].Type)
}

func TestParseApplicationConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "name = "},
		{"unknown key", "colour = \"red\""},
		{"unknown backend", "[renderer]\nbackend = \"metal\""},
		{"no workers", "workers = -1"},
		{"bad ratio", "[[renderer.descriptor_ratios]]\ntype = \"nope\"\nratio = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApplicationConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestApplicationConfigRoundTrip(t *testing.T) {
	config := DefaultApplicationConfig()
	config.Renderer.Backend = renderer.BackendSoftware
	data, err := config.Marshal()
	require.NoError(t, err)

	parsed, err := ParseApplicationConfig(data)
	require.NoError(t, err)
	assert.Equal(t, config, parsed)
}

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	_, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

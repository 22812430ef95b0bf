package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

func TestDefaultRendererConfigIsValid(t *testing.T) {
	cfg := DefaultRendererConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second, cfg.FenceTimeout())
	assert.Equal(t, metadata.Extent3D{Width: 1280, Height: 720, Depth: 1}, cfg.DrawExtent())

	ratios, err := cfg.PoolRatios()
	require.NoError(t, err)
	require.Len(t, ratios, 4)
	assert.Equal(t, metadata.DescriptorTypeCombinedImageSampler, ratios[3].Type)
	assert.Equal(t, float32(4), ratios[3].Ratio)
}

func TestRendererConfigApplyDefaults(t *testing.T) {
	cfg := RendererConfig{Backend: BackendSoftware, FramesInFlight: 2}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSoftware, cfg.Backend)
	assert.Equal(t, 2, cfg.FramesInFlight)
	assert.Equal(t, uint32(1000), cfg.DescriptorSetCapacity)
	assert.Equal(t, 64, cfg.ArenaBlockCapacity)
	// staging limits keep their zero value, which means unbounded
	assert.Equal(t, 0, cfg.StagingMaxBuffers)
}

func TestRendererConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RendererConfig)
	}{
		{"unknown backend", func(c *RendererConfig) { c.Backend = "metal" }},
		{"no frames", func(c *RendererConfig) { c.FramesInFlight = 0 }},
		{"negative staging", func(c *RendererConfig) { c.StagingMaxRecords = -1 }},
		{"unknown descriptor type", func(c *RendererConfig) {
			c.DescriptorRatios = []DescriptorRatio{{Type: "acceleration_structure", Ratio: 1}}
		}},
		{"zero ratio", func(c *RendererConfig) {
			c.DescriptorRatios = []DescriptorRatio{{Type: "uniform_buffer", Ratio: 0}}
		}},
		{"empty draw extent", func(c *RendererConfig) { c.DrawHeight = 0 }},
		{"empty arena blocks", func(c *RendererConfig) { c.ArenaBlockCapacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRendererConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

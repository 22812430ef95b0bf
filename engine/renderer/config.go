package renderer

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type BackendType string

const (
	BackendVulkan   BackendType = "vulkan"
	BackendSoftware BackendType = "software"
)

// DescriptorRatio is the TOML form of metadata.PoolSizeRatio.
type DescriptorRatio struct {
	Type  string  `toml:"type"`
	Ratio float32 `toml:"ratio"`
}

type RendererConfig struct {
	Backend BackendType `toml:"backend"`
	// Number of frame slots in the ring.
	FramesInFlight int `toml:"frames_in_flight"`
	// Bound on the fence wait at the start of a frame.
	FenceTimeoutMs uint64 `toml:"fence_timeout_ms"`
	// Per frame staging limits, 0 means unbounded.
	StagingMaxBuffers int `toml:"staging_max_buffers"`
	StagingMaxRecords int `toml:"staging_max_records"`

	DescriptorSetCapacity uint32            `toml:"descriptor_set_capacity"`
	DescriptorRatios      []DescriptorRatio `toml:"descriptor_ratios"`

	ArenaBlockCapacity int `toml:"arena_block_capacity"`

	DrawWidth  uint32 `toml:"draw_width"`
	DrawHeight uint32 `toml:"draw_height"`

	// Only used by the software backend.
	SwapchainImages int `toml:"swapchain_images"`
	// Enables the validation layers of the vulkan backend.
	Validation bool `toml:"validation"`
}

func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		Backend:               BackendVulkan,
		FramesInFlight:        3,
		FenceTimeoutMs:        1000,
		StagingMaxBuffers:     64,
		StagingMaxRecords:     64,
		DescriptorSetCapacity: 1000,
		DescriptorRatios: []DescriptorRatio{
			{Type: metadata.DescriptorTypeStorageImage.String(), Ratio: 3},
			{Type: metadata.DescriptorTypeStorageBuffer.String(), Ratio: 3},
			{Type: metadata.DescriptorTypeUniformBuffer.String(), Ratio: 3},
			{Type: metadata.DescriptorTypeCombinedImageSampler.String(), Ratio: 4},
		},
		ArenaBlockCapacity: 64,
		DrawWidth:          1280,
		DrawHeight:         720,
		SwapchainImages:    3,
		Validation:         false,
	}
}

// ApplyDefaults fills every zero value with its default.
func (c *RendererConfig) ApplyDefaults() {
	d := DefaultRendererConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.FramesInFlight == 0 {
		c.FramesInFlight = d.FramesInFlight
	}
	if c.FenceTimeoutMs == 0 {
		c.FenceTimeoutMs = d.FenceTimeoutMs
	}
	if c.DescriptorSetCapacity == 0 {
		c.DescriptorSetCapacity = d.DescriptorSetCapacity
	}
	if len(c.DescriptorRatios) == 0 {
		c.DescriptorRatios = d.DescriptorRatios
	}
	if c.ArenaBlockCapacity == 0 {
		c.ArenaBlockCapacity = d.ArenaBlockCapacity
	}
	if c.DrawWidth == 0 {
		c.DrawWidth = d.DrawWidth
	}
	if c.DrawHeight == 0 {
		c.DrawHeight = d.DrawHeight
	}
	if c.SwapchainImages == 0 {
		c.SwapchainImages = d.SwapchainImages
	}
}

func (c *RendererConfig) Validate() error {
	switch c.Backend {
	case BackendVulkan, BackendSoftware:
	default:
		return fmt.Errorf("unknown renderer backend `%s`", c.Backend)
	}
	if c.FramesInFlight < 1 {
		return fmt.Errorf("frames_in_flight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.StagingMaxBuffers < 0 || c.StagingMaxRecords < 0 {
		return fmt.Errorf("staging limits cannot be negative")
	}
	if c.DescriptorSetCapacity == 0 {
		return fmt.Errorf("descriptor_set_capacity must be positive")
	}
	if _, err := c.PoolRatios(); err != nil {
		return err
	}
	if c.ArenaBlockCapacity < 1 {
		return fmt.Errorf("arena_block_capacity must be positive, got %d", c.ArenaBlockCapacity)
	}
	if c.DrawWidth == 0 || c.DrawHeight == 0 {
		return fmt.Errorf("draw extent must be positive, got %dx%d", c.DrawWidth, c.DrawHeight)
	}
	return nil
}

func (c *RendererConfig) FenceTimeout() time.Duration {
	return time.Duration(c.FenceTimeoutMs) * time.Millisecond
}

func (c *RendererConfig) DrawExtent() metadata.Extent3D {
	return metadata.Extent3D{Width: c.DrawWidth, Height: c.DrawHeight, Depth: 1}
}

// PoolRatios converts the configured ratios to their typed form.
func (c *RendererConfig) PoolRatios() ([]metadata.PoolSizeRatio, error) {
	if len(c.DescriptorRatios) == 0 {
		return nil, fmt.Errorf("descriptor_ratios cannot be empty")
	}
	ratios := make([]metadata.PoolSizeRatio, 0, len(c.DescriptorRatios))
	for _, r := range c.DescriptorRatios {
		t, ok := metadata.ParseDescriptorType(r.Type)
		if !ok {
			return nil, fmt.Errorf("unknown descriptor type `%s`", r.Type)
		}
		if r.Ratio <= 0 {
			return nil, fmt.Errorf("descriptor ratio for `%s` must be positive", r.Type)
		}
		ratios = append(ratios, metadata.PoolSizeRatio{Type: t, Ratio: r.Ratio})
	}
	return ratios, nil
}

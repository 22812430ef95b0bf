package systems

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
)

const testFrames = 3

type testRenderer struct {
	dev  *software.Device
	ring *renderer.FrameRing
	reg  *renderer.Registry
}

func newTestRenderer(t *testing.T, stagingBuffers int) *testRenderer {
	t.Helper()
	cfg := renderer.DefaultRendererConfig()
	cfg.Backend = renderer.BackendSoftware
	cfg.FramesInFlight = testFrames
	cfg.DrawWidth = 32
	cfg.DrawHeight = 32
	cfg.DescriptorSetCapacity = 16
	cfg.StagingMaxBuffers = stagingBuffers

	dev := software.New(software.WithSwapchain(32, 32, 3))
	ring, err := renderer.NewFrameRing(dev, cfg)
	require.NoError(t, err)
	reg, err := renderer.NewRegistry(dev, 8)
	require.NoError(t, err)
	return &testRenderer{dev: dev, ring: ring, reg: reg}
}

// tick records and submits one empty frame, then runs update.
func (tr *testRenderer) tick(t *testing.T, update func()) {
	t.Helper()
	if update != nil {
		update()
	}
	require.NoError(t, tr.ring.StartFrameCapture())
	require.NoError(t, tr.ring.EndFrameCapture())
}

// writePNG writes a w x h image whose texels encode their coordinates.
func writePNG(t *testing.T, path string, w, h int) []uint8 {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return img.Pix
}

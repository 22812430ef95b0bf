package testbed

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
)

const spirvMagic = 0x07230203

func writeShader(t *testing.T, dir string) {
	t.Helper()
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	path := filepath.Join(dir, "shaders", "background.spv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, code, 0o644))
}

type harness struct {
	game   *TestGame
	engine *engine.Engine
	device *software.Device
	ctx    *engine.Context
}

func newHarness(t *testing.T, assetDir string, frames uint64) *harness {
	t.Helper()
	config := engine.DefaultApplicationConfig()
	config.AssetDir = assetDir
	config.MaxFrames = frames
	config.LogLevel = "error"
	config.Renderer.Backend = renderer.BackendSoftware
	config.Renderer.DrawWidth = 32
	config.Renderer.DrawHeight = 32

	h := &harness{game: NewTestGame(config)}
	initialize := h.game.FnInitialize
	h.game.FnInitialize = func(ctx *engine.Context) error {
		h.ctx = ctx
		return initialize(ctx)
	}

	h.device = software.New(software.WithSwapchain(64, 64, 3))
	e, err := engine.New(h.game.Game, engine.WithDevice(h.device))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	h.engine = e
	return h
}

func TestGameClearsWithoutShaders(t *testing.T) {
	h := newHarness(t, "", 6)
	assert.Nil(t, h.game.state().background)

	require.NoError(t, h.engine.Run(context.Background()))
	require.NoError(t, h.engine.Shutdown())

	stats := h.device.Stats()
	assert.Equal(t, 6, stats.Submissions)
	assert.Zero(t, stats.Dispatches)
	assert.Zero(t, stats.LiveBuffers())
	assert.Empty(t, h.device.Violations())
}

func TestGameDispatchesTheBackgroundShader(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir)
	h := newHarness(t, dir, 8)
	require.NotNil(t, h.game.state().background)

	require.NoError(t, h.engine.Run(context.Background()))
	require.NoError(t, h.engine.Shutdown())

	stats := h.device.Stats()
	assert.Equal(t, 8, stats.Dispatches)
	assert.Zero(t, stats.Pipelines)
	assert.Empty(t, h.device.Violations())
}

func TestShaderChangeRebuildsThePipeline(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir)
	h := newHarness(t, dir, 4)
	before := h.game.state().background
	require.NotNil(t, before)

	h.ctx.SystemManager.OnShaderModified("shaders/background.spv")
	after := h.game.state().background
	assert.NotSame(t, before, after)
	assert.Equal(t, 1, h.device.Stats().Pipelines)

	// other shaders are ignored
	h.ctx.SystemManager.OnShaderModified("shaders/other.spv")
	assert.Same(t, after, h.game.state().background)

	require.NoError(t, h.engine.Run(context.Background()))
	require.NoError(t, h.engine.Shutdown())
	assert.Empty(t, h.device.Violations())
}

func TestBrokenShaderKeepsThePreviousPipeline(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir)
	h := newHarness(t, dir, 2)
	before := h.game.state().background

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "background.spv"), []byte("oops"), 0o644))
	h.ctx.SystemManager.OnShaderModified("shaders/background.spv")
	assert.Same(t, before, h.game.state().background)

	require.NoError(t, h.engine.Run(context.Background()))
	require.NoError(t, h.engine.Shutdown())
}

func TestCameraFollowsInput(t *testing.T) {
	h := newHarness(t, "", 3)
	start := h.game.state().camera.Position

	h.ctx.Input.ProcessKey(core.KeyW, true)
	require.NoError(t, h.engine.Run(context.Background()))

	assert.Less(t, h.game.state().camera.Position.Z(), start.Z())
	require.NoError(t, h.engine.Shutdown())
}

package systems

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/assets"
	"github.com/spaghettifunk/framecore/engine/core"
)

func newTestTextureSystem(t *testing.T, tr *testRenderer, dir string) (*TextureSystem, *JobSystem) {
	t.Helper()
	js, err := NewJobSystem(2, 8)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })

	var am *assets.AssetManager
	if dir != "" {
		am, err = assets.NewAssetManager(dir, 16)
		require.NoError(t, err)
		t.Cleanup(func() { am.Close() })
	}

	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 4}, js, am, tr.reg, tr.ring)
	require.NoError(t, err)
	require.NoError(t, ts.Initialize())
	return ts, js
}

func TestNewTextureSystemRequiresCapacity(t *testing.T) {
	tr := newTestRenderer(t, 0)
	_, err := NewTextureSystem(&TextureSystemConfig{}, nil, nil, tr.reg, tr.ring)
	assert.Error(t, err)
}

func TestTextureSystemDefaultTexture(t *testing.T) {
	tr := newTestRenderer(t, 0)
	ts, _ := newTestTextureSystem(t, tr, "")

	def := ts.DefaultTexture
	require.NotNil(t, def)
	assert.EqualValues(t, 1, def.Generation)
	assert.EqualValues(t, 64, def.Width)

	tr.tick(t, nil)
	require.NoError(t, tr.dev.WaitIdle())

	img, err := tr.reg.Image(def.Image)
	require.NoError(t, err)
	want := CheckerboardPixels(64, 8, [4]uint8{255, 0, 255, 255}, [4]uint8{0, 0, 0, 255})
	assert.Equal(t, want, tr.dev.ReadImage(img))

	same, err := ts.Acquire(DefaultTextureName, false)
	require.NoError(t, err)
	assert.Same(t, def, same)
}

func TestTextureSystemLoadsAsset(t *testing.T) {
	dir := t.TempDir()
	pixels := writePNG(t, filepath.Join(dir, "textures", "grid.png"), 4, 2)

	tr := newTestRenderer(t, 0)
	ts, js := newTestTextureSystem(t, tr, dir)

	tex, err := ts.Acquire("textures/grid.png", false)
	require.NoError(t, err)
	assert.Zero(t, tex.Generation)
	assert.Equal(t, ts.DefaultTexture.Image, tex.Image)

	again, err := ts.Acquire("textures/grid.png", false)
	require.NoError(t, err)
	assert.Same(t, tex, again)
	assert.EqualValues(t, 2, tex.refCount)

	drain(t, js)
	assert.EqualValues(t, 1, tex.Generation)
	assert.EqualValues(t, 4, tex.Width)
	assert.EqualValues(t, 2, tex.Height)

	tr.tick(t, ts.Update)
	require.NoError(t, tr.dev.WaitIdle())

	img, err := tr.reg.Image(tex.Image)
	require.NoError(t, err)
	assert.Equal(t, pixels, tr.dev.ReadImage(img))
}

func TestTextureSystemMissingAssetKeepsDefault(t *testing.T) {
	tr := newTestRenderer(t, 0)
	ts, js := newTestTextureSystem(t, tr, t.TempDir())

	tex, err := ts.Acquire("nope.png", false)
	require.NoError(t, err)
	drain(t, js)
	assert.Zero(t, tex.Generation)
	assert.False(t, tex.loading)
	assert.Equal(t, ts.DefaultTexture.Image, tex.Image)
}

func TestTextureSystemWithoutAssets(t *testing.T) {
	tr := newTestRenderer(t, 0)
	ts, _ := newTestTextureSystem(t, tr, "")

	_, err := ts.Acquire("any.png", false)
	assert.Error(t, err)
	_, ok := ts.Get("any.png")
	assert.False(t, ok)
}

func TestTextureSystemCapacity(t *testing.T) {
	tr := newTestRenderer(t, 0)
	ts, _ := newTestTextureSystem(t, tr, t.TempDir())

	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		_, err := ts.Acquire(name, false)
		require.NoError(t, err)
	}
	_, err := ts.Acquire("e.png", false)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
}

func TestTextureSystemRetriesWhenStagingIsFull(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2)

	// the default texture takes the only staging buffer of the first frame
	tr := newTestRenderer(t, 1)
	ts, js := newTestTextureSystem(t, tr, dir)

	tex, err := ts.Acquire("a.png", false)
	require.NoError(t, err)
	drain(t, js)
	assert.Zero(t, tex.Generation)
	assert.Len(t, ts.uploads, 1)

	ts.Update()
	assert.Len(t, ts.uploads, 1)

	tr.tick(t, nil)
	ts.Update()
	assert.Empty(t, ts.uploads)
	assert.EqualValues(t, 1, tex.Generation)
}

func TestTextureSystemReleaseRetiresImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2)

	tr := newTestRenderer(t, 0)
	ts, js := newTestTextureSystem(t, tr, dir)

	tex, err := ts.Acquire("a.png", true)
	require.NoError(t, err)
	drain(t, js)
	handle := tex.Image

	tr.tick(t, ts.Update)
	ts.Release("a.png")
	_, ok := ts.Get("a.png")
	assert.False(t, ok)

	// still referenced by the frames in flight
	for i := 0; i <= testFrames; i++ {
		tr.tick(t, ts.Update)
		_, err := tr.reg.Image(handle)
		require.NoError(t, err, "tick %d", i)
	}
	ts.Update()
	_, err = tr.reg.Image(handle)
	assert.ErrorIs(t, err, core.ErrStaleHandle)
}

func TestTextureSystemReload(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2)

	tr := newTestRenderer(t, 0)
	ts, js := newTestTextureSystem(t, tr, dir)

	tex, err := ts.Acquire("a.png", false)
	require.NoError(t, err)
	drain(t, js)
	first := tex.Image

	pixels := writePNG(t, filepath.Join(dir, "a.png"), 3, 3)
	require.NoError(t, ts.Reload("a.png"))
	drain(t, js)
	assert.EqualValues(t, 2, tex.Generation)
	assert.NotEqual(t, first, tex.Image)

	tr.tick(t, ts.Update)
	require.NoError(t, tr.dev.WaitIdle())
	img, err := tr.reg.Image(tex.Image)
	require.NoError(t, err)
	assert.Equal(t, pixels, tr.dev.ReadImage(img))

	require.NoError(t, ts.Shutdown())
	_, err = tr.reg.Image(first)
	assert.ErrorIs(t, err, core.ErrStaleHandle)
}

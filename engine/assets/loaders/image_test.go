package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// twoRows is a 1x2 image: red on top, blue at the bottom.
func twoRows() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func TestDecodeImageConvertsToRGBA8(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, twoRows()))

	data, err := DecodeImage(&buf, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, metadata.ImageFormatRGBA8, data.Format())
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 0, 255, 255}, data.Pixels)
}

func TestDecodeImageFlipY(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, twoRows()))

	data, err := DecodeImage(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 255, 255, 255, 0, 0, 255}, data.Pixels)
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader([]byte("not an image")), false)
	assert.Error(t, err)
}

func TestImageLoaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, twoRows()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loader := &ImageLoader{}
	res, err := loader.Load(path, &metadata.ImageResourceParams{})
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeImage, res.Type)
	assert.Equal(t, uint64(8), res.DataSize)

	require.NoError(t, loader.Unload(res))
	assert.Nil(t, res.Data)
}

func TestShaderLoaderChecksMagic(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.spv")
	bad := filepath.Join(dir, "bad.spv")
	require.NoError(t, os.WriteFile(good, []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, 0o644))
	require.NoError(t, os.WriteFile(bad, []byte{1, 2, 3, 4, 5}, 0o644))

	loader := &ShaderLoader{}
	res, err := loader.Load(good, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeShader, res.Type)
	assert.Len(t, res.Data.([]byte), 8)

	_, err = loader.Load(bad, nil)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
}

package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// ImageLoader decodes png, jpeg, bmp, tiff and webp files into tightly packed RGBA8 pixels.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	flip := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}

	f, err := os.Open(path)
	if err != nil {
		core.LogError("failed to open image %s: %s", path, err)
		return nil, err
	}
	defer f.Close()

	data, err := DecodeImage(f, flip)
	if err != nil {
		err = fmt.Errorf("failed to decode image %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	return &metadata.Resource{
		Type:     metadata.ResourceTypeImage,
		Name:     path,
		FullPath: path,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// DecodeImage decodes any registered format and converts it to RGBA8.
func DecodeImage(r io.Reader, flipY bool) (*metadata.ImageResourceData, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	if flipY {
		flipRows(rgba.Pix, rgba.Stride, bounds.Dy())
	}

	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Pixels:       rgba.Pix,
	}, nil
}

func flipRows(pix []uint8, stride, height int) {
	row := make([]uint8, stride)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
}

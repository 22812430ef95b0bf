package metadata

/** @brief Pixel formats supported for images and uploads. */
type ImageFormat int

const (
	ImageFormatUndefined ImageFormat = iota
	ImageFormatR8
	ImageFormatRG8
	ImageFormatRGB8
	ImageFormatRGBA8
	ImageFormatBGRA8
	ImageFormatR16F
	ImageFormatRGBA16F
	ImageFormatR32F
	ImageFormatRGBA32F
	ImageFormatD32F
)

// PixelSize is the number of bytes of one texel of the format.
func (f ImageFormat) PixelSize() uint64 {
	switch f {
	case ImageFormatR8:
		return 1
	case ImageFormatRG8, ImageFormatR16F:
		return 2
	case ImageFormatRGB8:
		return 3
	case ImageFormatRGBA8, ImageFormatBGRA8, ImageFormatR32F, ImageFormatD32F:
		return 4
	case ImageFormatRGBA16F:
		return 8
	case ImageFormatRGBA32F:
		return 16
	default:
		return 0
	}
}

func (f ImageFormat) IsDepth() bool {
	return f == ImageFormatD32F
}

/** @brief Usage flags of an image. */
type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthAttachment
)

/** @brief The layout an image is currently in, as far as recorded commands are concerned. */
type ImageLayout int

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutTransferSrc
	ImageLayoutTransferDst
	ImageLayoutShaderReadOnly
	ImageLayoutColorAttachment
	ImageLayoutDepthAttachment
	ImageLayoutPresentSrc
)

func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutGeneral:
		return "general"
	case ImageLayoutTransferSrc:
		return "transfer_src"
	case ImageLayoutTransferDst:
		return "transfer_dst"
	case ImageLayoutShaderReadOnly:
		return "shader_read_only"
	case ImageLayoutColorAttachment:
		return "color_attachment"
	case ImageLayoutDepthAttachment:
		return "depth_attachment"
	case ImageLayoutPresentSrc:
		return "present_src"
	default:
		return "undefined"
	}
}

type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// Texels returns width*height*depth, with a zero depth counted as one.
func (e Extent3D) Texels() uint64 {
	d := e.Depth
	if d == 0 {
		d = 1
	}
	return uint64(e.Width) * uint64(e.Height) * uint64(d)
}

type Offset3D struct {
	X int32
	Y int32
	Z int32
}

/**
 * @brief A device image. Swapchain images are owned by the device, every other image by
 * whoever created it.
 */
type Image struct {
	Extent Extent3D
	Format ImageFormat
	Usage  ImageUsage
	/** @brief The layout the last recorded transition left the image in. */
	Layout ImageLayout
	/** @brief Debug label. */
	Label string
	/** @brief Backend specific data. */
	InternalData interface{}
}

/**
 * @brief A structure to hold decoded image data ready for upload.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image, tightly packed rows. */
	Pixels []uint8
}

// Format returns the upload format matching the channel count.
func (d *ImageResourceData) Format() ImageFormat {
	switch d.ChannelCount {
	case 1:
		return ImageFormatR8
	case 2:
		return ImageFormatRG8
	case 3:
		return ImageFormatRGB8
	case 4:
		return ImageFormatRGBA8
	default:
		return ImageFormatUndefined
	}
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

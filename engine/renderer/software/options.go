package software

import "github.com/spaghettifunk/framecore/engine/renderer/metadata"

type deviceOptions struct {
	extent         metadata.Extent3D
	imageCount     int
	format         metadata.ImageFormat
	queueDepth     int
	keepHistory    bool
	addressBase    uint64
	addressAlign   uint64
	maxBufferBytes uint64
}

type Option func(*deviceOptions)

func defaultOptions() deviceOptions {
	return deviceOptions{
		extent:       metadata.Extent3D{Width: 1280, Height: 720, Depth: 1},
		imageCount:   3,
		format:       metadata.ImageFormatBGRA8,
		queueDepth:   16,
		addressBase:  0x1000_0000,
		addressAlign: 256,
	}
}

// WithSwapchain sets the swapchain extent, the number of images and their format.
func WithSwapchain(width, height uint32, images int) Option {
	return func(o *deviceOptions) {
		o.extent = metadata.Extent3D{Width: width, Height: height, Depth: 1}
		if images > 0 {
			o.imageCount = images
		}
	}
}

// WithQueueDepth bounds the number of submissions the simulated GPU keeps queued. When
// the queue is full the oldest submission executes before a new one is accepted.
func WithQueueDepth(depth int) Option {
	return func(o *deviceOptions) {
		if depth > 0 {
			o.queueDepth = depth
		}
	}
}

// WithHistory keeps every executed submission, see Device.History.
func WithHistory() Option {
	return func(o *deviceOptions) {
		o.keepHistory = true
	}
}

// WithMaxBufferSize makes CreateBuffer fail for buffers larger than size bytes.
func WithMaxBufferSize(size uint64) Option {
	return func(o *deviceOptions) {
		o.maxBufferBytes = size
	}
}

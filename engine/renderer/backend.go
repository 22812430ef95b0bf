package renderer

import (
	"time"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// Device is the boundary between the frame core and a graphics API. A device owns its
// swapchain; everything else it creates is owned by the caller and must be destroyed
// through the same device.
type Device interface {
	Name() string

	CreateBuffer(size uint64, usage metadata.BufferUsage, memory metadata.MemoryClass) (*metadata.Buffer, error)
	DestroyBuffer(buffer *metadata.Buffer)
	// BufferDeviceAddress returns the GPU virtual address of a buffer created with
	// BufferUsageDeviceAddress.
	BufferDeviceAddress(buffer *metadata.Buffer) uint64

	CreateImage(extent metadata.Extent3D, format metadata.ImageFormat, usage metadata.ImageUsage) (*metadata.Image, error)
	DestroyImage(image *metadata.Image)

	CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (*metadata.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout)
	CreateDescriptorPool(maxSets uint32, sizes []metadata.DescriptorPoolSize) (*metadata.DescriptorPool, error)
	// AllocateDescriptorSet returns an error wrapping core.ErrPoolExhausted when the pool is
	// out of memory or fragmented.
	AllocateDescriptorSet(pool *metadata.DescriptorPool, layout *metadata.DescriptorSetLayout) (*metadata.DescriptorSet, error)
	ResetDescriptorPool(pool *metadata.DescriptorPool) error
	DestroyDescriptorPool(pool *metadata.DescriptorPool)
	WriteDescriptorBuffer(set *metadata.DescriptorSet, binding uint32, kind metadata.DescriptorType, view metadata.BufferView)
	WriteDescriptorImage(set *metadata.DescriptorSet, binding uint32, kind metadata.DescriptorType, image *metadata.Image, layout metadata.ImageLayout)

	CreateCommandBuffer() (CommandBuffer, error)
	DestroyCommandBuffer(cmd CommandBuffer)

	CreateFence(signaled bool) (*metadata.Fence, error)
	DestroyFence(fence *metadata.Fence)
	// WaitForFence blocks until the fence is signaled or the timeout expires, in which case
	// the error wraps core.ErrSynchronizationTimeout.
	WaitForFence(fence *metadata.Fence, timeout time.Duration) error
	ResetFence(fence *metadata.Fence) error
	CreateSemaphore() (*metadata.Semaphore, error)
	DestroySemaphore(semaphore *metadata.Semaphore)

	SwapchainImages() []*metadata.Image
	SwapchainExtent() metadata.Extent3D
	// AcquireNextImage returns the index of the next presentable image; signal fires when
	// the image is ready to be written.
	AcquireNextImage(signal *metadata.Semaphore, timeout time.Duration) (uint32, error)
	// Submit executes cmd after wait fires, then fires signal and fence.
	Submit(cmd CommandBuffer, wait, signal *metadata.Semaphore, fence *metadata.Fence) error
	Present(imageIndex uint32, wait *metadata.Semaphore) error

	WaitIdle() error
	Destroy() error
}

// SwapchainRecreator is implemented by devices whose swapchain can be rebuilt after the
// surface changed size or reported out of date.
type SwapchainRecreator interface {
	RecreateSwapchain(width, height uint32) error
}

// PipelineFactory is implemented by devices that can build compute pipelines. code is a
// SPIR-V binary with a "main" entry point.
type PipelineFactory interface {
	CreateComputePipeline(name string, code []byte, layouts []*metadata.DescriptorSetLayout, pushConstantSize uint32) (*metadata.Pipeline, error)
	DestroyPipeline(pipeline *metadata.Pipeline)
}

type CommandBufferState int

const (
	CommandBufferStateReady CommandBufferState = iota
	CommandBufferStateRecording
	CommandBufferStateRecordingEnded
	CommandBufferStateSubmitted
	CommandBufferStateNotAllocated
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferStateReady:
		return "ready"
	case CommandBufferStateRecording:
		return "recording"
	case CommandBufferStateRecordingEnded:
		return "recording_ended"
	case CommandBufferStateSubmitted:
		return "submitted"
	default:
		return "not_allocated"
	}
}

// CommandBuffer records GPU work. Commands execute in recording order.
type CommandBuffer interface {
	State() CommandBufferState
	Reset() error
	Begin() error
	End() error

	CopyBuffer(src, dst metadata.BufferView)
	CopyBufferToImage(src metadata.BufferView, dst *metadata.Image, offset metadata.Offset3D, extent metadata.Extent3D)
	// TransitionImage moves image from its current layout to layout and updates image.Layout.
	TransitionImage(image *metadata.Image, layout metadata.ImageLayout)
	BlitImage(src *metadata.Image, srcExtent metadata.Extent3D, dst *metadata.Image, dstExtent metadata.Extent3D)
	ClearColorImage(image *metadata.Image, color [4]float32)

	BindPipeline(pipeline *metadata.Pipeline)
	BindDescriptorSet(pipeline *metadata.Pipeline, index uint32, set *metadata.DescriptorSet)
	PushConstants(pipeline *metadata.Pipeline, stages metadata.ShaderStage, data []byte)
	DrawIndexed(indexBuffer *metadata.Buffer, indexCount uint32)
	Dispatch(x, y, z uint32)
}

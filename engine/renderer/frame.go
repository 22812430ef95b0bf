package renderer

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type FrameStage uint8

const (
	FrameStageIdle FrameStage = iota
	FrameStageRecording
	FrameStageSubmitted
)

func (s FrameStage) String() string {
	switch s {
	case FrameStageRecording:
		return "recording"
	case FrameStageSubmitted:
		return "submitted"
	default:
		return "idle"
	}
}

// Frame is one slot of the frame ring. Everything it owns is only touched by the CPU
// after the slot's fence proved the GPU is done with the previous occurrence.
type Frame struct {
	Index int

	Commands       CommandBuffer
	ImageAvailable *metadata.Semaphore
	RenderComplete *metadata.Semaphore
	InFlight       *metadata.Fence

	Staging     *StagingQueue
	Descriptors *DescriptorAllocator

	// Scene is copied into Uniforms when the frame starts.
	Scene      metadata.SceneData
	Uniforms   *metadata.Buffer
	SceneSet   *metadata.DescriptorSet
	ImageIndex uint32

	stage FrameStage
	// fence waited and reset, swapchain image not acquired yet
	acquirePending bool
	// frame number of the last occurrence of this slot
	number uint64
}

func newFrame(device Device, index int, config *RendererConfig) (*Frame, error) {
	f := &Frame{
		Index: index,
		Scene: metadata.NewSceneData(),
		stage: FrameStageIdle,
	}

	cmd, err := device.CreateCommandBuffer()
	if err != nil {
		return nil, wrapCreation(fmt.Sprintf("frame %d command buffer", index), err)
	}
	f.Commands = cmd

	if f.ImageAvailable, err = device.CreateSemaphore(); err != nil {
		f.destroy(device)
		return nil, wrapCreation(fmt.Sprintf("frame %d image semaphore", index), err)
	}
	if f.RenderComplete, err = device.CreateSemaphore(); err != nil {
		f.destroy(device)
		return nil, wrapCreation(fmt.Sprintf("frame %d render semaphore", index), err)
	}
	// Signaled so the first wait on each slot returns immediately.
	if f.InFlight, err = device.CreateFence(true); err != nil {
		f.destroy(device)
		return nil, wrapCreation(fmt.Sprintf("frame %d fence", index), err)
	}

	f.Staging = NewStagingQueue(device, config.StagingMaxBuffers, config.StagingMaxRecords)

	ratios, err := config.PoolRatios()
	if err != nil {
		f.destroy(device)
		return nil, err
	}
	if f.Descriptors, err = NewDescriptorAllocator(device, config.DescriptorSetCapacity, ratios); err != nil {
		f.destroy(device)
		return nil, err
	}

	if f.Uniforms, err = device.CreateBuffer(metadata.SceneDataSize, metadata.BufferUsageUniform, metadata.MemoryClassCPUToGPU); err != nil {
		f.destroy(device)
		return nil, wrapCreation(fmt.Sprintf("frame %d uniform buffer", index), err)
	}
	f.Uniforms.Label = fmt.Sprintf("frame-%d-scene", index)

	return f, nil
}

func (f *Frame) Stage() FrameStage {
	return f.stage
}

// Number returns the frame number of the last occurrence of this slot.
func (f *Frame) Number() uint64 {
	return f.number
}

// ScheduleUpload queues an upload on this frame; the copy is recorded when the frame next starts.
func (f *Frame) ScheduleUpload(data []byte, dst metadata.BufferView) error {
	return f.Staging.ScheduleUpload(data, dst)
}

func (f *Frame) destroy(device Device) {
	if f.Staging != nil {
		f.Staging.Destroy()
		f.Staging = nil
	}
	if f.Descriptors != nil {
		f.Descriptors.Destroy()
		f.Descriptors = nil
	}
	if f.Uniforms != nil {
		device.DestroyBuffer(f.Uniforms)
		f.Uniforms = nil
	}
	if f.InFlight != nil {
		device.DestroyFence(f.InFlight)
		f.InFlight = nil
	}
	if f.RenderComplete != nil {
		device.DestroySemaphore(f.RenderComplete)
		f.RenderComplete = nil
	}
	if f.ImageAvailable != nil {
		device.DestroySemaphore(f.ImageAvailable)
		f.ImageAvailable = nil
	}
	if f.Commands != nil {
		device.DestroyCommandBuffer(f.Commands)
		f.Commands = nil
	}
	f.SceneSet = nil
}

func wrapCreation(what string, err error) error {
	err = fmt.Errorf("failed to create %s: %w", what, err)
	core.LogError(err.Error())
	return err
}

package software

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type CommandKind int

const (
	CommandCopyBuffer CommandKind = iota
	CommandCopyBufferToImage
	CommandTransitionImage
	CommandBlitImage
	CommandClearColorImage
	CommandBindPipeline
	CommandBindDescriptorSet
	CommandPushConstants
	CommandDrawIndexed
	CommandDispatch
)

func (k CommandKind) String() string {
	switch k {
	case CommandCopyBuffer:
		return "copy_buffer"
	case CommandCopyBufferToImage:
		return "copy_buffer_to_image"
	case CommandTransitionImage:
		return "transition_image"
	case CommandBlitImage:
		return "blit_image"
	case CommandClearColorImage:
		return "clear_color_image"
	case CommandBindPipeline:
		return "bind_pipeline"
	case CommandBindDescriptorSet:
		return "bind_descriptor_set"
	case CommandPushConstants:
		return "push_constants"
	case CommandDrawIndexed:
		return "draw_indexed"
	case CommandDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// Command is one recorded command. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	SrcBuffer metadata.BufferView
	DstBuffer metadata.BufferView

	SrcImage  *metadata.Image
	DstImage  *metadata.Image
	SrcExtent metadata.Extent3D
	DstExtent metadata.Extent3D
	Offset    metadata.Offset3D
	OldLayout metadata.ImageLayout
	NewLayout metadata.ImageLayout
	Color     [4]float32

	Pipeline *metadata.Pipeline
	SetIndex uint32
	Set      *metadata.DescriptorSet
	Stages   metadata.ShaderStage
	Data     []byte

	IndexBuffer *metadata.Buffer
	IndexCount  uint32
	Groups      [3]uint32
}

// CommandBuffer records commands into a list the Device executes on its timeline.
type CommandBuffer struct {
	device   *Device
	id       uint64
	state    renderer.CommandBufferState
	commands []Command
	// submission not yet executed by the device, nil once it completed
	pending *submission
}

func (cb *CommandBuffer) State() renderer.CommandBufferState {
	return cb.state
}

// Commands returns the commands recorded since the last Reset.
func (cb *CommandBuffer) Commands() []Command {
	return cb.commands
}

func (cb *CommandBuffer) Reset() error {
	if cb.state == renderer.CommandBufferStateNotAllocated {
		return fmt.Errorf("command buffer %d was freed: %w", cb.id, core.ErrSubmission)
	}
	if cb.pending != nil {
		cb.device.violation("command buffer %d reset while submission %d is still executing", cb.id, cb.pending.seq)
		return fmt.Errorf("command buffer %d is still in flight: %w", cb.id, core.ErrSubmission)
	}
	cb.commands = nil
	cb.state = renderer.CommandBufferStateReady
	return nil
}

func (cb *CommandBuffer) Begin() error {
	if cb.state != renderer.CommandBufferStateReady {
		return fmt.Errorf("command buffer %d cannot begin while %s: %w", cb.id, cb.state, core.ErrSubmission)
	}
	cb.state = renderer.CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) End() error {
	if cb.state != renderer.CommandBufferStateRecording {
		return fmt.Errorf("command buffer %d cannot end while %s: %w", cb.id, cb.state, core.ErrSubmission)
	}
	cb.state = renderer.CommandBufferStateRecordingEnded
	return nil
}

func (cb *CommandBuffer) record(c Command) {
	if cb.state != renderer.CommandBufferStateRecording {
		cb.device.violation("%s recorded into command buffer %d while %s", c.Kind, cb.id, cb.state)
		return
	}
	cb.commands = append(cb.commands, c)
}

func (cb *CommandBuffer) CopyBuffer(src, dst metadata.BufferView) {
	cb.record(Command{Kind: CommandCopyBuffer, SrcBuffer: src, DstBuffer: dst})
}

func (cb *CommandBuffer) CopyBufferToImage(src metadata.BufferView, dst *metadata.Image, offset metadata.Offset3D, extent metadata.Extent3D) {
	cb.record(Command{Kind: CommandCopyBufferToImage, SrcBuffer: src, DstImage: dst, Offset: offset, DstExtent: extent})
}

func (cb *CommandBuffer) TransitionImage(image *metadata.Image, layout metadata.ImageLayout) {
	cb.record(Command{Kind: CommandTransitionImage, DstImage: image, OldLayout: image.Layout, NewLayout: layout})
	image.Layout = layout
}

func (cb *CommandBuffer) BlitImage(src *metadata.Image, srcExtent metadata.Extent3D, dst *metadata.Image, dstExtent metadata.Extent3D) {
	cb.record(Command{Kind: CommandBlitImage, SrcImage: src, SrcExtent: srcExtent, DstImage: dst, DstExtent: dstExtent})
}

func (cb *CommandBuffer) ClearColorImage(image *metadata.Image, color [4]float32) {
	cb.record(Command{Kind: CommandClearColorImage, DstImage: image, Color: color})
}

func (cb *CommandBuffer) BindPipeline(pipeline *metadata.Pipeline) {
	cb.record(Command{Kind: CommandBindPipeline, Pipeline: pipeline})
}

func (cb *CommandBuffer) BindDescriptorSet(pipeline *metadata.Pipeline, index uint32, set *metadata.DescriptorSet) {
	cb.record(Command{Kind: CommandBindDescriptorSet, Pipeline: pipeline, SetIndex: index, Set: set})
}

func (cb *CommandBuffer) PushConstants(pipeline *metadata.Pipeline, stages metadata.ShaderStage, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	cb.record(Command{Kind: CommandPushConstants, Pipeline: pipeline, Stages: stages, Data: cp})
}

func (cb *CommandBuffer) DrawIndexed(indexBuffer *metadata.Buffer, indexCount uint32) {
	cb.record(Command{Kind: CommandDrawIndexed, IndexBuffer: indexBuffer, IndexCount: indexCount})
}

func (cb *CommandBuffer) Dispatch(x, y, z uint32) {
	cb.record(Command{Kind: CommandDispatch, Groups: [3]uint32{x, y, z}})
}

package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// FrameRing drives the per-frame synchronization protocol over a fixed number of frame slots.
// All methods must be called from the render thread.
type FrameRing struct {
	device Device
	config RendererConfig

	frames      []*Frame
	frameNumber uint64

	drawImage   *metadata.Image
	sceneLayout *metadata.DescriptorSetLayout

	initialLayouts []initialLayout
}

type initialLayout struct {
	image  *metadata.Image
	layout metadata.ImageLayout
}

func NewFrameRing(device Device, config RendererConfig) (*FrameRing, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	fr := &FrameRing{
		device: device,
		config: config,
		frames: make([]*Frame, 0, config.FramesInFlight),
	}

	var err error
	fr.drawImage, err = device.CreateImage(config.DrawExtent(), metadata.ImageFormatRGBA16F,
		metadata.ImageUsageColorAttachment|metadata.ImageUsageTransferSrc|metadata.ImageUsageTransferDst|metadata.ImageUsageStorage)
	if err != nil {
		return nil, wrapCreation("draw image", err)
	}
	fr.drawImage.Label = "draw-image"

	builder := &DescriptorLayoutBuilder{}
	if err := builder.AddBinding(0, metadata.DescriptorTypeUniformBuffer); err != nil {
		fr.destroy()
		return nil, err
	}
	if fr.sceneLayout, err = builder.Build(device, metadata.ShaderStageVertex|metadata.ShaderStageFragment); err != nil {
		fr.destroy()
		return nil, err
	}

	for i := 0; i < config.FramesInFlight; i++ {
		f, err := newFrame(device, i, &fr.config)
		if err != nil {
			fr.destroy()
			return nil, err
		}
		fr.frames = append(fr.frames, f)
	}

	core.LogInfo("frame ring created on %s with %d frames in flight", device.Name(), config.FramesInFlight)
	return fr, nil
}

// CurrentFrame returns the slot of the current frame number.
func (fr *FrameRing) CurrentFrame() *Frame {
	return fr.frames[fr.frameNumber%uint64(len(fr.frames))]
}

// UploadFrame returns the frame whose start will come first: the current one if it has not
// started yet, the next one otherwise. Uploads scheduled on it are copied as early as possible.
func (fr *FrameRing) UploadFrame() *Frame {
	current := fr.CurrentFrame()
	if current.stage != FrameStageRecording {
		return current
	}
	return fr.frames[(fr.frameNumber+1)%uint64(len(fr.frames))]
}

func (fr *FrameRing) FrameNumber() uint64 {
	return fr.frameNumber
}

func (fr *FrameRing) FramesInFlight() int {
	return len(fr.frames)
}

// Frame returns slot i.
func (fr *FrameRing) Frame(i int) *Frame {
	return fr.frames[i]
}

func (fr *FrameRing) DrawImage() *metadata.Image {
	return fr.drawImage
}

func (fr *FrameRing) DrawExtent() metadata.Extent3D {
	return fr.drawImage.Extent
}

func (fr *FrameRing) SceneLayout() *metadata.DescriptorSetLayout {
	return fr.sceneLayout
}

// RequireInitialLayout makes every frame transition image to layout right after its staging
// copies were recorded. Registering the same image again replaces its layout.
func (fr *FrameRing) RequireInitialLayout(image *metadata.Image, layout metadata.ImageLayout) {
	for i := range fr.initialLayouts {
		if fr.initialLayouts[i].image == image {
			fr.initialLayouts[i].layout = layout
			return
		}
	}
	fr.initialLayouts = append(fr.initialLayouts, initialLayout{image: image, layout: layout})
}

// ForgetInitialLayout drops an image registered with RequireInitialLayout.
func (fr *FrameRing) ForgetInitialLayout(image *metadata.Image) {
	for i := range fr.initialLayouts {
		if fr.initialLayouts[i].image == image {
			fr.initialLayouts = append(fr.initialLayouts[:i], fr.initialLayouts[i+1:]...)
			return
		}
	}
}

// StartFrameCapture waits for the current slot to be released by the GPU, then opens its
// command buffer and records the pending uploads.
func (fr *FrameRing) StartFrameCapture() error {
	f := fr.CurrentFrame()
	if f.stage == FrameStageRecording {
		err := fmt.Errorf("frame %d is already recording: %w", fr.frameNumber, core.ErrFrameState)
		core.LogError(err.Error())
		return err
	}

	// A failed acquire leaves the fence reset with nothing submitted to signal it.
	if !f.acquirePending {
		if err := fr.device.WaitForFence(f.InFlight, fr.config.FenceTimeout()); err != nil {
			err = fmt.Errorf("frame %d in-flight fence: %w", fr.frameNumber, err)
			core.LogError(err.Error())
			return err
		}
		if err := fr.device.ResetFence(f.InFlight); err != nil {
			err = fmt.Errorf("failed to reset the fence of frame %d: %w", fr.frameNumber, err)
			core.LogError(err.Error())
			return err
		}
		f.stage = FrameStageIdle
		f.acquirePending = true
	}

	imageIndex, err := fr.device.AcquireNextImage(f.ImageAvailable, fr.config.FenceTimeout())
	if err != nil {
		if !errors.Is(err, core.ErrSwapchainOutOfDate) && !errors.Is(err, core.ErrSynchronizationTimeout) {
			err = fmt.Errorf("%w: %v", core.ErrSubmission, err)
		}
		err = fmt.Errorf("failed to acquire the next swapchain image: %w", err)
		core.LogError(err.Error())
		return err
	}
	f.ImageIndex = imageIndex
	f.acquirePending = false

	cmd := f.Commands
	if err := cmd.Reset(); err != nil {
		err = fmt.Errorf("failed to reset the command buffer of frame %d: %w", fr.frameNumber, err)
		core.LogError(err.Error())
		return err
	}
	if err := cmd.Begin(); err != nil {
		err = fmt.Errorf("failed to begin the command buffer of frame %d: %w", fr.frameNumber, err)
		core.LogError(err.Error())
		return err
	}
	f.stage = FrameStageRecording
	f.number = fr.frameNumber

	if copies := f.Staging.Resolve(cmd); copies > 0 {
		core.LogDebug("frame %d recorded %d staging copies", fr.frameNumber, copies)
	}
	f.Staging.ReleaseRetired()

	cmd.TransitionImage(fr.drawImage, metadata.ImageLayoutGeneral)
	for _, il := range fr.initialLayouts {
		if il.image.Layout != il.layout {
			cmd.TransitionImage(il.image, il.layout)
		}
	}

	if err := f.Descriptors.Clear(); err != nil {
		return err
	}
	set, err := f.Descriptors.Allocate(fr.sceneLayout)
	if err != nil {
		return err
	}
	f.SceneSet = set
	copy(f.Uniforms.Mapped, f.Scene.Bytes())
	fr.device.WriteDescriptorBuffer(set, 0, metadata.DescriptorTypeUniformBuffer, f.Uniforms.View())

	return nil
}

// EndFrameCapture copies the draw image onto the acquired swapchain image, submits the
// frame and presents it. The ring then moves to the next slot.
func (fr *FrameRing) EndFrameCapture() error {
	f := fr.CurrentFrame()
	if f.stage != FrameStageRecording {
		err := fmt.Errorf("frame %d is %s, not recording: %w", fr.frameNumber, f.stage, core.ErrFrameState)
		core.LogError(err.Error())
		return err
	}
	cmd := f.Commands

	images := fr.device.SwapchainImages()
	if int(f.ImageIndex) >= len(images) {
		err := fmt.Errorf("swapchain image %d out of range (%d images): %w", f.ImageIndex, len(images), core.ErrSubmission)
		core.LogError(err.Error())
		return err
	}
	swapchainImage := images[f.ImageIndex]

	cmd.TransitionImage(fr.drawImage, metadata.ImageLayoutTransferSrc)
	cmd.TransitionImage(swapchainImage, metadata.ImageLayoutTransferDst)
	cmd.BlitImage(fr.drawImage, fr.drawImage.Extent, swapchainImage, fr.device.SwapchainExtent())
	cmd.TransitionImage(swapchainImage, metadata.ImageLayoutPresentSrc)

	if err := cmd.End(); err != nil {
		err = fmt.Errorf("failed to end the command buffer of frame %d: %w", fr.frameNumber, err)
		core.LogError(err.Error())
		return err
	}

	if err := fr.device.Submit(cmd, f.ImageAvailable, f.RenderComplete, f.InFlight); err != nil {
		err = fmt.Errorf("failed to submit frame %d: %w", fr.frameNumber, err)
		core.LogError(err.Error())
		return err
	}
	f.stage = FrameStageSubmitted

	if err := fr.device.Present(f.ImageIndex, f.RenderComplete); err != nil {
		// The frame was submitted, so the ring moves on even if presenting failed.
		fr.frameNumber++
		err = fmt.Errorf("failed to present frame %d: %w", fr.frameNumber-1, err)
		core.LogError(err.Error())
		return err
	}

	fr.frameNumber++
	return nil
}

// Shutdown waits for the device to go idle and destroys every frame resource.
func (fr *FrameRing) Shutdown() error {
	if err := fr.device.WaitIdle(); err != nil {
		err = fmt.Errorf("failed to wait for the device before shutdown: %w", err)
		core.LogError(err.Error())
		return err
	}
	fr.destroy()
	core.LogInfo("frame ring destroyed after %d frames", fr.frameNumber)
	return nil
}

func (fr *FrameRing) destroy() {
	for _, f := range fr.frames {
		f.destroy(fr.device)
	}
	fr.frames = nil
	if fr.sceneLayout != nil {
		fr.device.DestroyDescriptorSetLayout(fr.sceneLayout)
		fr.sceneLayout = nil
	}
	if fr.drawImage != nil {
		fr.device.DestroyImage(fr.drawImage)
		fr.drawImage = nil
	}
	fr.initialLayouts = nil
}

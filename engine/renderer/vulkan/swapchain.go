package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	emath "github.com/spaghettifunk/framecore/engine/math"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	Extent      vk.Extent2D
	Images      []*metadata.Image
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, width uint32, height uint32, vsync bool) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height, vsync, nil)
}

// SwapchainRecreate builds a new swapchain from the current surface state and retires vs.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width uint32, height uint32, vsync bool) (*VulkanSwapchain, error) {
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return nil, err
	}
	sc, err := createSwapchain(context, width, height, vsync, vs)
	vs.destroySwapchain(context)
	return sc, err
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.Timeout, vk.NotReady:
		return 0, resultError("vkAcquireNextImageKHR", vk.Timeout, core.ErrSynchronizationTimeout)
	default:
		return 0, resultError("vkAcquireNextImageKHR", result, core.ErrSubmission)
	}
}

func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{vs.Handle},
		PImageIndices:  []uint32{presentImageIndex},
	}
	if renderCompleteSemaphore != nil {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{renderCompleteSemaphore}
	}

	var result vk.Result
	_ = context.Locks.SafeQueueCall(uint32(context.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		// Suboptimal still presented; the caller recreates on the next resize.
		return fmt.Errorf("vkQueuePresentKHR returned %s: %w", VulkanResultString(result), core.ErrSwapchainOutOfDate)
	default:
		return resultError("vkQueuePresentKHR", result, core.ErrSubmission)
	}
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

func createSwapchain(context *VulkanContext, width, height uint32, vsync bool, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	support := &context.Device.SwapchainSupport
	if len(support.Formats) == 0 {
		err := fmt.Errorf("surface reports no formats: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
	}
	presentMode := choosePresentMode(support.PresentModes, vsync)

	swapchainExtent := vk.Extent2D{Width: width, Height: height}
	if support.Capabilities.CurrentExtent.Width != math.MaxUint32 {
		swapchainExtent = support.Capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	minExtent := support.Capabilities.MinImageExtent
	maxExtent := support.Capabilities.MaxImageExtent
	swapchainExtent.Width = emath.Clamp(swapchainExtent.Width, minExtent.Width, maxExtent.Width)
	swapchainExtent.Height = emath.Clamp(swapchainExtent.Height, minExtent.Height, maxExtent.Height)
	swapchain.Extent = swapchainExtent

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		// The draw image is blitted onto the swapchain image.
		ImageUsage:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: vk.CompositeAlphaOpaqueBit,
		PresentMode:    presentMode,
		Clipped:        vk.True,
	}
	if old != nil {
		swapchainCreateInfo.OldSwapchain = old.Handle
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		return nil, resultError("vkCreateSwapchainKHR", res, core.ErrResourceCreation)
	}
	swapchain.Handle = swapchainHandle

	var count uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &count, nil); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res, core.ErrResourceCreation)
	}
	handles := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &count, handles); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res, core.ErrResourceCreation)
	}

	format := fromVkFormat(swapchain.ImageFormat.Format)
	extent := metadata.Extent3D{Width: swapchainExtent.Width, Height: swapchainExtent.Height, Depth: 1}
	swapchain.Images = make([]*metadata.Image, count)
	for i, handle := range handles {
		view, err := createImageView(context, handle, swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return nil, err
		}
		swapchain.Images[i] = &metadata.Image{
			Extent: extent,
			Format: format,
			Usage:  metadata.ImageUsageColorAttachment | metadata.ImageUsageTransferDst,
			Layout: metadata.ImageLayoutUndefined,
			Label:  fmt.Sprintf("swapchain-%d", i),
			InternalData: &VulkanImage{
				Handle: handle,
				View:   view,
				Width:  extent.Width,
				Height: extent.Height,
				Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			},
		}
	}

	core.LogInfo("Swapchain created successfully: %dx%d, %d images.", extent.Width, extent.Height, count)
	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, image := range vs.Images {
		if vi, ok := image.InternalData.(*VulkanImage); ok && vi.View != nil {
			vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
			vi.View = nil
		}
	}
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

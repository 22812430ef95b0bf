package vulkan

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/platform"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Window is what the backend needs from the platform layer.
type Window interface {
	GetRequiredExtensionNames() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (uint32, uint32)
}

// VulkanBackend implements renderer.Device on top of a Vulkan 1.2 device with buffer
// device addresses enabled.
type VulkanBackend struct {
	window  Window
	context *VulkanContext
	// Used by combined image sampler descriptors.
	defaultSampler vk.Sampler

	validation bool
	vsync      bool
}

var (
	_ renderer.Device             = (*VulkanBackend)(nil)
	_ renderer.SwapchainRecreator = (*VulkanBackend)(nil)
	_ renderer.PipelineFactory    = (*VulkanBackend)(nil)
)

func New(window Window, appName string, validation bool) (*VulkanBackend, error) {
	vb := &VulkanBackend{
		window: window,
		context: &VulkanContext{
			Allocator: nil,
			Locks:     NewVulkanLockPool(),
		},
		validation: validation,
		vsync:      true,
	}
	if err := vb.initialize(appName); err != nil {
		_ = vb.Destroy()
		return nil, err
	}
	return vb, nil
}

func (vb *VulkanBackend) initialize(appName string) error {
	procAddr := platform.GetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return fmt.Errorf("%s: %w", err, core.ErrResourceCreation)
	}

	vb.context.FramebufferWidth, vb.context.FramebufferHeight = vb.window.FramebufferSize()

	if err := vb.createInstance(appName); err != nil {
		return err
	}

	if vb.validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, vb.context.Allocator, &dbg); res != vk.Success {
			return resultError("vkCreateDebugReportCallbackEXT", res, core.ErrResourceCreation)
		}
		vb.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vb.window.CreateSurface(vb.context.Instance)
	if err != nil {
		core.LogError("Failed to create platform surface: %s", err)
		return fmt.Errorf("%s: %w", err, core.ErrResourceCreation)
	}
	vb.context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vb.context); err != nil {
		return err
	}

	sc, err := SwapchainCreate(vb.context, vb.context.FramebufferWidth, vb.context.FramebufferHeight, vb.vsync)
	if err != nil {
		return err
	}
	vb.context.Swapchain = sc

	samplerInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterNearest,
		MinFilter:    vk.FilterNearest,
		MipmapMode:   vk.SamplerMipmapModeNearest,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(vb.context.Device.LogicalDevice, &samplerInfo, vb.context.Allocator, &sampler); res != vk.Success {
		return resultError("vkCreateSampler", res, core.ErrResourceCreation)
	}
	vb.defaultSampler = sampler

	core.LogInfo("Vulkan backend initialized on %s.", vb.context.Device.Name)
	return nil
}

func (vb *VulkanBackend) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("framecore"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vb.window.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if vb.validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer(validationLayer) {
			layers = append(layers, validationLayer)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation requested but %s is not installed.", validationLayer)
		}
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &instance); res != vk.Success {
		return resultError("vkCreateInstance", res, core.ErrResourceCreation)
	}
	vb.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return fmt.Errorf("%s: %w", err, core.ErrResourceCreation)
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (vb *VulkanBackend) Name() string {
	if vb.context.Device == nil {
		return "vulkan"
	}
	return "vulkan (" + vb.context.Device.Name + ")"
}

func (vb *VulkanBackend) CreateBuffer(size uint64, usage metadata.BufferUsage, memory metadata.MemoryClass) (*metadata.Buffer, error) {
	buffer, mapped, err := BufferCreate(vb.context, size, usage, memory)
	if err != nil {
		return nil, err
	}
	return &metadata.Buffer{
		Size:         size,
		Usage:        usage,
		Memory:       memory,
		Mapped:       mapped,
		InternalData: buffer,
	}, nil
}

func (vb *VulkanBackend) DestroyBuffer(buffer *metadata.Buffer) {
	if vbuf, ok := buffer.InternalData.(*VulkanBuffer); ok {
		vbuf.BufferDestroy(vb.context)
	}
	buffer.Mapped = nil
	buffer.InternalData = nil
}

func (vb *VulkanBackend) BufferDeviceAddress(buffer *metadata.Buffer) uint64 {
	return bufferOf(buffer).Address
}

func (vb *VulkanBackend) CreateImage(extent metadata.Extent3D, format metadata.ImageFormat, usage metadata.ImageUsage) (*metadata.Image, error) {
	image, err := ImageCreate(vb.context, extent, format, usage)
	if err != nil {
		return nil, err
	}
	return &metadata.Image{
		Extent:       extent,
		Format:       format,
		Usage:        usage,
		Layout:       metadata.ImageLayoutUndefined,
		InternalData: image,
	}, nil
}

func (vb *VulkanBackend) DestroyImage(image *metadata.Image) {
	if vi, ok := image.InternalData.(*VulkanImage); ok {
		vi.ImageDestroy(vb.context)
	}
	image.InternalData = nil
}

func (vb *VulkanBackend) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (*metadata.DescriptorSetLayout, error) {
	layout, err := DescriptorSetLayoutCreate(vb.context, bindings)
	if err != nil {
		return nil, err
	}
	return &metadata.DescriptorSetLayout{Bindings: bindings, InternalData: layout}, nil
}

func (vb *VulkanBackend) DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout) {
	descriptorLayoutOf(layout).Destroy(vb.context)
}

func (vb *VulkanBackend) CreateDescriptorPool(maxSets uint32, sizes []metadata.DescriptorPoolSize) (*metadata.DescriptorPool, error) {
	pool, err := DescriptorPoolCreate(vb.context, maxSets, sizes)
	if err != nil {
		return nil, err
	}
	return &metadata.DescriptorPool{MaxSets: maxSets, Sizes: sizes, InternalData: pool}, nil
}

func (vb *VulkanBackend) AllocateDescriptorSet(pool *metadata.DescriptorPool, layout *metadata.DescriptorSetLayout) (*metadata.DescriptorSet, error) {
	set, err := descriptorPoolOf(pool).Allocate(vb.context, descriptorLayoutOf(layout))
	if err != nil {
		return nil, err
	}
	return &metadata.DescriptorSet{Pool: pool, Layout: layout, InternalData: set}, nil
}

func (vb *VulkanBackend) ResetDescriptorPool(pool *metadata.DescriptorPool) error {
	return descriptorPoolOf(pool).Reset(vb.context)
}

func (vb *VulkanBackend) DestroyDescriptorPool(pool *metadata.DescriptorPool) {
	descriptorPoolOf(pool).Destroy(vb.context)
}

func (vb *VulkanBackend) WriteDescriptorBuffer(set *metadata.DescriptorSet, binding uint32, kind metadata.DescriptorType, view metadata.BufferView) {
	DescriptorWriteBuffer(vb.context, descriptorSetOf(set), binding, kind, view)
}

func (vb *VulkanBackend) WriteDescriptorImage(set *metadata.DescriptorSet, binding uint32, kind metadata.DescriptorType, image *metadata.Image, layout metadata.ImageLayout) {
	DescriptorWriteImage(vb.context, descriptorSetOf(set), binding, kind, image, layout, vb.defaultSampler)
}

func (vb *VulkanBackend) CreateCommandBuffer() (renderer.CommandBuffer, error) {
	return NewVulkanCommandBuffer(vb.context, vb.context.Device.GraphicsCommandPool)
}

func (vb *VulkanBackend) DestroyCommandBuffer(cmd renderer.CommandBuffer) {
	if vcb, ok := cmd.(*VulkanCommandBuffer); ok && vcb.Handle != nil {
		vcb.Free()
	}
}

func (vb *VulkanBackend) CreateFence(signaled bool) (*metadata.Fence, error) {
	fence, err := NewFence(vb.context, signaled)
	if err != nil {
		return nil, err
	}
	return &metadata.Fence{IsSignaled: signaled, InternalData: fence}, nil
}

func (vb *VulkanBackend) DestroyFence(fence *metadata.Fence) {
	if vf, ok := fence.InternalData.(*VulkanFence); ok {
		vf.FenceDestroy(vb.context)
	}
	fence.InternalData = nil
}

func (vb *VulkanBackend) WaitForFence(fence *metadata.Fence, timeout time.Duration) error {
	if fence.IsSignaled {
		return nil
	}
	if err := fenceOf(fence).FenceWait(vb.context, timeout); err != nil {
		return err
	}
	fence.IsSignaled = true
	return nil
}

func (vb *VulkanBackend) ResetFence(fence *metadata.Fence) error {
	if err := fenceOf(fence).FenceReset(vb.context); err != nil {
		return err
	}
	fence.IsSignaled = false
	return nil
}

func (vb *VulkanBackend) CreateSemaphore() (*metadata.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(vb.context.Device.LogicalDevice, &info, vb.context.Allocator, &semaphore); res != vk.Success {
		return nil, resultError("vkCreateSemaphore", res, core.ErrResourceCreation)
	}
	return &metadata.Semaphore{InternalData: semaphore}, nil
}

func (vb *VulkanBackend) DestroySemaphore(semaphore *metadata.Semaphore) {
	if s, ok := semaphore.InternalData.(vk.Semaphore); ok && s != vk.NullSemaphore {
		vk.DestroySemaphore(vb.context.Device.LogicalDevice, s, vb.context.Allocator)
	}
	semaphore.InternalData = nil
}

func (vb *VulkanBackend) SwapchainImages() []*metadata.Image {
	return vb.context.Swapchain.Images
}

func (vb *VulkanBackend) SwapchainExtent() metadata.Extent3D {
	extent := vb.context.Swapchain.Extent
	return metadata.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}
}

func (vb *VulkanBackend) AcquireNextImage(signal *metadata.Semaphore, timeout time.Duration) (uint32, error) {
	return vb.context.Swapchain.SwapchainAcquireNextImageIndex(vb.context, uint64(timeout.Nanoseconds()), semaphoreOf(signal))
}

func (vb *VulkanBackend) Submit(cmd renderer.CommandBuffer, wait, signal *metadata.Semaphore, fence *metadata.Fence) error {
	vcb, ok := cmd.(*VulkanCommandBuffer)
	if !ok || vcb.State() != renderer.CommandBufferStateRecordingEnded {
		err := fmt.Errorf("submit of a command buffer that is not ended: %w", core.ErrFrameState)
		core.LogError(err.Error())
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{vcb.Handle},
	}
	if wait != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{semaphoreOf(wait)}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)}
	}
	if signal != nil {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{semaphoreOf(signal)}
	}

	var vf *VulkanFence
	var fenceHandle vk.Fence
	if fence != nil {
		vf = fenceOf(fence)
		fenceHandle = vf.Handle
	}

	err := vb.context.Locks.SafeQueueCall(uint32(vb.context.Device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fenceHandle); res != vk.Success {
			return resultError("vkQueueSubmit", res, core.ErrSubmission)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if fence != nil {
		fence.IsSignaled = false
	}
	vcb.UpdateSubmitted(vf)
	return nil
}

func (vb *VulkanBackend) Present(imageIndex uint32, wait *metadata.Semaphore) error {
	var semaphore vk.Semaphore
	if wait != nil {
		semaphore = semaphoreOf(wait)
	}
	return vb.context.Swapchain.SwapchainPresent(vb.context, semaphore, imageIndex)
}

// RecreateSwapchain waits for the device to go idle and rebuilds the swapchain images.
func (vb *VulkanBackend) RecreateSwapchain(width, height uint32) error {
	if width == 0 || height == 0 {
		core.LogDebug("Skipping swapchain recreation for a %dx%d surface.", width, height)
		return nil
	}
	if err := vb.WaitIdle(); err != nil {
		return err
	}
	vb.context.FramebufferWidth, vb.context.FramebufferHeight = width, height
	sc, err := vb.context.Swapchain.SwapchainRecreate(vb.context, width, height, vb.vsync)
	if err != nil {
		return err
	}
	vb.context.Swapchain = sc
	return nil
}

func (vb *VulkanBackend) CreateComputePipeline(name string, code []byte, layouts []*metadata.DescriptorSetLayout, pushConstantSize uint32) (*metadata.Pipeline, error) {
	handles := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		handles[i] = descriptorLayoutOf(l).Handle
	}
	pipeline, err := NewComputePipeline(vb.context, &VulkanComputePipelineConfig{
		Name:                 name,
		Code:                 code,
		DescriptorSetLayouts: handles,
		PushConstantSize:     pushConstantSize,
	})
	if err != nil {
		return nil, err
	}
	return &metadata.Pipeline{Name: name, Compute: true, InternalData: pipeline}, nil
}

func (vb *VulkanBackend) DestroyPipeline(pipeline *metadata.Pipeline) {
	if vp, ok := pipeline.InternalData.(*VulkanPipeline); ok {
		vp.Destroy(vb.context)
	}
	pipeline.InternalData = nil
}

func (vb *VulkanBackend) WaitIdle() error {
	if vb.context.Device == nil || vb.context.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vb.context.Device.LogicalDevice); res != vk.Success {
		return resultError("vkDeviceWaitIdle", res, core.ErrSubmission)
	}
	return nil
}

// Destroy releases the objects the backend owns, in the opposite order of creation. It is
// safe to call on a partially initialized backend.
func (vb *VulkanBackend) Destroy() error {
	err := vb.WaitIdle()

	if vb.context.Device != nil && vb.context.Device.LogicalDevice != nil {
		if vb.defaultSampler != nil {
			vk.DestroySampler(vb.context.Device.LogicalDevice, vb.defaultSampler, vb.context.Allocator)
			vb.defaultSampler = nil
		}
		if vb.context.Swapchain != nil {
			vb.context.Swapchain.SwapchainDestroy(vb.context)
			vb.context.Swapchain = nil
		}
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vb.context)
	}

	if vb.context.Instance == nil {
		return err
	}
	if vb.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	}
	if vb.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugMessenger, vb.context.Allocator)
		vb.context.debugMessenger = vk.NullDebugReportCallback
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
	vb.context.Instance = nil
	return err
}

func fenceOf(f *metadata.Fence) *VulkanFence {
	return f.InternalData.(*VulkanFence)
}

func semaphoreOf(s *metadata.Semaphore) vk.Semaphore {
	return s.InternalData.(vk.Semaphore)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

package vulkan

import (
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	Name string
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	Compute              bool
	Transfer             bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	ComputeFamilyIndex  int32
	TransferFamilyIndex int32
}

func DeviceCreate(context *VulkanContext) error {
	context.Device = &VulkanDevice{
		GraphicsQueueIndex: -1,
		PresentQueueIndex:  -1,
		TransferQueueIndex: -1,
	}
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	if context.Device.PresentQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, uint32(context.Device.PresentQueueIndex))
	}
	if context.Device.TransferQueueIndex != context.Device.GraphicsQueueIndex &&
		context.Device.TransferQueueIndex != context.Device.PresentQueueIndex {
		indices = append(indices, uint32(context.Device.TransferQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		context.Locks.SetQueueFamily(index)
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: context.Device.Features.SamplerAnisotropy,
	}

	// Mesh vertex buffers are addressed from shaders.
	features12 := vk.PhysicalDeviceVulkan12Features{
		SType:               vk.StructureTypePhysicalDeviceVulkan12Features,
		BufferDeviceAddress: vk.True,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensions(context.Device.PhysicalDevice)
	if err != nil {
		return err
	}
	if available["VK_KHR_portability_subset"] {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(features12.Ref()),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		return resultError("vkCreateDevice", res, core.ErrResourceCreation)
	}
	context.Device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	// Get queues.
	vk.GetDeviceQueue(logicalDevice, uint32(context.Device.GraphicsQueueIndex), 0, &context.Device.GraphicsQueue)
	vk.GetDeviceQueue(logicalDevice, uint32(context.Device.PresentQueueIndex), 0, &context.Device.PresentQueue)
	vk.GetDeviceQueue(logicalDevice, uint32(context.Device.TransferQueueIndex), 0, &context.Device.TransferQueue)
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(logicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return resultError("vkCreateCommandPool", res, core.ErrResourceCreation)
	}
	context.Device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	if context.Device.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = nil
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
	context.Device.TransferQueueIndex = -1
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return resultError("vkGetPhysicalDeviceSurfaceCapabilities", res, core.ErrResourceCreation)
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return resultError("vkGetPhysicalDeviceSurfaceFormats", res, core.ErrResourceCreation)
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return resultError("vkGetPhysicalDeviceSurfaceFormats", res, core.ErrResourceCreation)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return resultError("vkGetPhysicalDeviceSurfacePresentModes", res, core.ErrResourceCreation)
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return resultError("vkGetPhysicalDeviceSurfacePresentModes", res, core.ErrResourceCreation)
		}
	}
	return nil
}

func deviceExtensions(device vk.PhysicalDevice) (map[string]bool, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res, core.ErrResourceCreation)
	}
	properties := make([]vk.ExtensionProperties, count)
	if count != 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, properties); res != vk.Success {
			return nil, resultError("vkEnumerateDeviceExtensionProperties", res, core.ErrResourceCreation)
		}
	}
	names := make(map[string]bool, count)
	for i := range properties {
		properties[i].Deref()
		names[cString(properties[i].ExtensionName[:])] = true
	}
	return names, nil
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res, core.ErrResourceCreation)
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res, core.ErrResourceCreation)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		Transfer:             true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	for _, candidate := range physicalDevices {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		features := vk.PhysicalDeviceFeatures{}
		vk.GetPhysicalDeviceFeatures(candidate, &features)
		features.Deref()

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		// Integrated GPUs only on machines that have nothing else, like macOS.
		requirements.DiscreteGPU = runtime.GOOS != "darwin" && len(physicalDevices) > 1

		queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{}
		support := VulkanSwapchainSupportInfo{}
		if !PhysicalDeviceMeetsRequirements(candidate, context.Surface, &properties, &features, &requirements, &queueInfo, &support) {
			continue
		}

		name := cString(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch(),
		)
		for j := uint32(0); j < memory.MemoryHeapCount; j++ {
			memory.MemoryHeaps[j].Deref()
			memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
			if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
			} else {
				core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
			}
		}

		context.Device.PhysicalDevice = candidate
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex
		context.Device.TransferQueueIndex = queueInfo.TransferFamilyIndex
		context.Device.SwapchainSupport = support
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		context.Device.Name = name
		break
	}

	// Ensure a device was selected
	if context.Device.PhysicalDevice == nil {
		err := fmt.Errorf("no physical devices were found which meet the requirements: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Physical device selected.")
	return nil
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements, outQueueInfo *VulkanPhysicalDeviceQueueFamilyInfo, outSwapchainSupport *VulkanSwapchainSupportInfo) bool {
	// -1 marks a family that was not found.
	outQueueInfo.GraphicsFamilyIndex = -1
	outQueueInfo.PresentFamilyIndex = -1
	outQueueInfo.ComputeFamilyIndex = -1
	outQueueInfo.TransferFamilyIndex = -1

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device is not a discrete GPU, and one is required. Skipping.")
		return false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Look at each queue and see what queues it supports
	minTransferScore := 255
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := vk.QueueFlagBits(queueFamilies[i].QueueFlags)
		currentTransferScore := 0

		if flags&vk.QueueGraphicsBit != 0 && outQueueInfo.GraphicsFamilyIndex < 0 {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
			currentTransferScore++
		}
		if flags&vk.QueueComputeBit != 0 {
			outQueueInfo.ComputeFamilyIndex = int32(i)
			currentTransferScore++
		}
		// Take the index if it is the current lowest. This increases the
		// likelihood that it is a dedicated transfer queue.
		if flags&vk.QueueTransferBit != 0 && currentTransferScore <= minTransferScore {
			minTransferScore = currentTransferScore
			outQueueInfo.TransferFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return false
		}
		if supportsPresent == vk.True && outQueueInfo.PresentFamilyIndex < 0 {
			outQueueInfo.PresentFamilyIndex = int32(i)
		}
	}

	core.LogDebug("Graphics Family Index: %d", outQueueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", outQueueInfo.PresentFamilyIndex)
	core.LogDebug("Transfer Family Index: %d", outQueueInfo.TransferFamilyIndex)
	core.LogDebug("Compute Family Index:  %d", outQueueInfo.ComputeFamilyIndex)

	if (requirements.Graphics && outQueueInfo.GraphicsFamilyIndex < 0) ||
		(requirements.Present && outQueueInfo.PresentFamilyIndex < 0) ||
		(requirements.Compute && outQueueInfo.ComputeFamilyIndex < 0) ||
		(requirements.Transfer && outQueueInfo.TransferFamilyIndex < 0) {
		core.LogInfo("Device does not meet queue requirements, skipping.")
		return false
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		return false
	}
	if len(outSwapchainSupport.Formats) < 1 || len(outSwapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return false
	}

	available, err := deviceExtensions(device)
	if err != nil {
		return false
	}
	for _, name := range requirements.DeviceExtensionNames {
		if !available[strings.TrimRight(name, "\x00")] {
			core.LogInfo("Required extension not found: '%s', skipping device.", name)
			return false
		}
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return false
	}
	return true
}

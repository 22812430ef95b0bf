package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
)

var resultNames = map[vk.Result]string{
	vk.Success:                    "VK_SUCCESS",
	vk.NotReady:                   "VK_NOT_READY",
	vk.Timeout:                    "VK_TIMEOUT",
	vk.EventSet:                   "VK_EVENT_SET",
	vk.EventReset:                 "VK_EVENT_RESET",
	vk.Incomplete:                 "VK_INCOMPLETE",
	vk.Suboptimal:                 "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:       "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:     "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed:  "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:            "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:       "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:       "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:   "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:     "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:    "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:        "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:    "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:        "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorSurfaceLost:           "VK_ERROR_SURFACE_LOST_KHR",
	vk.ErrorNativeWindowInUse:     "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR",
	vk.ErrorOutOfDate:             "VK_ERROR_OUT_OF_DATE_KHR",
	vk.ErrorIncompatibleDisplay:   "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
	vk.ErrorOutOfPoolMemory:       "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorInvalidExternalHandle: "VK_ERROR_INVALID_EXTERNAL_HANDLE",
	vk.ErrorFragmentation:         "VK_ERROR_FRAGMENTATION",
	vk.ErrorUnknown:               "VK_ERROR_UNKNOWN",
}

func VulkanResultString(result vk.Result) string {
	if name, ok := resultNames[result]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(result))
}

// VulkanResultIsSuccess follows the Vulkan convention: success codes are non-negative.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// resultError converts a failed Vulkan result into one of the engine sentinels. fallback
// is used for results that have no dedicated sentinel.
func resultError(op string, result vk.Result, fallback error) error {
	var kind error
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		kind = core.ErrSynchronizationTimeout
	case vk.ErrorDeviceLost:
		kind = core.ErrDeviceLost
	case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		kind = core.ErrPoolExhausted
	case vk.ErrorOutOfDate:
		kind = core.ErrSwapchainOutOfDate
	default:
		kind = fallback
	}
	err := fmt.Errorf("%s failed with %s: %w", op, VulkanResultString(result), kind)
	core.LogError(err.Error())
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// cString turns a fixed size, zero terminated name array into a Go string.
func cString(arr []byte) string {
	for i, b := range arr {
		if b == 0 {
			return string(arr[:i])
		}
	}
	return string(arr)
}

package core

import (
	"errors"
)

var (
	// ErrResourceCreation is returned when the device rejects the creation of a buffer,
	// image, pool or synchronization object.
	ErrResourceCreation = errors.New("resource creation failed")
	// ErrSynchronizationTimeout is returned when a fence or acquire wait exceeds its bound.
	ErrSynchronizationTimeout = errors.New("synchronization timeout")
	// ErrSubmission is returned when a queue submit or present is rejected.
	ErrSubmission = errors.New("submission failed")
	// ErrCapacityExceeded is returned when a fixed-capacity per-frame array would overflow.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrPoolExhausted is returned by a device when a descriptor pool is out of memory or
	// fragmented. The descriptor allocator recovers from it by growing.
	ErrPoolExhausted      = errors.New("descriptor pool exhausted")
	ErrDeviceLost         = errors.New("device lost")
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrStaleHandle        = errors.New("stale resource handle")
	ErrFrameState         = errors.New("invalid frame state")
)

// IsFatal reports whether err leaves the device or the frame ring in a state the
// render loop cannot continue from.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDeviceLost),
		errors.Is(err, ErrSynchronizationTimeout),
		errors.Is(err, ErrSubmission),
		errors.Is(err, ErrResourceCreation),
		errors.Is(err, ErrSwapchainOutOfDate):
		return true
	}
	return false
}

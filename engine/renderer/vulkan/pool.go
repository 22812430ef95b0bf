package vulkan

import "sync"

type LockGroup string

const (
	CommandBufferManagement   LockGroup = "command_buffer_management"
	DescriptorManagement      LockGroup = "descriptor_management"
	BufferManagement          LockGroup = "buffer_management"
	ImageManagement           LockGroup = "image_management"
	PipelineManagement        LockGroup = "pipeline_management"
	SynchronizationManagement LockGroup = "synchronization_management"
	SwapchainManagement       LockGroup = "swapchain_management"
)

// VulkanLockPool hands out one mutex per lock group and one per queue family.
type VulkanLockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, ok := vs.locks[group]
	if !ok {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

// SafeQueueCall runs fn while holding the mutex of the queue family. Queues that share a
// family share the mutex.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	vs.mu.Lock()
	l, ok := vs.queueMutexes[queueFamilyIndex]
	if !ok {
		l = &sync.Mutex{}
		vs.queueMutexes[queueFamilyIndex] = l
	}
	vs.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

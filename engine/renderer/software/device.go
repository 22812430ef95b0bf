package software

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/framecore/engine/containers"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type bufferData struct {
	id        uint64
	data      []byte
	address   uint64
	destroyed bool
}

type imageData struct {
	id        uint64
	data      []byte
	owned     bool
	destroyed bool
}

type fenceData struct {
	id        uint64
	signaled  bool
	destroyed bool
}

type semaphoreData struct {
	id       uint64
	signaled bool
}

// Stats counts what the device did so far.
type Stats struct {
	BuffersCreated   int
	BuffersDestroyed int
	ImagesCreated    int
	ImagesDestroyed  int
	PoolsCreated     int
	SetsAllocated    int
	Pipelines        int
	Dispatches       int
	Submissions      int
	Executed         int
	Presented        int
	CopiesExecuted   int
	FenceWaits       int
}

// LiveBuffers is the number of buffers created and not destroyed yet.
func (s Stats) LiveBuffers() int {
	return s.BuffersCreated - s.BuffersDestroyed
}

// Device is a deterministic renderer.Device without a GPU. Submissions queue up on a
// simulated GPU timeline and only execute when a fence wait needs them, when the queue is
// full or on WaitIdle, so the CPU always runs as far ahead as the frame ring allows.
// Copies really move bytes, which makes uploads verifiable.
type Device struct {
	options deviceOptions

	nextID      uint64
	nextAddress uint64
	seq         uint64

	queue     *containers.RingQueue[*submission]
	history   []Submission
	swapchain []*metadata.Image
	nextImage uint32

	stalled    bool
	outOfDate  bool
	lost       error
	violations []string
	stats      Stats
}

// New creates a software device with the given options.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		options:     o,
		nextAddress: o.addressBase,
		queue:       containers.NewRingQueue[*submission](o.queueDepth),
	}
	d.createSwapchain()
	core.LogInfo("software device created with %d swapchain images of %dx%d", o.imageCount, o.extent.Width, o.extent.Height)
	return d
}

var _ renderer.Device = (*Device)(nil)

func (d *Device) Name() string {
	return "software"
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) violation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	core.LogWarn(msg)
	d.violations = append(d.violations, msg)
}

// Violations lists every misuse of the device API detected so far.
func (d *Device) Violations() []string {
	return d.violations
}

func (d *Device) Stats() Stats {
	return d.stats
}

// History returns the executed submissions in execution order. Only kept WithHistory.
func (d *Device) History() []Submission {
	return d.history
}

// Pending is the number of submissions queued and not executed yet.
func (d *Device) Pending() int {
	return d.queue.Len()
}

// SetStalled stops the simulated GPU from executing anything. Fence waits on unfinished
// work time out while stalled.
func (d *Device) SetStalled(stalled bool) {
	d.stalled = stalled
}

// InvalidateSwapchain makes the next acquire fail as if the window surface changed.
func (d *Device) InvalidateSwapchain() {
	d.outOfDate = true
}

// Lost returns the error that made the device lost, nil while it is healthy.
func (d *Device) Lost() error {
	return d.lost
}

func (d *Device) createSwapchain() {
	d.swapchain = make([]*metadata.Image, d.options.imageCount)
	for i := range d.swapchain {
		d.swapchain[i] = &metadata.Image{
			Extent: d.options.extent,
			Format: d.options.format,
			Usage:  metadata.ImageUsageTransferDst | metadata.ImageUsageColorAttachment,
			Layout: metadata.ImageLayoutUndefined,
			Label:  fmt.Sprintf("swapchain-%d", i),
			InternalData: &imageData{
				id:   d.id(),
				data: make([]byte, d.options.extent.Texels()*d.options.format.PixelSize()),
			},
		}
	}
	d.nextImage = 0
}

// RecreateSwapchain rebuilds the swapchain images with a new extent.
func (d *Device) RecreateSwapchain(width, height uint32) error {
	if err := d.WaitIdle(); err != nil {
		return err
	}
	d.options.extent = metadata.Extent3D{Width: width, Height: height, Depth: 1}
	d.createSwapchain()
	d.outOfDate = false
	return nil
}

func (d *Device) CreateBuffer(size uint64, usage metadata.BufferUsage, memory metadata.MemoryClass) (*metadata.Buffer, error) {
	if size == 0 || (d.options.maxBufferBytes > 0 && size > d.options.maxBufferBytes) {
		return nil, fmt.Errorf("cannot allocate a %d bytes buffer: %w", size, core.ErrResourceCreation)
	}
	data := &bufferData{
		id:   d.id(),
		data: make([]byte, size),
	}
	if usage.Has(metadata.BufferUsageDeviceAddress) {
		data.address = d.nextAddress
		d.nextAddress += metadata.GetAligned(size, d.options.addressAlign)
	}
	b := &metadata.Buffer{
		Size:         size,
		Usage:        usage,
		Memory:       memory,
		InternalData: data,
	}
	if memory.HostVisible() {
		b.Mapped = data.data
	}
	d.stats.BuffersCreated++
	return b, nil
}

func bufferOf(b *metadata.Buffer) *bufferData {
	if b == nil {
		return nil
	}
	data, _ := b.InternalData.(*bufferData)
	return data
}

func (d *Device) DestroyBuffer(buffer *metadata.Buffer) {
	data := bufferOf(buffer)
	if data == nil {
		return
	}
	if data.destroyed {
		d.violation("buffer %d `%s` destroyed twice", data.id, buffer.Label)
		return
	}
	data.destroyed = true
	buffer.Mapped = nil
	d.stats.BuffersDestroyed++
}

func (d *Device) BufferDeviceAddress(buffer *metadata.Buffer) uint64 {
	data := bufferOf(buffer)
	if data == nil {
		return 0
	}
	return data.address
}

// ReadBuffer returns a copy of the device side contents of buffer.
func (d *Device) ReadBuffer(buffer *metadata.Buffer) []byte {
	data := bufferOf(buffer)
	if data == nil {
		return nil
	}
	out := make([]byte, len(data.data))
	copy(out, data.data)
	return out
}

// IsDestroyed reports whether buffer was destroyed through this device.
func (d *Device) IsDestroyed(buffer *metadata.Buffer) bool {
	data := bufferOf(buffer)
	return data != nil && data.destroyed
}

func (d *Device) CreateImage(extent metadata.Extent3D, format metadata.ImageFormat, usage metadata.ImageUsage) (*metadata.Image, error) {
	size := extent.Texels() * format.PixelSize()
	if size == 0 {
		return nil, fmt.Errorf("cannot allocate a %dx%dx%d image: %w", extent.Width, extent.Height, extent.Depth, core.ErrResourceCreation)
	}
	d.stats.ImagesCreated++
	return &metadata.Image{
		Extent: extent,
		Format: format,
		Usage:  usage,
		Layout: metadata.ImageLayoutUndefined,
		InternalData: &imageData{
			id:    d.id(),
			data:  make([]byte, size),
			owned: true,
		},
	}, nil
}

func imageOf(img *metadata.Image) *imageData {
	if img == nil {
		return nil
	}
	data, _ := img.InternalData.(*imageData)
	return data
}

func (d *Device) DestroyImage(image *metadata.Image) {
	data := imageOf(image)
	if data == nil {
		return
	}
	if !data.owned {
		d.violation("swapchain image `%s` cannot be destroyed", image.Label)
		return
	}
	if data.destroyed {
		d.violation("image %d `%s` destroyed twice", data.id, image.Label)
		return
	}
	data.destroyed = true
	d.stats.ImagesDestroyed++
}

// ReadImage returns a copy of the texels of image.
func (d *Device) ReadImage(image *metadata.Image) []byte {
	data := imageOf(image)
	if data == nil {
		return nil
	}
	out := make([]byte, len(data.data))
	copy(out, data.data)
	return out
}

func (d *Device) CreateCommandBuffer() (renderer.CommandBuffer, error) {
	return &CommandBuffer{
		device: d,
		id:     d.id(),
		state:  renderer.CommandBufferStateReady,
	}, nil
}

func (d *Device) DestroyCommandBuffer(cmd renderer.CommandBuffer) {
	cb, ok := cmd.(*CommandBuffer)
	if !ok {
		return
	}
	if cb.pending != nil {
		d.violation("command buffer %d freed while submission %d is still executing", cb.id, cb.pending.seq)
	}
	cb.state = renderer.CommandBufferStateNotAllocated
	cb.commands = nil
}

func (d *Device) CreateFence(signaled bool) (*metadata.Fence, error) {
	return &metadata.Fence{
		IsSignaled:   signaled,
		InternalData: &fenceData{id: d.id(), signaled: signaled},
	}, nil
}

func fenceOf(f *metadata.Fence) *fenceData {
	if f == nil {
		return nil
	}
	data, _ := f.InternalData.(*fenceData)
	return data
}

func (d *Device) DestroyFence(fence *metadata.Fence) {
	if data := fenceOf(fence); data != nil {
		data.destroyed = true
	}
}

func (d *Device) WaitForFence(fence *metadata.Fence, timeout time.Duration) error {
	data := fenceOf(fence)
	if data == nil || data.destroyed {
		return fmt.Errorf("wait on an invalid fence: %w", core.ErrSubmission)
	}
	d.stats.FenceWaits++
	for !data.signaled && !d.stalled && !d.queue.IsEmpty() {
		if err := d.executeNext(); err != nil {
			return err
		}
	}
	if d.lost != nil {
		return d.lost
	}
	if !data.signaled {
		return fmt.Errorf("fence %d not signaled after %s: %w", data.id, timeout, core.ErrSynchronizationTimeout)
	}
	fence.IsSignaled = true
	return nil
}

func (d *Device) ResetFence(fence *metadata.Fence) error {
	data := fenceOf(fence)
	if data == nil || data.destroyed {
		return fmt.Errorf("reset of an invalid fence: %w", core.ErrSubmission)
	}
	if !data.signaled {
		d.violation("fence %d reset while unsignaled", data.id)
	}
	data.signaled = false
	fence.IsSignaled = false
	return nil
}

// FenceSignaled reports the device side state of fence.
func (d *Device) FenceSignaled(fence *metadata.Fence) bool {
	data := fenceOf(fence)
	return data != nil && data.signaled
}

func (d *Device) CreateSemaphore() (*metadata.Semaphore, error) {
	return &metadata.Semaphore{InternalData: &semaphoreData{id: d.id()}}, nil
}

func (d *Device) DestroySemaphore(*metadata.Semaphore) {}

func semaphoreOf(s *metadata.Semaphore) *semaphoreData {
	if s == nil {
		return nil
	}
	data, _ := s.InternalData.(*semaphoreData)
	return data
}

func (d *Device) SwapchainImages() []*metadata.Image {
	return d.swapchain
}

func (d *Device) SwapchainExtent() metadata.Extent3D {
	return d.options.extent
}

func (d *Device) AcquireNextImage(signal *metadata.Semaphore, timeout time.Duration) (uint32, error) {
	if d.lost != nil {
		return 0, d.lost
	}
	if d.outOfDate {
		return 0, fmt.Errorf("swapchain is out of date: %w", core.ErrSwapchainOutOfDate)
	}
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(len(d.swapchain))
	if s := semaphoreOf(signal); s != nil {
		s.signaled = true
	}
	return idx, nil
}

func (d *Device) Submit(cmd renderer.CommandBuffer, wait, signal *metadata.Semaphore, fence *metadata.Fence) error {
	if d.lost != nil {
		return d.lost
	}
	cb, ok := cmd.(*CommandBuffer)
	if !ok || cb.device != d {
		return fmt.Errorf("command buffer does not belong to the software device: %w", core.ErrSubmission)
	}
	if cb.state != renderer.CommandBufferStateRecordingEnded {
		return fmt.Errorf("command buffer %d submitted while %s: %w", cb.id, cb.state, core.ErrSubmission)
	}
	if w := semaphoreOf(wait); w != nil {
		if !w.signaled {
			return fmt.Errorf("submission waits on semaphore %d that nothing signals: %w", w.id, core.ErrSubmission)
		}
		w.signaled = false
	}
	if f := fenceOf(fence); f != nil && f.signaled {
		return fmt.Errorf("submission signals fence %d that is already signaled: %w", f.id, core.ErrSubmission)
	}

	// The GPU catches up when the queue is full.
	for d.queue.IsFull() {
		if d.stalled {
			return fmt.Errorf("submission queue is full while the device is stalled: %w", core.ErrSubmission)
		}
		if err := d.executeNext(); err != nil {
			return err
		}
	}

	d.seq++
	sub := &submission{
		seq:      d.seq,
		cmd:      cb,
		commands: cb.commands,
		signal:   semaphoreOf(signal),
		fence:    fence,
	}
	if err := d.queue.Enqueue(sub); err != nil {
		return fmt.Errorf("failed to enqueue submission %d: %w", sub.seq, core.ErrSubmission)
	}
	cb.pending = sub
	cb.state = renderer.CommandBufferStateSubmitted
	d.stats.Submissions++
	return nil
}

func (d *Device) Present(imageIndex uint32, wait *metadata.Semaphore) error {
	if d.lost != nil {
		return d.lost
	}
	if int(imageIndex) >= len(d.swapchain) {
		return fmt.Errorf("present of swapchain image %d out of %d: %w", imageIndex, len(d.swapchain), core.ErrSubmission)
	}
	if d.outOfDate {
		return fmt.Errorf("swapchain is out of date: %w", core.ErrSwapchainOutOfDate)
	}
	d.stats.Presented++
	return nil
}

// WaitIdle executes every queued submission.
func (d *Device) WaitIdle() error {
	if d.stalled && !d.queue.IsEmpty() {
		return fmt.Errorf("%d submissions pending on a stalled device: %w", d.queue.Len(), core.ErrSynchronizationTimeout)
	}
	for !d.queue.IsEmpty() {
		if err := d.executeNext(); err != nil {
			return err
		}
	}
	return d.lost
}

func (d *Device) Destroy() error {
	if err := d.WaitIdle(); err != nil {
		core.LogWarn("software device destroyed with pending work: %s", err.Error())
	}
	d.swapchain = nil
	core.LogInfo("software device destroyed after %d submissions", d.stats.Submissions)
	return nil
}

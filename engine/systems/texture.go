package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framecore/engine/assets"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

const DefaultTextureName = "default"

// Texture is a sampled RGBA image. Until its pixels are uploaded it shares the image of the
// default texture.
type Texture struct {
	Name   string
	Image  renderer.ImageHandle
	Width  uint32
	Height uint32
	// Incremented on every upload. Zero while the default image is used.
	Generation uint32

	refCount    uint32
	autoRelease bool
	loading     bool
}

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
	/** @brief Flip images vertically on load. */
	FlipY bool
}

type pendingTextureUpload struct {
	texture *Texture
	data    *metadata.ImageResourceData
}

type TextureSystem struct {
	Config         *TextureSystemConfig
	DefaultTexture *Texture
	// Hashtable for texture lookups.
	registeredTextures map[string]*Texture

	// decoded images waiting for staging capacity
	uploads []pendingTextureUpload
	retired retireQueue

	// sub systems
	jobSystem    *JobSystem
	assetManager *assets.AssetManager
	registry     *renderer.Registry
	ring         *renderer.FrameRing
}

// NewTextureSystem creates the system. am may be nil, in which case every texture but the
// default one fails to load.
func NewTextureSystem(config *TextureSystemConfig, js *JobSystem, am *assets.AssetManager, registry *renderer.Registry, ring *renderer.FrameRing) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	return &TextureSystem{
		Config:             config,
		registeredTextures: make(map[string]*Texture),
		retired:            retireQueue{ring: ring},
		jobSystem:          js,
		assetManager:       am,
		registry:           registry,
		ring:               ring,
	}, nil
}

// CheckerboardPixels returns a size x size RGBA8 checkerboard of cell x cell squares.
func CheckerboardPixels(size, cell uint32, a, b [4]uint8) []uint8 {
	pixels := make([]uint8, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				pixels = append(pixels, a[:]...)
			} else {
				pixels = append(pixels, b[:]...)
			}
		}
	}
	return pixels
}

// Initialize creates the default texture, a magenta and black checkerboard.
func (ts *TextureSystem) Initialize() error {
	const size = 64
	pixels := CheckerboardPixels(size, 8, [4]uint8{255, 0, 255, 255}, [4]uint8{0, 0, 0, 255})

	t := &Texture{Name: DefaultTextureName}
	data := &metadata.ImageResourceData{ChannelCount: 4, Width: size, Height: size, Pixels: pixels}
	if err := ts.scheduleUpload(t, data); err != nil {
		err = fmt.Errorf("failed to create the default texture: %w", err)
		core.LogError(err.Error())
		return err
	}
	ts.DefaultTexture = t
	return nil
}

// Acquire returns the texture called name, a path relative to the asset directory, loading
// it in the background the first time. Every call must be matched by a Release.
func (ts *TextureSystem) Acquire(name string, autoRelease bool) (*Texture, error) {
	if name == DefaultTextureName {
		core.LogWarn("texture system Acquire called for the default texture, use DefaultTexture instead")
		return ts.DefaultTexture, nil
	}
	if t, ok := ts.registeredTextures[name]; ok {
		t.refCount++
		return t, nil
	}
	if uint32(len(ts.registeredTextures)) >= ts.Config.MaxTextureCount {
		err := fmt.Errorf("cannot register texture %s, %d textures loaded: %w", name, len(ts.registeredTextures), core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return nil, err
	}

	t := &Texture{
		Name:        name,
		Image:       ts.DefaultTexture.Image,
		Width:       ts.DefaultTexture.Width,
		Height:      ts.DefaultTexture.Height,
		refCount:    1,
		autoRelease: autoRelease,
	}
	ts.registeredTextures[name] = t
	if err := ts.load(t); err != nil {
		delete(ts.registeredTextures, name)
		return nil, err
	}
	return t, nil
}

// Get returns a registered texture without touching its reference count.
func (ts *TextureSystem) Get(name string) (*Texture, bool) {
	t, ok := ts.registeredTextures[name]
	return t, ok
}

// Release drops a reference. Auto release textures are destroyed with their last one.
func (ts *TextureSystem) Release(name string) {
	t, ok := ts.registeredTextures[name]
	if !ok {
		core.LogWarn("texture system Release called for unknown texture %s", name)
		return
	}
	if t.refCount > 0 {
		t.refCount--
	}
	if t.refCount > 0 || !t.autoRelease {
		return
	}
	delete(ts.registeredTextures, name)
	ts.retireImage(t)
	core.LogDebug("texture %s released", name)
}

// Reload uploads the asset again, typically after it changed on disk.
func (ts *TextureSystem) Reload(name string) error {
	t, ok := ts.registeredTextures[name]
	if !ok || t.loading {
		return nil
	}
	core.LogInfo("reloading texture %s", name)
	return ts.load(t)
}

func (ts *TextureSystem) load(t *Texture) error {
	if ts.assetManager == nil {
		err := fmt.Errorf("cannot load texture %s without an asset directory", t.Name)
		core.LogError(err.Error())
		return err
	}
	t.loading = true
	name := t.Name
	return ts.jobSystem.Submit(metadata.JobTask{
		Name: "texture:" + name,
		OnStart: func(params interface{}) (interface{}, error) {
			return ts.assetManager.LoadAsset(name, params)
		},
		OnComplete: func(result interface{}) {
			res := result.(*metadata.Resource)
			data, ok := res.Data.(*metadata.ImageResourceData)
			if !ok {
				t.loading = false
				core.LogError("asset %s is not an image", name)
				return
			}
			if err := ts.scheduleUpload(t, data); err != nil {
				if errors.Is(err, core.ErrCapacityExceeded) {
					ts.uploads = append(ts.uploads, pendingTextureUpload{texture: t, data: data})
					return
				}
				t.loading = false
			}
		},
		OnFailure: func(err error) {
			t.loading = false
			core.LogWarn("texture %s failed to load, keeping the current image: %s", name, err)
		},
		InputParams: &metadata.ImageResourceParams{FlipY: ts.Config.FlipY},
	})
}

// scheduleUpload creates a new image for data and queues the copy on the next frame to
// start. The previous image of t is retired.
func (ts *TextureSystem) scheduleUpload(t *Texture, data *metadata.ImageResourceData) error {
	extent := metadata.Extent3D{Width: data.Width, Height: data.Height, Depth: 1}
	format := data.Format()

	handle, err := ts.registry.CreateNamedImage("texture-"+t.Name, extent, format, metadata.ImageUsageSampled|metadata.ImageUsageTransferDst)
	if err != nil {
		return err
	}
	if err := ts.registry.ScheduleImageUpload(data.Pixels, format, extent, handle, metadata.Offset3D{}, ts.ring.UploadFrame()); err != nil {
		// nothing recorded the image yet
		_ = ts.registry.DestroyImage(handle)
		return err
	}

	ts.retireImage(t)
	t.Image = handle
	t.Width, t.Height = data.Width, data.Height
	t.Generation++
	t.loading = false
	core.LogDebug("texture %s uploading, generation %d", t.Name, t.Generation)
	return nil
}

func (ts *TextureSystem) retireImage(t *Texture) {
	if t.Generation == 0 {
		return
	}
	handle := t.Image
	ts.retired.retire(func() {
		if err := ts.registry.DestroyImage(handle); err != nil {
			core.LogWarn("retired image of texture %s: %s", t.Name, err)
		}
	})
}

// Update retries uploads that hit the staging limits and destroys retired images.
func (ts *TextureSystem) Update() {
	for len(ts.uploads) > 0 {
		u := ts.uploads[0]
		if err := ts.scheduleUpload(u.texture, u.data); err != nil {
			if errors.Is(err, core.ErrCapacityExceeded) {
				break
			}
			u.texture.loading = false
		}
		ts.uploads = ts.uploads[1:]
	}
	ts.retired.flush()
}

// Shutdown destroys every texture. Only call it once the device is idle.
func (ts *TextureSystem) Shutdown() error {
	ts.retired.drain()
	for name, t := range ts.registeredTextures {
		if t.Generation > 0 {
			if err := ts.registry.DestroyImage(t.Image); err != nil {
				core.LogWarn("texture %s: %s", name, err)
			}
		}
	}
	ts.registeredTextures = map[string]*Texture{}
	ts.uploads = nil
	if ts.DefaultTexture != nil {
		if err := ts.registry.DestroyImage(ts.DefaultTexture.Image); err != nil {
			return err
		}
		ts.DefaultTexture = nil
	}
	return nil
}

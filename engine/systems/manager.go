package systems

import (
	"errors"
	"os"

	"github.com/spaghettifunk/framecore/engine/assets"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type SystemManagerConfig struct {
	Workers         int
	AssetDir        string
	MaxTextureCount uint32
	MaxMeshCount    uint32
	FlipY           bool
}

// SystemManager owns the engine side systems. Every method must be called from the goroutine
// that records frames.
type SystemManager struct {
	JobSystem     *JobSystem
	AssetManager  *assets.AssetManager
	TextureSystem *TextureSystem
	MeshSystem    *MeshSystem
	// OnShaderModified is called with the asset name of every shader changed on disk.
	OnShaderModified func(name string)
}

func NewSystemManager(config SystemManagerConfig, registry *renderer.Registry, ring *renderer.FrameRing) (*SystemManager, error) {
	js, err := NewJobSystem(config.Workers, int(config.MaxTextureCount))
	if err != nil {
		return nil, err
	}

	// run without assets when the directory is missing, everything procedural still works
	var am *assets.AssetManager
	if config.AssetDir != "" {
		am, err = assets.NewAssetManager(config.AssetDir, 64)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				js.Shutdown()
				return nil, err
			}
			core.LogWarn("asset directory %s not found, running without assets", config.AssetDir)
			am = nil
		}
	}

	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
		FlipY:           config.FlipY,
	}, js, am, registry, ring)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ms, err := NewMeshSystem(&MeshSystemConfig{
		MaxMeshCount: config.MaxMeshCount,
	}, registry, ring)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		JobSystem:     js,
		AssetManager:  am,
		TextureSystem: ts,
		MeshSystem:    ms,
	}, nil
}

func (sm *SystemManager) Initialize() error {
	return sm.TextureSystem.Initialize()
}

// Update forwards asset changes, runs finished job callbacks and releases retired resources.
// Call it once per tick before the frame starts.
func (sm *SystemManager) Update() {
	sm.drainAssetEvents()
	sm.JobSystem.Update()
	sm.TextureSystem.Update()
	sm.MeshSystem.Update()
}

func (sm *SystemManager) drainAssetEvents() {
	if sm.AssetManager == nil {
		return
	}
	for {
		select {
		case e, ok := <-sm.AssetManager.Events():
			if !ok {
				return
			}
			if e.Kind != assets.AssetModified {
				continue
			}
			switch e.Type {
			case metadata.ResourceTypeImage:
				if err := sm.TextureSystem.Reload(e.Path); err != nil {
					core.LogWarn("failed to reload texture %s: %s", e.Path, err)
				}
			case metadata.ResourceTypeShader:
				if sm.OnShaderModified != nil {
					sm.OnShaderModified(e.Path)
				}
			}
		default:
			return
		}
	}
}

// Shutdown stops the workers first so no callback runs against a destroyed system. Only call
// it once the device is idle.
func (sm *SystemManager) Shutdown() error {
	sm.JobSystem.Shutdown()
	if sm.AssetManager != nil {
		if err := sm.AssetManager.Close(); err != nil {
			core.LogWarn("failed to close the asset manager: %s", err)
		}
	}
	if err := sm.MeshSystem.Shutdown(); err != nil {
		return err
	}
	return sm.TextureSystem.Shutdown()
}

package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/framecore/engine/assets/loaders"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetInfo struct {
	// Path relative to the asset directory, with forward slashes.
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
	Modified   time.Time
}

type AssetEventKind int

const (
	AssetCreated AssetEventKind = iota
	AssetModified
	AssetRemoved
)

// AssetEvent reports a change of a watched asset.
type AssetEvent struct {
	Path string
	Type metadata.ResourceType
	Kind AssetEventKind
}

// AssetManager indexes every known asset under a directory, keeps the index current with
// fsnotify and loads assets through the loader registered for their type.
type AssetManager struct {
	dir     string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	events   chan AssetEvent
}

// NewAssetManager indexes dir and starts watching it. Events that nobody consumes are
// dropped once eventBuffer events are queued.
func NewAssetManager(dir string, eventBuffer int) (*AssetManager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError("failed to create the asset watcher: %s", err)
		return nil, err
	}

	am := &AssetManager{
		dir:      abs,
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		events:   make(chan AssetEvent, eventBuffer),
		done:     make(chan struct{}),
	}

	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	if err := am.watchRecursive(abs, false); err != nil {
		fsWatch.Close()
		core.LogError("failed to watch %s: %s", abs, err)
		return nil, err
	}

	am.wg.Add(1)
	go am.start()

	core.LogInfo("asset manager watching %s (%d assets)", abs, len(am.assets))
	return am, nil
}

// Events delivers created, modified and removed assets.
func (am *AssetManager) Events() <-chan AssetEvent {
	return am.events
}

func (am *AssetManager) Dir() string {
	return am.dir
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Lookup returns the index entry of an asset.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(name)]
	return info, ok
}

// Assets lists the indexed assets of a type.
func (am *AssetManager) Assets(resourceType metadata.ResourceType) []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var out []AssetInfo
	for _, a := range am.assets {
		if a.Type == resourceType {
			out = append(out, a)
		}
	}
	return out
}

// LoadAsset loads name, a path relative to the asset directory. It is safe to call from
// job workers.
func (am *AssetManager) LoadAsset(name string, params interface{}) (*metadata.Resource, error) {
	key := filepath.ToSlash(name)

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("%s: %w", key, ErrAssetNotFound)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type %s", asset.Type)
	}

	res, err := loader.Load(filepath.Join(am.dir, filepath.FromSlash(key)), params)
	if err != nil {
		return nil, err
	}
	res.Name = key
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	loader, ok := am.loaders[res.Type]
	if !ok {
		return nil
	}
	return loader.Unload(res)
}

// Close stops the watcher. Events is closed once the watcher goroutine exits.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			close(am.events)
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}

	switch {
	case e.Has(fsnotify.Create):
		if info, ok := am.indexFile(e.Name); ok {
			am.emit(AssetEvent{Path: info.Path, Type: info.Type, Kind: AssetCreated})
		}
	case e.Has(fsnotify.Write):
		if info, ok := am.indexFile(e.Name); ok {
			am.emit(AssetEvent{Path: info.Path, Type: info.Type, Kind: AssetModified})
		}
	case e.Has(fsnotify.Remove), e.Has(fsnotify.Rename):
		// Can't stat a deleted entry, the watch of a removed directory goes away on its own.
		if info, ok := am.removeAsset(e.Name); ok {
			am.emit(AssetEvent{Path: info.Path, Type: info.Type, Kind: AssetRemoved})
		}
	}
}

func (am *AssetManager) emit(e AssetEvent) {
	select {
	case am.events <- e:
	default:
		core.LogWarn("asset event for %s dropped, nobody is reading events", e.Path)
	}
}

// watchRecursive adds all directories under the given one to the watch list and indexes
// their files.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		if !unWatch {
			am.indexFile(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// indexFile records the creation or modification of a file.
func (am *AssetManager) indexFile(path string) (AssetInfo, bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return AssetInfo{}, false
	}
	rel, ok := am.relative(path)
	if !ok {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[rel]
	info.Path = rel
	info.Type = assetType
	info.Modified = time.Now()
	am.assets[rel] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) (AssetInfo, bool) {
	rel, ok := am.relative(path)
	if !ok {
		return AssetInfo{}, false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, ok := am.assets[rel]
	delete(am.assets, rel)
	return info, ok
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".spv":
		return metadata.ResourceTypeShader
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}

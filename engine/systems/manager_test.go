package systems

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirv(words ...uint32) []byte {
	out := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(out, 0x07230203)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*(i+1):], w)
	}
	return out
}

func TestSystemManagerWithoutAssetDir(t *testing.T) {
	tr := newTestRenderer(t, 0)
	sm, err := NewSystemManager(SystemManagerConfig{
		Workers:         1,
		AssetDir:        filepath.Join(t.TempDir(), "missing"),
		MaxTextureCount: 8,
		MaxMeshCount:    8,
	}, tr.reg, tr.ring)
	require.NoError(t, err)
	assert.Nil(t, sm.AssetManager)

	require.NoError(t, sm.Initialize())
	tr.tick(t, sm.Update)
	require.NoError(t, tr.dev.WaitIdle())
	require.NoError(t, sm.Shutdown())
}

func TestSystemManagerForwardsShaderChanges(t *testing.T) {
	dir := t.TempDir()
	shader := filepath.Join(dir, "shaders", "gradient.spv")
	require.NoError(t, os.MkdirAll(filepath.Dir(shader), 0o755))
	require.NoError(t, os.WriteFile(shader, spirv(1), 0o644))

	tr := newTestRenderer(t, 0)
	sm, err := NewSystemManager(SystemManagerConfig{
		Workers:         2,
		AssetDir:        dir,
		MaxTextureCount: 8,
		MaxMeshCount:    8,
	}, tr.reg, tr.ring)
	require.NoError(t, err)
	require.NotNil(t, sm.AssetManager)
	require.NoError(t, sm.Initialize())
	defer sm.Shutdown()

	var changed []string
	sm.OnShaderModified = func(name string) { changed = append(changed, name) }

	require.NoError(t, os.WriteFile(shader, spirv(1, 2), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for len(changed) == 0 && time.Now().Before(deadline) {
		sm.Update()
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, changed)
	assert.Equal(t, "shaders/gradient.spv", changed[0])
}

package loaders

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

const spirvMagic = 0x07230203

// BinaryLoader reads a file as raw bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read %s: %s", path, err)
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeBinary,
		Name:     path,
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// ShaderLoader reads a compiled SPIR-V module and checks its header.
type ShaderLoader struct {
	BinaryLoader
}

func (sl *ShaderLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	res, err := sl.BinaryLoader.Load(path, params)
	if err != nil {
		return nil, err
	}
	code := res.Data.([]byte)
	if len(code) < 4 || len(code)%4 != 0 || binary.LittleEndian.Uint32(code) != spirvMagic {
		err := fmt.Errorf("%s is not a spir-v module: %w", path, core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	res.Type = metadata.ResourceTypeShader
	return res, nil
}

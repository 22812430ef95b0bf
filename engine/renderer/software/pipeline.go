package software

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

const spirvMagic = 0x07230203

type pipelineData struct {
	id               uint64
	layouts          []*metadata.DescriptorSetLayout
	pushConstantSize uint32
	destroyed        bool
}

var _ renderer.PipelineFactory = (*Device)(nil)

// CreateComputePipeline only validates the SPIR-V header; dispatches do not run shaders.
func (d *Device) CreateComputePipeline(name string, code []byte, layouts []*metadata.DescriptorSetLayout, pushConstantSize uint32) (*metadata.Pipeline, error) {
	if len(code) < 4 || len(code)%4 != 0 || binary.LittleEndian.Uint32(code) != spirvMagic {
		err := fmt.Errorf("pipeline %s: code is not spir-v: %w", name, core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	if pushConstantSize > 128 {
		err := fmt.Errorf("pipeline %s: push constant block of %d bytes exceeds 128: %w", name, pushConstantSize, core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	d.stats.Pipelines++
	return &metadata.Pipeline{
		Name:    name,
		Compute: true,
		InternalData: &pipelineData{
			id:               d.id(),
			layouts:          layouts,
			pushConstantSize: pushConstantSize,
		},
	}, nil
}

func (d *Device) DestroyPipeline(pipeline *metadata.Pipeline) {
	p, ok := pipeline.InternalData.(*pipelineData)
	if !ok || p.destroyed {
		d.violation("pipeline %s destroyed twice", pipeline.Name)
		return
	}
	p.destroyed = true
	d.stats.Pipelines--
}

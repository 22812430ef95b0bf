package renderer

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// MaxLayoutBindings is the number of bindings a DescriptorLayoutBuilder accepts.
const MaxLayoutBindings = 8

// DescriptorLayoutBuilder collects bindings and creates a set layout from them.
type DescriptorLayoutBuilder struct {
	bindings []metadata.DescriptorBinding
}

func (b *DescriptorLayoutBuilder) AddBinding(binding uint32, kind metadata.DescriptorType) error {
	if len(b.bindings) == MaxLayoutBindings {
		err := fmt.Errorf("descriptor layout already has %d bindings: %w", MaxLayoutBindings, core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return err
	}
	b.bindings = append(b.bindings, metadata.DescriptorBinding{
		Binding: binding,
		Type:    kind,
		Count:   1,
	})
	return nil
}

func (b *DescriptorLayoutBuilder) Clear() {
	b.bindings = b.bindings[:0]
}

// Build creates the layout, making every binding visible to stages.
func (b *DescriptorLayoutBuilder) Build(device Device, stages metadata.ShaderStage) (*metadata.DescriptorSetLayout, error) {
	bindings := make([]metadata.DescriptorBinding, len(b.bindings))
	copy(bindings, b.bindings)
	for i := range bindings {
		bindings[i].Stages |= stages
	}
	layout, err := device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		err = fmt.Errorf("failed to build descriptor set layout: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

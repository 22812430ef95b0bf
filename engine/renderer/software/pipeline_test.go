package software

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

func spirv(words int) []byte {
	code := make([]byte, 4*words)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	return code
}

func newComputePipeline(t *testing.T, d *Device, pushConstantSize uint32) *metadata.Pipeline {
	t.Helper()
	layout, err := d.CreateDescriptorSetLayout([]metadata.DescriptorBinding{
		{Binding: 0, Type: metadata.DescriptorTypeStorageImage, Count: 1, Stages: metadata.ShaderStageCompute},
	})
	require.NoError(t, err)
	pipeline, err := d.CreateComputePipeline("test", spirv(5), []*metadata.DescriptorSetLayout{layout}, pushConstantSize)
	require.NoError(t, err)
	return pipeline
}

func dispatch(t *testing.T, d *Device, pipeline *metadata.Pipeline, constants []byte) {
	t.Helper()
	cmd, err := d.CreateCommandBuffer()
	require.NoError(t, err)
	require.NoError(t, cmd.Begin())
	cmd.BindPipeline(pipeline)
	cmd.PushConstants(pipeline, metadata.ShaderStageCompute, constants)
	cmd.Dispatch(4, 4, 1)
	require.NoError(t, cmd.End())
	require.NoError(t, d.Submit(cmd, nil, nil, nil))
}

func TestCreateComputePipelineValidatesInput(t *testing.T) {
	d := New()

	_, err := d.CreateComputePipeline("garbage", []byte("not a shader"), nil, 0)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	_, err = d.CreateComputePipeline("short", spirv(5)[:6], nil, 0)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	_, err = d.CreateComputePipeline("fat", spirv(5), nil, 256)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	assert.Zero(t, d.Stats().Pipelines)
}

func TestDispatchRunsOnTheTimeline(t *testing.T) {
	d := New()
	pipeline := newComputePipeline(t, d, 16)
	assert.Equal(t, 1, d.Stats().Pipelines)

	dispatch(t, d, pipeline, make([]byte, 16))
	assert.Zero(t, d.Stats().Dispatches)

	require.NoError(t, d.WaitIdle())
	assert.Equal(t, 1, d.Stats().Dispatches)
	assert.Empty(t, d.Violations())
}

func TestOversizedPushConstantsLoseTheDevice(t *testing.T) {
	d := New()
	pipeline := newComputePipeline(t, d, 8)

	dispatch(t, d, pipeline, make([]byte, 16))
	err := d.WaitIdle()
	assert.ErrorIs(t, err, core.ErrDeviceLost)
	assert.True(t, core.IsFatal(err))
	assert.Zero(t, d.Stats().Dispatches)
}

func TestPipelineUsedAfterDestroy(t *testing.T) {
	d := New()
	pipeline := newComputePipeline(t, d, 0)

	dispatch(t, d, pipeline, nil)
	d.DestroyPipeline(pipeline)
	assert.Zero(t, d.Stats().Pipelines)

	assert.ErrorIs(t, d.WaitIdle(), core.ErrDeviceLost)
}

func TestDestroyPipelineTwiceIsAViolation(t *testing.T) {
	d := New()
	pipeline := newComputePipeline(t, d, 0)

	d.DestroyPipeline(pipeline)
	d.DestroyPipeline(pipeline)
	assert.Len(t, d.Violations(), 1)
	assert.Zero(t, d.Stats().Pipelines)
}

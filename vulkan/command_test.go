package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/mocks"
)

func recordingBuffer(handle core1_0.CommandBuffer) *CommandBuffer {
	buffer := &CommandBuffer{handle: handle, pool: &CommandPool{}, recording: true}
	buffer.refCounted = newRefCounted("command buffer", buffer.destroy)
	return buffer
}

func expectReset(handle *mocks.MockCommandBuffer) *gomock.Call {
	return handle.EXPECT().Reset(core1_0.CommandBufferResetFlags(0)).Return(core1_0.VKSuccess, nil)
}

func trackedPipeline(destroyed *int) *Pipeline {
	pipeline := &Pipeline{}
	pipeline.refCounted = newRefCounted("graphics pipeline", func() { *destroyed++ })
	return pipeline
}

func TestCommandBufferMisuseWhileRecording(t *testing.T) {
	buffer := recordingBuffer(nil)
	require.True(t, buffer.Recording())

	require.Panics(t, func() { _, _ = buffer.Record() })
	require.Panics(t, func() { _ = buffer.Submit(nil, SubmitOptions{}) })
	require.Panics(t, buffer.Release)
}

func TestCommandBufferKeepsPipelinesAlive(t *testing.T) {
	destroyed := 0
	pipeline := trackedPipeline(&destroyed)
	buffer := &CommandBuffer{}

	buffer.retainPipeline(pipeline)
	pipeline.Release()
	require.Equal(t, 0, destroyed)
	require.True(t, pipeline.Alive())

	buffer.releasePipelines()
	require.Equal(t, 1, destroyed)
	require.Empty(t, buffer.pipelines)
}

func TestRecorderEndReturnsFirstError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handle := mocks.NewMockCommandBuffer(ctrl)
	expectReset(handle).Times(1)

	buffer := recordingBuffer(handle)
	recorder := &Recorder{buffer: buffer}

	pipeline := &Pipeline{}
	recorder.PushConstants(pipeline, core1_0.StageVertex, []byte{1, 2, 3, 4})
	require.Error(t, recorder.err)

	first := recorder.err
	recorder.BindPipeline(nil).Draw(3).EndRenderPass()
	require.Equal(t, first, recorder.err)

	require.Equal(t, first, recorder.End())
	require.False(t, buffer.Recording())
}

func TestRecorderRejectsOversizedPushConstants(t *testing.T) {
	recorder := &Recorder{buffer: recordingBuffer(nil)}
	pipeline := &Pipeline{ranges: []core1_0.PushConstantRange{
		{StageFlags: core1_0.StageFragment, Offset: 0, Size: 4},
	}}

	recorder.PushConstants(pipeline, core1_0.StageFragment, make([]byte, 8))
	require.Error(t, recorder.err)
	require.Contains(t, recorder.err.Error(), "exceed")
}

func TestRecorderSkipsEmptyPushConstants(t *testing.T) {
	recorder := &Recorder{buffer: recordingBuffer(nil)}
	recorder.PushConstants(&Pipeline{}, core1_0.StageFragment, nil)
	require.NoError(t, recorder.err)
}

func TestRecorderUsedAfterEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handle := mocks.NewMockCommandBuffer(ctrl)
	expectReset(handle)

	buffer := recordingBuffer(handle)
	recorder := &Recorder{buffer: buffer, err: errors.New("begin failed")}
	require.Error(t, recorder.End())

	require.Panics(t, func() { recorder.Draw(3) })
	require.Panics(t, func() { _ = recorder.End() })
}

func TestRecorderDrawOutsideRenderPass(t *testing.T) {
	recorder := &Recorder{buffer: recordingBuffer(nil)}
	require.Panics(t, func() { recorder.Draw(3) })
	require.Panics(t, func() { recorder.EndRenderPass() })
}

func TestRecorderEndInsideRenderPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handle := mocks.NewMockCommandBuffer(ctrl)
	expectReset(handle)

	buffer := recordingBuffer(handle)
	recorder := &Recorder{buffer: buffer, inRenderPass: true}
	require.Error(t, recorder.End())
	require.False(t, buffer.Recording())
}

func TestRecorderEndCombinesResetFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handle := mocks.NewMockCommandBuffer(ctrl)
	handle.EXPECT().Reset(core1_0.CommandBufferResetFlags(0)).Return(core1_0.VKErrorOutOfDeviceMemory, errors.New("reset failed"))

	recorder := &Recorder{buffer: recordingBuffer(handle), err: errors.New("push failed")}
	err := recorder.End()
	require.Error(t, err)
	require.Contains(t, err.Error(), "push failed")
}

func TestCommandBufferRecordsAgainAfterFailedRecording(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handle := mocks.NewMockCommandBuffer(ctrl)
	gomock.InOrder(
		handle.EXPECT().Begin(core1_0.CommandBufferBeginInfo{}).Return(core1_0.VKSuccess, nil),
		expectReset(handle),
		handle.EXPECT().Begin(core1_0.CommandBufferBeginInfo{}).Return(core1_0.VKSuccess, nil),
		handle.EXPECT().End().Return(core1_0.VKSuccess, nil),
	)

	buffer := &CommandBuffer{handle: handle, pool: &CommandPool{}}
	recorder, err := buffer.Record()
	require.NoError(t, err)
	recorder.PushConstants(&Pipeline{}, core1_0.StageVertex, []byte{1, 2, 3, 4})
	require.Error(t, recorder.End())
	require.False(t, buffer.Recording())

	recorder, err = buffer.Record()
	require.NoError(t, err)
	require.NoError(t, recorder.End())
}

func TestRecorderBindReleasedPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handle := mocks.NewMockCommandBuffer(ctrl)
	expectReset(handle)

	destroyed := 0
	pipeline := trackedPipeline(&destroyed)
	pipeline.Release()
	require.Equal(t, 1, destroyed)

	recorder := &Recorder{buffer: recordingBuffer(handle)}
	require.NotPanics(t, func() { recorder.BindPipeline(pipeline).Draw(3) })
	require.ErrorIs(t, recorder.err, ErrResourceReleased)
	require.Nil(t, recorder.bound)
	require.ErrorIs(t, recorder.End(), ErrResourceReleased)
}

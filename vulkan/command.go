package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// CommandPoolOptions tunes how the buffers of a pool are used.
type CommandPoolOptions struct {
	// Transient marks buffers that are re-recorded frequently.
	Transient bool

	// SubmitOnce begins every recording as one-time-submit. Such buffers
	// must be recorded again before each submission.
	SubmitOnce bool
}

// CommandPool allocates command buffers for the queue family behind one
// role. Buffers can be reset individually.
type CommandPool struct {
	*refCounted

	handle     core1_0.CommandPool
	device     *LogicalDevice
	role       QueueFamily
	submitOnce bool
}

func NewCommandPool(device *LogicalDevice, role QueueFamily, opts CommandPoolOptions) (*CommandPool, error) {
	family, err := device.physical.QueueFamilyIndex(role)
	if err != nil {
		return nil, err
	}

	flags := core1_0.CommandPoolCreateResetBuffer
	if opts.Transient {
		flags |= core1_0.CommandPoolCreateTransient
	}

	handle, res, err := device.handle.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: family,
		Flags:            flags,
	})
	if err != nil {
		return nil, resultError(OpCreateCommandPool, res, err)
	}

	device.Retain()
	pool := &CommandPool{
		handle:     handle,
		device:     device,
		role:       role,
		submitOnce: opts.SubmitOnce,
	}
	pool.refCounted = newRefCounted("command pool", func() {
		pool.handle.Destroy(nil)
		pool.device.Release()
	})
	return pool, nil
}

// Allocate creates count primary command buffers. Each one keeps the pool
// alive until it is released.
func (p *CommandPool) Allocate(count int) ([]*CommandBuffer, error) {
	handles, res, err := p.device.handle.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        p.handle,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, resultError(OpAllocateCommandBuffers, res, err)
	}

	buffers := make([]*CommandBuffer, 0, len(handles))
	for _, handle := range handles {
		p.Retain()
		buffer := &CommandBuffer{handle: handle, pool: p}
		buffer.refCounted = newRefCounted("command buffer", buffer.destroy)
		buffers = append(buffers, buffer)
	}
	return buffers, nil
}

// CommandBuffer is a primary command buffer. While recording it must not
// be recorded again, submitted or destroyed; doing so panics.
type CommandBuffer struct {
	*refCounted

	handle    core1_0.CommandBuffer
	pool      *CommandPool
	recording bool

	// Pipelines bound during the last recording. They stay alive until the
	// buffer is recorded again, which only happens after the GPU is done
	// with it.
	pipelines []*Pipeline
}

func (b *CommandBuffer) destroy() {
	if b.recording {
		panic("command buffer destroyed while it was still being recorded")
	}
	b.releasePipelines()
	b.pool.device.handle.FreeCommandBuffers([]core1_0.CommandBuffer{b.handle})
	b.pool.Release()
}

func (b *CommandBuffer) retainPipeline(pipeline *Pipeline) {
	pipeline.Retain()
	b.pipelines = append(b.pipelines, pipeline)
}

func (b *CommandBuffer) releasePipelines() {
	for _, pipeline := range b.pipelines {
		pipeline.Release()
	}
	b.pipelines = nil
}

// Recording reports whether Record was called without a matching End.
func (b *CommandBuffer) Recording() bool {
	return b.recording
}

// Record starts a new recording, discarding the previous contents.
func (b *CommandBuffer) Record() (*Recorder, error) {
	if b.recording {
		panic("command buffer recorded again before the previous recording ended")
	}
	b.releasePipelines()

	var flags core1_0.CommandBufferUsageFlags
	if b.pool.submitOnce {
		flags = core1_0.CommandBufferUsageOneTimeSubmit
	}

	res, err := b.handle.Begin(core1_0.CommandBufferBeginInfo{
		Flags: flags,
	})
	if err != nil {
		return nil, resultError(OpBeginCommandBuffer, res, err)
	}
	b.recording = true
	return &Recorder{buffer: b}, nil
}

// SubmitOptions describe how a submission is ordered against other work.
// WaitStages pairs with WaitSemaphores.
type SubmitOptions struct {
	WaitSemaphores   []*Semaphore
	WaitStages       []core1_0.PipelineStageFlags
	SignalSemaphores []*Semaphore

	// Fence, if set, is signaled once the buffer finished executing.
	Fence *Fence
}

// Submit hands the recorded buffer to queue.
func (b *CommandBuffer) Submit(queue core1_0.Queue, opts SubmitOptions) error {
	if b.recording {
		panic("command buffer submitted while it was still being recorded")
	}
	if len(opts.WaitStages) != len(opts.WaitSemaphores) {
		return errors.Newf("submit: %d wait stages for %d wait semaphores", len(opts.WaitStages), len(opts.WaitSemaphores))
	}

	var fence core1_0.Fence
	if opts.Fence != nil {
		fence = opts.Fence.handle
	}

	res, err := queue.Submit(fence, []core1_0.SubmitInfo{
		{
			WaitSemaphores:   semaphoreHandles(opts.WaitSemaphores),
			WaitDstStageMask: opts.WaitStages,
			CommandBuffers:   []core1_0.CommandBuffer{b.handle},
			SignalSemaphores: semaphoreHandles(opts.SignalSemaphores),
		},
	})
	if err != nil {
		return resultError(OpQueueSubmit, res, err)
	}
	return nil
}

func (b *CommandBuffer) Handle() core1_0.CommandBuffer {
	return b.handle
}

// Recorder appends commands to a buffer in order. The first failure is
// kept and returned by End; commands after it are skipped.
type Recorder struct {
	buffer       *CommandBuffer
	inRenderPass bool
	bound        *Pipeline
	err          error
}

func (r *Recorder) active() bool {
	if !r.buffer.recording {
		panic("recorder used after its recording ended")
	}
	return r.err == nil
}

// BeginRenderPass starts pass on the framebuffer of swapchain image
// imageIndex, clearing it to clearColor.
func (r *Recorder) BeginRenderPass(pass *RenderPass, framebuffers *Framebuffers, imageIndex int, clearColor [4]float32) *Recorder {
	if !r.active() {
		return r
	}
	if r.inRenderPass {
		panic("render pass begun inside another render pass")
	}

	err := r.buffer.handle.CmdBeginRenderPass(core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  pass.handle,
		Framebuffer: framebuffers.Framebuffer(imageIndex),
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: framebuffers.Extent(),
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat(clearColor),
		},
	})
	if err != nil {
		r.err = resultError(OpBeginRenderPass, core1_0.VKErrorUnknown, err)
		return r
	}
	r.inRenderPass = true
	return r
}

// BindPipeline binds pipeline for the following draws and keeps it alive
// for as long as this recording may execute. A nil or already destroyed
// pipeline fails the recording with ErrResourceReleased.
func (r *Recorder) BindPipeline(pipeline *Pipeline) *Recorder {
	if !r.active() {
		return r
	}
	if pipeline == nil || pipeline.refCounted == nil || !pipeline.Alive() {
		r.err = errors.Wrap(ErrResourceReleased, "bind pipeline")
		return r
	}
	r.buffer.handle.CmdBindPipeline(core1_0.PipelineBindPointGraphics, pipeline.handle)
	r.buffer.retainPipeline(pipeline)
	r.bound = pipeline
	return r
}

// PushConstants writes data into the push constant range pipeline declares
// for stage.
func (r *Recorder) PushConstants(pipeline *Pipeline, stage core1_0.ShaderStageFlags, data []byte) *Recorder {
	if !r.active() {
		return r
	}
	if len(data) == 0 {
		return r
	}

	declared, ok := pipeline.PushConstantRange(stage)
	if !ok {
		r.err = errors.Newf("pipeline declares no push constants for stage %s", stage)
		return r
	}
	if len(data) > declared.Size {
		r.err = errors.Newf("push constants of %d bytes exceed the %d bytes declared for stage %s", len(data), declared.Size, stage)
		return r
	}

	r.buffer.handle.CmdPushConstants(pipeline.layout, stage, 0, data)
	return r
}

// Draw issues a non-indexed draw of a single instance.
func (r *Recorder) Draw(vertexCount int) *Recorder {
	if !r.active() {
		return r
	}
	if !r.inRenderPass || r.bound == nil {
		panic("draw recorded without a bound pipeline inside a render pass")
	}
	r.buffer.handle.CmdDraw(vertexCount, 1, 0, 0)
	return r
}

func (r *Recorder) EndRenderPass() *Recorder {
	if !r.active() {
		return r
	}
	if !r.inRenderPass {
		panic("render pass ended without being begun")
	}
	r.buffer.handle.CmdEndRenderPass()
	r.inRenderPass = false
	return r
}

// End finishes the recording. It returns the first error met while
// recording, in which case the buffer is reset and must be recorded again
// before it can be submitted.
func (r *Recorder) End() error {
	if !r.buffer.recording {
		panic("recording ended twice")
	}
	r.buffer.recording = false

	err := r.err
	if err == nil && r.inRenderPass {
		err = errors.New("recording ended inside a render pass")
	}
	if err != nil {
		if res, resetErr := r.buffer.handle.Reset(0); resetErr != nil {
			err = errors.CombineErrors(err, resultError(OpResetCommandBuffer, res, resetErr))
		}
		return err
	}

	res, err := r.buffer.handle.End()
	if err != nil {
		return resultError(OpEndCommandBuffer, res, err)
	}
	return nil
}

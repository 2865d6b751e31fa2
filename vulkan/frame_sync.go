package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
)

// FrameSync orders one frame in flight. The image-acquired semaphore gates
// color output of the submission, the image-rendered semaphore gates
// presentation, and the fence tells the CPU the slot may be reused.
type FrameSync struct {
	*refCounted

	device        *LogicalDevice
	imageAcquired *Semaphore
	imageRendered *Semaphore
	complete      *Fence
}

// NewFrameSync creates the semaphores and an already signaled fence, so
// the first wait on the slot returns right away.
func NewFrameSync(device *LogicalDevice) (*FrameSync, error) {
	sync := &FrameSync{device: device}

	var err error
	if sync.imageAcquired, err = NewSemaphore(device); err != nil {
		return nil, err
	}
	if sync.imageRendered, err = NewSemaphore(device); err != nil {
		sync.imageAcquired.Release()
		return nil, err
	}
	if sync.complete, err = NewFence(device, true); err != nil {
		sync.imageRendered.Release()
		sync.imageAcquired.Release()
		return nil, err
	}

	sync.refCounted = newRefCounted("frame sync", func() {
		sync.complete.Release()
		sync.imageRendered.Release()
		sync.imageAcquired.Release()
	})
	return sync, nil
}

// Wait blocks until the last submission of this slot finished executing.
func (s *FrameSync) Wait() error {
	_, err := s.complete.Wait(common.NoTimeout)
	return err
}

// Acquire gets the next swapchain image, signaling the image-acquired
// semaphore once it may be rendered to.
func (s *FrameSync) Acquire(swapchain *Swapchain) (int, error) {
	return swapchain.AcquireNextImage(s.imageAcquired)
}

// Submit resets the fence and submits buffer to queue. If the submission
// fails the fence is replaced with a signaled one, so the next Wait on the
// slot does not block forever.
func (s *FrameSync) Submit(queue core1_0.Queue, buffer *CommandBuffer) error {
	if err := s.complete.Reset(); err != nil {
		return err
	}

	err := buffer.Submit(queue, SubmitOptions{
		WaitSemaphores:   []*Semaphore{s.imageAcquired},
		WaitStages:       []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		SignalSemaphores: []*Semaphore{s.imageRendered},
		Fence:            s.complete,
	})
	if err == nil {
		return nil
	}

	replacement, fenceErr := NewFence(s.device, true)
	if fenceErr != nil {
		return errors.CombineErrors(err, fenceErr)
	}
	s.complete.Release()
	s.complete = replacement
	return err
}

// Present queues image on queue once the image-rendered semaphore is
// signaled.
func (s *FrameSync) Present(swapchain *Swapchain, queue core1_0.Queue, image int) error {
	return swapchain.Present(queue, image, s.imageRendered)
}

func (s *FrameSync) Fence() *Fence {
	return s.complete
}

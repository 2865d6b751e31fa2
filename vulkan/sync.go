package vulkan

import (
	"time"

	"github.com/vkngwrapper/core/core1_0"
)

// Semaphore orders work between queues on the GPU.
type Semaphore struct {
	*refCounted

	handle core1_0.Semaphore
	device *LogicalDevice
}

func NewSemaphore(device *LogicalDevice) (*Semaphore, error) {
	handle, res, err := device.handle.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, resultError(OpCreateSemaphore, res, err)
	}

	device.Retain()
	semaphore := &Semaphore{handle: handle, device: device}
	semaphore.refCounted = newRefCounted("semaphore", func() {
		semaphore.handle.Destroy(nil)
		semaphore.device.Release()
	})
	return semaphore, nil
}

func (s *Semaphore) Handle() core1_0.Semaphore {
	return s.handle
}

func semaphoreHandles(semaphores []*Semaphore) []core1_0.Semaphore {
	handles := make([]core1_0.Semaphore, 0, len(semaphores))
	for _, semaphore := range semaphores {
		handles = append(handles, semaphore.handle)
	}
	return handles
}

// Fence lets the CPU observe that submitted GPU work has finished.
type Fence struct {
	*refCounted

	handle core1_0.Fence
	device *LogicalDevice
}

// NewFence creates a fence, already signaled when signaled is set so the
// first wait on it returns immediately.
func NewFence(device *LogicalDevice, signaled bool) (*Fence, error) {
	var options core1_0.FenceCreateInfo
	if signaled {
		options.Flags = core1_0.FenceCreateSignaled
	}

	handle, res, err := device.handle.CreateFence(nil, options)
	if err != nil {
		return nil, resultError(OpCreateFence, res, err)
	}

	device.Retain()
	fence := &Fence{handle: handle, device: device}
	fence.refCounted = newRefCounted("fence", func() {
		fence.handle.Destroy(nil)
		fence.device.Release()
	})
	return fence, nil
}

// Wait blocks until the fence is signaled or timeout passes. A timeout is
// reported as core1_0.VKTimeout with a nil error.
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	res, err := f.device.handle.WaitForFences(true, timeout, []core1_0.Fence{f.handle})
	if err != nil {
		return false, resultError(OpWaitForFence, res, err)
	}
	return res != core1_0.VKTimeout, nil
}

// Reset returns the fence to the unsignaled state.
func (f *Fence) Reset() error {
	res, err := f.device.handle.ResetFences([]core1_0.Fence{f.handle})
	if err != nil {
		return resultError(OpResetFence, res, err)
	}
	return nil
}

// Ready reports whether the fence is signaled without blocking.
func (f *Fence) Ready() (bool, error) {
	res, err := f.handle.Status()
	if err != nil {
		return false, resultError(OpFenceStatus, res, err)
	}
	return res == core1_0.VKSuccess, nil
}

func (f *Fence) Handle() core1_0.Fence {
	return f.handle
}

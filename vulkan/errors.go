package vulkan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
)

var (
	ErrSuitableDeviceNotFound        = errors.New("failed to find a GPU fulfilling all criteria")
	ErrQueueFamilyNotSupported       = errors.New("physical device does not support the requested queue family")
	ErrValidationLayersNotAvailable  = errors.New("requested validation layers are not available")
	ErrInstanceExtensionNotAvailable = errors.New("requested instance extension is not available")
	ErrMissingField                  = errors.New("required field was not set")
	ErrInvalidBytecode               = errors.New("invalid SPIR-V bytecode")
	ErrResourceReleased              = errors.New("resource was used after it was released")
)

// Operation names the native call a ResultError originated from.
type Operation string

const (
	OpCreateInstance            Operation = "create instance"
	OpEnumerateExtensions       Operation = "enumerate instance extensions"
	OpEnumerateLayers           Operation = "enumerate instance layers"
	OpCreateDebugMessenger      Operation = "create debug messenger"
	OpCreateSurface             Operation = "create surface"
	OpEnumeratePhysicalDevices  Operation = "enumerate physical devices"
	OpEnumerateDeviceExtensions Operation = "enumerate device extensions"
	OpQueryDeviceProperties     Operation = "query physical device properties"
	OpQuerySurfaceSupport       Operation = "query surface presentation support"
	OpQuerySurfaceCapabilities  Operation = "query surface capabilities"
	OpQuerySurfaceFormats       Operation = "query surface formats"
	OpQuerySurfacePresentModes  Operation = "query surface present modes"
	OpCreateDevice              Operation = "create logical device"
	OpDeviceWaitIdle            Operation = "wait for device idle"
	OpCreateSwapchain           Operation = "create swapchain"
	OpGetSwapchainImages        Operation = "get swapchain images"
	OpCreateImageView           Operation = "create image view"
	OpCreateRenderPass          Operation = "create render pass"
	OpCreateShaderModule        Operation = "create shader module"
	OpCreatePipelineLayout      Operation = "create pipeline layout"
	OpCreatePipeline            Operation = "create graphics pipeline"
	OpCreateFramebuffer         Operation = "create framebuffer"
	OpCreateCommandPool         Operation = "create command pool"
	OpAllocateCommandBuffers    Operation = "allocate command buffers"
	OpBeginCommandBuffer        Operation = "begin command buffer"
	OpBeginRenderPass           Operation = "begin render pass"
	OpEndCommandBuffer          Operation = "end command buffer"
	OpResetCommandBuffer        Operation = "reset command buffer"
	OpCreateSemaphore           Operation = "create semaphore"
	OpCreateFence               Operation = "create fence"
	OpWaitForFence              Operation = "wait for fence"
	OpResetFence                Operation = "reset fence"
	OpFenceStatus               Operation = "query fence status"
	OpAcquireNextImage          Operation = "acquire next swapchain image"
	OpQueueSubmit               Operation = "submit to queue"
	OpQueuePresent              Operation = "present to queue"
)

// ResultError reports a native call that did not succeed, along with the
// result code the driver returned.
type ResultError struct {
	Op     Operation
	Result common.VkResult
	cause  error
}

func (e *ResultError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("failed to %s (%s): %v", e.Op, e.Result, e.cause)
	}
	return fmt.Sprintf("failed to %s: %s", e.Op, e.Result)
}

func (e *ResultError) Unwrap() error {
	return e.cause
}

func resultError(op Operation, result common.VkResult, cause error) error {
	return errors.WithStack(&ResultError{Op: op, Result: result, cause: cause})
}

// IsOperation reports whether err carries a ResultError for op.
func IsOperation(err error, op Operation) bool {
	var resultErr *ResultError
	if !errors.As(err, &resultErr) {
		return false
	}
	return resultErr.Op == op
}

func missingField(component, field string) error {
	return errors.Wrapf(ErrMissingField, "%s: %s", component, field)
}

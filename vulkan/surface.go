package vulkan

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
)

// Window is the windowing system the renderer presents into.
type Window interface {
	CreateSurface(instance core1_0.Instance, extension khr_surface.Extension) (khr_surface.Surface, error)
	FramebufferSize() (width, height int)
}

// SurfaceProperties is a fresh snapshot of what a physical device can do
// with a surface.
type SurfaceProperties struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// Surface binds a window's native surface to a DeviceContext.
type Surface struct {
	*refCounted

	handle  khr_surface.Surface
	context *DeviceContext
	window  Window
}

func NewSurface(ctx *DeviceContext, window Window) (*Surface, error) {
	if window == nil {
		return nil, missingField("surface", "window")
	}

	extension := khr_surface.CreateExtensionFromInstance(ctx.instance)
	handle, err := window.CreateSurface(ctx.instance, extension)
	if err != nil {
		return nil, resultError(OpCreateSurface, core1_0.VKErrorUnknown, err)
	}

	ctx.Retain()
	surface := &Surface{
		handle:  handle,
		context: ctx,
		window:  window,
	}
	surface.refCounted = newRefCounted("surface", func() {
		surface.handle.Destroy(nil)
		surface.context.Release()
	})
	return surface, nil
}

// SupportsPresentation reports whether the given queue family of device
// can present to this surface.
func (s *Surface) SupportsPresentation(device core1_0.PhysicalDevice, queueFamily int) (bool, error) {
	supported, res, err := s.handle.PhysicalDeviceSurfaceSupport(device, queueFamily)
	if err != nil {
		return false, resultError(OpQuerySurfaceSupport, res, err)
	}
	return supported, nil
}

// Properties queries the surface capabilities, formats and present modes
// for device. Nothing is cached.
func (s *Surface) Properties(device *PhysicalDevice) (SurfaceProperties, error) {
	var props SurfaceProperties

	capabilities, res, err := s.handle.PhysicalDeviceSurfaceCapabilities(device.handle)
	if err != nil {
		return props, resultError(OpQuerySurfaceCapabilities, res, err)
	}
	props.Capabilities = capabilities

	props.Formats, res, err = s.handle.PhysicalDeviceSurfaceFormats(device.handle)
	if err != nil {
		return props, resultError(OpQuerySurfaceFormats, res, err)
	}

	props.PresentModes, res, err = s.handle.PhysicalDeviceSurfacePresentModes(device.handle)
	if err != nil {
		return props, resultError(OpQuerySurfacePresentModes, res, err)
	}

	return props, nil
}

// FramebufferSize is the current drawable size of the window behind the
// surface, in pixels.
func (s *Surface) FramebufferSize() (int, int) {
	return s.window.FramebufferSize()
}

func (s *Surface) Handle() khr_surface.Surface {
	return s.handle
}

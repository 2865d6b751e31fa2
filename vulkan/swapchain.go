package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"golang.org/x/exp/slog"
)

// Swapchain owns the presentable images of a surface and one view per
// image. It is never recreated.
type Swapchain struct {
	*refCounted

	handle      khr_swapchain.Swapchain
	extension   khr_swapchain.Extension
	device      *LogicalDevice
	surface     *Surface
	format      khr_surface.SurfaceFormat
	extent      core1_0.Extent2D
	presentMode khr_surface.PresentMode
	images      []core1_0.Image
	imageViews  []core1_0.ImageView
}

func NewSwapchain(physical *PhysicalDevice, device *LogicalDevice, surface *Surface, vsync bool) (*Swapchain, error) {
	if device.swapchainExtension == nil {
		return nil, errors.Newf("device was created without %s", khr_swapchain.ExtensionName)
	}

	props, err := surface.Properties(physical)
	if err != nil {
		return nil, err
	}
	if len(props.Formats) == 0 {
		return nil, errors.New("surface reports no supported formats")
	}

	format := chooseSurfaceFormat(props.Formats)
	extent := chooseExtent(props.Capabilities, surface.FramebufferSize)
	presentMode := choosePresentMode(props.PresentModes, vsync)
	imageCount := chooseImageCount(props.Capabilities)
	sharingMode, sharedFamilies := chooseSharingMode(physical.queueFamilies)

	handle, res, err := device.swapchainExtension.CreateSwapchain(device.handle, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: surface.handle,

		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: sharedFamilies,

		PreTransform:   props.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return nil, resultError(OpCreateSwapchain, res, err)
	}

	swapchain := &Swapchain{
		handle:      handle,
		extension:   device.swapchainExtension,
		device:      device,
		surface:     surface,
		format:      format,
		extent:      extent,
		presentMode: presentMode,
	}

	swapchain.images, res, err = handle.SwapchainImages()
	if err != nil {
		handle.Destroy(nil)
		return nil, resultError(OpGetSwapchainImages, res, err)
	}

	for _, image := range swapchain.images {
		view, res, err := device.handle.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   format.Format,
			Components: core1_0.ComponentMapping{
				R: core1_0.ComponentSwizzleIdentity,
				G: core1_0.ComponentSwizzleIdentity,
				B: core1_0.ComponentSwizzleIdentity,
				A: core1_0.ComponentSwizzleIdentity,
			},
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			swapchain.destroyHandles()
			return nil, resultError(OpCreateImageView, res, err)
		}
		swapchain.imageViews = append(swapchain.imageViews, view)
	}

	device.Retain()
	surface.Retain()
	swapchain.refCounted = newRefCounted("swapchain", func() {
		swapchain.destroyHandles()
		swapchain.surface.Release()
		swapchain.device.Release()
	})

	device.logger().Debug("created swapchain",
		slog.Int("width", extent.Width),
		slog.Int("height", extent.Height),
		slog.Int("images", len(swapchain.images)),
		slog.Any("presentMode", presentMode),
		slog.Bool("concurrent", sharingMode == core1_0.SharingModeConcurrent))
	return swapchain, nil
}

// Views go first since they reference images the swapchain owns.
func (s *Swapchain) destroyHandles() {
	for _, view := range s.imageViews {
		view.Destroy(nil)
	}
	s.imageViews = nil
	s.handle.Destroy(nil)
}

// chooseSurfaceFormat takes the first pair the surface reports.
func chooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	return formats[0]
}

// A current extent width of 0xFFFFFFFF means the surface size is decided
// by the swapchain, so the window's drawable size is used.
func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, framebufferSize func() (int, int)) core1_0.Extent2D {
	if uint32(capabilities.CurrentExtent.Width) != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	width, height := framebufferSize()
	return core1_0.Extent2D{Width: width, Height: height}
}

// choosePresentMode looks for mailbox with vsync and immediate without,
// and settles for FIFO, which every surface supports.
func choosePresentMode(modes []khr_surface.PresentMode, vsync bool) khr_surface.PresentMode {
	preferred := khr_surface.PresentModeImmediate
	if vsync {
		preferred = khr_surface.PresentModeMailbox
	}

	for _, mode := range modes {
		if mode == preferred {
			return mode
		}
	}
	return khr_surface.PresentModeFIFO
}

// A max image count of zero means there is no upper bound.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

// Images are shared between the graphics and transfer families when those
// are different families.
func chooseSharingMode(indices QueueFamilyIndices) (core1_0.SharingMode, []int) {
	graphics, hasGraphics := indices.Index(QueueFamilyGraphics)
	transfer, hasTransfer := indices.Index(QueueFamilyTransfer)
	if !hasGraphics || !hasTransfer || graphics == transfer {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{graphics, transfer}
}

// AcquireNextImage asks for the next presentable image and signals
// imageAcquired once it may be rendered to. It waits as long as needed.
func (s *Swapchain) AcquireNextImage(imageAcquired *Semaphore) (int, error) {
	index, res, err := s.handle.AcquireNextImage(common.NoTimeout, imageAcquired.handle, nil)
	if err != nil {
		return 0, resultError(OpAcquireNextImage, res, err)
	}
	return index, nil
}

// Present queues image for presentation on queue once every semaphore in
// waitFor is signaled.
func (s *Swapchain) Present(queue core1_0.Queue, imageIndex int, waitFor ...*Semaphore) error {
	res, err := s.extension.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: semaphoreHandles(waitFor),
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{imageIndex},
	})
	if err != nil {
		return resultError(OpQueuePresent, res, err)
	}
	return nil
}

func (s *Swapchain) Format() khr_surface.SurfaceFormat {
	return s.format
}

func (s *Swapchain) Extent() core1_0.Extent2D {
	return s.extent
}

func (s *Swapchain) PresentMode() khr_surface.PresentMode {
	return s.presentMode
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

func (s *Swapchain) ImageViews() []core1_0.ImageView {
	return s.imageViews
}

func (s *Swapchain) Device() *LogicalDevice {
	return s.device
}

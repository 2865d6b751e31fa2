package vulkan

import (
	"github.com/vkngwrapper/core/core1_0"
)

// Framebuffers holds one framebuffer per swapchain image, each binding that
// image's view to the render pass.
type Framebuffers struct {
	*refCounted

	handles    []core1_0.Framebuffer
	device     *LogicalDevice
	renderPass *RenderPass
	swapchain  *Swapchain
}

func NewFramebuffers(device *LogicalDevice, renderPass *RenderPass, swapchain *Swapchain) (*Framebuffers, error) {
	framebuffers := &Framebuffers{
		device:     device,
		renderPass: renderPass,
		swapchain:  swapchain,
	}

	for _, imageView := range swapchain.imageViews {
		handle, res, err := device.handle.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: renderPass.handle,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				imageView,
			},
			Width:  swapchain.extent.Width,
			Height: swapchain.extent.Height,
		})
		if err != nil {
			framebuffers.destroyHandles()
			return nil, resultError(OpCreateFramebuffer, res, err)
		}
		framebuffers.handles = append(framebuffers.handles, handle)
	}

	device.Retain()
	renderPass.Retain()
	swapchain.Retain()
	framebuffers.refCounted = newRefCounted("framebuffers", func() {
		framebuffers.destroyHandles()
		framebuffers.swapchain.Release()
		framebuffers.renderPass.Release()
		framebuffers.device.Release()
	})
	return framebuffers, nil
}

func (f *Framebuffers) destroyHandles() {
	for _, handle := range f.handles {
		handle.Destroy(nil)
	}
	f.handles = nil
}

// Framebuffer returns the framebuffer of swapchain image imageIndex.
func (f *Framebuffers) Framebuffer(imageIndex int) core1_0.Framebuffer {
	return f.handles[imageIndex]
}

func (f *Framebuffers) Len() int {
	return len(f.handles)
}

// Extent is the size shared by every framebuffer in the set.
func (f *Framebuffers) Extent() core1_0.Extent2D {
	return f.swapchain.extent
}

package vulkan

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

// RenderPass describes a single subpass drawing into one color attachment
// in the swapchain's format. The attachment is cleared on load, stored, and
// left ready for presentation.
type RenderPass struct {
	*refCounted

	handle core1_0.RenderPass
	device *LogicalDevice
	format core1_0.Format
}

func NewRenderPass(device *LogicalDevice, swapchain *Swapchain) (*RenderPass, error) {
	format := swapchain.format.Format

	handle, res, err := device.handle.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		// The layout transition must not start before the acquired image
		// is released by the presentation engine.
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	if err != nil {
		return nil, resultError(OpCreateRenderPass, res, err)
	}

	device.Retain()
	renderPass := &RenderPass{
		handle: handle,
		device: device,
		format: format,
	}
	renderPass.refCounted = newRefCounted("render pass", func() {
		renderPass.handle.Destroy(nil)
		renderPass.device.Release()
	})
	return renderPass, nil
}

func (p *RenderPass) Handle() core1_0.RenderPass {
	return p.handle
}

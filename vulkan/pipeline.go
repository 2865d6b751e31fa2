package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"golang.org/x/exp/slog"
)

// PushConstantSizes is the payload size in bytes each stage declares.
// A zero size means the stage takes no push constants.
type PushConstantSizes struct {
	Geometry int
	Vertex   int
	Fragment int
}

// PipelineOptions lists everything a graphics pipeline is built from.
// Fixed function state is not configurable: triangle lists, no culling,
// clockwise front faces, one sample and no blending.
type PipelineOptions struct {
	RenderPass *RenderPass
	Subpass    int

	// Swapchain sets the viewport and scissor to its full extent.
	Swapchain *Swapchain

	Geometry *Shader[Geometry]
	Vertex   *Shader[Vertex]
	Fragment *Shader[Fragment]

	PushConstants PushConstantSizes

	VertexBindings   []core1_0.VertexInputBindingDescription
	VertexAttributes []core1_0.VertexInputAttributeDescription
}

func (o PipelineOptions) validate() error {
	if o.RenderPass == nil {
		return missingField("pipeline", "RenderPass")
	}
	if o.Swapchain == nil {
		return missingField("pipeline", "Swapchain")
	}
	if o.Geometry == nil && o.Vertex == nil && o.Fragment == nil {
		return missingField("pipeline", "shader stages")
	}
	if o.PushConstants.Geometry < 0 || o.PushConstants.Vertex < 0 || o.PushConstants.Fragment < 0 {
		return errors.New("pipeline: push constant sizes must not be negative")
	}
	return nil
}

// Pipeline owns a graphics pipeline and its layout.
type Pipeline struct {
	*refCounted

	handle     core1_0.Pipeline
	layout     core1_0.PipelineLayout
	device     *LogicalDevice
	renderPass *RenderPass
	ranges     []core1_0.PushConstantRange

	// Shader modules are kept until the pipeline goes away.
	shaders []interface{ Release() }
}

func NewPipeline(device *LogicalDevice, opts PipelineOptions) (*Pipeline, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ranges := pushConstantRanges(opts)
	if limit := device.physical.maxPushConstants; limit > 0 {
		for _, r := range ranges {
			if r.Size > limit {
				return nil, errors.Newf("pipeline: push constants of %d bytes exceed the device limit of %d", r.Size, limit)
			}
		}
	}

	layout, res, err := device.handle.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		PushConstantRanges: ranges,
	})
	if err != nil {
		return nil, resultError(OpCreatePipelineLayout, res, err)
	}

	extent := opts.Swapchain.extent
	pipelines, res, err := device.handle.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: shaderStages(opts),
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   opts.VertexBindings,
				VertexAttributeDescriptions: opts.VertexAttributes,
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{
					{
						X:        0,
						Y:        0,
						Width:    float32(extent.Width),
						Height:   float32(extent.Height),
						MinDepth: 0,
						MaxDepth: 1,
					},
				},
				Scissors: []core1_0.Rect2D{
					{
						Offset: core1_0.Offset2D{X: 0, Y: 0},
						Extent: extent,
					},
				},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				DepthClampEnable:        false,
				RasterizerDiscardEnable: false,

				PolygonMode: core1_0.PolygonModeFill,
				FrontFace:   core1_0.FrontFaceClockwise,

				DepthBiasEnable: false,

				LineWidth: 1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				SampleShadingEnable:  false,
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOpEnabled: false,
				LogicOp:        core1_0.LogicOpCopy,

				BlendConstants: [4]float32{0, 0, 0, 0},
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						BlendEnabled:   false,
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			Layout:            layout,
			RenderPass:        opts.RenderPass.handle,
			Subpass:           opts.Subpass,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		layout.Destroy(nil)
		return nil, resultError(OpCreatePipeline, res, err)
	}

	pipeline := &Pipeline{
		handle:     pipelines[0],
		layout:     layout,
		device:     device,
		renderPass: opts.RenderPass,
		ranges:     ranges,
	}
	device.Retain()
	opts.RenderPass.Retain()
	if opts.Geometry != nil {
		opts.Geometry.Retain()
		pipeline.shaders = append(pipeline.shaders, opts.Geometry)
	}
	if opts.Vertex != nil {
		opts.Vertex.Retain()
		pipeline.shaders = append(pipeline.shaders, opts.Vertex)
	}
	if opts.Fragment != nil {
		opts.Fragment.Retain()
		pipeline.shaders = append(pipeline.shaders, opts.Fragment)
	}
	pipeline.refCounted = newRefCounted("graphics pipeline", pipeline.destroy)

	device.logger().Debug("created graphics pipeline",
		slog.Int("stages", len(pipeline.shaders)),
		slog.Int("pushConstantRanges", len(ranges)))
	return pipeline, nil
}

func (p *Pipeline) destroy() {
	p.handle.Destroy(nil)
	p.layout.Destroy(nil)
	for _, shader := range p.shaders {
		shader.Release()
	}
	p.renderPass.Release()
	p.device.Release()
}

// shaderStages lists the attached stages in pipeline order.
func shaderStages(opts PipelineOptions) []core1_0.PipelineShaderStageCreateInfo {
	var stages []core1_0.PipelineShaderStageCreateInfo
	if opts.Vertex != nil {
		stages = append(stages, opts.Vertex.StageInfo())
	}
	if opts.Geometry != nil {
		stages = append(stages, opts.Geometry.StageInfo())
	}
	if opts.Fragment != nil {
		stages = append(stages, opts.Fragment.StageInfo())
	}
	return stages
}

// pushConstantRanges gives every attached stage with a nonzero payload a
// range of its own starting at offset 0.
func pushConstantRanges(opts PipelineOptions) []core1_0.PushConstantRange {
	var ranges []core1_0.PushConstantRange
	add := func(attached bool, flags core1_0.ShaderStageFlags, size int) {
		if !attached || size == 0 {
			return
		}
		ranges = append(ranges, core1_0.PushConstantRange{
			StageFlags: flags,
			Offset:     0,
			Size:       size,
		})
	}
	add(opts.Geometry != nil, Geometry{}.Flags(), opts.PushConstants.Geometry)
	add(opts.Vertex != nil, Vertex{}.Flags(), opts.PushConstants.Vertex)
	add(opts.Fragment != nil, Fragment{}.Flags(), opts.PushConstants.Fragment)
	return ranges
}

// PushConstantRange returns the range declared for stage, if any.
func (p *Pipeline) PushConstantRange(stage core1_0.ShaderStageFlags) (core1_0.PushConstantRange, bool) {
	for _, r := range p.ranges {
		if r.StageFlags == stage {
			return r, true
		}
	}
	return core1_0.PushConstantRange{}, false
}

func (p *Pipeline) Handle() core1_0.Pipeline {
	return p.handle
}

func (p *Pipeline) Layout() core1_0.PipelineLayout {
	return p.layout
}

package rendering

import (
	"bytes"
	"encoding/binary"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/magmacraft/vulkan"
)

// NoConstants is the payload type of a stage that takes no push constants.
type NoConstants struct{}

// StagePayload is the push constant data queued for one shader stage.
type StagePayload struct {
	Stage core1_0.ShaderStageFlags
	Data  []byte
}

// Drawable is anything the renderer can draw in a frame.
type Drawable interface {
	Pipeline() *vulkan.Pipeline
	// PushConstants lists queued payloads in geometry, vertex, fragment
	// order.
	PushConstants() []StagePayload
	VertexCount() int
	// Generation changes whenever a payload is pushed.
	Generation() uint64
}

// RenderStateOptions describe the shader program of a render state.
type RenderStateOptions struct {
	Shaders vulkan.ShaderBytecode

	// VertexCount is the number of vertices drawn. Defaults to 3.
	VertexCount int

	VertexBindings   []core1_0.VertexInputBindingDescription
	VertexAttributes []core1_0.VertexInputAttributeDescription
}

// RenderState is one draw call: a pipeline plus the push constants queued
// for its geometry (G), vertex (V) and fragment (F) stages. Payload types
// must have a fixed size, zero-sized types such as NoConstants take no
// push constant range.
type RenderState[G, V, F any] struct {
	pipeline    *vulkan.Pipeline
	sizes       vulkan.PushConstantSizes
	vertexCount int
	payloads    map[core1_0.ShaderStageFlags][]byte
	generation  uint64
}

func NewRenderState[G, V, F any](renderer *Renderer, opts RenderStateOptions) (*RenderState[G, V, F], error) {
	sizes, err := payloadSizes[G, V, F]()
	if err != nil {
		return nil, err
	}
	if opts.Shaders.Geometry == nil {
		sizes.Geometry = 0
	}
	if opts.Shaders.Vertex == nil {
		sizes.Vertex = 0
	}
	if opts.Shaders.Fragment == nil {
		sizes.Fragment = 0
	}

	pipelineOptions := vulkan.PipelineOptions{
		RenderPass:       renderer.renderPass,
		Swapchain:        renderer.swapchain,
		PushConstants:    sizes,
		VertexBindings:   opts.VertexBindings,
		VertexAttributes: opts.VertexAttributes,
	}

	// The pipeline holds on to the modules, ours are dropped on return.
	if opts.Shaders.Geometry != nil {
		shader, err := vulkan.NewShader[vulkan.Geometry](renderer.device, opts.Shaders.Geometry)
		if err != nil {
			return nil, err
		}
		defer shader.Release()
		pipelineOptions.Geometry = shader
	}
	if opts.Shaders.Vertex != nil {
		shader, err := vulkan.NewShader[vulkan.Vertex](renderer.device, opts.Shaders.Vertex)
		if err != nil {
			return nil, err
		}
		defer shader.Release()
		pipelineOptions.Vertex = shader
	}
	if opts.Shaders.Fragment != nil {
		shader, err := vulkan.NewShader[vulkan.Fragment](renderer.device, opts.Shaders.Fragment)
		if err != nil {
			return nil, err
		}
		defer shader.Release()
		pipelineOptions.Fragment = shader
	}

	pipeline, err := vulkan.NewPipeline(renderer.device, pipelineOptions)
	if err != nil {
		return nil, err
	}
	return newRenderState[G, V, F](pipeline, sizes, opts.VertexCount), nil
}

func newRenderState[G, V, F any](pipeline *vulkan.Pipeline, sizes vulkan.PushConstantSizes, vertexCount int) *RenderState[G, V, F] {
	if vertexCount <= 0 {
		vertexCount = 3
	}
	return &RenderState[G, V, F]{
		pipeline:    pipeline,
		sizes:       sizes,
		vertexCount: vertexCount,
		payloads:    make(map[core1_0.ShaderStageFlags][]byte, 3),
	}
}

func payloadSizes[G, V, F any]() (vulkan.PushConstantSizes, error) {
	var sizes vulkan.PushConstantSizes
	var err error
	if sizes.Geometry, err = payloadSize[G](); err != nil {
		return sizes, err
	}
	if sizes.Vertex, err = payloadSize[V](); err != nil {
		return sizes, err
	}
	if sizes.Fragment, err = payloadSize[F](); err != nil {
		return sizes, err
	}
	return sizes, nil
}

func payloadSize[T any]() (int, error) {
	var value T
	size := binary.Size(value)
	if size < 0 {
		return 0, errors.Newf("push constant type %s has no fixed size", reflect.TypeOf(value))
	}
	// Push constant ranges are sized in multiples of 4 bytes.
	if size%4 != 0 {
		return 0, errors.Newf("push constant type %s is %d bytes, not a multiple of 4", reflect.TypeOf(value), size)
	}
	return size, nil
}

func (s *RenderState[G, V, F]) push(stage core1_0.ShaderStageFlags, size int, value any) error {
	if size == 0 {
		return nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	if err := binary.Write(buf, common.ByteOrder, value); err != nil {
		return errors.Wrap(err, "encode push constants")
	}
	s.payloads[stage] = buf.Bytes()
	s.generation++
	return nil
}

// PushGeometry queues the geometry stage payload for the next frames.
func (s *RenderState[G, V, F]) PushGeometry(value G) error {
	return s.push(vulkan.Geometry{}.Flags(), s.sizes.Geometry, value)
}

func (s *RenderState[G, V, F]) PushVertex(value V) error {
	return s.push(vulkan.Vertex{}.Flags(), s.sizes.Vertex, value)
}

func (s *RenderState[G, V, F]) PushFragment(value F) error {
	return s.push(vulkan.Fragment{}.Flags(), s.sizes.Fragment, value)
}

func (s *RenderState[G, V, F]) Pipeline() *vulkan.Pipeline {
	return s.pipeline
}

func (s *RenderState[G, V, F]) PushConstants() []StagePayload {
	var payloads []StagePayload
	for _, stage := range []core1_0.ShaderStageFlags{vulkan.Geometry{}.Flags(), vulkan.Vertex{}.Flags(), vulkan.Fragment{}.Flags()} {
		if data, ok := s.payloads[stage]; ok {
			payloads = append(payloads, StagePayload{Stage: stage, Data: data})
		}
	}
	return payloads
}

func (s *RenderState[G, V, F]) VertexCount() int {
	return s.vertexCount
}

func (s *RenderState[G, V, F]) Generation() uint64 {
	return s.generation
}

// Release drops the render state's hold on its pipeline. Frames still in
// flight keep the pipeline alive until they are done.
func (s *RenderState[G, V, F]) Release() {
	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
}

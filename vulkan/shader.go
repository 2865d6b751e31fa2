package vulkan

import (
	"bytes"
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"golang.org/x/sync/errgroup"
)

const (
	ShaderEntryPoint = "main"
	spirvMagic       = 0x07230203
)

// Stage tags a shader with the pipeline stage it runs in.
type Stage interface {
	Vertex | Fragment | Geometry
	Flags() core1_0.ShaderStageFlags
}

type Vertex struct{}

func (Vertex) Flags() core1_0.ShaderStageFlags { return core1_0.StageVertex }

type Fragment struct{}

func (Fragment) Flags() core1_0.ShaderStageFlags { return core1_0.StageFragment }

type Geometry struct{}

func (Geometry) Flags() core1_0.ShaderStageFlags { return core1_0.StageGeometry }

// Shader is a shader module for stage S.
type Shader[S Stage] struct {
	*refCounted

	module core1_0.ShaderModule
	device *LogicalDevice
}

func NewShader[S Stage](device *LogicalDevice, code []uint32) (*Shader[S], error) {
	if len(code) == 0 {
		return nil, errors.Wrap(ErrInvalidBytecode, "empty shader")
	}

	module, res, err := device.handle.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return nil, resultError(OpCreateShaderModule, res, err)
	}

	device.Retain()
	shader := &Shader[S]{module: module, device: device}
	shader.refCounted = newRefCounted("shader module", func() {
		shader.module.Destroy(nil)
		shader.device.Release()
	})
	return shader, nil
}

// StageInfo describes the shader for pipeline assembly.
func (s *Shader[S]) StageInfo() core1_0.PipelineShaderStageCreateInfo {
	var stage S
	return core1_0.PipelineShaderStageCreateInfo{
		Stage:  stage.Flags(),
		Module: s.module,
		Name:   ShaderEntryPoint,
	}
}

// DecodeBytecode reinterprets SPIR-V bytes as instruction words.
func DecodeBytecode(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidBytecode, "length %d is not a multiple of 4", len(data))
	}

	words := make([]uint32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), common.ByteOrder, words); err != nil {
		return nil, errors.Wrap(err, "decode bytecode")
	}
	if words[0] != spirvMagic {
		return nil, errors.Wrapf(ErrInvalidBytecode, "bad magic number %#08x", words[0])
	}
	return words, nil
}

// LoadBytecode reads a compiled shader from fsys.
func LoadBytecode(fsys fs.FS, name string) ([]uint32, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", name)
	}
	words, err := DecodeBytecode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return words, nil
}

// ShaderPaths names the compiled files of a shader program. Empty paths
// are skipped.
type ShaderPaths struct {
	Geometry string
	Vertex   string
	Fragment string
}

// ShaderBytecode holds the instruction words of a shader program.
type ShaderBytecode struct {
	Geometry []uint32
	Vertex   []uint32
	Fragment []uint32
}

// LoadShaderSet reads every stage of a program concurrently.
func LoadShaderSet(fsys fs.FS, paths ShaderPaths) (ShaderBytecode, error) {
	var code ShaderBytecode
	var group errgroup.Group

	load := func(path string, dst *[]uint32) {
		if path == "" {
			return
		}
		group.Go(func() error {
			words, err := LoadBytecode(fsys, path)
			if err != nil {
				return err
			}
			*dst = words
			return nil
		})
	}
	load(paths.Geometry, &code.Geometry)
	load(paths.Vertex, &code.Vertex)
	load(paths.Fragment, &code.Fragment)

	if err := group.Wait(); err != nil {
		return ShaderBytecode{}, err
	}
	return code, nil
}

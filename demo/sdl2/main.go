package main

//go:generate glslc shaders/triangle.vert -o shaders/triangle.vert.spv
//go:generate glslc shaders/triangle.frag -o shaders/triangle.frag.spv

import (
	"flag"
	"io/fs"
	"log"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/magmacraft/rendering"
	"github.com/vkngwrapper/magmacraft/vulkan"
	"github.com/vkngwrapper/magmacraft/window"
	"golang.org/x/exp/slog"
)

// trianglePush mirrors the push constant block of triangle.vert.
type trianglePush struct {
	Offset mgl32.Vec2
	Scale  float32
	_      float32
	Color  mgl32.Vec4
}

type triangleState = rendering.RenderState[rendering.NoConstants, trianglePush, rendering.NoConstants]

func main() {
	shaderDir := flag.String("shaders", "shaders", "directory holding the compiled SPIR-V shaders")
	debug := flag.Bool("debug", false, "enable the Khronos validation layer")
	vsync := flag.Bool("vsync", false, "prefer mailbox presentation over immediate")
	record := flag.String("record", rendering.RecordEveryFrame.String(), "command buffer recording: every-frame or on-change")
	stats := flag.Int("stats", 0, "log frame times every N frames, 0 disables")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config := rendering.DefaultConfig()
	config.Debug = *debug
	config.Vsync = *vsync
	config.StatsInterval = *stats
	config.Logger = logger

	mode, err := rendering.ParseRecordMode(*record)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
	config.RecordMode = mode

	if err := run(config, os.DirFS(*shaderDir)); err != nil {
		log.Fatalf("%+v\n", err)
	}
}

func run(config rendering.Config, shaders fs.FS) error {
	win, err := window.New(config.ApplicationName, window.DefaultWidth, window.DefaultHeight)
	if err != nil {
		return err
	}
	defer win.Destroy()

	loader, err := win.Loader()
	if err != nil {
		return err
	}

	renderer, err := rendering.NewRenderer(win, loader, config)
	if err != nil {
		return err
	}
	defer renderer.Close()

	code, err := vulkan.LoadShaderSet(shaders, vulkan.ShaderPaths{
		Vertex:   "triangle.vert.spv",
		Fragment: "triangle.frag.spv",
	})
	if err != nil {
		return err
	}

	var triangles []*triangleState
	for i := 0; i < 2; i++ {
		state, err := rendering.NewRenderState[rendering.NoConstants, trianglePush, rendering.NoConstants](renderer, rendering.RenderStateOptions{
			Shaders:     code,
			VertexCount: 3,
		})
		if err != nil {
			return err
		}
		defer state.Release()
		triangles = append(triangles, state)
	}

	colors := []mgl32.Vec4{
		{0.9, 0.3, 0.2, 1},
		{0.2, 0.6, 0.9, 1},
	}

	start := hrtime.Now()
	for win.Running() {
		win.PollEvents()

		elapsed := hrtime.Since(start).Seconds()
		for i, triangle := range triangles {
			angle := float32(elapsed) + float32(i)*math.Pi
			err = triangle.PushVertex(trianglePush{
				Offset: mgl32.Rotate2D(angle).Mul2x1(mgl32.Vec2{0.4, 0}),
				Scale:  0.5,
				Color:  colors[i],
			})
			if err != nil {
				return err
			}
		}

		if err := renderer.Render(triangles[0], triangles[1]); err != nil {
			return err
		}
	}

	return nil
}

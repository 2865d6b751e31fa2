// Package window provides an SDL2 window the renderer can present to.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Window is a fixed size SDL2 window with Vulkan support. Closing it or
// pressing Escape stops it from running.
type Window struct {
	handle  *sdl.Window
	running bool
}

func New(title string, width, height int) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "initialize sdl")
	}

	handle, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	return &Window{handle: handle, running: true}, nil
}

// Loader resolves Vulkan entry points through SDL's loader.
func (w *Window) Loader() (core.Loader, error) {
	loader, err := core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "create vulkan loader")
	}
	return loader, nil
}

func (w *Window) RequiredExtensions() []string {
	return w.handle.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance core1_0.Instance, extension khr_surface.Extension) (khr_surface.Surface, error) {
	return vkng_sdl2.CreateSurface(instance, extension, w.handle)
}

// FramebufferSize is the drawable size in pixels, which differs from the
// window size on high density displays.
func (w *Window) FramebufferSize() (int, int) {
	width, height := w.handle.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) Running() bool {
	return w.running
}

// PollEvents drains the SDL event queue.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.running = false
		case *sdl.KeyboardEvent:
			if e.State == sdl.PRESSED && e.Keysym.Sym == sdl.K_ESCAPE {
				w.running = false
			}
		}
	}
}

func (w *Window) Destroy() {
	w.handle.Destroy()
	sdl.Quit()
}

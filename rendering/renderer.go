package rendering

import (
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/magmacraft/vulkan"
	"golang.org/x/exp/slog"
)

// Window is the window the renderer draws into.
type Window interface {
	vulkan.Window
	// RequiredExtensions lists the instance extensions the window system
	// needs for presentation.
	RequiredExtensions() []string
}

var (
	requiredQueueFamilies = []vulkan.QueueFamily{
		vulkan.QueueFamilyGraphics,
		vulkan.QueueFamilyTransfer,
		vulkan.QueueFamilyPresentation,
	}
	requiredDeviceExtensions = []string{khr_swapchain.ExtensionName}
)

type releaser interface {
	Release()
}

// frameSlot is the synchronization of one frame in flight.
type frameSlot interface {
	releaser
	Wait() error
	Acquire(swapchain *vulkan.Swapchain) (int, error)
	Submit(queue core1_0.Queue, buffer *vulkan.CommandBuffer) error
	Present(swapchain *vulkan.Swapchain, queue core1_0.Queue, image int) error
}

// Renderer owns the device, the swapchain and everything needed to draw
// frames into it, and runs the frame loop.
type Renderer struct {
	config Config
	logger *slog.Logger

	context      *vulkan.DeviceContext
	surface      *vulkan.Surface
	physical     *vulkan.PhysicalDevice
	device       *vulkan.LogicalDevice
	swapchain    *vulkan.Swapchain
	renderPass   *vulkan.RenderPass
	framebuffers *vulkan.Framebuffers
	commandPool  *vulkan.CommandPool

	graphicsQueue     core1_0.Queue
	presentationQueue core1_0.Queue

	commandBuffers []*vulkan.CommandBuffer
	frames         []frameSlot

	// What each slot's command buffer currently holds, for RecordOnChange.
	recorded [FramesInFlight]*frameSignature

	scheduler frameScheduler
	stats     FrameStats

	// Everything created, in creation order.
	owned  []releaser
	closed bool
}

func NewRenderer(window Window, loader core.Loader, config Config) (*Renderer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		config: config,
		logger: config.logger(),
	}
	r.scheduler.backend = r

	if err := r.init(window, loader); err != nil {
		r.releaseOwned()
		return nil, err
	}

	r.logger.Info("renderer ready",
		slog.String("device", r.physical.Name()),
		slog.Int("swapchainImages", r.swapchain.ImageCount()),
		slog.String("recordMode", r.config.RecordMode.String()))
	return r, nil
}

func (r *Renderer) init(window Window, loader core.Loader) error {
	var err error

	r.context, err = vulkan.NewDeviceContext(loader, vulkan.ContextOptions{
		ApplicationName:    r.config.ApplicationName,
		ApplicationVersion: r.config.ApplicationVersion,
		Debug:              r.config.Debug,
		InstanceExtensions: window.RequiredExtensions(),
		Logger:             r.logger,
	})
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.context)

	r.surface, err = vulkan.NewSurface(r.context, window)
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.surface)

	r.physical, err = vulkan.SelectPhysicalDevice(r.context, vulkan.SelectorOptions{
		QueueFamilies: requiredQueueFamilies,
		Extensions:    requiredDeviceExtensions,
		Surface:       r.surface,
	})
	if err != nil {
		return err
	}

	r.device, err = vulkan.NewLogicalDevice(r.physical, requiredQueueFamilies)
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.device)
	r.graphicsQueue = r.device.Queue(vulkan.QueueFamilyGraphics)
	r.presentationQueue = r.device.Queue(vulkan.QueueFamilyPresentation)

	r.swapchain, err = vulkan.NewSwapchain(r.physical, r.device, r.surface, r.config.Vsync)
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.swapchain)

	r.renderPass, err = vulkan.NewRenderPass(r.device, r.swapchain)
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.renderPass)

	r.framebuffers, err = vulkan.NewFramebuffers(r.device, r.renderPass, r.swapchain)
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.framebuffers)

	everyFrame := r.config.RecordMode == RecordEveryFrame
	r.commandPool, err = vulkan.NewCommandPool(r.device, vulkan.QueueFamilyGraphics, vulkan.CommandPoolOptions{
		Transient:  everyFrame,
		SubmitOnce: everyFrame,
	})
	if err != nil {
		return err
	}
	r.owned = append(r.owned, r.commandPool)

	r.commandBuffers, err = r.commandPool.Allocate(FramesInFlight)
	if err != nil {
		return err
	}
	for _, buffer := range r.commandBuffers {
		r.owned = append(r.owned, buffer)
	}

	for i := 0; i < FramesInFlight; i++ {
		frame, err := vulkan.NewFrameSync(r.device)
		if err != nil {
			return err
		}
		r.owned = append(r.owned, frame)
		r.frames = append(r.frames, frame)
	}

	return nil
}

// Resources are released newest first, so children go before the parents
// they hold on to.
func (r *Renderer) releaseOwned() {
	for i := len(r.owned) - 1; i >= 0; i-- {
		r.owned[i].Release()
	}
	r.owned = nil
}

// Render draws one frame containing every state, in order. A failure
// aborts the frame and is returned as is, nothing is retried.
func (r *Renderer) Render(states ...Drawable) error {
	if r.closed {
		return errors.New("render: renderer is closed")
	}

	start := hrtime.Now()
	if err := r.scheduler.renderFrame(states); err != nil {
		return err
	}
	r.stats.Observe(hrtime.Since(start))

	if r.config.StatsInterval > 0 && r.stats.Frames() >= r.config.StatsInterval {
		r.logger.Info("frame times", slog.Any("stats", &r.stats))
		r.stats.Reset()
	}
	return nil
}

func (r *Renderer) waitForFrame(slot int) error {
	return r.frames[slot].Wait()
}

func (r *Renderer) acquireImage(slot int) (int, error) {
	return r.frames[slot].Acquire(r.swapchain)
}

func (r *Renderer) recordFrame(slot, image int, states []Drawable) error {
	signature := signatureOf(image, states)
	if r.config.RecordMode == RecordOnChange && signature.matches(r.recorded[slot]) {
		return nil
	}
	r.recorded[slot] = nil

	recorder, err := r.commandBuffers[slot].Record()
	if err != nil {
		return err
	}

	recorder.BeginRenderPass(r.renderPass, r.framebuffers, image, r.config.ClearColor)
	for _, state := range states {
		pipeline := state.Pipeline()
		recorder.BindPipeline(pipeline)
		for _, payload := range state.PushConstants() {
			recorder.PushConstants(pipeline, payload.Stage, payload.Data)
		}
		recorder.Draw(state.VertexCount())
	}
	if err := recorder.EndRenderPass().End(); err != nil {
		return err
	}

	r.recorded[slot] = signature
	return nil
}

// The fence is reset right before the buffer is handed to the queue, so a
// frame that fails earlier leaves it signaled and the slot usable.
func (r *Renderer) submitFrame(slot int) error {
	return r.frames[slot].Submit(r.graphicsQueue, r.commandBuffers[slot])
}

func (r *Renderer) presentFrame(slot, image int) error {
	return r.frames[slot].Present(r.swapchain, r.presentationQueue, image)
}

// CurrentFrame is the frame slot the next Render call uses.
func (r *Renderer) CurrentFrame() int {
	return r.scheduler.current
}

func (r *Renderer) Stats() *FrameStats {
	return &r.stats
}

func (r *Renderer) Device() *vulkan.LogicalDevice {
	return r.device
}

func (r *Renderer) Swapchain() *vulkan.Swapchain {
	return r.swapchain
}

// Close waits for the GPU to finish every frame in flight and releases all
// resources. Render states must be released separately.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true

	if err := r.device.WaitIdle(); err != nil {
		panic(errors.Wrap(err, "renderer teardown"))
	}
	r.releaseOwned()
	r.logger.Info("renderer closed")
}

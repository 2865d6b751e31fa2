package vulkan

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"golang.org/x/exp/slog"
)

// LogicalDevice owns the device handle and one queue per requested role.
type LogicalDevice struct {
	*refCounted

	handle             core1_0.Device
	physical           *PhysicalDevice
	context            *DeviceContext
	queues             map[QueueFamily]core1_0.Queue
	swapchainExtension khr_swapchain.Extension
}

// NewLogicalDevice creates a device with one queue per distinct family
// behind roles. Every role gets its queue handle even when roles share a
// family.
func NewLogicalDevice(physical *PhysicalDevice, roles []QueueFamily) (*LogicalDevice, error) {
	families, err := uniqueQueueFamilies(physical.queueFamilies, roles)
	if err != nil {
		return nil, err
	}

	queueOptions := make([]core1_0.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		queueOptions = append(queueOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	handle, res, err := physical.handle.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueOptions,
		EnabledExtensionNames: physical.extensions,
	})
	if err != nil {
		return nil, resultError(OpCreateDevice, res, err)
	}

	device := &LogicalDevice{
		handle:   handle,
		physical: physical,
		context:  physical.context,
		queues:   make(map[QueueFamily]core1_0.Queue, len(roles)),
	}
	for _, role := range roles {
		family, _ := physical.queueFamilies.Index(role)
		device.queues[role] = handle.GetQueue(family, 0)
	}
	if contains(physical.extensions, khr_swapchain.ExtensionName) {
		device.swapchainExtension = khr_swapchain.CreateExtensionFromDevice(handle)
	}

	if device.context != nil {
		device.context.Retain()
	}
	device.refCounted = newRefCounted("logical device", device.destroy)

	device.logger().Debug("created logical device",
		slog.String("device", physical.name),
		slog.Int("queueFamilies", len(families)),
		slog.Int("roles", len(roles)))
	return device, nil
}

func (d *LogicalDevice) destroy() {
	// There is nothing safe left to do with a device in an unknown state.
	if err := d.WaitIdle(); err != nil {
		panic(fmt.Sprintf("logical device teardown: %+v", err))
	}
	d.handle.Destroy(nil)
	d.logger().Debug("destroyed logical device")
	if d.context != nil {
		d.context.Release()
	}
}

// uniqueQueueFamilies maps roles to their families, without duplicates and
// in ascending order.
func uniqueQueueFamilies(indices QueueFamilyIndices, roles []QueueFamily) ([]int, error) {
	seen := make(map[int]struct{}, len(roles))
	var families []int
	for _, role := range roles {
		family, ok := indices.Index(role)
		if !ok {
			return nil, missingQueueFamily(role)
		}
		if _, dup := seen[family]; dup {
			continue
		}
		seen[family] = struct{}{}
		families = append(families, family)
	}
	sort.Ints(families)
	return families, nil
}

func missingQueueFamily(role QueueFamily) error {
	return errors.Wrapf(ErrQueueFamilyNotSupported, "%s", role)
}

// Queue returns the queue created for role. Asking for a role that was not
// requested at creation is a bug in the caller and panics.
func (d *LogicalDevice) Queue(role QueueFamily) core1_0.Queue {
	queue, ok := d.queues[role]
	if !ok {
		panic(fmt.Sprintf("queue for role %s was not requested when the device was created", role))
	}
	return queue
}

// WaitIdle blocks until every queue of the device is idle.
func (d *LogicalDevice) WaitIdle() error {
	res, err := d.handle.WaitIdle()
	if err != nil {
		return resultError(OpDeviceWaitIdle, res, err)
	}
	return nil
}

func (d *LogicalDevice) Handle() core1_0.Device {
	return d.handle
}

func (d *LogicalDevice) PhysicalDevice() *PhysicalDevice {
	return d.physical
}

func (d *LogicalDevice) logger() *slog.Logger {
	if d.context == nil {
		return slog.Default()
	}
	return d.context.logger
}

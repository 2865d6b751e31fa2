package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"golang.org/x/exp/slog"
)

// QueueFamily is the role a queue family plays for the renderer.
type QueueFamily int

const (
	QueueFamilyGraphics QueueFamily = iota
	QueueFamilyCompute
	QueueFamilyTransfer
	QueueFamilySparseBinding
	QueueFamilyPresentation
)

var queueFamilyNames = map[QueueFamily]string{
	QueueFamilyGraphics:      "graphics",
	QueueFamilyCompute:       "compute",
	QueueFamilyTransfer:      "transfer",
	QueueFamilySparseBinding: "sparse binding",
	QueueFamilyPresentation:  "presentation",
}

func (f QueueFamily) String() string {
	name, ok := queueFamilyNames[f]
	if !ok {
		return "unknown"
	}
	return name
}

// QueueFamilyIndices records which queue family serves each role on one
// physical device.
type QueueFamilyIndices struct {
	indices map[QueueFamily]int

	// A weakly dedicated transfer family advertises transfer among other
	// capabilities, a strongly dedicated one advertises nothing else.
	weaklyDedicatedTransfer   bool
	stronglyDedicatedTransfer bool
}

// DeriveQueueFamilyIndices walks the queue families of a device in order
// and assigns roles. presentation may be nil when no surface is involved.
//
// A family advertising only transfer is preferred for the transfer role
// and, once found, is never replaced. Failing that the last family that
// explicitly advertises transfer wins, and failing that the transfer role
// falls back to the graphics or compute family.
func DeriveQueueFamilyIndices(families []core1_0.QueueFlags, presentation func(queueFamily int) (bool, error)) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{indices: make(map[QueueFamily]int)}

	for index, flags := range families {
		if flags&core1_0.QueueTransfer != 0 && !indices.stronglyDedicatedTransfer {
			indices.indices[QueueFamilyTransfer] = index
			indices.weaklyDedicatedTransfer = true
			if flags == core1_0.QueueTransfer {
				indices.stronglyDedicatedTransfer = true
			}
		}

		if flags&core1_0.QueueGraphics != 0 {
			indices.indices[QueueFamilyGraphics] = index
			indices.fallbackTransfer(index)
		}

		if flags&core1_0.QueueCompute != 0 {
			indices.indices[QueueFamilyCompute] = index
			indices.fallbackTransfer(index)
		}

		if flags&core1_0.QueueSparseBinding != 0 {
			indices.indices[QueueFamilySparseBinding] = index
		}

		if presentation != nil {
			supported, err := presentation(index)
			if err != nil {
				return QueueFamilyIndices{}, err
			}
			if supported {
				indices.indices[QueueFamilyPresentation] = index
			}
		}
	}

	return indices, nil
}

// Graphics and compute queues can always transfer.
func (i *QueueFamilyIndices) fallbackTransfer(index int) {
	if !i.weaklyDedicatedTransfer {
		i.indices[QueueFamilyTransfer] = index
	}
}

// Index returns the family serving role.
func (i QueueFamilyIndices) Index(role QueueFamily) (int, bool) {
	index, ok := i.indices[role]
	return index, ok
}

// Supports reports whether every role has a family.
func (i QueueFamilyIndices) Supports(roles ...QueueFamily) bool {
	for _, role := range roles {
		if _, ok := i.indices[role]; !ok {
			return false
		}
	}
	return true
}

func (i QueueFamilyIndices) WeaklyDedicatedTransfer() bool {
	return i.weaklyDedicatedTransfer
}

func (i QueueFamilyIndices) StronglyDedicatedTransfer() bool {
	return i.stronglyDedicatedTransfer
}

// PhysicalDevice is an immutable snapshot of a selected GPU.
type PhysicalDevice struct {
	handle            core1_0.PhysicalDevice
	context           *DeviceContext
	name              string
	deviceType        core1_0.PhysicalDeviceType
	pipelineCacheUUID uuid.UUID
	queueFamilies     QueueFamilyIndices
	extensions        []string
	maxPushConstants  int
}

func (d *PhysicalDevice) Handle() core1_0.PhysicalDevice {
	return d.handle
}

func (d *PhysicalDevice) Name() string {
	return d.name
}

func (d *PhysicalDevice) Type() core1_0.PhysicalDeviceType {
	return d.deviceType
}

// PipelineCacheUUID identifies which pipeline caches this device and
// driver combination can consume.
func (d *PhysicalDevice) PipelineCacheUUID() uuid.UUID {
	return d.pipelineCacheUUID
}

func (d *PhysicalDevice) QueueFamilies() QueueFamilyIndices {
	return d.queueFamilies
}

// QueueFamilyIndex returns the family serving role on this device.
func (d *PhysicalDevice) QueueFamilyIndex(role QueueFamily) (int, error) {
	index, ok := d.queueFamilies.Index(role)
	if !ok {
		return 0, errors.Wrapf(ErrQueueFamilyNotSupported, "%s on %s", role, d.name)
	}
	return index, nil
}

// MaxPushConstantsSize is the largest push constant block, in bytes, a
// pipeline layout may declare on this device.
func (d *PhysicalDevice) MaxPushConstantsSize() int {
	return d.maxPushConstants
}

// Extensions is the list of device extensions negotiated at selection.
func (d *PhysicalDevice) Extensions() []string {
	return append([]string(nil), d.extensions...)
}

// SelectorOptions lists what a physical device must offer.
type SelectorOptions struct {
	QueueFamilies []QueueFamily
	Extensions    []string

	// Surface, when set, is used to find presentation capable families.
	Surface *Surface
}

type deviceCandidate struct {
	handle            core1_0.PhysicalDevice
	name              string
	deviceType        core1_0.PhysicalDeviceType
	pipelineCacheUUID uuid.UUID
	queueFlags        []core1_0.QueueFlags
	extensions        map[string]struct{}
	maxPushConstants  int
}

// SelectPhysicalDevice enumerates every GPU and picks one that offers all
// requested queue roles and extensions.
//
// The first suitable discrete GPU is returned right away. Without one, the
// last suitable device in enumeration order is used.
func SelectPhysicalDevice(ctx *DeviceContext, opts SelectorOptions) (*PhysicalDevice, error) {
	handles, res, err := ctx.instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, resultError(OpEnumeratePhysicalDevices, res, err)
	}

	candidates := make([]deviceCandidate, 0, len(handles))
	for _, handle := range handles {
		candidate, err := describePhysicalDevice(handle)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}

	var presentation func(candidate deviceCandidate, queueFamily int) (bool, error)
	if opts.Surface != nil {
		presentation = func(candidate deviceCandidate, queueFamily int) (bool, error) {
			return opts.Surface.SupportsPresentation(candidate.handle, queueFamily)
		}
	}

	device, err := chooseDevice(candidates, opts, presentation)
	if err != nil {
		return nil, err
	}
	device.context = ctx

	ctx.logger.Debug("selected physical device",
		slog.String("name", device.name),
		slog.Any("type", device.deviceType),
		slog.String("pipelineCacheUUID", device.pipelineCacheUUID.String()),
		slog.Bool("dedicatedTransfer", device.queueFamilies.StronglyDedicatedTransfer()))
	return device, nil
}

func describePhysicalDevice(handle core1_0.PhysicalDevice) (deviceCandidate, error) {
	properties, err := handle.Properties()
	if err != nil {
		return deviceCandidate{}, resultError(OpQueryDeviceProperties, core1_0.VKErrorUnknown, err)
	}

	extensions, res, err := handle.EnumerateDeviceExtensionProperties()
	if err != nil {
		return deviceCandidate{}, resultError(OpEnumerateDeviceExtensions, res, err)
	}

	candidate := deviceCandidate{
		handle:            handle,
		name:              properties.DriverName,
		deviceType:        properties.DriverType,
		pipelineCacheUUID: properties.PipelineCacheUUID,
		maxPushConstants:  properties.Limits.MaxPushConstantsSize,
		extensions:        make(map[string]struct{}, len(extensions)),
	}
	for name := range extensions {
		candidate.extensions[name] = struct{}{}
	}
	for _, family := range handle.QueueFamilyProperties() {
		candidate.queueFlags = append(candidate.queueFlags, family.QueueFlags)
	}
	return candidate, nil
}

func chooseDevice(candidates []deviceCandidate, opts SelectorOptions, presentation func(candidate deviceCandidate, queueFamily int) (bool, error)) (*PhysicalDevice, error) {
	var chosen *PhysicalDevice

	for _, candidate := range candidates {
		var query func(int) (bool, error)
		if presentation != nil {
			candidate := candidate
			query = func(queueFamily int) (bool, error) {
				return presentation(candidate, queueFamily)
			}
		}

		indices, err := DeriveQueueFamilyIndices(candidate.queueFlags, query)
		if err != nil {
			return nil, err
		}

		if !indices.Supports(opts.QueueFamilies...) || !candidate.hasExtensions(opts.Extensions) {
			continue
		}

		chosen = &PhysicalDevice{
			handle:            candidate.handle,
			name:              candidate.name,
			deviceType:        candidate.deviceType,
			pipelineCacheUUID: candidate.pipelineCacheUUID,
			queueFamilies:     indices,
			extensions:        candidate.negotiatedExtensions(opts.Extensions),
			maxPushConstants:  candidate.maxPushConstants,
		}
		if candidate.deviceType == core1_0.PhysicalDeviceTypeDiscreteGPU {
			return chosen, nil
		}
	}

	if chosen == nil {
		return nil, errors.WithStack(ErrSuitableDeviceNotFound)
	}
	return chosen, nil
}

func (c deviceCandidate) hasExtensions(required []string) bool {
	for _, name := range required {
		if _, ok := c.extensions[name]; !ok {
			return false
		}
	}
	return true
}

// Portability implementations must have the subset extension enabled when
// they offer it.
func (c deviceCandidate) negotiatedExtensions(required []string) []string {
	extensions := append([]string(nil), required...)
	if _, ok := c.extensions[khr_portability_subset.ExtensionName]; ok && !contains(extensions, khr_portability_subset.ExtensionName) {
		extensions = append(extensions, khr_portability_subset.ExtensionName)
	}
	return extensions
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

package vulkan

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"golang.org/x/exp/slog"
)

const (
	ValidationLayerName = "VK_LAYER_KHRONOS_validation"
	EngineName          = "magmacraft"

	// PortabilityEnumerationExtensionName lets the loader report portability
	// drivers such as MoltenVK. The extensions module ships no wrapper for it.
	PortabilityEnumerationExtensionName = "VK_KHR_portability_enumeration"
)

// InstanceCreateEnumeratePortability is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR.
const InstanceCreateEnumeratePortability core1_0.InstanceCreateFlags = 0x1

// ContextOptions configures the driver connection.
type ContextOptions struct {
	ApplicationName    string
	ApplicationVersion common.Version

	// Debug enables the Khronos validation layer and routes its messages
	// to Logger.
	Debug bool

	// InstanceExtensions are the platform extensions the window system
	// needs for presentation.
	InstanceExtensions []string

	Logger *slog.Logger
}

// DeviceContext owns the Vulkan instance and, in debug mode, the
// validation message callback. Every other resource depends on it.
type DeviceContext struct {
	*refCounted

	loader         core.Loader
	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	logger         *slog.Logger
	debug          bool
}

func NewDeviceContext(loader core.Loader, opts ContextOptions) (*DeviceContext, error) {
	if loader == nil {
		return nil, missingField("device context", "loader")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx := &DeviceContext{
		loader: loader,
		logger: logger,
		debug:  opts.Debug,
	}

	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: opts.ApplicationVersion,
		EngineName:         EngineName,
		EngineVersion:      common.CreateVersion(0, 1, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, res, err := loader.AvailableExtensions()
	if err != nil {
		return nil, resultError(OpEnumerateExtensions, res, err)
	}

	for _, ext := range opts.InstanceExtensions {
		if _, ok := extensions[ext]; !ok {
			return nil, errors.Wrapf(ErrInstanceExtensionNotAvailable, "%s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[PortabilityEnumerationExtensionName]; ok {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, PortabilityEnumerationExtensionName)
		instanceOptions.Flags |= InstanceCreateEnumeratePortability
	}

	if opts.Debug {
		if _, ok := extensions[ext_debug_utils.ExtensionName]; !ok {
			return nil, errors.Wrapf(ErrInstanceExtensionNotAvailable, "%s", ext_debug_utils.ExtensionName)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)

		layers, res, err := loader.AvailableLayers()
		if err != nil {
			return nil, resultError(OpEnumerateLayers, res, err)
		}
		if _, ok := layers[ValidationLayerName]; !ok {
			return nil, errors.Wrapf(ErrValidationLayersNotAvailable, "%s", ValidationLayerName)
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, ValidationLayerName)

		// Catch messages emitted while the instance itself is created.
		instanceOptions.Next = ctx.debugMessengerOptions()
	}

	ctx.instance, res, err = loader.CreateInstance(nil, instanceOptions)
	if err != nil {
		return nil, resultError(OpCreateInstance, res, err)
	}

	if opts.Debug {
		debugLoader := ext_debug_utils.CreateExtensionFromInstance(ctx.instance)
		ctx.debugMessenger, res, err = debugLoader.CreateDebugUtilsMessenger(ctx.instance, nil, ctx.debugMessengerOptions())
		if err != nil {
			ctx.instance.Destroy(nil)
			return nil, resultError(OpCreateDebugMessenger, res, err)
		}
	}

	logger.Debug("created instance",
		slog.String("application", opts.ApplicationName),
		slog.Int("extensions", len(instanceOptions.EnabledExtensionNames)),
		slog.Bool("validation", opts.Debug))

	ctx.refCounted = newRefCounted("device context", ctx.destroy)
	return ctx, nil
}

func (c *DeviceContext) destroy() {
	if c.debugMessenger != nil {
		c.debugMessenger.Destroy(nil)
	}
	c.instance.Destroy(nil)
	c.logger.Debug("destroyed instance")
}

func (c *DeviceContext) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    c.logValidationMessage,
	}
}

func (c *DeviceContext) logValidationMessage(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}
	c.logger.Log(context.Background(), level, "VL "+severity.String()+" ("+msgType.String()+"): "+data.Message)
	return false
}

// Instance exposes the underlying instance handle.
func (c *DeviceContext) Instance() core1_0.Instance {
	return c.instance
}

// Debug reports whether validation was requested for this context.
func (c *DeviceContext) Debug() bool {
	return c.debug
}

func (c *DeviceContext) Logger() *slog.Logger {
	return c.logger
}

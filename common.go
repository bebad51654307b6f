package vkplay

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SwapchainExtension is the device extension presentation requires.
const SwapchainExtension = "VK_KHR_swapchain"

// Variant names the shape of program being set up, which fixes the device
// requirements it selects with.
type Variant int

const (
	// VariantCompute is a headless buffer-in, buffer-out program.
	VariantCompute Variant = iota
	// VariantImage is a headless program rendering into a storage image.
	VariantImage
	// VariantWindowed presents to a surface.
	VariantWindowed
)

func (v Variant) String() string {
	switch v {
	case VariantCompute:
		return "compute"
	case VariantImage:
		return "image"
	}
	return "windowed"
}

func (v Variant) requirements() Requirements {
	switch v {
	case VariantWindowed:
		return Requirements{
			Graphics:   true,
			Present:    true,
			Extensions: []string{SwapchainExtension},
		}
	default:
		return Requirements{Compute: true}
	}
}

// Config describes the common setup every program in this package starts
// from.
type Config struct {
	AppName string
	Version Version
	Variant Variant

	// Debug enables the validation layer and routes driver diagnostics
	// into Handler. Missing validation support fails construction; a
	// debug run that silently runs unvalidated is worse than one that
	// refuses to start.
	Debug   bool
	Handler DiagnosticHandler

	// InstanceExtensions are enabled in addition to what Debug implies.
	// Windowed programs pass the window system's required extensions.
	InstanceExtensions []string

	// CreateSurface, when set, is invoked after instance creation and
	// before the capability snapshot so presentation support is part of
	// device selection.
	CreateSurface func(*Instance) (vk.Surface, error)

	// SkipDriverInit leaves loading the Vulkan library to the caller.
	// Windowed programs resolve the proc address through GLFW and must
	// set this.
	SkipDriverInit bool
}

// Common bundles the objects every program needs before doing anything
// useful: an instance, one selected device, its queues, a resource
// manager and a command pool. Open builds them in dependency order and
// Close releases them in reverse.
type Common struct {
	Config *Config

	Instance     *Instance
	Surface      vk.Surface
	Capabilities []DeviceCapability
	Selection    Selection

	PhysicalDevice *PhysicalDevice
	Device         *Device
	Queue          *Queue
	PresentQueue   *Queue

	Resources   *ResourceManager
	CommandPool *CommandPool
}

// Open performs the whole common setup. Any failure unwinds everything
// already constructed and reports the first error; there is no partial
// result and no degraded mode.
func Open(cfg *Config) (*Common, error) {
	if !cfg.SkipDriverInit {
		if err := InitializeDriver(); err != nil {
			return nil, err
		}
	}

	app := &App{
		Name:       cfg.AppName,
		Version:    cfg.Version,
		APIVersion: Version{Major: 1},
	}
	if cfg.Debug {
		if err := app.EnableValidation(); err != nil {
			return nil, err
		}
	}
	for _, ext := range cfg.InstanceExtensions {
		app.EnableExtension(ext)
	}

	c := &Common{Config: cfg, Surface: vk.NullSurface}

	instance, err := app.CreateInstance()
	if err != nil {
		return nil, err
	}
	c.Instance = instance

	if cfg.Debug && cfg.Handler != nil {
		if err := instance.AttachDiagnostics(cfg.Handler); err != nil {
			c.Close()
			return nil, err
		}
	}

	if cfg.CreateSurface != nil {
		c.Surface, err = cfg.CreateSurface(instance)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("surface creation failed: %w", err)
		}
	}

	devices, err := instance.PhysicalDevices()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Capabilities, err = CapabilitiesOf(devices, c.Surface)
	if err != nil {
		c.Close()
		return nil, err
	}

	req := cfg.Variant.requirements()
	c.Selection, err = Select(c.Capabilities, req, cfg.Handler)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.PhysicalDevice = devices[c.Selection.Device]

	families, err := c.PhysicalDevice.QueueFamilies()
	if err != nil {
		c.Close()
		return nil, err
	}

	qfs := QueueFamilySlice{families.ByIndex(c.Selection.QueueFamily)}
	if c.Selection.Concurrent() {
		qfs = append(qfs, families.ByIndex(c.Selection.PresentFamily))
	}

	c.Device, err = c.PhysicalDevice.CreateLogicalDeviceWithOptions(qfs, &CreateDeviceOptions{
		EnabledExtensions: req.Extensions,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Queue = c.Device.GetQueue(qfs[0])
	c.PresentQueue = c.Queue
	if c.Selection.Concurrent() {
		c.PresentQueue = c.Device.GetQueue(qfs[1])
	}

	c.Resources = c.Device.CreateResourceManager()

	c.CommandPool, err = c.Device.CreateCommandPool(qfs[0])
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// Close releases everything Open built, in reverse creation order. It
// tolerates partially constructed state, so Open uses it to unwind.
func (c *Common) Close() {
	if c.Device != nil {
		c.Device.WaitIdle()
	}
	if c.CommandPool != nil {
		c.CommandPool.Destroy()
		c.CommandPool = nil
	}
	if c.Resources != nil {
		c.Resources.Destroy()
		c.Resources = nil
	}
	if c.Device != nil {
		c.Device.Destroy()
		c.Device = nil
	}
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance.VKInstance, c.Surface, nil)
		c.Surface = vk.NullSurface
	}
	if c.Instance != nil {
		c.Instance.Destroy()
		c.Instance = nil
	}
}

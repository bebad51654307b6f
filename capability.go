package vkplay

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// DeviceClass ranks a device for selection; lower is preferred.
type DeviceClass int

const (
	DeviceDiscrete DeviceClass = iota
	DeviceIntegrated
	DeviceOther
)

func (c DeviceClass) String() string {
	switch c {
	case DeviceDiscrete:
		return "discrete"
	case DeviceIntegrated:
		return "integrated"
	}
	return "other"
}

// FamilyCapability is the selection-relevant view of one queue family.
type FamilyCapability struct {
	Index    int
	Graphics bool
	Compute  bool
	Present  bool
}

// DeviceCapability is an immutable snapshot of one physical device, taken
// once per run. The selection policy operates on these values only, never
// on live driver handles, which keeps it deterministic and testable.
type DeviceCapability struct {
	// Index is the device's position in driver enumeration order.
	Index int
	Name  string
	Class DeviceClass

	Families   []FamilyCapability
	Extensions []string

	// SurfaceFormats and PresentModes count the device's supported
	// surface formats and presentation modes. Zero when no surface was
	// supplied to the snapshot; when presentation is required, a device
	// with either count at zero cannot drive a swapchain.
	SurfaceFormats int
	PresentModes   int
}

// HasExtension reports whether the device advertises the named extension,
// matched exactly.
func (c *DeviceCapability) HasExtension(name string) bool {
	for _, ext := range c.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

func (c *DeviceCapability) String() string {
	return fmt.Sprintf("{ %s (%s) families: %d }", c.Name, c.Class, len(c.Families))
}

// Capabilities snapshots every physical device visible to the driver.
// Pass vk.NullSurface when no presentation surface exists; per-family
// present support and swapchain adequacy are then left unset. Fails with
// ErrNoDevicesFound when the driver enumerates nothing.
func (i *Instance) Capabilities(surface vk.Surface) ([]DeviceCapability, error) {
	devices, err := i.PhysicalDevices()
	if err != nil {
		return nil, err
	}
	return CapabilitiesOf(devices, surface)
}

// CapabilitiesOf snapshots the given devices. Repeated snapshots of an
// unchanged driver yield identical sequences, order included.
func CapabilitiesOf(devices []*PhysicalDevice, surface vk.Surface) ([]DeviceCapability, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}

	caps := make([]DeviceCapability, len(devices))
	for n, pd := range devices {
		cap := DeviceCapability{
			Index: n,
			Name:  pd.DeviceName,
			Class: pd.Class(),
		}

		families, err := pd.QueueFamilies()
		if err != nil {
			return nil, fmt.Errorf("unable to load queue families for %s: %w", pd, err)
		}
		cap.Families = make([]FamilyCapability, len(families))
		for j, qf := range families {
			cap.Families[j] = FamilyCapability{
				Index:    qf.Index,
				Graphics: qf.IsGraphics(),
				Compute:  qf.IsCompute(),
			}
			if surface != vk.NullSurface {
				cap.Families[j].Present = qf.SupportsPresent(surface)
			}
		}

		cap.Extensions, err = pd.SupportedExtensions()
		if err != nil {
			return nil, fmt.Errorf("unable to enumerate extensions for %s: %w", pd, err)
		}

		if surface != vk.NullSurface {
			formats, err := pd.GetSurfaceFormats(surface)
			if err != nil {
				return nil, err
			}
			modes, err := pd.GetSurfacePresentModes(surface)
			if err != nil {
				return nil, err
			}
			cap.SurfaceFormats = len(formats)
			cap.PresentModes = len(modes)
		}

		caps[n] = cap
	}
	return caps, nil
}

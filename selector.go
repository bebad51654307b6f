package vkplay

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Requirements names the capabilities a program needs from its device.
type Requirements struct {
	Compute  bool
	Graphics bool
	Present  bool

	// Extensions lists device extensions the device must advertise,
	// matched by exact name (e.g. VK_KHR_swapchain).
	Extensions []string
}

// opsSatisfied reports whether a single family carries every required
// queue operation other than presentation, which is allowed to live on a
// separate family.
func (r Requirements) opsSatisfied(f FamilyCapability) bool {
	if r.Compute && !f.Compute {
		return false
	}
	if r.Graphics && !f.Graphics {
		return false
	}
	return true
}

// Selection is the outcome of device selection: one device and the queue
// family indices work will be submitted to.
type Selection struct {
	// Device indexes into the capability sequence the selection was made
	// from (driver enumeration order).
	Device int

	// QueueFamily carries the required graphics/compute operations.
	QueueFamily int

	// PresentFamily equals QueueFamily when one family can do both;
	// otherwise it is a distinct presentation-capable family.
	PresentFamily int
}

// Concurrent reports whether resources shared between the work and present
// queues cross queue families and therefore need concurrent sharing mode
// instead of exclusive ownership.
func (s Selection) Concurrent() bool {
	return s.QueueFamily != s.PresentFamily
}

// SharingMode returns the sharing mode resources crossing both queues must
// be created with.
func (s Selection) SharingMode() vk.SharingMode {
	if s.Concurrent() {
		return vk.SharingModeConcurrent
	}
	return vk.SharingModeExclusive
}

// FamilyIndices returns the distinct queue family indices of the
// selection, work family first.
func (s Selection) FamilyIndices() []int {
	if s.Concurrent() {
		return []int{s.QueueFamily, s.PresentFamily}
	}
	return []int{s.QueueFamily}
}

// Select picks exactly one device and its queue families from a
// capability snapshot, or fails with ErrNoSuitableDevice.
//
// The policy is two-phase and deterministic. Devices failing a hard
// requirement are filtered out first: no single family carrying the
// required operations, a missing required extension, or - when
// presentation is required - no present-capable family or an empty surface
// format/present mode set. Survivors are ranked by device class (discrete
// before integrated before other) with ties broken by enumeration order.
//
// When both graphics and present are required, a family supporting both is
// preferred so resources stay in exclusive sharing mode; if none exists
// the first qualifying family of each role is chosen and a performance
// advisory is emitted to h (which may be nil).
func Select(caps []DeviceCapability, req Requirements, h DiagnosticHandler) (Selection, error) {
	best := -1
	for i := range caps {
		if !meets(&caps[i], req) {
			continue
		}
		if best == -1 || caps[i].Class < caps[best].Class {
			best = i
		}
	}
	if best == -1 {
		return Selection{}, ErrNoSuitableDevice
	}

	chosen := &caps[best]
	sel := Selection{Device: best}

	if req.Present {
		// Prefer one family for both roles.
		for _, f := range chosen.Families {
			if req.opsSatisfied(f) && f.Present {
				sel.QueueFamily = f.Index
				sel.PresentFamily = f.Index
				return sel, nil
			}
		}
		sel.QueueFamily = firstFamily(chosen, req.opsSatisfied)
		sel.PresentFamily = firstFamily(chosen, func(f FamilyCapability) bool { return f.Present })
		if h != nil {
			h.OnDiagnostic(SeverityWarning, CategoryPerformance, fmt.Sprintf(
				"device %s: no queue family supports both work and present; using families %d and %d, shared resources fall back to concurrent sharing",
				chosen.Name, sel.QueueFamily, sel.PresentFamily))
		}
		return sel, nil
	}

	sel.QueueFamily = firstFamily(chosen, req.opsSatisfied)
	sel.PresentFamily = sel.QueueFamily
	return sel, nil
}

// meets is the hard filter; rank never rescues a device that fails it.
func meets(c *DeviceCapability, req Requirements) bool {
	found := false
	for _, f := range c.Families {
		if req.opsSatisfied(f) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	if req.Present {
		hasPresent := false
		for _, f := range c.Families {
			if f.Present {
				hasPresent = true
				break
			}
		}
		if !hasPresent {
			return false
		}
		if c.SurfaceFormats == 0 || c.PresentModes == 0 {
			return false
		}
	}

	for _, ext := range req.Extensions {
		if !c.HasExtension(ext) {
			return false
		}
	}
	return true
}

func firstFamily(c *DeviceCapability, ok func(FamilyCapability) bool) int {
	for _, f := range c.Families {
		if ok(f) {
			return f.Index
		}
	}
	return -1
}

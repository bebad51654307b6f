package vkplay

import (
	"math"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

func (d *Device) CreateFence() (*Fence, error) {
	return d.createFence(false)
}

// CreateSignaledFence creates a fence that starts signaled, for loops that
// wait at the top of each iteration.
func (d *Device) CreateSignaledFence() (*Fence, error) {
	return d.createFence(true)
}

func (d *Device) createFence(signaled bool) (*Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence

	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, err
	}

	return &Fence{Device: d, VKFence: fence}, nil
}

// Wait blocks until the fence signals. A timeout of zero or less waits
// without bound; otherwise expiry returns ErrWaitTimeout and the fence
// stays unsignaled.
func (f *Fence) Wait(timeout time.Duration) error {
	ns := uint64(math.MaxUint64)
	if timeout > 0 {
		ns = uint64(timeout.Nanoseconds())
	}

	res := vk.WaitForFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, ns)
	if res == vk.Timeout {
		return ErrWaitTimeout
	}
	return vk.Error(res)
}

// Signaled polls the fence without blocking.
func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.Device.VKDevice, f.VKFence) == vk.Success
}

func (f *Fence) Reset() error {
	return vk.Error(vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}))
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}

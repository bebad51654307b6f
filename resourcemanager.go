package vkplay

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/sirupsen/logrus"
)

const StagingPoolName = "staging"

// BufferResourcePool carves buffers out of one raw device memory
// allocation.
type BufferResourcePool struct {
	Device           *Device
	Name             string
	Usage            vk.BufferUsageFlagBits
	Sharing          vk.SharingMode
	MemoryProperties vk.MemoryPropertyFlagBits
	Size             uint64
	Allocator        IAllocator
	Memory           *DeviceMemory
	NeedsStaging     bool
	ResourceManager  *ResourceManager
}

// ImageResourcePool carves images out of one raw device memory
// allocation.
type ImageResourcePool struct {
	Device           *Device
	Name             string
	Usage            vk.ImageUsageFlagBits
	Sharing          vk.SharingMode
	MemoryProperties vk.MemoryPropertyFlagBits
	Size             uint64
	Allocator        IAllocator
	Memory           *DeviceMemory
	NeedsStaging     bool
	ResourceManager  *ResourceManager
}

// ResourceManager tracks named resource pools on one device.
type ResourceManager struct {
	Device      *Device
	Log         *logrus.Logger
	bufferPools map[string]*BufferResourcePool
	imagePools  map[string]*ImageResourcePool
}

func (d *Device) CreateResourceManager() *ResourceManager {
	return &ResourceManager{
		Device:      d,
		Log:         logrus.StandardLogger(),
		bufferPools: make(map[string]*BufferResourcePool),
		imagePools:  make(map[string]*ImageResourcePool),
	}
}

func (r *ResourceManager) GetStagingPool() *BufferResourcePool {
	return r.bufferPools[StagingPoolName]
}

func (r *ResourceManager) HasStagingPool() bool {
	return r.bufferPools[StagingPoolName] != nil
}

// AllocateStagingPool creates the host-visible pool staged resources copy
// through. Resources allocated from device-local pools refuse Bytes()
// until one exists.
func (r *ResourceManager) AllocateStagingPool(size uint64) (*BufferResourcePool, error) {
	return r.AllocateBufferPoolWithOptions(StagingPoolName, size,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		vk.BufferUsageTransferSrcBit, vk.SharingModeExclusive)
}

// AllocateHostComputePool creates a host-visible pool suitable for
// storage buffers a compute shader reads and writes and the host maps
// directly.
func (r *ResourceManager) AllocateHostComputePool(name string, size uint64) (*BufferResourcePool, error) {
	return r.AllocateBufferPoolWithOptions(name, size,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferSrcBit|vk.BufferUsageTransferDstBit,
		vk.SharingModeExclusive)
}

// AllocateReadbackPool creates a host-visible pool for buffers written on
// the device and read on the host, typically transfer destinations for
// image downloads.
func (r *ResourceManager) AllocateReadbackPool(name string, size uint64) (*BufferResourcePool, error) {
	return r.AllocateBufferPoolWithOptions(name, size,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		vk.BufferUsageTransferDstBit, vk.SharingModeExclusive)
}

func (r *ResourceManager) AllocateBufferPoolWithOptions(name string, size uint64, mprops vk.MemoryPropertyFlagBits, usage vk.BufferUsageFlagBits, sharing vk.SharingMode) (*BufferResourcePool, error) {
	needsStaging := mprops&vk.MemoryPropertyDeviceLocalBit == vk.MemoryPropertyDeviceLocalBit

	p := &BufferResourcePool{
		Device:           r.Device,
		Name:             name,
		Usage:            usage,
		Sharing:          sharing,
		MemoryProperties: mprops,
		Size:             size,
		Allocator:        &LinearAllocator{Size: size},
		NeedsStaging:     needsStaging,
		ResourceManager:  r,
	}

	if needsStaging {
		usage |= vk.BufferUsageTransferDstBit
	}

	// A throwaway buffer with the pool's usage yields the memory type
	// bits the whole pool must satisfy.
	probe, err := r.Device.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage), sharing)
	if err != nil {
		return nil, err
	}
	defer probe.Destroy()

	mr := probe.VKMemoryRequirements()
	mr.Deref()

	memory, err := r.Device.Allocate(int(size), mr.MemoryTypeBits, mprops)
	if err != nil {
		return nil, err
	}
	p.Memory = memory

	r.bufferPools[name] = p

	r.Log.WithFields(logrus.Fields{
		"pool": name,
		"size": size,
	}).Debug("buffer pool allocated")

	return p, nil
}

// AllocateDeviceImagePool creates a device-local pool for images the
// compute stage writes and transfers read.
func (r *ResourceManager) AllocateDeviceImagePool(name string, size uint64) (*ImageResourcePool, error) {
	return r.AllocateImagePoolWithOptions(name, size, vk.MemoryPropertyDeviceLocalBit,
		vk.ImageUsageStorageBit|vk.ImageUsageTransferSrcBit, vk.SharingModeExclusive)
}

// AllocateDeviceTexturePool creates a device-local pool for sampled
// textures uploaded through staging.
func (r *ResourceManager) AllocateDeviceTexturePool(name string, size uint64) (*ImageResourcePool, error) {
	return r.AllocateImagePoolWithOptions(name, size, vk.MemoryPropertyDeviceLocalBit,
		vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit, vk.SharingModeExclusive)
}

func (r *ResourceManager) AllocateImagePoolWithOptions(name string, size uint64, mprops vk.MemoryPropertyFlagBits, usage vk.ImageUsageFlagBits, sharing vk.SharingMode) (*ImageResourcePool, error) {
	needsStaging := mprops&vk.MemoryPropertyDeviceLocalBit == vk.MemoryPropertyDeviceLocalBit

	p := &ImageResourcePool{
		Device:           r.Device,
		Name:             name,
		Usage:            usage,
		Sharing:          sharing,
		MemoryProperties: mprops,
		Size:             size,
		Allocator:        &LinearAllocator{Size: size},
		NeedsStaging:     needsStaging,
		ResourceManager:  r,
	}

	if needsStaging {
		usage |= vk.ImageUsageTransferDstBit
	}

	probe, err := r.Device.CreateImage(vk.Extent2D{Width: 16, Height: 16}, vk.FormatR8g8b8a8Unorm, vk.ImageTilingOptimal, vk.ImageUsageFlags(usage))
	if err != nil {
		return nil, err
	}
	defer probe.Destroy()

	mr := probe.VKMemoryRequirements()
	mr.Deref()

	memory, err := r.Device.Allocate(int(size), mr.MemoryTypeBits, mprops)
	if err != nil {
		return nil, err
	}
	p.Memory = memory

	r.imagePools[name] = p

	r.Log.WithFields(logrus.Fields{
		"pool": name,
		"size": size,
	}).Debug("image pool allocated")

	return p, nil
}

func (r *ResourceManager) BufferPool(name string) *BufferResourcePool {
	return r.bufferPools[name]
}

func (r *ResourceManager) ImagePool(name string) *ImageResourcePool {
	return r.imagePools[name]
}

func (r *ResourceManager) Destroy() {
	for _, p := range r.bufferPools {
		p.destroy()
	}
	for _, p := range r.imagePools {
		p.destroy()
	}
	r.bufferPools = make(map[string]*BufferResourcePool)
	r.imagePools = make(map[string]*ImageResourcePool)
}

func (p *BufferResourcePool) AllocateBuffer(size uint64, usage vk.BufferUsageFlagBits) (*BufferResource, error) {
	buffer, err := p.Device.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage), p.Sharing)
	if err != nil {
		return nil, err
	}

	mr := buffer.VKMemoryRequirements()
	mr.Deref()

	allocation := p.Allocator.Allocate(uint64(mr.Size), uint64(mr.Alignment))
	if allocation == nil {
		buffer.Destroy()
		return nil, ErrPoolExhausted
	}

	if err := buffer.Bind(p.Memory, allocation.Offset); err != nil {
		p.Allocator.Free(allocation)
		buffer.Destroy()
		return nil, err
	}

	ret := &BufferResource{
		Allocation:   allocation,
		ResourcePool: p,
	}
	ret.Buffer = *buffer

	return ret, nil
}

func (p *BufferResourcePool) Destroy() {
	p.destroy()
	delete(p.ResourceManager.bufferPools, p.Name)
}

func (p *BufferResourcePool) destroy() {
	if p.Memory != nil {
		p.Memory.Destroy()
		p.Memory = nil
	}
}

func (p *ImageResourcePool) AllocateImage(extent vk.Extent2D, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlagBits) (*ImageResource, error) {
	img, err := p.Device.CreateImage(extent, format, tiling, vk.ImageUsageFlags(usage))
	if err != nil {
		return nil, err
	}

	mr := img.VKMemoryRequirements()
	mr.Deref()

	allocation := p.Allocator.Allocate(uint64(mr.Size), uint64(mr.Alignment))
	if allocation == nil {
		img.Destroy()
		return nil, ErrPoolExhausted
	}

	if err := img.Bind(p.Memory, allocation.Offset); err != nil {
		p.Allocator.Free(allocation)
		img.Destroy()
		return nil, err
	}

	ret := &ImageResource{
		Allocation:   allocation,
		ResourcePool: p,
	}
	ret.Image = *img

	return ret, nil
}

func (p *ImageResourcePool) Destroy() {
	p.destroy()
	delete(p.ResourceManager.imagePools, p.Name)
}

func (p *ImageResourcePool) destroy() {
	if p.Memory != nil {
		p.Memory.Destroy()
		p.Memory = nil
	}
}

package vkplay

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ImageResource is an image carved out of a resource pool's memory.
type ImageResource struct {
	Image
	ResourcePool    *ImageResourcePool
	Allocation      *Allocation
	StagingResource *BufferResource
}

// RequiresStaging indicates the image lives in device-local memory and
// must be copied through the staging pool before the host can touch it.
func (r *ImageResource) RequiresStaging() bool {
	return r.ResourcePool.NeedsStaging
}

// AllocateStagingResource allocates a host-visible buffer this image can
// be staged through. It must be freed explicitly; the manager's staging
// pool must already exist.
func (r *ImageResource) AllocateStagingResource() error {
	if !r.RequiresStaging() {
		return fmt.Errorf("resource does not require staging")
	}

	stagingPool := r.ResourcePool.ResourceManager.GetStagingPool()
	if stagingPool == nil {
		return fmt.Errorf("staging pool %q has not been created", StagingPoolName)
	}

	var err error
	r.StagingResource, err = stagingPool.AllocateBuffer(r.Allocation.Size, vk.BufferUsageTransferSrcBit)
	return err
}

// FreeStagingResource frees the staging buffer associated with this
// image, if any.
func (r *ImageResource) FreeStagingResource() {
	if r.StagingResource != nil {
		r.StagingResource.Free()
		r.StagingResource = nil
	}
}

// CmdStageImageResource populates the image from its previously allocated
// staging resource. The image must be in transfer-dst layout.
func (c *CommandBuffer) CmdStageImageResource(img *ImageResource) error {
	if img.StagingResource == nil {
		return fmt.Errorf("no staging resource has been allocated")
	}
	c.CmdCopyBufferToImage(&img.StagingResource.Buffer, &img.Image, img.Extent)
	return nil
}

func (r *ImageResource) Destroy() {
	r.Free()
}

// Free this image and its associated staging resource.
func (r *ImageResource) Free() {
	if r.StagingResource != nil {
		r.StagingResource.Free()
		r.StagingResource = nil
	}
	if r.Allocation != nil {
		r.ResourcePool.Allocator.Free(r.Allocation)
		r.Allocation = nil
	}
	if r.Image.VKImage != vk.NullImage {
		r.Image.Destroy()
		r.Image.VKImage = vk.NullImage
	}
}

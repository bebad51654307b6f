package vkplay

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PipelineBundle ties together everything derived from one compute
// shader: the module itself, its reflected interface, and the descriptor
// and pipeline layouts built from that interface. The caller supplies the
// SPIR-V binary and an entry point name; every layout detail comes from
// the binary, so the two can never disagree.
type PipelineBundle struct {
	Device     *Device
	Shader     *ShaderModule
	Interface  *ShaderInterface
	EntryPoint string
	SetLayout  *DescriptorSetLayout
	Layout     *PipelineLayout
	Pipeline   *ComputePipeline
}

// BuildComputePipeline reflects a SPIR-V binary and builds a compute
// pipeline for the named entry point. The descriptor set layout is
// derived from the module's declared bindings; modules using more than
// descriptor set 0 are not supported.
func (d *Device) BuildComputePipeline(code []byte, entryPoint string) (*PipelineBundle, error) {
	si, err := ReflectShader(code)
	if err != nil {
		return nil, err
	}
	if !si.HasEntryPoint(entryPoint) {
		return nil, fmt.Errorf("%w: entry point %q not declared (module has %v)", ErrShaderLoad, entryPoint, si.EntryPoints)
	}
	for _, b := range si.Bindings {
		if b.Set != 0 {
			return nil, fmt.Errorf("%w: binding %d lives in descriptor set %d, only set 0 is supported", ErrShaderLoad, b.Binding, b.Set)
		}
	}

	var module vk.ShaderModule
	err = vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module))
	if err != nil {
		return nil, err
	}

	bundle := &PipelineBundle{
		Device:     d,
		Shader:     &ShaderModule{Device: d, VKShaderModule: module},
		Interface:  si,
		EntryPoint: entryPoint,
	}

	setLayout := d.NewDescriptorSetLayout()
	for _, b := range si.Bindings {
		setLayout.AddBinding(vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Binding),
			DescriptorType:  b.Kind.VKDescriptorType(),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		})
	}
	bundle.SetLayout, err = d.CreateDescriptorSetLayout(setLayout)
	if err != nil {
		bundle.Destroy()
		return nil, err
	}

	bundle.Layout, err = d.CreatePipelineLayout(bundle.SetLayout)
	if err != nil {
		bundle.Destroy()
		return nil, err
	}

	cp := &ComputePipeline{}
	cp.SetShaderStage(entryPoint, bundle.Shader)
	cp.SetPipelineLayout(bundle.Layout)
	if err := d.CreateComputePipelines(nil, cp); err != nil {
		bundle.Destroy()
		return nil, err
	}
	bundle.Pipeline = cp

	return bundle, nil
}

// LoadComputePipeline is BuildComputePipeline reading the binary from
// disk first.
func (d *Device) LoadComputePipeline(file string, entryPoint string) (*PipelineBundle, error) {
	data, err := shaderBytes(file)
	if err != nil {
		return nil, err
	}
	b, err := d.BuildComputePipeline(data, entryPoint)
	if err != nil {
		return nil, err
	}
	b.Shader.Description = file
	return b, nil
}

// GroupsFor converts a total element count per axis into dispatch group
// counts using the module's declared work-group size. Counts that do not
// divide evenly are rejected with ErrPartialWorkgroup rather than
// silently truncated.
func (b *PipelineBundle) GroupsFor(totalX, totalY, totalZ int) ([3]int, error) {
	return GroupCounts([3]int{totalX, totalY, totalZ}, b.Interface.LocalSize)
}

// NewDescriptorPool builds a descriptor pool sized for maxSets sets of
// this bundle's layout.
func (b *PipelineBundle) NewDescriptorPool(maxSets int) (*DescriptorPool, error) {
	counts := map[vk.DescriptorType]int{}
	for _, bind := range b.Interface.Bindings {
		counts[bind.Kind.VKDescriptorType()] += maxSets
	}

	pool := b.Device.NewDescriptorPool()
	for dtype, count := range counts {
		pool.AddPoolSize(dtype, count)
	}

	return b.Device.CreateDescriptorPool(pool, maxSets)
}

// AllocateDescriptorSet allocates one set of this bundle's layout from
// the given pool.
func (b *PipelineBundle) AllocateDescriptorSet(pool *DescriptorPool) (*DescriptorSet, error) {
	return pool.Allocate(b.SetLayout)
}

func (b *PipelineBundle) Destroy() {
	if b.Pipeline != nil {
		b.Pipeline.Destroy()
		b.Pipeline = nil
	}
	if b.Layout != nil {
		b.Layout.Destroy()
		b.Layout = nil
	}
	if b.SetLayout != nil {
		b.SetLayout.Destroy()
		b.SetLayout = nil
	}
	if b.Shader != nil {
		b.Shader.Destroy()
		b.Shader = nil
	}
}

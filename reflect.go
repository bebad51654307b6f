package vkplay

import (
	"encoding/binary"
	"fmt"
	"sort"

	vk "github.com/vulkan-go/vulkan"
)

// DescriptorKind classifies a shader resource binding independently of
// the driver enums.
type DescriptorKind int

const (
	DescriptorStorageBuffer DescriptorKind = iota
	DescriptorUniformBuffer
	DescriptorStorageImage
	DescriptorCombinedImageSampler
)

func (k DescriptorKind) VKDescriptorType() vk.DescriptorType {
	switch k {
	case DescriptorUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case DescriptorStorageImage:
		return vk.DescriptorTypeStorageImage
	case DescriptorCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeStorageBuffer
}

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorStorageBuffer:
		return "storage buffer"
	case DescriptorUniformBuffer:
		return "uniform buffer"
	case DescriptorStorageImage:
		return "storage image"
	case DescriptorCombinedImageSampler:
		return "combined image sampler"
	}
	return "unknown"
}

// BindingInfo is one resource interface slot declared by a shader.
type BindingInfo struct {
	Set     int
	Binding int
	Kind    DescriptorKind
}

// ShaderInterface is what a SPIR-V module declares about itself: its
// entry points, its fixed work-group size and its resource bindings.
// Everything the pipeline builder derives comes from here rather than
// from values repeated by the caller.
type ShaderInterface struct {
	EntryPoints []string

	// LocalSize is the work-group size declared by OpExecutionMode.
	// Each axis defaults to 1 when the module declares none.
	LocalSize [3]int

	// Bindings is sorted by set, then binding.
	Bindings []BindingInfo
}

func (si *ShaderInterface) HasEntryPoint(name string) bool {
	for _, ep := range si.EntryPoints {
		if ep == name {
			return true
		}
	}
	return false
}

// spirMagic is the SPIR-V magic number in the module's own endianness.
const spirMagic = 0x07230203

// spirMagicSwapped is what the magic reads as when the module was
// serialized with the opposite byte order.
const spirMagicSwapped = 0x03022307

const (
	opEntryPoint       = 15
	opExecutionMode    = 16
	opTypeImage        = 25
	opTypeSampledImage = 27
	opTypeStruct       = 30
	opTypePointer      = 32
	opVariable         = 59
	opDecorate         = 71
)

const (
	executionModeLocalSize = 17

	decorationBlock         = 2
	decorationBufferBlock   = 3
	decorationBinding       = 33
	decorationDescriptorSet = 34

	storageClassUniformConstant = 0
	storageClassUniform         = 2
	storageClassStorageBuffer   = 12
)

// ReflectShader parses a SPIR-V binary and extracts its declared
// interface without executing or compiling it. Truncated or malformed
// input reports ErrShaderLoad.
func ReflectShader(data []byte) (*ShaderInterface, error) {
	if len(data) < 20 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: binary is %d bytes, want a multiple of 4 of at least 20", ErrShaderLoad, len(data))
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch order.Uint32(data[:4]) {
	case spirMagic:
	case spirMagicSwapped:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad magic number %#x", ErrShaderLoad, order.Uint32(data[:4]))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4 : i*4+4])
	}

	si := &ShaderInterface{LocalSize: [3]int{1, 1, 1}}

	// Per-id facts gathered on the first and only pass. SPIR-V
	// guarantees types and decorations precede the variables using them.
	// images maps an image type id to its "sampled" operand: 1 means
	// sampled, 2 means storage.
	images := map[uint32]uint32{}
	sampledImages := map[uint32]bool{}
	structs := map[uint32]bool{}
	pointerClass := map[uint32]uint32{}
	pointerType := map[uint32]uint32{}
	blockDecor := map[uint32]uint32{}

	type variable struct {
		storageClass uint32
		pointer      uint32
	}
	vars := map[uint32]variable{}
	bindingOf := map[uint32]int{}
	setOf := map[uint32]int{}

	// Instructions start after the 5-word header.
	for at := 5; at < len(words); {
		wordCount := int(words[at] >> 16)
		opcode := words[at] & 0xffff

		if wordCount == 0 || at+wordCount > len(words) {
			return nil, fmt.Errorf("%w: truncated instruction at word %d", ErrShaderLoad, at)
		}
		inst := words[at : at+wordCount]

		switch opcode {
		case opEntryPoint:
			if len(inst) < 4 {
				return nil, fmt.Errorf("%w: malformed entry point at word %d", ErrShaderLoad, at)
			}
			si.EntryPoints = append(si.EntryPoints, decodeLiteralString(inst[3:]))

		case opExecutionMode:
			if len(inst) >= 6 && inst[2] == executionModeLocalSize {
				si.LocalSize = [3]int{int(inst[3]), int(inst[4]), int(inst[5])}
			}

		case opTypeImage:
			if len(inst) >= 8 {
				images[inst[1]] = inst[7]
			}

		case opTypeSampledImage:
			if len(inst) >= 3 {
				sampledImages[inst[1]] = true
			}

		case opTypeStruct:
			if len(inst) >= 2 {
				structs[inst[1]] = true
			}

		case opTypePointer:
			if len(inst) >= 4 {
				pointerClass[inst[1]] = inst[2]
				pointerType[inst[1]] = inst[3]
			}

		case opVariable:
			if len(inst) >= 4 {
				vars[inst[2]] = variable{storageClass: inst[3], pointer: inst[1]}
			}

		case opDecorate:
			if len(inst) >= 3 {
				target, decoration := inst[1], inst[2]
				switch decoration {
				case decorationBinding:
					if len(inst) >= 4 {
						bindingOf[target] = int(inst[3])
					}
				case decorationDescriptorSet:
					if len(inst) >= 4 {
						setOf[target] = int(inst[3])
					}
				case decorationBlock, decorationBufferBlock:
					blockDecor[target] = decoration
				}
			}
		}

		at += wordCount
	}

	if len(si.EntryPoints) == 0 {
		return nil, fmt.Errorf("%w: module declares no entry points", ErrShaderLoad)
	}

	for id, v := range vars {
		binding, hasBinding := bindingOf[id]
		set, hasSet := setOf[id]
		if !hasBinding && !hasSet {
			continue
		}

		kind, ok := classifyVariable(v.storageClass, pointerType[v.pointer], images, sampledImages, structs, blockDecor)
		if !ok {
			continue
		}

		si.Bindings = append(si.Bindings, BindingInfo{
			Set:     set,
			Binding: binding,
			Kind:    kind,
		})
	}

	sort.Slice(si.Bindings, func(i, j int) bool {
		if si.Bindings[i].Set != si.Bindings[j].Set {
			return si.Bindings[i].Set < si.Bindings[j].Set
		}
		return si.Bindings[i].Binding < si.Bindings[j].Binding
	})

	return si, nil
}

func classifyVariable(storageClass, pointee uint32, images map[uint32]uint32, sampledImages, structs map[uint32]bool, blockDecor map[uint32]uint32) (DescriptorKind, bool) {
	switch storageClass {
	case storageClassStorageBuffer:
		return DescriptorStorageBuffer, true

	case storageClassUniform:
		// Pre-1.3 modules mark storage buffers as Uniform pointers to a
		// BufferBlock-decorated struct.
		if structs[pointee] && blockDecor[pointee] == decorationBufferBlock {
			return DescriptorStorageBuffer, true
		}
		return DescriptorUniformBuffer, true

	case storageClassUniformConstant:
		if sampled, ok := images[pointee]; ok {
			if sampled == 2 {
				return DescriptorStorageImage, true
			}
			return DescriptorCombinedImageSampler, true
		}
		if sampledImages[pointee] {
			return DescriptorCombinedImageSampler, true
		}
	}
	return 0, false
}

// decodeLiteralString unpacks a null-terminated SPIR-V string literal,
// four bytes per word starting at the lowest-order byte.
func decodeLiteralString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf)
			}
			buf = append(buf, b)
		}
	}
	return string(buf)
}

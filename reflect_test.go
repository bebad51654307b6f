package vkplay

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

// inst assembles one SPIR-V instruction: word count in the high half of
// the first word, opcode in the low half.
func inst(op uint32, operands ...uint32) []uint32 {
	out := make([]uint32, 0, len(operands)+1)
	out = append(out, uint32(len(operands)+1)<<16|op)
	return append(out, operands...)
}

// literal packs a string into SPIR-V literal words, null terminated.
func literal(s string) []uint32 {
	raw := append([]byte(s), 0)
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words
}

func module(order binary.ByteOrder, instrs ...[]uint32) []byte {
	words := []uint32{spirMagic, 0x00010000, 0, 100, 0}
	for _, in := range instrs {
		words = append(words, in...)
	}

	out := make([]byte, len(words)*4)
	for i, w := range words {
		order.PutUint32(out[i*4:], w)
	}
	return out
}

func entryPoint(name string) []uint32 {
	const glCompute = 5
	operands := append([]uint32{glCompute, 1}, literal(name)...)
	return inst(opEntryPoint, operands...)
}

func TestReflectMinimalModule(t *testing.T) {
	data := module(binary.LittleEndian, entryPoint("main"))

	si, err := ReflectShader(data)
	if err != nil {
		t.Fatal(err)
	}

	if !si.HasEntryPoint("main") {
		t.Errorf("entry points %v, want main", si.EntryPoints)
	}
	if si.HasEntryPoint("other") {
		t.Error("reported an undeclared entry point")
	}
	if si.LocalSize != [3]int{1, 1, 1} {
		t.Errorf("local size %v, want the 1,1,1 default", si.LocalSize)
	}
	if len(si.Bindings) != 0 {
		t.Errorf("unexpected bindings %v", si.Bindings)
	}
}

func TestReflectLocalSize(t *testing.T) {
	data := module(binary.LittleEndian,
		entryPoint("main"),
		inst(opExecutionMode, 1, executionModeLocalSize, 64, 4, 1),
	)

	si, err := ReflectShader(data)
	if err != nil {
		t.Fatal(err)
	}
	if si.LocalSize != [3]int{64, 4, 1} {
		t.Errorf("local size %v, want [64 4 1]", si.LocalSize)
	}
}

func TestReflectBindings(t *testing.T) {
	data := module(binary.LittleEndian,
		entryPoint("main"),
		// Storage buffer, pre-1.3 style: Uniform pointer to a
		// BufferBlock struct. Declared second to check sorting.
		inst(opDecorate, 5, decorationBufferBlock),
		inst(opDecorate, 7, decorationDescriptorSet, 0),
		inst(opDecorate, 7, decorationBinding, 1),
		inst(opTypeStruct, 5),
		inst(opTypePointer, 6, storageClassUniform, 5),
		inst(opVariable, 6, 7, storageClassUniform),
		// Storage image at binding 0.
		inst(opDecorate, 12, decorationDescriptorSet, 0),
		inst(opDecorate, 12, decorationBinding, 0),
		inst(opTypeImage, 10, 2, 1, 0, 0, 0, 2, 4),
		inst(opTypePointer, 11, storageClassUniformConstant, 10),
		inst(opVariable, 11, 12, storageClassUniformConstant),
	)

	si, err := ReflectShader(data)
	if err != nil {
		t.Fatal(err)
	}

	want := []BindingInfo{
		{Set: 0, Binding: 0, Kind: DescriptorStorageImage},
		{Set: 0, Binding: 1, Kind: DescriptorStorageBuffer},
	}
	if !reflect.DeepEqual(si.Bindings, want) {
		t.Errorf("bindings %v, want %v", si.Bindings, want)
	}
}

func TestReflectUniformAndStorageClasses(t *testing.T) {
	data := module(binary.LittleEndian,
		entryPoint("main"),
		// Block-decorated Uniform struct: a uniform buffer.
		inst(opDecorate, 5, decorationBlock),
		inst(opDecorate, 7, decorationDescriptorSet, 0),
		inst(opDecorate, 7, decorationBinding, 0),
		inst(opTypeStruct, 5),
		inst(opTypePointer, 6, storageClassUniform, 5),
		inst(opVariable, 6, 7, storageClassUniform),
		// StorageBuffer storage class, 1.3 style.
		inst(opDecorate, 9, decorationDescriptorSet, 0),
		inst(opDecorate, 9, decorationBinding, 1),
		inst(opTypePointer, 8, storageClassStorageBuffer, 5),
		inst(opVariable, 8, 9, storageClassStorageBuffer),
		// Combined image sampler.
		inst(opDecorate, 15, decorationDescriptorSet, 0),
		inst(opDecorate, 15, decorationBinding, 2),
		inst(opTypeImage, 13, 2, 1, 0, 0, 0, 1, 0),
		inst(opTypeSampledImage, 14, 13),
		inst(opTypePointer, 16, storageClassUniformConstant, 14),
		inst(opVariable, 16, 15, storageClassUniformConstant),
	)

	si, err := ReflectShader(data)
	if err != nil {
		t.Fatal(err)
	}

	want := []BindingInfo{
		{Set: 0, Binding: 0, Kind: DescriptorUniformBuffer},
		{Set: 0, Binding: 1, Kind: DescriptorStorageBuffer},
		{Set: 0, Binding: 2, Kind: DescriptorCombinedImageSampler},
	}
	if !reflect.DeepEqual(si.Bindings, want) {
		t.Errorf("bindings %v, want %v", si.Bindings, want)
	}
}

func TestReflectBigEndianModule(t *testing.T) {
	data := module(binary.BigEndian,
		entryPoint("main"),
		inst(opExecutionMode, 1, executionModeLocalSize, 8, 8, 1),
	)

	si, err := ReflectShader(data)
	if err != nil {
		t.Fatal(err)
	}
	if !si.HasEntryPoint("main") {
		t.Errorf("entry points %v, want main", si.EntryPoints)
	}
	if si.LocalSize != [3]int{8, 8, 1} {
		t.Errorf("local size %v, want [8 8 1]", si.LocalSize)
	}
}

func TestReflectMalformedModules(t *testing.T) {
	truncated := module(binary.LittleEndian, entryPoint("main"))
	// Lie about the last instruction's length.
	binary.LittleEndian.PutUint32(truncated[20:], 99<<16|opEntryPoint)

	badMagic := module(binary.LittleEndian, entryPoint("main"))
	binary.LittleEndian.PutUint32(badMagic[:4], 0xdeadbeef)

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{0x03, 0x02, 0x23, 0x07}},
		{"unaligned", append(module(binary.LittleEndian, entryPoint("main")), 0xff)},
		{"bad magic", badMagic},
		{"truncated instruction", truncated},
		{"no entry points", module(binary.LittleEndian)},
	} {
		if _, err := ReflectShader(tc.data); !errors.Is(err, ErrShaderLoad) {
			t.Errorf("%s: got %v, want ErrShaderLoad", tc.name, err)
		}
	}
}

func TestDescriptorKindVKTypes(t *testing.T) {
	for _, tc := range []struct {
		kind DescriptorKind
		want vk.DescriptorType
	}{
		{DescriptorStorageBuffer, vk.DescriptorTypeStorageBuffer},
		{DescriptorUniformBuffer, vk.DescriptorTypeUniformBuffer},
		{DescriptorStorageImage, vk.DescriptorTypeStorageImage},
		{DescriptorCombinedImageSampler, vk.DescriptorTypeCombinedImageSampler},
	} {
		if got := tc.kind.VKDescriptorType(); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.kind, got, tc.want)
		}
	}
}

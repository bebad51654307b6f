package vkplay

import (
	"unsafe"
)

// Uint32Slice gives a uint32 slice a byte view for filling storage
// buffers without copying element by element.
type Uint32Slice []uint32

func (s Uint32Slice) Bytes() []byte {
	size := len(s) * int(unsafe.Sizeof(uint32(0)))
	return ToBytes(unsafe.Pointer(&s[0]), size)
}

// Float32Slice gives a float32 slice a byte view for filling storage
// buffers.
type Float32Slice []float32

func (s Float32Slice) Bytes() []byte {
	size := len(s) * int(unsafe.Sizeof(float32(0)))
	return ToBytes(unsafe.Pointer(&s[0]), size)
}

// AsUint32Slice views mapped bytes as uint32s for host-side verification
// of device results. The byte slice must be 4-byte aligned, which mapped
// device memory always is.
func AsUint32Slice(data []byte) []uint32 {
	return sliceUint32(data)
}

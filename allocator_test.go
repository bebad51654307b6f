package vkplay

import (
	"testing"
)

func TestAlignUp(t *testing.T) {
	if alignUp(12, 3) != 12 {
		t.Fail()
	}

	if alignUp(10, 3) != 12 {
		t.Fail()
	}

	if alignUp(0, 16) != 0 {
		t.Fail()
	}
}

func TestLinearAllocator(t *testing.T) {
	a := LinearAllocator{Size: 1024}

	if ra := a.Allocate(2048, 1); ra != nil {
		t.Error("oversized allocation should fail")
	}

	fa := a.Allocate(512, 1)
	if fa == nil {
		t.Fatal("first allocation failed")
	}

	if ra := a.Allocate(768, 1); ra != nil {
		t.Error("allocation past capacity should fail")
	}

	k := a.Allocate(500, 1)
	if k == nil {
		t.Fatal("second allocation failed")
	}

	if ra := a.Allocate(50, 1); ra != nil {
		t.Error("allocation into a 12 byte tail should fail")
	}

	if ra := a.Allocate(5, 1); ra == nil {
		t.Error("tail allocation failed")
	}

	if ra := a.Allocate(20, 1); ra != nil {
		t.Error("allocation into a 7 byte tail should fail")
	}

	a.Free(k)
	if ra := a.Allocate(500, 1); ra == nil {
		t.Error("reallocation of freed gap failed")
	}

	a.Free(fa)
	if ra := a.Allocate(20, 1); ra == nil {
		t.Error("head allocation after free failed")
	}
}

func TestLinearAllocatorAlignment(t *testing.T) {
	a := LinearAllocator{Size: 256}

	first := a.Allocate(10, 1)
	if first == nil {
		t.Fatal("allocation failed")
	}

	second := a.Allocate(16, 64)
	if second == nil {
		t.Fatal("aligned allocation failed")
	}
	if second.Offset%64 != 0 {
		t.Errorf("offset %d not aligned to 64", second.Offset)
	}
}

func TestLinearAllocatorReusesGaps(t *testing.T) {
	a := LinearAllocator{Size: 300}

	head := a.Allocate(100, 1)
	mid := a.Allocate(100, 1)
	tail := a.Allocate(100, 1)
	if head == nil || mid == nil || tail == nil {
		t.Fatal("setup allocations failed")
	}

	a.Free(mid)

	got := a.Allocate(80, 1)
	if got == nil {
		t.Fatal("gap allocation failed")
	}
	if got.Offset != 100 {
		t.Errorf("gap allocation landed at %d, want 100", got.Offset)
	}

	if a.InUse() != 3 {
		t.Errorf("expected 3 live allocations, have %d", a.InUse())
	}
}

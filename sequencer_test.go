package vkplay

import (
	"errors"
	"testing"
	"time"
	"unsafe"
)

func TestGroupCounts(t *testing.T) {
	for _, tc := range []struct {
		name  string
		total [3]int
		local [3]int
		want  [3]int
	}{
		{"1d exact", [3]int{1024, 1, 1}, [3]int{64, 1, 1}, [3]int{16, 1, 1}},
		{"2d exact", [3]int{800, 600, 1}, [3]int{8, 8, 1}, [3]int{100, 75, 1}},
		{"unit local", [3]int{7, 1, 1}, [3]int{1, 1, 1}, [3]int{7, 1, 1}},
		{"zero axes count as one", [3]int{1024, 0, 0}, [3]int{64, 1, 1}, [3]int{16, 1, 1}},
		{"zero local counts as one", [3]int{5, 1, 1}, [3]int{0, 1, 1}, [3]int{5, 1, 1}},
	} {
		got, err := GroupCounts(tc.total, tc.local)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGroupCountsRejectsPartialWorkgroups(t *testing.T) {
	for _, tc := range []struct {
		name  string
		total [3]int
		local [3]int
	}{
		{"x remainder", [3]int{1000, 1, 1}, [3]int{64, 1, 1}},
		{"y remainder", [3]int{64, 100, 1}, [3]int{64, 8, 1}},
		{"smaller than group", [3]int{5, 1, 1}, [3]int{64, 1, 1}},
	} {
		if _, err := GroupCounts(tc.total, tc.local); !errors.Is(err, ErrPartialWorkgroup) {
			t.Errorf("%s: got %v, want ErrPartialWorkgroup", tc.name, err)
		}
	}
}

func hostResource(backing []byte, offset, size uint64) *BufferResource {
	pool := &BufferResourcePool{
		Memory: &DeviceMemory{
			Ptr:  unsafe.Pointer(&backing[0]),
			Size: uint64(len(backing)),
		},
	}
	return &BufferResource{
		ResourcePool: pool,
		Allocation:   &Allocation{Offset: offset, Size: size},
	}
}

func TestSubmissionReadBeforeWait(t *testing.T) {
	backing := make([]byte, 16)
	r := hostResource(backing, 0, 16)

	s := &Submission{state: submissionRecorded}
	if _, err := s.ReadBytes(r); !errors.Is(err, ErrNotReady) {
		t.Errorf("read of recorded submission: got %v, want ErrNotReady", err)
	}

	s.state = submissionSubmitted
	if _, err := s.ReadBytes(r); !errors.Is(err, ErrNotReady) {
		t.Errorf("read of submitted submission: got %v, want ErrNotReady", err)
	}
}

func TestSubmissionWaitThenRead(t *testing.T) {
	backing := make([]byte, 16)
	backing[4] = 0xaa
	r := hostResource(backing, 4, 8)

	waits := 0
	s := &Submission{
		state: submissionSubmitted,
		waitFn: func(time.Duration) error {
			waits++
			return nil
		},
	}

	if err := s.Wait(0); err != nil {
		t.Fatal(err)
	}
	if !s.Done() {
		t.Error("submission should report done after wait")
	}

	got, err := s.ReadBytes(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 || got[0] != 0xaa {
		t.Errorf("read %d bytes starting %#x, want 8 bytes starting 0xaa", len(got), got[0])
	}

	// Waiting again is a no-op, not a second fence wait.
	if err := s.Wait(0); err != nil {
		t.Fatal(err)
	}
	if waits != 1 {
		t.Errorf("fence waited %d times, want 1", waits)
	}
}

func TestSubmissionWaitTimeoutLeavesStateWaitable(t *testing.T) {
	fail := true
	s := &Submission{
		state: submissionSubmitted,
		waitFn: func(time.Duration) error {
			if fail {
				return ErrWaitTimeout
			}
			return nil
		},
	}

	if err := s.Wait(time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("got %v, want ErrWaitTimeout", err)
	}
	if s.Done() {
		t.Error("timed-out submission must not report done")
	}
	if _, err := s.ReadBytes(hostResource(make([]byte, 4), 0, 4)); !errors.Is(err, ErrNotReady) {
		t.Errorf("read after timeout: got %v, want ErrNotReady", err)
	}

	fail = false
	if err := s.Wait(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if !s.Done() {
		t.Error("submission should report done after a successful retry")
	}
}

func TestSubmissionLifecycleViolations(t *testing.T) {
	s := &Submission{state: submissionRecorded}
	if err := s.Wait(0); err == nil {
		t.Error("waiting on a recorded submission should fail")
	}

	s.state = submissionSubmitted
	if err := s.Discard(); err == nil {
		t.Error("discarding an in-flight submission should fail")
	}

	s.state = submissionDiscarded
	if err := s.Wait(0); err == nil {
		t.Error("waiting on a discarded submission should fail")
	}
	if err := s.Discard(); err != nil {
		t.Errorf("re-discarding should be a no-op, got %v", err)
	}
}

func TestSubmissionReadRejectsUnmappedResource(t *testing.T) {
	r := &BufferResource{
		ResourcePool: &BufferResourcePool{Memory: &DeviceMemory{}},
		Allocation:   &Allocation{},
	}

	s := &Submission{state: submissionWaited}
	if _, err := s.ReadBytes(r); err == nil {
		t.Error("reading an unmapped resource should fail")
	}
}

func TestSubmissionReadRejectsStagedResource(t *testing.T) {
	r := &BufferResource{
		ResourcePool: &BufferResourcePool{NeedsStaging: true, Memory: &DeviceMemory{}},
		Allocation:   &Allocation{},
	}

	s := &Submission{state: submissionWaited}
	if _, err := s.ReadBytes(r); err == nil {
		t.Error("reading a device-local resource without staging should fail")
	}
}

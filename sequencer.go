package vkplay

import (
	"fmt"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// GroupCounts converts total element counts per axis into dispatch group
// counts for the given work-group size. Axes at or below zero count as
// one. A total that does not divide evenly by its axis's work-group size
// is rejected with ErrPartialWorkgroup: truncating would silently skip
// the trailing elements and rounding up would process elements that do
// not exist.
func GroupCounts(total, local [3]int) ([3]int, error) {
	var groups [3]int
	for axis := 0; axis < 3; axis++ {
		t, l := total[axis], local[axis]
		if t <= 0 {
			t = 1
		}
		if l <= 0 {
			l = 1
		}
		if t%l != 0 {
			return [3]int{}, fmt.Errorf("%w: axis %d has %d elements, work-group size %d", ErrPartialWorkgroup, axis, t, l)
		}
		groups[axis] = t / l
	}
	return groups, nil
}

// ImageTransition is a layout change recorded before the dispatch runs,
// typically undefined to general for a storage image.
type ImageTransition struct {
	Image *Image
	From  vk.ImageLayout
	To    vk.ImageLayout
}

// CopyOp is a buffer-to-buffer copy recorded after the dispatch, used to
// move results into host-readable memory.
type CopyOp struct {
	Src  *Buffer
	Dst  *Buffer
	Size uint64
}

// ImageDownload records a transition of the image out of its dispatch
// layout followed by a copy of its full extent into a buffer.
type ImageDownload struct {
	Image *Image
	From  vk.ImageLayout
	Dst   *Buffer
}

// Dispatch describes one single-shot compute submission: the pipeline to
// bind, the descriptor sets feeding it, the group counts, and any
// transfers that bracket it. Everything is recorded into one command
// buffer and executed in declaration order.
type Dispatch struct {
	Pipeline *PipelineBundle
	Sets     []*DescriptorSet
	FirstSet int
	Groups   [3]int

	Transitions []ImageTransition
	Downloads   []ImageDownload
	Copies      []CopyOp
}

type submissionState int

const (
	submissionRecorded submissionState = iota
	submissionSubmitted
	submissionWaited
	submissionDiscarded
)

func (s submissionState) String() string {
	switch s {
	case submissionRecorded:
		return "recorded"
	case submissionSubmitted:
		return "submitted"
	case submissionWaited:
		return "waited"
	}
	return "discarded"
}

// Submission is a recorded dispatch moving through its lifecycle:
// recorded, submitted, waited, discarded. Host readback of results is
// refused until the completion wait has returned, which is what makes
// wait-before-read a compile-against-able rule instead of folklore.
type Submission struct {
	Device *Device
	Pool   *CommandPool
	Cmd    *CommandBuffer
	Fence  *Fence
	Queue  *Queue

	state submissionState

	// waitFn stands in for the fence wait so lifecycle rules can be
	// exercised without a device.
	waitFn func(timeout time.Duration) error
}

// RecordDispatch allocates a one-time command buffer from the pool and
// records the whole dispatch into it: pre-transitions, pipeline and
// descriptor binds, the dispatch itself, then downloads and copies with
// a barrier making the compute writes visible to the transfer stage.
func (d *Device) RecordDispatch(pool *CommandPool, dsp *Dispatch) (*Submission, error) {
	cmd, err := pool.AllocateBuffer()
	if err != nil {
		return nil, err
	}

	release := func() { pool.FreeBuffer(cmd) }

	if err := cmd.BeginOneTime(); err != nil {
		release()
		return nil, err
	}

	for _, t := range dsp.Transitions {
		cmd.CmdTransitionImageLayout(t.Image, t.From, t.To)
	}

	cmd.CmdBindComputePipeline(dsp.Pipeline.Pipeline)
	if len(dsp.Sets) > 0 {
		cmd.CmdBindDescriptorSets(vk.PipelineBindPointCompute, dsp.Pipeline.Layout, dsp.FirstSet, dsp.Sets...)
	}
	cmd.CmdDispatch(dsp.Groups[0], dsp.Groups[1], dsp.Groups[2])

	if len(dsp.Downloads) > 0 || len(dsp.Copies) > 0 {
		cmd.cmdComputeToTransferBarrier()
	}

	for _, dl := range dsp.Downloads {
		cmd.CmdTransitionImageLayout(dl.Image, dl.From, vk.ImageLayoutTransferSrcOptimal)
		cmd.CmdCopyImageToBuffer(dl.Image, dl.Image.Extent, dl.Dst)
	}
	for _, cp := range dsp.Copies {
		cmd.CmdCopyBuffer(cp.Src, cp.Dst, cp.Size)
	}

	if err := cmd.End(); err != nil {
		release()
		return nil, err
	}

	fence, err := d.CreateFence()
	if err != nil {
		release()
		return nil, err
	}

	return &Submission{
		Device: d,
		Pool:   pool,
		Cmd:    cmd,
		Fence:  fence,
		state:  submissionRecorded,
	}, nil
}

// cmdComputeToTransferBarrier makes compute shader writes visible to
// subsequent transfer reads.
func (c *CommandBuffer) cmdComputeToTransferBarrier() {
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessTransferReadBit),
	}
	vk.CmdPipelineBarrier(c.VKCommandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
}

// SubmitTo submits the recorded work to the given queue exactly once.
func (s *Submission) SubmitTo(q *Queue) error {
	if s.state != submissionRecorded {
		return fmt.Errorf("cannot submit a %s submission", s.state)
	}

	if err := q.SubmitWithFence(s.Fence, s.Cmd); err != nil {
		return err
	}

	s.Queue = q
	s.state = submissionSubmitted
	if s.waitFn == nil {
		s.waitFn = s.Fence.Wait
	}
	return nil
}

// Wait blocks until the device finishes the submission. A timeout of
// zero or less waits without bound; expiry reports ErrWaitTimeout and
// leaves the submission waitable again. Waiting on an already-waited
// submission is a no-op.
func (s *Submission) Wait(timeout time.Duration) error {
	switch s.state {
	case submissionWaited:
		return nil
	case submissionSubmitted:
	default:
		return fmt.Errorf("cannot wait on a %s submission", s.state)
	}

	if err := s.waitFn(timeout); err != nil {
		return err
	}

	s.state = submissionWaited
	return nil
}

// Done reports whether the completion wait has returned.
func (s *Submission) Done() bool {
	return s.state == submissionWaited
}

// ReadBytes returns the mapped bytes of a host-visible resource written
// by this submission. Before the completion wait has returned the device
// may still be writing, so reads are refused with ErrNotReady.
func (s *Submission) ReadBytes(r *BufferResource) ([]byte, error) {
	if s.state != submissionWaited {
		return nil, ErrNotReady
	}

	b := r.Bytes()
	if b == nil {
		return nil, fmt.Errorf("resource is not host readable: it requires staging or its pool is unmapped")
	}
	return b, nil
}

// Discard releases the command buffer and fence. The submission must not
// be in flight: discard it before submitting or after waiting.
func (s *Submission) Discard() error {
	switch s.state {
	case submissionSubmitted:
		return fmt.Errorf("cannot discard an in-flight submission")
	case submissionDiscarded:
		return nil
	}

	s.Fence.Destroy()
	s.Pool.FreeBuffer(s.Cmd)
	s.state = submissionDiscarded
	return nil
}

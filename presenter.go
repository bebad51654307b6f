package vkplay

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// FrameLag is how many frames may be in flight at once.
var FrameLag = 3

// NewClearColor builds the float32 member of the clear color union.
func NewClearColor(r, g, b, a float32) vk.ClearColorValue {
	var color vk.ClearColorValue
	floats := (*[4]float32)(unsafe.Pointer(&color))
	floats[0], floats[1], floats[2], floats[3] = r, g, b, a
	return color
}

// WindowApp owns a GLFW window and everything needed to present cleared
// frames to it: the common setup with a selector-chosen device, a
// swapchain, and per-frame synchronization. It is deliberately minimal;
// programs needing geometry bring their own render passes.
type WindowApp struct {
	Common *Common
	Window *glfw.Window

	Swapchain       *Swapchain
	SwapchainImages []*Image

	ClearColor vk.ClearColorValue

	commandBuffers []*CommandBuffer

	imageAvailable []*Semaphore
	renderDone     []*Semaphore
	inFlight       []*Fence

	frameIndex int
}

// NewWindowApp opens a window and runs the common setup against its
// surface. GLFW resolves the instance proc address, so driver
// initialization goes through it rather than the default loader.
func NewWindowApp(title string, width, height int, cfg *Config) (*WindowApp, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw initialization failed: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw reports no vulkan support")
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("vulkan initialization failed: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window creation failed: %w", err)
	}

	w := &WindowApp{Window: window}

	cfg.Variant = VariantWindowed
	cfg.SkipDriverInit = true
	cfg.InstanceExtensions = append(cfg.InstanceExtensions, window.GetRequiredInstanceExtensions()...)
	cfg.CreateSurface = func(i *Instance) (vk.Surface, error) {
		surface, err := window.CreateWindowSurface(i.VKInstance, nil)
		if err != nil {
			return vk.NullSurface, err
		}
		return vk.SurfaceFromPointer(surface), nil
	}

	w.Common, err = Open(cfg)
	if err != nil {
		w.destroyWindow()
		return nil, err
	}

	if err := w.prepare(); err != nil {
		w.Destroy()
		return nil, err
	}

	return w, nil
}

func (w *WindowApp) prepare() error {
	c := w.Common

	var err error
	w.Swapchain, err = c.Device.CreateSwapchain(c.Surface, c.Selection, nil)
	if err != nil {
		return err
	}

	w.SwapchainImages, err = w.Swapchain.GetImages()
	if err != nil {
		return err
	}

	w.commandBuffers, err = c.CommandPool.AllocateBuffers(len(w.SwapchainImages))
	if err != nil {
		return err
	}

	for i := 0; i < FrameLag; i++ {
		avail, err := c.Device.CreateSemaphore()
		if err != nil {
			return err
		}
		w.imageAvailable = append(w.imageAvailable, avail)

		done, err := c.Device.CreateSemaphore()
		if err != nil {
			return err
		}
		w.renderDone = append(w.renderDone, done)

		fence, err := c.Device.CreateSignaledFence()
		if err != nil {
			return err
		}
		w.inFlight = append(w.inFlight, fence)
	}

	return nil
}

// Run drives the frame loop until the window is closed.
func (w *WindowApp) Run() error {
	for !w.Window.ShouldClose() {
		glfw.PollEvents()
		if err := w.DrawFrame(); err != nil {
			return err
		}
	}
	w.Common.Device.WaitIdle()
	return nil
}

// DrawFrame acquires a swapchain image, clears it to ClearColor through a
// transfer, and presents it.
func (w *WindowApp) DrawFrame() error {
	c := w.Common

	if err := w.inFlight[w.frameIndex].Wait(0); err != nil {
		return err
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(c.Device.VKDevice, w.Swapchain.VKSwapchain, vk.MaxUint64,
		w.imageAvailable[w.frameIndex].VKSemaphore, vk.NullFence, &imageIndex)
	if res == vk.ErrorOutOfDate || res == vk.Suboptimal {
		return w.recreateSwapchain()
	}
	if err := vk.Error(res); err != nil {
		return err
	}

	if err := w.inFlight[w.frameIndex].Reset(); err != nil {
		return err
	}

	cmd := w.commandBuffers[imageIndex]
	if err := cmd.Reset(); err != nil {
		return err
	}
	if err := w.recordClear(cmd, w.SwapchainImages[imageIndex]); err != nil {
		return err
	}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{w.imageAvailable[w.frameIndex].VKSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{w.renderDone[w.frameIndex].VKSemaphore},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.VKCommandBuffer},
	}}

	err := vk.Error(vk.QueueSubmit(c.Queue.VKQueue, 1, submitInfo, w.inFlight[w.frameIndex].VKFence))
	if err != nil {
		return err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{w.Swapchain.VKSwapchain},
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{w.renderDone[w.frameIndex].VKSemaphore},
		PImageIndices:      []uint32{imageIndex},
	}

	res = vk.QueuePresent(c.PresentQueue.VKQueue, &presentInfo)
	if res == vk.ErrorOutOfDate || res == vk.Suboptimal {
		return w.recreateSwapchain()
	}
	if err := vk.Error(res); err != nil {
		return err
	}

	w.frameIndex = (w.frameIndex + 1) % FrameLag
	return nil
}

func (w *WindowApp) recordClear(cmd *CommandBuffer, img *Image) error {
	if err := cmd.Begin(); err != nil {
		return err
	}

	cmd.CmdTransitionImageLayout(img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

	ranges := []vk.ImageSubresourceRange{{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}}
	vk.CmdClearColorImage(cmd.VKCommandBuffer, img.VKImage, vk.ImageLayoutTransferDstOptimal, &w.ClearColor, 1, ranges)

	cmd.CmdTransitionImageLayout(img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc)

	return cmd.End()
}

func (w *WindowApp) recreateSwapchain() error {
	c := w.Common
	c.Device.WaitIdle()

	old := w.Swapchain
	next, err := c.Device.CreateSwapchain(c.Surface, c.Selection, &CreateSwapchainOptions{OldSwapchain: old})
	if err != nil {
		return err
	}
	old.Destroy()

	w.Swapchain = next
	w.SwapchainImages, err = next.GetImages()
	if err != nil {
		return err
	}

	if len(w.commandBuffers) != len(w.SwapchainImages) {
		c.CommandPool.FreeBuffers(w.commandBuffers)
		w.commandBuffers, err = c.CommandPool.AllocateBuffers(len(w.SwapchainImages))
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *WindowApp) destroyWindow() {
	if w.Window != nil {
		w.Window.Destroy()
		w.Window = nil
	}
	glfw.Terminate()
}

func (w *WindowApp) Destroy() {
	if w.Common != nil && w.Common.Device != nil {
		w.Common.Device.WaitIdle()
	}

	for _, s := range w.imageAvailable {
		s.Destroy()
	}
	for _, s := range w.renderDone {
		s.Destroy()
	}
	for _, f := range w.inFlight {
		f.Destroy()
	}
	w.imageAvailable, w.renderDone, w.inFlight = nil, nil, nil

	if w.Swapchain != nil {
		w.Swapchain.Destroy()
		w.Swapchain = nil
	}
	if w.Common != nil {
		w.Common.Close()
		w.Common = nil
	}
	w.destroyWindow()
}

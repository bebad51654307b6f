/*
Package vkplay is a small toolkit for standing up Vulkan compute (and, for
the windowed variant, presentation) programs in Go. It wraps the handful of
setup steps every Vulkan program repeats - instance creation with validation
layers, physical device selection, logical device and queue creation, memory
and descriptor allocation, command recording and fenced submission - behind
typed objects, while deliberately leaving the native API reachable: every
wrapper exposes its VK* handle so an application can drop down to
github.com/vulkan-go/vulkan whenever the toolkit gets in the way.

The package is organized around the lifecycle of a single dispatch:

An Instance is created from an App description, optionally with the Khronos
validation layer and a diagnostics callback attached. Capabilities snapshots
the physical devices the driver can see, and Select applies a deterministic
filter-then-rank policy to choose one device and its queue families. Open
bundles all of that - instance, diagnostics, device, queues, memory pools and
a command pool - into a Common value whose Close method releases everything
in reverse creation order.

A compute pipeline is built from a compiled SPIR-V module with
BuildComputePipeline, which introspects the module's declared bindings and
work-group size rather than asking the caller to restate them. RecordDispatch
records a single-use command buffer around the pipeline, and the resulting
Submission is submitted to a queue and waited on with an explicit fence;
host readback is only reachable after the wait has returned.

Programs are single-shot batch jobs. Every setup failure is fatal: there is
no retry or degraded mode, the correct behavior is to report the error and
exit.
*/
package vkplay

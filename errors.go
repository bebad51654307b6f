package vkplay

import "errors"

// Every error in this package is fatal for the calling program: these are
// single-shot batch jobs and there is no degraded mode to fall back to.
// Sentinels exist so callers can tell the taxonomy categories apart in
// their exit messages, not so they can recover.
var (
	// ErrNoDevicesFound is reported when the driver enumerates zero
	// physical devices.
	ErrNoDevicesFound = errors.New("no physical devices found")

	// ErrNoSuitableDevice is reported when no enumerated device passes
	// the hard requirement filter.
	ErrNoSuitableDevice = errors.New("no physical device satisfies the required capabilities")

	// ErrMissingValidationLayer is reported when a requested validation
	// layer is not present in the driver installation.
	ErrMissingValidationLayer = errors.New("validation layer not available")

	// ErrShaderLoad is reported for malformed or truncated SPIR-V
	// modules, or modules missing the requested entry point.
	ErrShaderLoad = errors.New("malformed shader module")

	// ErrPartialWorkgroup is reported when an element count does not
	// divide evenly by the shader's local work-group size. Truncating
	// would silently skip trailing elements, so the configuration is
	// rejected instead.
	ErrPartialWorkgroup = errors.New("element count not divisible by work-group size")

	// ErrWaitTimeout is reported when a bounded fence wait expires
	// before the device signals completion.
	ErrWaitTimeout = errors.New("timed out waiting for device")

	// ErrNotReady guards host readback: destination memory may only be
	// read after the completion wait has returned.
	ErrNotReady = errors.New("submission has not been waited on")

	// ErrPoolExhausted is reported when a resource pool has no gap large
	// enough for a requested sub-allocation.
	ErrPoolExhausted = errors.New("insufficient space in resource pool")
)

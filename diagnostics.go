package vkplay

import (
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Severity orders diagnostic events from most to least urgent.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityTrace
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityTrace:
		return "trace"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Category tags the origin of a diagnostic event.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryValidation
	CategoryPerformance
)

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryValidation:
		return "validation"
	case CategoryPerformance:
		return "performance"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// DiagnosticHandler receives validation and debug events. The driver
// invokes the handler on a thread it controls, during any driver call, so
// implementations must not block and must be safe to enter reentrantly.
type DiagnosticHandler interface {
	OnDiagnostic(severity Severity, category Category, message string)
}

// LogSink is the default DiagnosticHandler; it forwards each event to a
// logrus logger at the level matching its severity.
type LogSink struct {
	Logger *logrus.Logger
}

// NewLogSink returns a sink writing to the given logger, or to the logrus
// standard logger when nil.
func NewLogSink(logger *logrus.Logger) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) OnDiagnostic(severity Severity, category Category, message string) {
	entry := s.Logger.WithField("category", category.String())
	switch severity {
	case SeverityError:
		entry.Error(message)
	case SeverityWarning:
		entry.Warn(message)
	case SeverityInfo:
		entry.Info(message)
	default:
		entry.Trace(message)
	}
}

// AttachDiagnostics registers h as the instance's debug report callback.
// The instance must have been created with the VK_EXT_debug_report
// extension enabled (see App.EnableValidation). The callback is released
// when the instance is destroyed.
func (i *Instance) AttachDiagnostics(h DiagnosticHandler) error {
	flags := vk.DebugReportFlags(vk.DebugReportErrorBit |
		vk.DebugReportWarningBit |
		vk.DebugReportPerformanceWarningBit |
		vk.DebugReportInformationBit |
		vk.DebugReportDebugBit)

	var callback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(i.VKInstance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       flags,
		PfnCallback: forwardDiagnostic(h),
	}, nil, &callback)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("unable to register diagnostics callback: %w", err)
	}

	i.debugCallback = callback
	i.hasDebug = true
	return nil
}

// forwardDiagnostic adapts the driver's callback signature onto the
// DiagnosticHandler interface. Returning false tells the driver not to
// abort the call that triggered the event.
func forwardDiagnostic(h DiagnosticHandler) vk.DebugReportCallbackFunc {
	return func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
		object uint64, location uint, messageCode int32, pLayerPrefix string,
		pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

		severity, category := classifyReport(flags)
		h.OnDiagnostic(severity, category, fmt.Sprintf("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage))
		return vk.Bool32(vk.False)
	}
}

func classifyReport(flags vk.DebugReportFlags) (Severity, Category) {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return SeverityError, CategoryValidation
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return SeverityWarning, CategoryPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return SeverityWarning, CategoryValidation
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return SeverityInfo, CategoryGeneral
	default:
		return SeverityTrace, CategoryGeneral
	}
}

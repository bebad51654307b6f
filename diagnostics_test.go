package vkplay

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	vk "github.com/vulkan-go/vulkan"
)

func TestLogSinkLevels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	sink := NewLogSink(logger)

	for _, tc := range []struct {
		severity Severity
		want     logrus.Level
	}{
		{SeverityError, logrus.ErrorLevel},
		{SeverityWarning, logrus.WarnLevel},
		{SeverityInfo, logrus.InfoLevel},
		{SeverityTrace, logrus.TraceLevel},
	} {
		hook.Reset()
		sink.OnDiagnostic(tc.severity, CategoryValidation, "boom")

		entry := hook.LastEntry()
		if entry == nil {
			t.Fatalf("%s: nothing logged", tc.severity)
		}
		if entry.Level != tc.want {
			t.Errorf("%s: logged at %s, want %s", tc.severity, entry.Level, tc.want)
		}
		if entry.Message != "boom" {
			t.Errorf("%s: message %q", tc.severity, entry.Message)
		}
		if entry.Data["category"] != "validation" {
			t.Errorf("%s: category field %v", tc.severity, entry.Data["category"])
		}
	}
}

func TestNewLogSinkDefaultsToStandardLogger(t *testing.T) {
	sink := NewLogSink(nil)
	if sink.Logger != logrus.StandardLogger() {
		t.Error("nil logger should fall back to the standard logger")
	}
}

func TestClassifyReport(t *testing.T) {
	for _, tc := range []struct {
		name     string
		flags    vk.DebugReportFlags
		severity Severity
		category Category
	}{
		{"error", vk.DebugReportFlags(vk.DebugReportErrorBit), SeverityError, CategoryValidation},
		{"performance", vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit), SeverityWarning, CategoryPerformance},
		{"warning", vk.DebugReportFlags(vk.DebugReportWarningBit), SeverityWarning, CategoryValidation},
		{"information", vk.DebugReportFlags(vk.DebugReportInformationBit), SeverityInfo, CategoryGeneral},
		{"debug", vk.DebugReportFlags(vk.DebugReportDebugBit), SeverityTrace, CategoryGeneral},
		// An error accompanied by other bits is still an error.
		{"error and warning", vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit), SeverityError, CategoryValidation},
	} {
		severity, category := classifyReport(tc.flags)
		if severity != tc.severity || category != tc.category {
			t.Errorf("%s: classified %s/%s, want %s/%s", tc.name, severity, category, tc.severity, tc.category)
		}
	}
}

func TestSeverityAndCategoryStrings(t *testing.T) {
	if SeverityWarning.String() != "warning" {
		t.Error(SeverityWarning)
	}
	if CategoryPerformance.String() != "performance" {
		t.Error(CategoryPerformance)
	}
	if Severity(42).String() != "severity(42)" {
		t.Error(Severity(42))
	}
	if Category(42).String() != "category(42)" {
		t.Error(Category(42))
	}
}

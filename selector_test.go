package vkplay

import (
	"errors"
	"reflect"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

type recordedDiagnostic struct {
	Severity Severity
	Category Category
	Message  string
}

type recordingHandler struct {
	events []recordedDiagnostic
}

func (r *recordingHandler) OnDiagnostic(sev Severity, cat Category, msg string) {
	r.events = append(r.events, recordedDiagnostic{sev, cat, msg})
}

func computeDevice(index int, class DeviceClass) DeviceCapability {
	return DeviceCapability{
		Index: index,
		Name:  "dev",
		Class: class,
		Families: []FamilyCapability{
			{Index: 0, Compute: true},
		},
	}
}

func TestSelectComputeSatisfaction(t *testing.T) {
	caps := []DeviceCapability{
		{
			Index: 0,
			Class: DeviceIntegrated,
			Families: []FamilyCapability{
				{Index: 0, Graphics: true},
				{Index: 1, Compute: true},
			},
		},
	}

	sel, err := Select(caps, Requirements{Compute: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Device != 0 {
		t.Errorf("selected device %d, want 0", sel.Device)
	}
	if sel.QueueFamily != 1 {
		t.Errorf("selected family %d, want the compute family 1", sel.QueueFamily)
	}
	if sel.Concurrent() {
		t.Error("compute-only selection should not be concurrent")
	}
}

func TestSelectComputeDoesNotRequireGraphics(t *testing.T) {
	// A compute-only device (no graphics bit anywhere) must qualify for
	// compute work.
	caps := []DeviceCapability{
		{
			Index:    0,
			Class:    DeviceOther,
			Families: []FamilyCapability{{Index: 0, Compute: true}},
		},
	}

	if _, err := Select(caps, Requirements{Compute: true}, nil); err != nil {
		t.Fatalf("compute-only device rejected: %v", err)
	}
}

func TestSelectNoSuitableDevice(t *testing.T) {
	caps := []DeviceCapability{
		{
			Index:    0,
			Class:    DeviceDiscrete,
			Families: []FamilyCapability{{Index: 0, Graphics: true}},
		},
	}

	_, err := Select(caps, Requirements{Compute: true}, nil)
	if !errors.Is(err, ErrNoSuitableDevice) {
		t.Fatalf("got %v, want ErrNoSuitableDevice", err)
	}
}

func TestSelectRanksDiscreteFirst(t *testing.T) {
	integrated := computeDevice(0, DeviceIntegrated)
	discrete := computeDevice(1, DeviceDiscrete)

	sel, err := Select([]DeviceCapability{integrated, discrete}, Requirements{Compute: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Device != 1 {
		t.Errorf("selected device %d, want the discrete device 1", sel.Device)
	}

	// Same devices, opposite enumeration order.
	discrete.Index, integrated.Index = 0, 1
	sel, err = Select([]DeviceCapability{discrete, integrated}, Requirements{Compute: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Device != 0 {
		t.Errorf("selected device %d, want the discrete device 0", sel.Device)
	}
}

func TestSelectTieBreaksByEnumerationOrder(t *testing.T) {
	caps := []DeviceCapability{
		computeDevice(0, DeviceDiscrete),
		computeDevice(1, DeviceDiscrete),
	}

	sel, err := Select(caps, Requirements{Compute: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Device != 0 {
		t.Errorf("selected device %d, want the first-enumerated 0", sel.Device)
	}
}

func TestSelectRankNeverRescuesFilteredDevice(t *testing.T) {
	// The discrete device misses a required extension; the integrated one
	// has it. Class rank must not override the hard filter.
	caps := []DeviceCapability{
		{
			Index:    0,
			Class:    DeviceDiscrete,
			Families: []FamilyCapability{{Index: 0, Compute: true}},
		},
		{
			Index:      1,
			Class:      DeviceIntegrated,
			Families:   []FamilyCapability{{Index: 0, Compute: true}},
			Extensions: []string{"VK_KHR_shader_float16_int8"},
		},
	}

	sel, err := Select(caps, Requirements{
		Compute:    true,
		Extensions: []string{"VK_KHR_shader_float16_int8"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Device != 1 {
		t.Errorf("selected device %d, want the only qualifying device 1", sel.Device)
	}
}

func TestSelectExtensionMatchIsExact(t *testing.T) {
	caps := []DeviceCapability{
		{
			Index:      0,
			Class:      DeviceDiscrete,
			Families:   []FamilyCapability{{Index: 0, Compute: true}},
			Extensions: []string{"VK_KHR_swapchain_extra"},
		},
	}

	_, err := Select(caps, Requirements{Compute: true, Extensions: []string{SwapchainExtension}}, nil)
	if !errors.Is(err, ErrNoSuitableDevice) {
		t.Fatalf("prefix-matching extension should not qualify, got %v", err)
	}
}

func presentDevice(formats, modes int, families ...FamilyCapability) DeviceCapability {
	return DeviceCapability{
		Class:          DeviceDiscrete,
		Families:       families,
		Extensions:     []string{SwapchainExtension},
		SurfaceFormats: formats,
		PresentModes:   modes,
	}
}

func TestSelectSwapchainAdequacy(t *testing.T) {
	family := FamilyCapability{Index: 0, Graphics: true, Present: true}
	req := Requirements{Graphics: true, Present: true, Extensions: []string{SwapchainExtension}}

	for _, tc := range []struct {
		name    string
		formats int
		modes   int
		ok      bool
	}{
		{"both present", 3, 2, true},
		{"no formats", 0, 2, false},
		{"no modes", 3, 0, false},
	} {
		_, err := Select([]DeviceCapability{presentDevice(tc.formats, tc.modes, family)}, req, nil)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrNoSuitableDevice) {
			t.Errorf("%s: got %v, want ErrNoSuitableDevice", tc.name, err)
		}
	}
}

func TestSelectPrefersSharedFamily(t *testing.T) {
	caps := []DeviceCapability{presentDevice(1, 1,
		FamilyCapability{Index: 0, Graphics: true},
		FamilyCapability{Index: 1, Graphics: true, Present: true},
		FamilyCapability{Index: 2, Present: true},
	)}

	h := &recordingHandler{}
	sel, err := Select(caps, Requirements{Graphics: true, Present: true}, h)
	if err != nil {
		t.Fatal(err)
	}

	if sel.QueueFamily != 1 || sel.PresentFamily != 1 {
		t.Errorf("got families %d/%d, want the dual-role family 1/1", sel.QueueFamily, sel.PresentFamily)
	}
	if sel.Concurrent() {
		t.Error("shared family must yield exclusive sharing")
	}
	if sel.SharingMode() != vk.SharingModeExclusive {
		t.Error("sharing mode should be exclusive")
	}
	if len(h.events) != 0 {
		t.Errorf("no advisory expected, got %v", h.events)
	}
}

func TestSelectSplitFamiliesEmitAdvisory(t *testing.T) {
	caps := []DeviceCapability{presentDevice(1, 1,
		FamilyCapability{Index: 0, Graphics: true},
		FamilyCapability{Index: 1, Present: true},
	)}

	h := &recordingHandler{}
	sel, err := Select(caps, Requirements{Graphics: true, Present: true}, h)
	if err != nil {
		t.Fatal(err)
	}

	if sel.QueueFamily != 0 || sel.PresentFamily != 1 {
		t.Errorf("got families %d/%d, want 0/1", sel.QueueFamily, sel.PresentFamily)
	}
	if !sel.Concurrent() {
		t.Error("split families must be concurrent")
	}
	if sel.SharingMode() != vk.SharingModeConcurrent {
		t.Error("sharing mode should be concurrent")
	}
	if got := sel.FamilyIndices(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("family indices %v, want [0 1]", got)
	}

	if len(h.events) != 1 {
		t.Fatalf("expected one advisory, got %v", h.events)
	}
	if h.events[0].Severity != SeverityWarning || h.events[0].Category != CategoryPerformance {
		t.Errorf("advisory classified as %s/%s, want warning/performance",
			h.events[0].Severity, h.events[0].Category)
	}
}

func TestSelectNilHandlerDoesNotPanic(t *testing.T) {
	caps := []DeviceCapability{presentDevice(1, 1,
		FamilyCapability{Index: 0, Graphics: true},
		FamilyCapability{Index: 1, Present: true},
	)}

	if _, err := Select(caps, Requirements{Graphics: true, Present: true}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestSelectDeterministic(t *testing.T) {
	caps := []DeviceCapability{
		computeDevice(0, DeviceIntegrated),
		computeDevice(1, DeviceDiscrete),
		computeDevice(2, DeviceDiscrete),
	}
	req := Requirements{Compute: true}

	first, err := Select(caps, req, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		next, err := Select(caps, req, nil)
		if err != nil {
			t.Fatal(err)
		}
		if next != first {
			t.Fatalf("selection changed between runs: %+v then %+v", first, next)
		}
	}
}

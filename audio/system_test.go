package audio

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tonegen/driver"
)

func assertNoLeak(t *testing.T, s *System, f *driver.Fake) {
	t.Helper()
	if s.device != 0 || s.context != 0 {
		t.Errorf("handles left set: device=%d context=%d", s.device, s.context)
	}
	if devices, contexts := f.Live(); devices != 0 || contexts != 0 {
		t.Errorf("driver still holds %d devices and %d contexts", devices, contexts)
	}
}

func TestInitSuccess(t *testing.T) {
	f := driver.NewFake()
	s := NewSystem(f)

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !s.IsInitialized() {
		t.Error("IsInitialized = false after Init")
	}
	if got := s.ActiveDeviceName(); got != "Fake Default" {
		t.Errorf("ActiveDeviceName = %q", got)
	}
	if !slices.Equal(s.Devices(), f.AllNames) {
		t.Errorf("Devices = %v, want the all-devices list %v", s.Devices(), f.AllNames)
	}
	if f.CurrentContext() != s.context {
		t.Error("context not bound as current")
	}
}

func TestInitRestrictedSpecifier(t *testing.T) {
	f := driver.NewFake()
	f.HasEnumerateAll = false
	f.Names = []string{"b", "a", "b"}
	s := NewSystem(f)

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !slices.Equal(s.Devices(), []string{"b", "a", "b"}) {
		t.Errorf("Devices = %v, want discovery order without dedupe", s.Devices())
	}
}

func TestInitEnumerationUnsupported(t *testing.T) {
	f := driver.NewFake()
	f.HasEnumeration = false
	s := NewSystem(f)

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !s.IsInitialized() {
		t.Error("expected Ready without enumeration")
	}
	if s.HasEnumeration() {
		t.Error("HasEnumeration = true")
	}
	if len(s.Devices()) != 0 {
		t.Errorf("Devices = %v, want empty", s.Devices())
	}
	if n := f.Count("DeviceNames"); n != 0 {
		t.Errorf("DeviceNames called %d times", n)
	}
}

func TestInitDeviceOpenFails(t *testing.T) {
	f := driver.NewFake()
	f.FailOpen = true
	s := NewSystem(f)

	err := s.Init()
	if !errors.Is(err, ErrDeviceOpenFailed) {
		t.Fatalf("Init = %v, want ErrDeviceOpenFailed", err)
	}
	var de *driver.DeviceError
	if !errors.As(err, &de) || de.Code != driver.DeviceInvalidValue {
		t.Errorf("wrapped device error = %v", de)
	}
	if s.LastDeviceError() != driver.DeviceInvalidValue {
		t.Errorf("LastDeviceError = %v", s.LastDeviceError())
	}
	if n := f.Count("CreateContext"); n != 0 {
		t.Errorf("CreateContext attempted %d times after open failure", n)
	}
	if s.IsInitialized() || s.ActiveDeviceName() != "" {
		t.Error("manager reports an opened device after failure")
	}
	assertNoLeak(t, s, f)
}

func TestInitContextCreateFails(t *testing.T) {
	f := driver.NewFake()
	f.FailCreate = true
	s := NewSystem(f)

	err := s.Init()
	if !errors.Is(err, ErrContextCreateFailed) {
		t.Fatalf("Init = %v, want ErrContextCreateFailed", err)
	}
	if s.LastDeviceError() != driver.InvalidDevice {
		t.Errorf("LastDeviceError = %v", s.LastDeviceError())
	}
	if n := f.Count("CloseDevice"); n != 1 {
		t.Errorf("CloseDevice called %d times, want 1", n)
	}
	assertNoLeak(t, s, f)
}

func TestInitContextBindFails(t *testing.T) {
	f := driver.NewFake()
	f.FailBind = true
	s := NewSystem(f)

	err := s.Init()
	if !errors.Is(err, ErrContextBindFailed) {
		t.Fatalf("Init = %v, want ErrContextBindFailed", err)
	}
	if s.LastDeviceError() != driver.InvalidContext {
		t.Errorf("LastDeviceError = %v", s.LastDeviceError())
	}
	destroy := slices.Index(f.Calls, "DestroyContext")
	closeDev := slices.Index(f.Calls, "CloseDevice")
	if destroy < 0 || closeDev < 0 || destroy > closeDev {
		t.Errorf("rollback order wrong: %v", f.Calls)
	}
	assertNoLeak(t, s, f)
}

func TestInitContextBindFailsGlobalSlot(t *testing.T) {
	f := driver.NewFake()
	f.FailBind = true
	f.BindErrGlobal = true
	s := NewSystem(f)

	err := s.Init()
	var de *driver.DeviceError
	if !errors.As(err, &de) || de.Code != driver.InvalidContext {
		t.Errorf("wrapped device error = %v, want InvalidContext", err)
	}
	if s.LastDeviceError() != driver.InvalidContext {
		t.Errorf("LastDeviceError = %v", s.LastDeviceError())
	}
	if code := f.DeviceError(0); code != driver.DeviceNoError {
		t.Errorf("global slot still holds %v after Init", code)
	}
	assertNoLeak(t, s, f)
}

func TestInitRunsOnce(t *testing.T) {
	f := driver.NewFake()
	s := NewSystem(f)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	n := len(f.Calls)
	if err := s.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if len(f.Calls) != n {
		t.Errorf("second Init touched the driver: %v", f.Calls[n:])
	}
}

func TestInitRetryAfterFailure(t *testing.T) {
	f := driver.NewFake()
	f.FailOpen = true
	s := NewSystem(f)
	if err := s.Init(); err == nil {
		t.Fatal("expected failure")
	}

	f.FailOpen = false
	if err := s.Init(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := f.Count("DeviceNames"); n != 1 {
		t.Errorf("device list acquired %d times, want once", n)
	}
	if !slices.Equal(s.Devices(), f.AllNames) {
		t.Errorf("Devices = %v", s.Devices())
	}
}

func TestPreferredDevice(t *testing.T) {
	f := driver.NewFake()
	s := NewSystem(f, WithDevice("Fake Headphones"))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if got := s.ActiveDeviceName(); got != "Fake Headphones" {
		t.Errorf("ActiveDeviceName = %q", got)
	}
}

func TestPreferredDeviceFallsBackToDefault(t *testing.T) {
	f := driver.NewFake()
	f.Reject = []string{"Missing"}
	s := NewSystem(f, WithDevice("Missing"))

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !slices.Equal(f.Opened, []string{"Missing", "Fake Default"}) {
		t.Errorf("open order = %v", f.Opened)
	}
	if got := s.ActiveDeviceName(); got != "Fake Default" {
		t.Errorf("ActiveDeviceName = %q", got)
	}
	if s.LastDeviceError() != driver.DeviceInvalidValue {
		t.Errorf("LastDeviceError = %v, want the failed candidate's code", s.LastDeviceError())
	}
}

func TestCloseOrder(t *testing.T) {
	f := driver.NewFake()
	s := NewSystem(f)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	n := len(f.Calls)
	s.Close()
	want := []string{"CurrentContext", "MakeContextCurrent", "DestroyContext", "CloseDevice"}
	if got := f.Calls[n:]; !slices.Equal(got, want) {
		t.Errorf("teardown calls = %v, want %v", got, want)
	}
	if s.IsInitialized() {
		t.Error("IsInitialized = true after Close")
	}
	assertNoLeak(t, s, f)
}

func TestCloseSkipsUnbindWhenNotCurrent(t *testing.T) {
	f := driver.NewFake()
	s := NewSystem(f)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	f.MakeContextCurrent(0)

	n := len(f.Calls)
	s.Close()
	want := []string{"CurrentContext", "DestroyContext", "CloseDevice"}
	if got := f.Calls[n:]; !slices.Equal(got, want) {
		t.Errorf("teardown calls = %v, want %v", got, want)
	}
	assertNoLeak(t, s, f)
}

func TestCloseWithoutInit(t *testing.T) {
	f := driver.NewFake()
	s := NewSystem(f)
	s.Close()
	s.Close()
	if len(f.Calls) != 0 {
		t.Errorf("Close without Init touched the driver: %v", f.Calls)
	}
}

func TestInitLogsDiscovery(t *testing.T) {
	var buf bytes.Buffer
	f := driver.NewFake()
	s := NewSystem(f, WithLogger(zerolog.New(&buf)))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"found devices", "Fake Headphones", "opening audio device: Fake Default", `"level":"info"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestInitLogsFailureAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	f := driver.NewFake()
	f.FailBind = true
	s := NewSystem(f, WithLogger(zerolog.New(&buf)))
	s.Init()
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("no error-level line:\n%s", buf.String())
	}
}

func TestRealDriverOnNullBackend(t *testing.T) {
	s := NewSystem(driver.New(driver.NewNull()))
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := s.ActiveDeviceName(); got != driver.NullDeviceName {
		t.Errorf("ActiveDeviceName = %q", got)
	}
	s.Close()
	if s.LastDeviceError() != driver.DeviceNoError {
		t.Errorf("LastDeviceError = %v", s.LastDeviceError())
	}
}

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"bluez_output.00_1B_66.a2dp-sink", true},
		{"Built-in Audio Analog Stereo", false},
		{"HDMI / DisplayPort 1 Output", false},
		{"Sony WH-1000XM4", true},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMoveCursor(t *testing.T) {
	if got := moveCursor(0, -1, 3); got != 0 {
		t.Errorf("moveCursor up at top = %d", got)
	}
	if got := moveCursor(2, 1, 3); got != 2 {
		t.Errorf("moveCursor down at bottom = %d", got)
	}
	if got := moveCursor(1, 1, 3); got != 2 {
		t.Errorf("moveCursor = %d, want 2", got)
	}
}

func TestSelectDeviceSingle(t *testing.T) {
	got, err := SelectDevice([]string{"only"})
	if err != nil || got != "only" {
		t.Errorf("SelectDevice = %q, %v", got, err)
	}
	if _, err := SelectDevice(nil); err == nil {
		t.Error("expected error for empty list")
	}
}

func TestListDevices(t *testing.T) {
	f := driver.NewFake()
	names, err := ListDevices(f)
	if err != nil || !slices.Equal(names, f.AllNames) {
		t.Errorf("ListDevices = %v, %v", names, err)
	}

	f.HasEnumerateAll = false
	if names, _ := ListDevices(f); !slices.Equal(names, f.Names) {
		t.Errorf("ListDevices restricted = %v", names)
	}

	f.HasEnumeration = false
	if names, err := ListDevices(f); names != nil || err != nil {
		t.Errorf("ListDevices without enumeration = %v, %v", names, err)
	}
}

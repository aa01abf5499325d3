package driver

import "slices"

// Fake is a scripted Driver for tests. It records every call by method name and
// fails on demand.
type Fake struct {
	Calls []string

	HasEnumeration  bool
	HasEnumerateAll bool
	Names           []string
	AllNames        []string
	Default         string

	FailOpen       bool
	Reject         []string
	FailCreate     bool
	FailBind       bool
	// BindErrGlobal latches bind failures in the global slot instead of on the
	// context's device, as a driver does for a context it cannot resolve.
	BindErrGlobal  bool
	FailGenSource  bool
	FailGenBuffer  bool
	FailBufferData bool
	FailPlay       bool

	// Uploaded holds the data of every buffer that received samples.
	Uploaded map[BufferID][]int16
	// Opened records the names passed to OpenDevice.
	Opened []string

	nextID    uint32
	current   ContextID
	devices   map[DeviceID]bool
	contexts  map[ContextID]DeviceID
	sources   map[SourceID]BufferID
	playing   map[SourceID]bool
	deviceErr DeviceErrorCode
	devErrs   map[DeviceID]DeviceErrorCode
	err       ErrorCode
}

func NewFake() *Fake {
	return &Fake{
		HasEnumeration:  true,
		HasEnumerateAll: true,
		Names:           []string{"Fake Default"},
		AllNames:        []string{"Fake Default", "Fake Headphones"},
		Default:         "Fake Default",
		Uploaded:        make(map[BufferID][]int16),
		devices:         make(map[DeviceID]bool),
		contexts:        make(map[ContextID]DeviceID),
		devErrs:         make(map[DeviceID]DeviceErrorCode),
		sources:         make(map[SourceID]BufferID),
		playing:         make(map[SourceID]bool),
	}
}

func (f *Fake) record(name string) { f.Calls = append(f.Calls, name) }

func (f *Fake) id() uint32 {
	f.nextID++
	return f.nextID
}

// Count returns how many times the named method was called.
func (f *Fake) Count(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// Live reports how many devices and contexts are still allocated.
func (f *Fake) Live() (devices, contexts int) {
	return len(f.devices), len(f.contexts)
}

func (f *Fake) setErr(code ErrorCode) {
	if f.err == NoError {
		f.err = code
	}
}

// setDeviceErr latches code on dev, or in the global slot when dev is not open.
func (f *Fake) setDeviceErr(dev DeviceID, code DeviceErrorCode) {
	if !f.devices[dev] {
		f.deviceErr = code
		return
	}
	f.devErrs[dev] = code
}

func (f *Fake) ExtensionPresent(name string) bool {
	f.record("ExtensionPresent")
	switch name {
	case EnumerationExt:
		return f.HasEnumeration
	case EnumerateAllExt:
		return f.HasEnumerateAll
	}
	return false
}

func (f *Fake) DeviceNames(spec Specifier) []string {
	f.record("DeviceNames")
	if spec == AllDevicesSpecifier {
		return append([]string(nil), f.AllNames...)
	}
	return append([]string(nil), f.Names...)
}

func (f *Fake) DefaultDeviceName() string {
	f.record("DefaultDeviceName")
	return f.Default
}

func (f *Fake) OpenDevice(name string) DeviceID {
	f.record("OpenDevice")
	f.Opened = append(f.Opened, name)
	if f.FailOpen || slices.Contains(f.Reject, name) {
		f.deviceErr = DeviceInvalidValue
		return 0
	}
	id := DeviceID(f.id())
	f.devices[id] = true
	return id
}

func (f *Fake) CloseDevice(dev DeviceID) bool {
	f.record("CloseDevice")
	if !f.devices[dev] {
		f.deviceErr = InvalidDevice
		return false
	}
	delete(f.devices, dev)
	delete(f.devErrs, dev)
	return true
}

func (f *Fake) CreateContext(dev DeviceID) ContextID {
	f.record("CreateContext")
	if f.FailCreate || !f.devices[dev] {
		f.setDeviceErr(dev, InvalidDevice)
		return 0
	}
	id := ContextID(f.id())
	f.contexts[id] = dev
	return id
}

func (f *Fake) MakeContextCurrent(ctx ContextID) bool {
	f.record("MakeContextCurrent")
	if ctx == 0 {
		f.current = 0
		return true
	}
	dev, ok := f.contexts[ctx]
	if f.FailBind || !ok {
		if f.BindErrGlobal {
			dev = 0
		}
		f.setDeviceErr(dev, InvalidContext)
		return false
	}
	f.current = ctx
	return true
}

func (f *Fake) CurrentContext() ContextID {
	f.record("CurrentContext")
	return f.current
}

func (f *Fake) DestroyContext(ctx ContextID) {
	f.record("DestroyContext")
	dev, ok := f.contexts[ctx]
	if !ok || ctx == f.current {
		f.setDeviceErr(dev, InvalidContext)
		return
	}
	delete(f.contexts, ctx)
}

// DeviceError reads and clears the slot for dev, or the global slot for 0.
func (f *Fake) DeviceError(dev DeviceID) DeviceErrorCode {
	f.record("DeviceError")
	if dev == 0 {
		code := f.deviceErr
		f.deviceErr = DeviceNoError
		return code
	}
	if !f.devices[dev] {
		return InvalidDevice
	}
	code := f.devErrs[dev]
	delete(f.devErrs, dev)
	return code
}

func (f *Fake) GenSource() SourceID {
	f.record("GenSource")
	if f.FailGenSource || f.current == 0 {
		f.setErr(InvalidOperation)
		return 0
	}
	id := SourceID(f.id())
	f.sources[id] = 0
	return id
}

func (f *Fake) DeleteSource(src SourceID) {
	f.record("DeleteSource")
	if _, ok := f.sources[src]; !ok {
		f.setErr(InvalidName)
		return
	}
	delete(f.sources, src)
	delete(f.playing, src)
}

func (f *Fake) GenBuffer() BufferID {
	f.record("GenBuffer")
	if f.FailGenBuffer || f.current == 0 {
		f.setErr(OutOfMemory)
		return 0
	}
	return BufferID(f.id())
}

func (f *Fake) DeleteBuffer(buf BufferID) {
	f.record("DeleteBuffer")
	for _, b := range f.sources {
		if b == buf {
			f.setErr(InvalidOperation)
			return
		}
	}
	delete(f.Uploaded, buf)
}

func (f *Fake) BufferData(buf BufferID, samples []int16, sampleRate int) {
	f.record("BufferData")
	if f.FailBufferData || len(samples) == 0 || sampleRate <= 0 {
		f.setErr(InvalidValue)
		return
	}
	f.Uploaded[buf] = append([]int16(nil), samples...)
}

func (f *Fake) AttachBuffer(src SourceID, buf BufferID) {
	f.record("AttachBuffer")
	if _, ok := f.sources[src]; !ok {
		f.setErr(InvalidName)
		return
	}
	if _, ok := f.Uploaded[buf]; buf != 0 && !ok {
		f.setErr(InvalidName)
		return
	}
	f.sources[src] = buf
}

func (f *Fake) PlaySource(src SourceID) {
	f.record("PlaySource")
	buf, ok := f.sources[src]
	if f.FailPlay || !ok || buf == 0 {
		f.setErr(InvalidOperation)
		return
	}
	f.playing[src] = true
}

func (f *Fake) StopSource(src SourceID) {
	f.record("StopSource")
	delete(f.playing, src)
}

func (f *Fake) SourceState(src SourceID) SourceState {
	f.record("SourceState")
	if f.playing[src] {
		return Playing
	}
	return Stopped
}

// Finish marks every playing source as stopped.
func (f *Fake) Finish() {
	clear(f.playing)
}

func (f *Fake) Error() ErrorCode {
	f.record("Error")
	code := f.err
	f.err = NoError
	return code
}

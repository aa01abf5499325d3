// Package driver exposes the audio driver API used by the device manager and the
// synthesis engine. Calls never return Go errors; failures are latched into sticky
// per-layer error codes which callers read back with Error or DeviceError, or turn
// into typed errors with Check and CheckDevice.
package driver

import "fmt"

const OutputSampleRate = 44100

const (
	EnumerationExt  = "ALC_ENUMERATION_EXT"
	EnumerateAllExt = "ALC_ENUMERATE_ALL_EXT"
)

type (
	DeviceID  uint32
	ContextID uint32
	SourceID  uint32
	BufferID  uint32
)

type Specifier int

const (
	DeviceSpecifier Specifier = iota
	AllDevicesSpecifier
)

type SourceState int

const (
	Initial SourceState = iota
	Playing
	Stopped
)

func (s SourceState) String() string {
	switch s {
	case Initial:
		return "initial"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("SourceState(%d)", int(s))
	}
}

// ErrorCode is a render-layer error code.
type ErrorCode int32

const (
	NoError          ErrorCode = 0
	InvalidName      ErrorCode = 0xA001
	InvalidEnum      ErrorCode = 0xA002
	InvalidValue     ErrorCode = 0xA003
	InvalidOperation ErrorCode = 0xA004
	OutOfMemory      ErrorCode = 0xA005
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no error"
	case InvalidName:
		return "invalid name: bad source or buffer id"
	case InvalidEnum:
		return "invalid enum"
	case InvalidValue:
		return "invalid value"
	case InvalidOperation:
		return "invalid operation: no current context or invalid state"
	case OutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("unknown error: %d", int32(c))
	}
}

// DeviceErrorCode is a device-layer error code.
type DeviceErrorCode int32

const (
	DeviceNoError      DeviceErrorCode = 0
	InvalidDevice      DeviceErrorCode = 0xA001
	InvalidContext     DeviceErrorCode = 0xA002
	DeviceInvalidEnum  DeviceErrorCode = 0xA003
	DeviceInvalidValue DeviceErrorCode = 0xA004
	DeviceOutOfMemory  DeviceErrorCode = 0xA005
)

func (c DeviceErrorCode) String() string {
	switch c {
	case DeviceNoError:
		return "no device error"
	case InvalidDevice:
		return "invalid device"
	case InvalidContext:
		return "invalid context"
	case DeviceInvalidEnum:
		return "invalid device enum"
	case DeviceInvalidValue:
		return "invalid device value"
	case DeviceOutOfMemory:
		return "device out of memory"
	default:
		return fmt.Sprintf("unknown error: %d", int32(c))
	}
}

type Driver interface {
	// Device layer.
	ExtensionPresent(name string) bool
	DeviceNames(spec Specifier) []string
	DefaultDeviceName() string
	OpenDevice(name string) DeviceID
	CloseDevice(dev DeviceID) bool
	CreateContext(dev DeviceID) ContextID
	MakeContextCurrent(ctx ContextID) bool
	CurrentContext() ContextID
	DestroyContext(ctx ContextID)
	DeviceError(dev DeviceID) DeviceErrorCode

	// Render layer, operating on the current context.
	GenSource() SourceID
	DeleteSource(src SourceID)
	GenBuffer() BufferID
	DeleteBuffer(buf BufferID)
	BufferData(buf BufferID, samples []int16, sampleRate int)
	AttachBuffer(src SourceID, buf BufferID)
	PlaySource(src SourceID)
	StopSource(src SourceID)
	SourceState(src SourceID) SourceState
	Error() ErrorCode
}

// Error is a failed render-layer check.
type Error struct {
	Code ErrorCode
}

func (e *Error) Error() string { return e.Code.String() }

// DeviceError is a failed device-layer check.
type DeviceError struct {
	Code DeviceErrorCode
}

func (e *DeviceError) Error() string { return e.Code.String() }

// Check reads and clears the render-layer error state.
func Check(d Driver) error {
	if code := d.Error(); code != NoError {
		return &Error{Code: code}
	}
	return nil
}

// CheckDevice reads and clears the device-layer error state for dev (0 for the
// global state).
func CheckDevice(d Driver, dev DeviceID) error {
	if code := d.DeviceError(dev); code != DeviceNoError {
		return &DeviceError{Code: code}
	}
	return nil
}

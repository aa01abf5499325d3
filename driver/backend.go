package driver

import "fmt"

// Backend is the platform audio layer underneath a Driver.
type Backend interface {
	Name() string
	// DefaultDevice returns the name of the system default output, or "" when the
	// platform does not name its outputs.
	DefaultDevice() string
	Open(name string) (Endpoint, error)
}

// Enumerator is implemented by backends that can list their outputs.
type Enumerator interface {
	Devices() ([]string, error)
}

// FullEnumerator lists every output, not only the restricted set returned by Devices.
type FullEnumerator interface {
	Enumerator
	AllDevices() ([]string, error)
}

type Endpoint interface {
	NewStream(sampleRate int) (Stream, error)
	Close() error
}

// Stream is a mono signed 16-bit output. Play replaces whatever is playing and
// returns without waiting for the samples to drain.
type Stream interface {
	Play(samples []int16) error
	Stop()
	Playing() bool
	Close() error
}

const (
	BackendMalgo = "malgo"
	BackendPulse = "pulse"
	BackendOto   = "oto"
	BackendNull  = "null"
)

var Backends = []string{BackendMalgo, BackendPulse, BackendOto, BackendNull}

// Lookup returns the backend registered under name. An empty name selects the
// platform default.
func Lookup(name string) (Backend, error) {
	switch name {
	case "":
		return defaultBackend()
	case BackendMalgo:
		return NewMalgo(), nil
	case BackendPulse:
		return NewPulse()
	case BackendOto:
		return NewOto(), nil
	case BackendNull:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (use %v)", name, Backends)
	}
}

package driver

import (
	"fmt"
	"time"
)

const NullDeviceName = "Null Output"

// nullBackend discards samples; a stream reports playing for the wall-clock
// duration of the last buffer.
type nullBackend struct{}

func NewNull() Backend {
	return &nullBackend{}
}

func (n *nullBackend) Name() string                  { return BackendNull }
func (n *nullBackend) DefaultDevice() string         { return NullDeviceName }
func (n *nullBackend) Devices() ([]string, error)    { return []string{NullDeviceName}, nil }
func (n *nullBackend) AllDevices() ([]string, error) { return []string{NullDeviceName}, nil }

func (n *nullBackend) Open(name string) (Endpoint, error) {
	if name != "" && name != NullDeviceName {
		return nil, fmt.Errorf("no null device named %q", name)
	}
	return &nullEndpoint{}, nil
}

type nullEndpoint struct{}

func (e *nullEndpoint) NewStream(sampleRate int) (Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &nullStream{rate: sampleRate, now: time.Now}, nil
}

func (e *nullEndpoint) Close() error { return nil }

type nullStream struct {
	rate int
	now  func() time.Time

	until time.Time
}

func (s *nullStream) Play(samples []int16) error {
	d := time.Duration(len(samples)) * time.Second / time.Duration(s.rate)
	s.until = s.now().Add(d)
	return nil
}

func (s *nullStream) Stop()         { s.until = time.Time{} }
func (s *nullStream) Playing() bool { return s.now().Before(s.until) }
func (s *nullStream) Close() error  { return nil }

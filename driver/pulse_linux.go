//go:build linux

package driver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

func defaultBackend() (Backend, error) {
	return NewPulse()
}

type pulseBackend struct{}

func NewPulse() (Backend, error) {
	return &pulseBackend{}, nil
}

func (p *pulseBackend) Name() string { return BackendPulse }

func newPulseClient() (*pulse.Client, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("tonegen"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return c, nil
}

func (p *pulseBackend) DefaultDevice() string {
	c, err := newPulseClient()
	if err != nil {
		return ""
	}
	defer c.Close()
	sink, err := c.DefaultSink()
	if err != nil || sink == nil {
		return ""
	}
	return sink.Name()
}

func (p *pulseBackend) Devices() ([]string, error) {
	c, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	sinks, err := c.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	return names, nil
}

func (p *pulseBackend) Open(name string) (Endpoint, error) {
	c, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	ep := &pulseEndpoint{client: c}
	if name == "" {
		return ep, nil
	}
	sinks, err := c.ListSinks()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	for _, s := range sinks {
		if s.Name() == name || s.ID() == name {
			ep.sink = s
			return ep, nil
		}
	}
	c.Close()
	return nil, fmt.Errorf("no pulse sink named %q", name)
}

type pulseEndpoint struct {
	client *pulse.Client
	sink   *pulse.Sink
}

func (e *pulseEndpoint) NewStream(sampleRate int) (Stream, error) {
	return &pulseStream{client: e.client, sink: e.sink, sampleRate: sampleRate}, nil
}

func (e *pulseEndpoint) Close() error {
	e.client.Close()
	return nil
}

type pulseStream struct {
	client     *pulse.Client
	sink       *pulse.Sink
	sampleRate int

	mu      sync.Mutex
	stream  *pulse.PlaybackStream
	playing atomic.Bool
	// gen identifies the latest Play so a drain from an older stream cannot
	// clear playing for a newer one.
	gen atomic.Uint64
}

func (s *pulseStream) Play(samples []int16) error {
	s.Stop()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(s.sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	}
	if s.sink != nil {
		opts = append(opts, pulse.PlaybackSink(s.sink))
	}

	stream, err := s.client.NewPlayback(reader, opts...)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}

	gen := s.gen.Add(1)
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	s.playing.Store(true)
	stream.Start()

	// Playing stays true until the server has played the queued tail.
	go func() {
		stream.Drain()
		if s.gen.Load() == gen {
			s.playing.Store(false)
		}
	}()
	return nil
}

func (s *pulseStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return
	}
	s.gen.Add(1)
	s.stream.Stop()
	s.stream.Close()
	s.stream = nil
	s.playing.Store(false)
}

func (s *pulseStream) Playing() bool {
	return s.playing.Load()
}

func (s *pulseStream) Close() error {
	s.Stop()
	return nil
}

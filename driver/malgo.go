package driver

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoBackend struct{}

func NewMalgo() Backend {
	return &malgoBackend{}
}

func (m *malgoBackend) Name() string { return BackendMalgo }

func (m *malgoBackend) playbackDevices() ([]malgo.DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()
	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	return devices, nil
}

func (m *malgoBackend) DefaultDevice() string {
	devices, err := m.playbackDevices()
	if err != nil {
		return ""
	}
	for _, d := range devices {
		if d.IsDefault != 0 {
			return d.Name()
		}
	}
	return ""
}

// Devices lists only the outputs the platform flags as default.
func (m *malgoBackend) Devices() ([]string, error) {
	devices, err := m.playbackDevices()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, d := range devices {
		if d.IsDefault != 0 {
			names = append(names, d.Name())
		}
	}
	return names, nil
}

func (m *malgoBackend) AllDevices() ([]string, error) {
	devices, err := m.playbackDevices()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name())
	}
	return names, nil
}

func (m *malgoBackend) Open(name string) (Endpoint, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}
	ep := &malgoEndpoint{ctx: ctx}
	if name == "" {
		return ep, nil
	}

	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		ep.Close()
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	for _, d := range devices {
		if d.Name() == name {
			id := d.ID
			ep.id = &id
			return ep, nil
		}
	}
	ep.Close()
	return nil, fmt.Errorf("no playback device named %q", name)
}

type malgoEndpoint struct {
	ctx *malgo.AllocatedContext
	id  *malgo.DeviceID
}

func (e *malgoEndpoint) NewStream(sampleRate int) (Stream, error) {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = uint32(sampleRate)
	config.Alsa.NoMMap = 1
	if e.id != nil {
		config.Playback.DeviceID = e.id.Pointer()
	}

	s := &malgoStream{}
	callbacks := malgo.DeviceCallbacks{
		Data: s.fill,
	}
	dev, err := malgo.InitDevice(e.ctx.Context, config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo init device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("malgo start device: %w", err)
	}
	s.device = dev
	return s, nil
}

func (e *malgoEndpoint) Close() error {
	err := e.ctx.Uninit()
	e.ctx.Free()
	return err
}

// malgoStream keeps the device running and feeds silence while idle.
type malgoStream struct {
	device *malgo.Device

	mu  sync.Mutex
	pcm []byte
	pos int
}

func (s *malgoStream) fill(pOutput, _ []byte, _ uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	if s.pcm != nil {
		// The period that took the last samples has been consumed by the
		// time the next callback runs.
		if s.pos >= len(s.pcm) {
			s.pcm = nil
			s.pos = 0
		} else {
			n = copy(pOutput, s.pcm[s.pos:])
			s.pos += n
		}
	}
	clear(pOutput[n:])
}

func (s *malgoStream) Play(samples []int16) error {
	pcm := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	s.mu.Lock()
	s.pcm = pcm
	s.pos = 0
	s.mu.Unlock()
	return nil
}

func (s *malgoStream) Stop() {
	s.mu.Lock()
	s.pcm = nil
	s.pos = 0
	s.mu.Unlock()
}

func (s *malgoStream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pcm != nil
}

func (s *malgoStream) Close() error {
	if err := s.device.Stop(); err != nil {
		s.device.Uninit()
		return err
	}
	s.device.Uninit()
	return nil
}

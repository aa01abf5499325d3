package driver

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, created at the first Open and resumed
// on later ones.
var (
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
	otoOnce sync.Once
)

type otoBackend struct{}

func NewOto() Backend {
	return &otoBackend{}
}

func (o *otoBackend) Name() string          { return BackendOto }
func (o *otoBackend) DefaultDevice() string { return "" }

func (o *otoBackend) Open(name string) (Endpoint, error) {
	if name != "" {
		return nil, fmt.Errorf("oto cannot select output %q, only the system default", name)
	}
	return &otoEndpoint{}, nil
}

type otoEndpoint struct{}

func (e *otoEndpoint) NewStream(sampleRate int) (Stream, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if otoErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("oto context: %w", otoErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("oto context already running at %dHz", otoRate)
	}
	if err := otoCtx.Resume(); err != nil {
		return nil, fmt.Errorf("oto resume: %w", err)
	}
	return &otoStream{}, nil
}

func (e *otoEndpoint) Close() error {
	if otoCtx == nil {
		return nil
	}
	return otoCtx.Suspend()
}

type otoStream struct {
	player *oto.Player
}

func (s *otoStream) Play(samples []int16) error {
	s.Stop()
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return err
	}
	s.player = otoCtx.NewPlayer(bytes.NewReader(buf.Bytes()))
	s.player.Play()
	return s.player.Err()
}

func (s *otoStream) Stop() {
	if s.player == nil {
		return
	}
	s.player.Pause()
	s.player.Close()
	s.player = nil
}

func (s *otoStream) Playing() bool {
	return s.player != nil && s.player.IsPlaying()
}

func (s *otoStream) Close() error {
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}

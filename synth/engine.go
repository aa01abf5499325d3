package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"tonegen/audio"
	"tonegen/driver"
)

var (
	ErrNotReady         = errors.New("audio system not initialized")
	ErrInvalidRequest   = errors.New("frequency and duration must be positive")
	ErrUploadFailed     = errors.New("failed to upload sample buffer")
	ErrNoBufferLoaded   = errors.New("no sample buffer loaded")
	ErrPlaybackRejected = errors.New("playback rejected by driver")
)

const DefaultVolume = 0.8

const pollInterval = 10 * time.Millisecond

// Engine owns one voice and at most one sample buffer. It is not safe for
// concurrent use.
type Engine struct {
	drv        driver.Driver
	log        zerolog.Logger
	sampleRate int
	amplitude  float64
	waveform   Waveform

	samples  []int16
	buffer   driver.BufferID
	source   driver.SourceID
	attached bool
	lastErr  driver.ErrorCode
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithVolume scales the peak amplitude; v is clamped to (0, 1].
func WithVolume(v float64) Option {
	return func(e *Engine) {
		if v <= 0 || math.IsNaN(v) {
			return
		}
		e.amplitude = math.Min(v, 1) * math.MaxInt16
	}
}

func WithSampleRate(rate int) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.sampleRate = rate
		}
	}
}

// NewEngine binds an engine to sys, which must already be initialized.
func NewEngine(sys *audio.System, opts ...Option) (*Engine, error) {
	if sys == nil || !sys.IsInitialized() {
		return nil, ErrNotReady
	}
	e := &Engine{
		drv:        sys.Driver(),
		log:        zerolog.Nop(),
		sampleRate: driver.OutputSampleRate,
		amplitude:  DefaultVolume * math.MaxInt16,
		waveform:   Sine,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) SetWaveform(w Waveform) { e.waveform = w }

func (e *Engine) Waveform() Waveform { return e.waveform }

func (e *Engine) SampleRate() int { return e.sampleRate }

func (e *Engine) Amplitude() int16 { return int16(math.Round(e.amplitude)) }

// Samples returns the current buffer. Callers must not modify it.
func (e *Engine) Samples() []int16 { return e.samples }

// check latches the driver's render error into the engine's sticky state.
func (e *Engine) check() error {
	err := driver.Check(e.drv)
	var de *driver.Error
	if errors.As(err, &de) {
		e.lastErr = de.Code
	}
	return err
}

// Synthesize renders seconds of the current waveform at freq and uploads it to
// the device. On failure nothing is attached to the voice.
func (e *Engine) Synthesize(freq, seconds float64) error {
	if !(freq > 0) || !(seconds > 0) || math.IsInf(freq, 0) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: freq=%v seconds=%v", ErrInvalidRequest, freq, seconds)
	}
	if seconds > MaxSeconds {
		return fmt.Errorf("%w: %vs is longer than %ds", ErrInvalidRequest, seconds, MaxSeconds)
	}
	if SampleCount(seconds, e.sampleRate) <= 0 {
		return fmt.Errorf("%w: %vs is shorter than one sample", ErrInvalidRequest, seconds)
	}

	e.samples = Generate(e.waveform, freq, seconds, e.sampleRate, e.amplitude)
	e.releaseBuffer()

	buf := e.drv.GenBuffer()
	if err := e.check(); err != nil {
		e.log.Error().Msgf("failed to allocate audio buffer: %v", err)
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	e.drv.BufferData(buf, e.samples, e.sampleRate)
	if err := e.check(); err != nil {
		e.log.Error().Msgf("failed to upload audio buffer: %v", err)
		e.drv.DeleteBuffer(buf)
		e.drv.Error()
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	e.buffer = buf
	e.log.Debug().
		Str("waveform", e.waveform.String()).
		Float64("freq_hz", freq).
		Int("samples", len(e.samples)).
		Msg("buffer uploaded")
	return nil
}

// releaseBuffer detaches the current device buffer from the voice and deletes it.
func (e *Engine) releaseBuffer() {
	if e.buffer == 0 {
		return
	}
	if e.attached {
		e.drv.StopSource(e.source)
		e.drv.AttachBuffer(e.source, 0)
		e.attached = false
	}
	e.drv.DeleteBuffer(e.buffer)
	e.buffer = 0
	if err := e.check(); err != nil {
		e.log.Warn().Msgf("releasing audio buffer: %v", err)
	}
}

// Play starts the uploaded buffer on the voice, creating the voice on first use.
func (e *Engine) Play() error {
	if e.buffer == 0 {
		return ErrNoBufferLoaded
	}

	if e.source == 0 {
		src := e.drv.GenSource()
		if err := e.check(); err != nil {
			e.log.Error().Msgf("failed to create voice: %v", err)
			return fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
		}
		e.source = src
	}

	if !e.attached {
		e.drv.AttachBuffer(e.source, e.buffer)
		if err := e.check(); err != nil {
			e.log.Error().Msgf("failed to attach buffer: %v", err)
			return fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
		}
		e.attached = true
	}

	e.drv.PlaySource(e.source)
	if err := e.check(); err != nil {
		e.log.Error().Msgf("failed to play voice: %v", err)
		return fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
	}
	return nil
}

func (e *Engine) Playing() bool {
	if e.source == 0 {
		return false
	}
	state := e.drv.SourceState(e.source)
	e.check()
	return state == driver.Playing
}

func (e *Engine) Stop() {
	if e.source == 0 {
		return
	}
	e.drv.StopSource(e.source)
	e.check()
}

// Wait blocks until the voice stops or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for e.Playing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (e *Engine) LastError() driver.ErrorCode { return e.lastErr }

func (e *Engine) ErrorString(code driver.ErrorCode) string { return code.String() }

// Close releases the voice and the device buffer. Errors are ignored.
func (e *Engine) Close() {
	if e.source != 0 {
		e.drv.StopSource(e.source)
		e.drv.DeleteSource(e.source)
		e.source = 0
		e.attached = false
	}
	if e.buffer != 0 {
		e.drv.DeleteBuffer(e.buffer)
		e.buffer = 0
	}
	e.drv.Error()
	e.samples = nil
}

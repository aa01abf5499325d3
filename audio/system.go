package audio

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tonegen/driver"
)

var (
	ErrDeviceOpenFailed    = errors.New("failed to open audio device")
	ErrContextCreateFailed = errors.New("failed to create audio context")
	ErrContextBindFailed   = errors.New("could not bind audio context")
)

// System owns the output device and the rendering context bound to it. It is not
// safe for concurrent use.
type System struct {
	drv       driver.Driver
	log       zerolog.Logger
	preferred string

	hasEnumeration bool
	enumerated     bool
	devices        []string

	device     driver.DeviceID
	context    driver.ContextID
	activeName string

	lastDeviceErr driver.DeviceErrorCode
	lastRenderErr driver.ErrorCode
	initialized   bool
}

type Option func(*System)

func WithLogger(l zerolog.Logger) Option {
	return func(s *System) { s.log = l }
}

// WithDevice names the output to try before the driver default.
func WithDevice(name string) Option {
	return func(s *System) { s.preferred = name }
}

func NewSystem(d driver.Driver, opts ...Option) *System {
	s := &System{
		drv: d,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", uuid.NewString()).Logger()
	return s
}

// Init acquires the device and context. It runs once: after a success later calls
// return nil without touching the driver; after a failure nothing stays allocated
// and the caller may call Init again.
func (s *System) Init() error {
	if s.initialized {
		return nil
	}

	s.checkEnumerationExtension()
	if s.hasEnumeration && !s.enumerated {
		s.acquireDeviceList()
	}

	if err := s.openDevice(); err != nil {
		return err
	}
	if err := s.createContext(); err != nil {
		return err
	}

	s.initialized = true
	return nil
}

func (s *System) checkEnumerationExtension() {
	s.hasEnumeration = s.drv.ExtensionPresent(driver.EnumerationExt)
}

func (s *System) acquireDeviceList() {
	spec := driver.DeviceSpecifier
	if s.drv.ExtensionPresent(driver.EnumerateAllExt) {
		spec = driver.AllDevicesSpecifier
	}

	s.devices = s.drv.DeviceNames(spec)
	s.enumerated = true
	if code := s.drv.DeviceError(0); code != driver.DeviceNoError {
		s.lastDeviceErr = code
		s.log.Warn().Str("err", code.String()).Msg("device enumeration reported an error")
	}

	s.log.Info().Msg("found devices:")
	for _, name := range s.devices {
		s.log.Info().Msgf("    %s", name)
	}
}

// candidates returns the names to open, in order: the caller's choice, then the
// driver default. The default may be "" to let the driver pick.
func (s *System) candidates() []string {
	def := s.drv.DefaultDeviceName()
	if s.preferred == "" || s.preferred == def {
		return []string{def}
	}
	return []string{s.preferred, def}
}

func (s *System) openDevice() error {
	var err error
	for _, name := range s.candidates() {
		display := name
		if display == "" {
			display = "<default>"
		}
		s.log.Info().Msgf("opening audio device: %s", display)

		s.device = s.drv.OpenDevice(name)
		if s.device != 0 {
			s.activeName = name
			return nil
		}
		err = s.deviceFailure(0)
		s.log.Error().Msgf("failed to open audio device %s: %v", display, err)
	}
	return fmt.Errorf("%w: %w", ErrDeviceOpenFailed, err)
}

func (s *System) createContext() error {
	s.log.Info().Msg("creating audio context")

	s.context = s.drv.CreateContext(s.device)
	if s.context == 0 {
		err := s.deviceFailure(s.device)
		s.log.Error().Msgf("failed to create audio context: %v", err)
		s.closeDevice()
		return fmt.Errorf("%w: %w", ErrContextCreateFailed, err)
	}

	if !s.drv.MakeContextCurrent(s.context) {
		err := s.deviceFailure(s.device)
		s.log.Error().Msgf("could not bind audio context: %v", err)
		s.destroyContext()
		s.closeDevice()
		return fmt.Errorf("%w: %w", ErrContextBindFailed, err)
	}

	if code := s.drv.Error(); code != driver.NoError {
		s.lastRenderErr = code
	}
	return nil
}

// deviceFailure records the device-layer error behind a failed call, reading the
// global slot when dev's own slot is empty. A driver that failed without setting a
// code is reported as InvalidDevice.
func (s *System) deviceFailure(dev driver.DeviceID) error {
	err := driver.CheckDevice(s.drv, dev)
	if err == nil && dev != 0 {
		err = driver.CheckDevice(s.drv, 0)
	}
	if err == nil {
		err = &driver.DeviceError{Code: driver.InvalidDevice}
	}
	var de *driver.DeviceError
	if errors.As(err, &de) {
		s.lastDeviceErr = de.Code
	}
	return err
}

func (s *System) destroyContext() {
	if s.context == 0 {
		return
	}
	s.drv.DestroyContext(s.context)
	s.context = 0
}

func (s *System) closeDevice() {
	if s.device == 0 {
		return
	}
	s.drv.CloseDevice(s.device)
	s.device = 0
}

// Close unbinds the context if it is current, destroys it, then closes the
// device. Failures are ignored.
func (s *System) Close() {
	if s.context != 0 && s.drv.CurrentContext() == s.context {
		s.drv.MakeContextCurrent(0)
	}
	s.destroyContext()
	s.closeDevice()
	s.initialized = false
}

func (s *System) Driver() driver.Driver { return s.drv }

func (s *System) IsInitialized() bool { return s.initialized }

func (s *System) ActiveDeviceName() string { return s.activeName }

func (s *System) HasEnumeration() bool { return s.hasEnumeration }

// Devices returns the names reported at Init, in discovery order.
func (s *System) Devices() []string { return s.devices }

func (s *System) LastDeviceError() driver.DeviceErrorCode { return s.lastDeviceErr }

func (s *System) LastRenderError() driver.ErrorCode { return s.lastRenderErr }

func (s *System) DeviceErrorString(code driver.DeviceErrorCode) string { return code.String() }

func (s *System) RenderErrorString(code driver.ErrorCode) string { return code.String() }

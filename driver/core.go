package driver

import (
	"github.com/rs/zerolog"
)

type Option func(*core)

func WithLogger(l zerolog.Logger) Option {
	return func(c *core) { c.log = l }
}

type device struct {
	name     string
	ep       Endpoint
	err      DeviceErrorCode
	contexts int
}

type renderContext struct {
	dev     DeviceID
	stream  Stream
	sources map[SourceID]*source
	buffers map[BufferID]*buffer
	playing SourceID
}

type source struct {
	buf    BufferID
	played bool
}

type buffer struct {
	samples []int16
	refs    int
}

type core struct {
	backend Backend
	rate    int
	log     zerolog.Logger

	nextID    uint32
	devices   map[DeviceID]*device
	contexts  map[ContextID]*renderContext
	current   ContextID
	deviceErr DeviceErrorCode
	err       ErrorCode
}

// New wraps a Backend in the handle-based Driver API. Output is mono S16 at
// OutputSampleRate.
func New(b Backend, opts ...Option) Driver {
	c := &core{
		backend:  b,
		rate:     OutputSampleRate,
		log:      zerolog.Nop(),
		devices:  make(map[DeviceID]*device),
		contexts: make(map[ContextID]*renderContext),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("backend", b.Name()).Logger()
	return c
}

func (c *core) id() uint32 {
	c.nextID++
	return c.nextID
}

// Errors latch: the first failure since the last read wins.
func (c *core) setDeviceErr(d *device, code DeviceErrorCode) {
	if d == nil {
		if c.deviceErr == DeviceNoError {
			c.deviceErr = code
		}
		return
	}
	if d.err == DeviceNoError {
		d.err = code
	}
}

func (c *core) setErr(code ErrorCode) {
	if c.err == NoError {
		c.err = code
	}
}

func (c *core) ExtensionPresent(name string) bool {
	switch name {
	case EnumerationExt:
		_, ok := c.backend.(Enumerator)
		return ok
	case EnumerateAllExt:
		_, ok := c.backend.(FullEnumerator)
		return ok
	default:
		return false
	}
}

func (c *core) DeviceNames(spec Specifier) []string {
	var (
		names []string
		err   error
	)
	switch spec {
	case AllDevicesSpecifier:
		e, ok := c.backend.(FullEnumerator)
		if !ok {
			c.setDeviceErr(nil, DeviceInvalidEnum)
			return nil
		}
		names, err = e.AllDevices()
	case DeviceSpecifier:
		e, ok := c.backend.(Enumerator)
		if !ok {
			c.setDeviceErr(nil, DeviceInvalidEnum)
			return nil
		}
		names, err = e.Devices()
	default:
		c.setDeviceErr(nil, DeviceInvalidEnum)
		return nil
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("device enumeration failed")
		return nil
	}
	return names
}

func (c *core) DefaultDeviceName() string {
	return c.backend.DefaultDevice()
}

func (c *core) OpenDevice(name string) DeviceID {
	ep, err := c.backend.Open(name)
	if err != nil {
		c.log.Debug().Err(err).Str("device", name).Msg("open device")
		c.setDeviceErr(nil, DeviceInvalidValue)
		return 0
	}
	if name == "" {
		name = c.backend.DefaultDevice()
	}
	id := DeviceID(c.id())
	c.devices[id] = &device{name: name, ep: ep}
	return id
}

func (c *core) CloseDevice(dev DeviceID) bool {
	d, ok := c.devices[dev]
	if !ok {
		c.setDeviceErr(nil, InvalidDevice)
		return false
	}
	if d.contexts > 0 {
		c.setDeviceErr(d, InvalidContext)
		return false
	}
	if err := d.ep.Close(); err != nil {
		c.log.Debug().Err(err).Str("device", d.name).Msg("close device")
	}
	delete(c.devices, dev)
	return true
}

func (c *core) CreateContext(dev DeviceID) ContextID {
	d, ok := c.devices[dev]
	if !ok {
		c.setDeviceErr(nil, InvalidDevice)
		return 0
	}
	stream, err := d.ep.NewStream(c.rate)
	if err != nil {
		c.log.Debug().Err(err).Str("device", d.name).Msg("create stream")
		c.setDeviceErr(d, InvalidDevice)
		return 0
	}
	id := ContextID(c.id())
	c.contexts[id] = &renderContext{
		dev:     dev,
		stream:  stream,
		sources: make(map[SourceID]*source),
		buffers: make(map[BufferID]*buffer),
	}
	d.contexts++
	return id
}

func (c *core) MakeContextCurrent(ctx ContextID) bool {
	if ctx == 0 {
		c.current = 0
		return true
	}
	if _, ok := c.contexts[ctx]; !ok {
		c.setDeviceErr(nil, InvalidContext)
		return false
	}
	c.current = ctx
	return true
}

func (c *core) CurrentContext() ContextID {
	return c.current
}

func (c *core) DestroyContext(ctx ContextID) {
	rc, ok := c.contexts[ctx]
	if !ok {
		c.setDeviceErr(nil, InvalidContext)
		return
	}
	d := c.devices[rc.dev]
	if ctx == c.current {
		c.setDeviceErr(d, InvalidContext)
		return
	}
	rc.stream.Stop()
	if err := rc.stream.Close(); err != nil {
		c.log.Debug().Err(err).Msg("close stream")
	}
	delete(c.contexts, ctx)
	if d != nil {
		d.contexts--
	}
}

func (c *core) DeviceError(dev DeviceID) DeviceErrorCode {
	if dev == 0 {
		code := c.deviceErr
		c.deviceErr = DeviceNoError
		return code
	}
	d, ok := c.devices[dev]
	if !ok {
		return InvalidDevice
	}
	code := d.err
	d.err = DeviceNoError
	return code
}

func (c *core) active() *renderContext {
	rc, ok := c.contexts[c.current]
	if !ok {
		c.setErr(InvalidOperation)
		return nil
	}
	return rc
}

func (c *core) GenSource() SourceID {
	rc := c.active()
	if rc == nil {
		return 0
	}
	id := SourceID(c.id())
	rc.sources[id] = &source{}
	return id
}

func (c *core) DeleteSource(src SourceID) {
	rc := c.active()
	if rc == nil {
		return
	}
	s, ok := rc.sources[src]
	if !ok {
		c.setErr(InvalidName)
		return
	}
	if rc.playing == src {
		rc.stream.Stop()
		rc.playing = 0
	}
	if b, ok := rc.buffers[s.buf]; ok {
		b.refs--
	}
	delete(rc.sources, src)
}

func (c *core) GenBuffer() BufferID {
	rc := c.active()
	if rc == nil {
		return 0
	}
	id := BufferID(c.id())
	rc.buffers[id] = &buffer{}
	return id
}

func (c *core) DeleteBuffer(buf BufferID) {
	rc := c.active()
	if rc == nil {
		return
	}
	b, ok := rc.buffers[buf]
	if !ok {
		c.setErr(InvalidName)
		return
	}
	if b.refs > 0 {
		c.setErr(InvalidOperation)
		return
	}
	delete(rc.buffers, buf)
}

func (c *core) BufferData(buf BufferID, samples []int16, sampleRate int) {
	rc := c.active()
	if rc == nil {
		return
	}
	b, ok := rc.buffers[buf]
	if !ok {
		c.setErr(InvalidName)
		return
	}
	if len(samples) == 0 || sampleRate != c.rate {
		c.setErr(InvalidValue)
		return
	}
	if b.refs > 0 {
		c.setErr(InvalidOperation)
		return
	}
	b.samples = append(b.samples[:0], samples...)
}

func (c *core) AttachBuffer(src SourceID, buf BufferID) {
	rc := c.active()
	if rc == nil {
		return
	}
	s, ok := rc.sources[src]
	if !ok {
		c.setErr(InvalidName)
		return
	}
	var nb *buffer
	if buf != 0 {
		if nb, ok = rc.buffers[buf]; !ok {
			c.setErr(InvalidName)
			return
		}
	}
	if rc.playing == src && rc.stream.Playing() {
		c.setErr(InvalidOperation)
		return
	}
	if old, ok := rc.buffers[s.buf]; ok {
		old.refs--
	}
	if nb != nil {
		nb.refs++
	}
	s.buf = buf
}

func (c *core) PlaySource(src SourceID) {
	rc := c.active()
	if rc == nil {
		return
	}
	s, ok := rc.sources[src]
	if !ok {
		c.setErr(InvalidName)
		return
	}
	b, ok := rc.buffers[s.buf]
	if !ok || len(b.samples) == 0 {
		c.setErr(InvalidOperation)
		return
	}
	if err := rc.stream.Play(b.samples); err != nil {
		c.log.Debug().Err(err).Msg("play")
		c.setErr(InvalidOperation)
		return
	}
	rc.playing = src
	s.played = true
}

func (c *core) StopSource(src SourceID) {
	rc := c.active()
	if rc == nil {
		return
	}
	if _, ok := rc.sources[src]; !ok {
		c.setErr(InvalidName)
		return
	}
	if rc.playing == src {
		rc.stream.Stop()
	}
}

func (c *core) SourceState(src SourceID) SourceState {
	rc := c.active()
	if rc == nil {
		return Initial
	}
	s, ok := rc.sources[src]
	if !ok {
		c.setErr(InvalidName)
		return Initial
	}
	switch {
	case rc.playing == src && rc.stream.Playing():
		return Playing
	case s.played:
		return Stopped
	default:
		return Initial
	}
}

func (c *core) Error() ErrorCode {
	code := c.err
	c.err = NoError
	return code
}

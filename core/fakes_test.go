package core

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"sync/atomic"
)

// eventLog records calls across fakes so tests can check ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeADC struct {
	log        *eventLog
	mu         sync.Mutex
	raw        map[ADCChannel]ADCValue
	configured map[ADCChannel]bool
	reads      int
	err        error
}

func newFakeADC() *fakeADC {
	return &fakeADC{
		raw:        make(map[ADCChannel]ADCValue),
		configured: make(map[ADCChannel]bool),
	}
}

func (a *fakeADC) ConfigureChannel(ch ADCChannel) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configured[ch] = true
	return nil
}

func (a *fakeADC) ReadRaw(ch ADCChannel) (ADCValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reads++
	a.log.add("adc_read")
	if a.err != nil {
		return 0, a.err
	}
	return a.raw[ch], nil
}

func (a *fakeADC) set(ch ADCChannel, v ADCValue) {
	a.mu.Lock()
	a.raw[ch] = v
	a.mu.Unlock()
}

// setCelsius programs the code the default divider produces at celsius.
func (a *fakeADC) setCelsius(ch ADCChannel, celsius float64) {
	a.set(ch, rawForCelsius(DefaultConfig().Thermistor, celsius))
}

func rawForCelsius(cfg ThermistorConfig, celsius float64) ADCValue {
	t := celsius + kelvinOffset
	t0 := cfg.NominalCelsius + kelvinOffset
	r := cfg.NominalOhms * math.Exp(cfg.Beta*(1/t-1/t0))
	v := cfg.RailVolts * r / (r + cfg.PullupOhms)
	return ADCValue(math.Round(v / cfg.ADCReference * cfg.ADCLevels))
}

type fakeBurst struct {
	log     *eventLog
	channel ADCChannel
	running bool
}

func (b *fakeBurst) Stop()                { b.running = false; b.log.add("stop") }
func (b *fakeBurst) Select(ch ADCChannel) { b.channel = ch; b.log.add("select") }
func (b *fakeBurst) Drain()               { b.log.add("drain") }
func (b *fakeBurst) Start()               { b.running = true; b.log.add("start") }

type fakeTransfer struct {
	log   *eventLog
	value atomic.Uint32 // every sample gets this code
}

func (x *fakeTransfer) TransferBlocking(dst []uint8) {
	v := uint8(x.value.Load())
	for i := range dst {
		dst[i] = v
	}
	x.log.add("transfer")
}

type fakeAllocator struct {
	xfer *fakeTransfer
	err  error
}

func (a *fakeAllocator) Claim() (BlockTransfer, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.xfer, nil
}

type fakeGen struct {
	log     *eventLog
	mu      sync.Mutex
	applied []Timing
	enabled atomic.Bool
	irq     atomic.Bool
	acks    atomic.Uint32
}

func (g *fakeGen) Apply(t Timing) {
	g.mu.Lock()
	g.applied = append(g.applied, t)
	g.mu.Unlock()
	g.log.add("apply")
}

func (g *fakeGen) SetOutputEnabled(on bool) { g.enabled.Store(on) }

func (g *fakeGen) AcknowledgeWrap() {
	g.acks.Add(1)
	g.log.add("ack")
}

func (g *fakeGen) SetWrapIRQEnabled(on bool) {
	g.irq.Store(on)
	if on {
		g.log.add("irq_on")
	} else {
		g.log.add("irq_off")
	}
}

func (g *fakeGen) applyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.applied)
}

func (g *fakeGen) lastTiming() Timing {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.applied) == 0 {
		return Timing{}
	}
	return g.applied[len(g.applied)-1]
}

type fakeGPIO struct {
	log  *eventLog
	mu   sync.Mutex
	pins map[GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{pins: make(map[GPIOPin]bool)}
}

func (g *fakeGPIO) ConfigureOutput(pin GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pins[pin] = false
	return nil
}

func (g *fakeGPIO) SetPin(pin GPIOPin, value bool) error {
	g.mu.Lock()
	g.pins[pin] = value
	g.mu.Unlock()
	if value {
		g.log.add("probe_high")
	} else {
		g.log.add("probe_low")
	}
	return nil
}

func (g *fakeGPIO) get(pin GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pins[pin]
}

// lockedBuffer collects link output.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

// testRig is a firmware on fake hardware.
type testRig struct {
	fw    *Firmware
	adc   *fakeADC
	burst *fakeBurst
	xfer  *fakeTransfer
	gen   *fakeGen
	gpio  *fakeGPIO
	out   *lockedBuffer
}

func newTestRig(cfg Config) (*testRig, error) {
	r := &testRig{
		adc:   newFakeADC(),
		burst: &fakeBurst{},
		xfer:  &fakeTransfer{},
		gen:   &fakeGen{},
		gpio:  newFakeGPIO(),
		out:   &lockedBuffer{},
	}
	r.adc.setCelsius(cfg.ResistorChannel, 25)
	r.adc.setCelsius(cfg.MosfetChannel, 25)

	fw, err := NewFirmware(cfg, Board{
		ADC:      r.adc,
		Burst:    r.burst,
		Transfer: &fakeAllocator{xfer: r.xfer},
		Pulse:    r.gen,
		GPIO:     r.gpio,
	}, r.out)
	if err != nil {
		return nil, err
	}
	r.fw = fw
	return r, nil
}

// setCharge makes every following burst sum to roughly charge µC.
func (r *testRig) setCharge(charge float64) {
	cfg := r.fw.cfg
	scale := ChargeModelFromConfig(&cfg).Scale()
	perSample := math.Ceil(charge / scale / float64(cfg.BurstSamples))
	r.xfer.value.Store(uint32(perSample))
}

var errFake = errors.New("fake failure")

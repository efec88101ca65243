// Package sim runs the firmware control loop on the host against a
// simulated board, for exercising the host tools without hardware.
package sim

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"powercore/core"
	"powercore/protocol"
)

// Options shapes the simulated machining gap.
type Options struct {
	SparkPercent    float64 `yaml:"spark_percent"`
	ShortPercent    float64 `yaml:"short_percent"`
	ResistorCelsius float64 `yaml:"resistor_celsius"`
	MosfetCelsius   float64 `yaml:"mosfet_celsius"`
	Seed            int64   `yaml:"seed"`
}

// DefaultOptions is a steady cut with some shorting.
func DefaultOptions() Options {
	return Options{
		SparkPercent:    5,
		ShortPercent:    15,
		ResistorCelsius: 35,
		MosfetCelsius:   40,
		Seed:            1,
	}
}

// ErrClosed is returned by Read and Write after Close.
var ErrClosed = errors.New("sim: closed")

// Sim is a firmware instance plus its board. It doubles as the serial port
// the host tools talk to: Write feeds command bytes, Read returns telemetry.
type Sim struct {
	cfg core.Config
	fw  *core.Firmware

	gap  *gap
	adc  *converter
	gen  *generator
	pins *pins

	framer protocol.LineFramer
	now    uint64 // µs since start
	next   uint64 // next pulse, µs

	mu     sync.Mutex
	in     []byte
	out    bytes.Buffer
	closed bool
}

// New builds and starts a firmware instance on a simulated board.
func New(cfg core.Config, opts Options) (*Sim, error) {
	s := &Sim{
		cfg: cfg,
		gap: &gap{
			rng:       rand.New(rand.NewSource(opts.Seed)),
			spark:     opts.SparkPercent / 100,
			short:     opts.ShortPercent / 100,
			scale:     core.ChargeModelFromConfig(&cfg).Scale(),
			samples:   cfg.BurstSamples,
			idleFloor: cfg.IdleFloor,
		},
		adc:  &converter{therm: cfg.Thermistor},
		gen:  &generator{},
		pins: &pins{},
	}
	s.gap.threshold.Store(cfg.ChargeThreshold)
	s.SetTemperatures(opts.ResistorCelsius, opts.MosfetCelsius)

	board := core.Board{
		ADC:      s.adc,
		Burst:    burst{},
		Transfer: &allocator{xfer: &transfer{gap: s.gap}},
		Pulse:    s.gen,
		GPIO:     s.pins,
	}
	fw, err := core.NewFirmware(cfg, board, writerFunc(s.emit))
	if err != nil {
		return nil, err
	}
	s.fw = fw
	fw.Start(0)
	return s, nil
}

// SetTemperatures changes what the thermistor channels read.
func (s *Sim) SetTemperatures(resistor, mosfet float64) {
	s.adc.setCelsius(s.cfg.ResistorChannel, resistor)
	s.adc.setCelsius(s.cfg.MosfetChannel, mosfet)
}

// Firmware exposes the running instance.
func (s *Sim) Firmware() *core.Firmware {
	return s.fw
}

// StatusLED reports the status output.
func (s *Sim) StatusLED() bool {
	return s.pins.state[s.cfg.StatusLEDPin].Load()
}

// Step advances simulated time by d: pending command lines first, then every
// pulse due at the programmed frequency, each followed by a main loop pass.
func (s *Sim) Step(d time.Duration) {
	s.feedInput()

	end := s.now + uint64(d/time.Microsecond)
	for {
		freq := uint64(s.gen.freq.Load())
		if freq == 0 || !s.gen.enabled.Load() || !s.gen.irq.Load() {
			break
		}
		if s.next < s.now {
			s.next = s.now
		}
		if s.next >= end {
			break
		}
		s.fw.OnPulseWrap()
		s.fw.Poll(uint32(s.next))
		s.next += 1000000 / freq
	}
	s.now = end
	s.fw.Poll(uint32(end))
}

// Run steps in real time until ctx is done.
func (s *Sim) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step(tick)
		}
	}
}

func (s *Sim) feedInput() {
	s.mu.Lock()
	in := s.in
	s.in = nil
	s.mu.Unlock()

	for _, b := range in {
		if line, ok := s.framer.Feed(b); ok {
			s.trackCommands(line)
			s.fw.HandleLine(line)
		}
	}
}

// trackCommands keeps the gap model's notion of a short in step with the
// firmware's charge ceiling.
func (s *Sim) trackCommands(line []byte) {
	protocol.EachPair(string(line), func(key, value string) bool {
		if key == protocol.CmdChargeCeiling {
			if v, err := strconv.ParseUint(value, 10, 32); err == nil && v > 0 {
				s.gap.threshold.Store(uint32(v))
			}
		}
		return true
	})
}

func (s *Sim) emit(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

// Read returns buffered telemetry. It never blocks; an empty buffer reads
// as zero bytes, like a serial read timeout.
func (s *Sim) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.out.Len() == 0 {
		return 0, nil
	}
	return s.out.Read(p)
}

// Write queues command bytes for the next Step.
func (s *Sim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.in = append(s.in, p...)
	return len(p), nil
}

// Close stops the port side.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Flush drops unread telemetry.
func (s *Sim) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Reset()
	return nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

package sim

import (
	"math"
	"math/rand"
	"sync/atomic"

	"powercore/core"
)

// gap draws a charge level for each simulated pulse.
type gap struct {
	rng   *rand.Rand
	spark float64 // probability, 0-1
	short float64

	scale     float64
	samples   int
	idleFloor float64
	threshold atomic.Uint32
}

// level returns the per-sample value that makes a burst of n samples sum to
// roughly charge.
func (g *gap) level(charge float64) uint8 {
	v := math.Round(charge / g.scale / float64(g.samples))
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return uint8(v)
}

func (g *gap) draw() uint8 {
	threshold := float64(g.threshold.Load())
	u := g.rng.Float64()
	switch {
	case u < g.short:
		return g.level(threshold * 1.5)
	case u < g.short+g.spark:
		return g.level((g.idleFloor + threshold) / 2)
	default:
		return 0
	}
}

// transfer fills each burst with one drawn level.
type transfer struct {
	gap *gap
}

func (t *transfer) TransferBlocking(dst []uint8) {
	v := t.gap.draw()
	for i := range dst {
		dst[i] = v
	}
}

type allocator struct {
	xfer *transfer
}

func (a *allocator) Claim() (core.BlockTransfer, error) {
	return a.xfer, nil
}

// converter answers one-shot reads from simulated thermistor temperatures.
type converter struct {
	therm   core.ThermistorConfig
	celsius [8]atomic.Uint64 // float64 bits per channel
}

func (c *converter) setCelsius(ch core.ADCChannel, v float64) {
	c.celsius[ch].Store(math.Float64bits(v))
}

func (c *converter) ConfigureChannel(ch core.ADCChannel) error {
	if int(ch) >= len(c.celsius) {
		return core.ErrInvalidConfig
	}
	return nil
}

// ReadRaw inverts the beta model: temperature to divider voltage to counts.
func (c *converter) ReadRaw(ch core.ADCChannel) (core.ADCValue, error) {
	celsius := math.Float64frombits(c.celsius[ch].Load())
	const kelvin = 273.15
	t := c.therm
	ohms := t.NominalOhms * math.Exp(t.Beta*(1/(celsius+kelvin)-1/(t.NominalCelsius+kelvin)))
	volts := t.RailVolts * ohms / (ohms + t.PullupOhms)
	raw := math.Round(volts / t.ADCReference * t.ADCLevels)
	if raw > t.ADCLevels-1 {
		raw = t.ADCLevels - 1
	}
	return core.ADCValue(raw), nil
}

// burst is the free-running side; the simulation has nothing to stop.
type burst struct{}

func (burst) Stop()                  {}
func (burst) Select(core.ADCChannel) {}
func (burst) Drain()                 {}
func (burst) Start()                 {}

// generator records what the firmware programs.
type generator struct {
	freq    atomic.Uint32
	enabled atomic.Bool
	irq     atomic.Bool
}

func (g *generator) Apply(t core.Timing)       { g.freq.Store(t.Frequency) }
func (g *generator) SetOutputEnabled(on bool)  { g.enabled.Store(on) }
func (g *generator) AcknowledgeWrap()          {}
func (g *generator) SetWrapIRQEnabled(on bool) { g.irq.Store(on) }

// pins holds simulated digital outputs.
type pins struct {
	state [32]atomic.Bool
}

func (p *pins) ConfigureOutput(pin core.GPIOPin) error {
	if pin >= 32 {
		return core.ErrInvalidConfig
	}
	return nil
}

func (p *pins) SetPin(pin core.GPIOPin, value bool) error {
	if pin >= 32 {
		return core.ErrInvalidConfig
	}
	p.state[pin].Store(value)
	return nil
}

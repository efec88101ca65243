package core

import "sync/atomic"

// MaxBurstSamples bounds the burst captured per pulse.
const MaxBurstSamples = 16

// PulseSample is the measurement taken after one output pulse.
type PulseSample struct {
	Burst   [MaxBurstSamples]uint8
	Samples uint8
	Sum     uint32
	Charge  float64 // µC
	Seq     uint32
}

// PulseSlot is a single-slot handoff from the pulse interrupt to the main
// loop. A new sample overwrites one that was never taken.
type PulseSlot struct {
	ready       atomic.Bool
	overwritten atomic.Uint32
	sample      PulseSample
}

// Publish stores s and raises the ready marker. Interrupt context only.
func (p *PulseSlot) Publish(s *PulseSample) {
	if p.ready.Load() {
		p.overwritten.Add(1)
	}
	p.sample = *s
	p.ready.Store(true)
}

// Take clears the marker and copies the newest sample. The copy happens with
// the interrupt held off so it is never torn.
func (p *PulseSlot) Take() (PulseSample, bool) {
	if !p.ready.Load() {
		return PulseSample{}, false
	}
	state := disableInterrupts()
	p.ready.Store(false)
	s := p.sample
	restoreInterrupts(state)
	return s, true
}

// Ready reports whether an untaken sample is waiting.
func (p *PulseSlot) Ready() bool {
	return p.ready.Load()
}

// Overwritten counts samples lost because the main loop fell behind.
func (p *PulseSlot) Overwritten() uint32 {
	return p.overwritten.Load()
}

// PulseHandler is the per-cycle interrupt work.
type PulseHandler struct {
	gen      PulseGenerator
	sampler  *ChargeSampler
	mode     *PowerModeController
	slot     *PulseSlot
	probe    GPIODriver
	probePin GPIOPin

	seq     uint32
	scratch PulseSample
}

// NewPulseHandler wires the handler. probe may be nil.
func NewPulseHandler(gen PulseGenerator, sampler *ChargeSampler, mode *PowerModeController, slot *PulseSlot, probe GPIODriver, probePin GPIOPin) *PulseHandler {
	if probe == nil {
		probePin = NoPin
	}
	return &PulseHandler{
		gen:      gen,
		sampler:  sampler,
		mode:     mode,
		slot:     slot,
		probe:    probe,
		probePin: probePin,
	}
}

// OnWrap acknowledges the interrupt, samples, decides the mode and hands the
// sample to the main loop, in that order.
func (h *PulseHandler) OnWrap() {
	h.gen.AcknowledgeWrap()
	if h.probePin != NoPin {
		h.probe.SetPin(h.probePin, true)
	}

	h.sampler.Sample(&h.scratch)
	h.mode.Decide(h.scratch.Charge)
	h.seq++
	h.scratch.Seq = h.seq
	h.slot.Publish(&h.scratch)

	if h.probePin != NoPin {
		h.probe.SetPin(h.probePin, false)
	}
}

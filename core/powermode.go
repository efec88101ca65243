package core

import "sync/atomic"

// PowerMode selects the output timing.
type PowerMode uint32

const (
	ModeNormal PowerMode = iota
	ModeLowPower
)

func (m PowerMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeLowPower:
		return "low_power"
	default:
		return "unknown"
	}
}

// maxDivider16 is the largest slice divider, 255 15/16, in sixteenths.
const maxDivider16 = 0xFFF

// ComputeTiming derives divider, wrap and compare level for freq with a
// fixed on-time. The divider is rounded up, so the achieved frequency can
// differ slightly from the request; Achieved reports what the hardware will
// actually produce. Below MinSliceFrequency the divider and wrap saturate.
func ComputeTiming(clockHz, freq, onTimeMicros uint32) Timing {
	clock := uint64(clockHz)
	f := uint64(freq)

	divider16 := clock / f / 4096
	if clock%(f*4096) != 0 {
		divider16++
	}
	if divider16/16 == 0 {
		divider16 = 16
	}
	if divider16 > maxDivider16 {
		divider16 = maxDivider16
	}
	wrap := clock*16/divider16/f - 1
	if wrap > 0xFFFF {
		wrap = 0xFFFF
	}
	duty := float64(onTimeMicros) * 1e-6 * float64(freq)
	level := uint32(float64(wrap) * duty)

	return Timing{
		Frequency: freq,
		DivInt:    uint8(divider16 / 16),
		DivFrac:   uint8(divider16 & 0xF),
		Wrap:      uint16(wrap),
		Level:     uint16(level),
		Achieved:  float64(clock*16) / float64(divider16) / float64(wrap+1),
	}
}

// MinSliceFrequency is the lowest whole frequency a slice clocked at clockHz
// can produce.
func MinSliceFrequency(clockHz uint32) uint32 {
	span := uint64(maxDivider16) * 0x10000
	clock16 := uint64(clockHz) * 16
	return uint32((clock16 + span - 1) / span)
}

// PowerModeController owns the output timing. Decide runs from the pulse
// interrupt; the setters run from the main loop and reprogram the output
// inside a critical section.
type PowerModeController struct {
	gen      PulseGenerator
	clockHz  uint32
	onTime   uint32
	minFreq  uint32
	maxFreq  uint32
	lowPower uint32

	target      atomic.Uint32
	current     atomic.Uint32
	mode        atomic.Uint32
	threshold   atomic.Uint32
	transitions atomic.Uint32

	timing Timing
}

// NewPowerModeController takes timing limits and defaults from cfg.
func NewPowerModeController(gen PulseGenerator, cfg *Config) *PowerModeController {
	pm := &PowerModeController{
		gen:      gen,
		clockHz:  cfg.ClockHz,
		onTime:   cfg.OnTimeMicros,
		minFreq:  cfg.MinFrequency,
		maxFreq:  cfg.MaxFrequency,
		lowPower: cfg.LowPowerFrequency,
	}
	pm.target.Store(cfg.TargetFrequency)
	pm.threshold.Store(cfg.ChargeThreshold)
	return pm
}

// Start programs normal-mode timing. Call before the pulse interrupt is
// enabled.
func (pm *PowerModeController) Start() {
	pm.mode.Store(uint32(ModeNormal))
	pm.apply(pm.target.Load())
}

// Decide switches mode from one pulse's charge. The output is reprogrammed
// only on an actual mode change.
func (pm *PowerModeController) Decide(charge float64) PowerMode {
	mode := PowerMode(pm.mode.Load())
	over := charge > float64(pm.threshold.Load())

	switch {
	case over && mode == ModeNormal:
		pm.mode.Store(uint32(ModeLowPower))
		pm.apply(pm.lowPower)
		pm.transitions.Add(1)
		return ModeLowPower
	case !over && mode == ModeLowPower:
		pm.mode.Store(uint32(ModeNormal))
		pm.apply(pm.target.Load())
		pm.transitions.Add(1)
		return ModeNormal
	}
	return mode
}

// SetTarget changes the normal-mode frequency. In normal mode the output is
// reprogrammed at once; in low-power mode the new target takes effect on
// the next exit.
func (pm *PowerModeController) SetTarget(freq uint32) error {
	if freq < pm.minFreq || freq > pm.maxFreq {
		return ErrFrequencyRange
	}
	state := disableInterrupts()
	pm.target.Store(freq)
	if PowerMode(pm.mode.Load()) == ModeNormal {
		pm.apply(freq)
	}
	restoreInterrupts(state)
	return nil
}

// SetThreshold changes the per-pulse charge ceiling, in whole µC.
func (pm *PowerModeController) SetThreshold(microCoulombs uint32) error {
	if microCoulombs == 0 {
		return ErrThresholdRange
	}
	pm.threshold.Store(microCoulombs)
	return nil
}

func (pm *PowerModeController) apply(freq uint32) {
	t := ComputeTiming(pm.clockHz, freq, pm.onTime)
	pm.gen.Apply(t)
	pm.timing = t
	pm.current.Store(freq)
}

// Mode returns the current power mode.
func (pm *PowerModeController) Mode() PowerMode {
	return PowerMode(pm.mode.Load())
}

// Frequency returns the frequency currently programmed.
func (pm *PowerModeController) Frequency() uint32 {
	return pm.current.Load()
}

// Target returns the normal-mode frequency.
func (pm *PowerModeController) Target() uint32 {
	return pm.target.Load()
}

// Threshold returns the charge ceiling in µC.
func (pm *PowerModeController) Threshold() uint32 {
	return pm.threshold.Load()
}

// Transitions counts mode changes since start.
func (pm *PowerModeController) Transitions() uint32 {
	return pm.transitions.Load()
}

// Timing returns the last applied configuration.
func (pm *PowerModeController) Timing() Timing {
	state := disableInterrupts()
	t := pm.timing
	restoreInterrupts(state)
	return t
}

package core

import "sync/atomic"

// SafetyState is Armed until the first fault, then Shutdown for the rest of
// the session.
type SafetyState uint32

const (
	Armed SafetyState = iota
	Shutdown
)

func (s SafetyState) String() string {
	if s == Shutdown {
		return "shutdown"
	}
	return "armed"
}

// Fault names the condition that tripped the shutdown.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultResistorHot
	FaultMosfetHot
	FaultResistorCold
	FaultMosfetCold
	FaultResistorSensor
	FaultMosfetSensor
)

func (f Fault) String() string {
	switch f {
	case FaultResistorHot:
		return "resistor over temperature"
	case FaultMosfetHot:
		return "mosfet over temperature"
	case FaultResistorCold:
		return "resistor under temperature"
	case FaultMosfetCold:
		return "mosfet under temperature"
	case FaultResistorSensor:
		return "resistor sensor fault"
	case FaultMosfetSensor:
		return "mosfet sensor fault"
	default:
		return "none"
	}
}

// ShutdownMessage is the alert text sent once on shutdown.
const ShutdownMessage = "Temperature Safety Shutdown!!"

// Safety latches the shutdown state and performs the shutdown actions.
type Safety struct {
	state atomic.Uint32
	fault Fault
	gen   PulseGenerator
	out   *Outputs
	alert func(msg string)
}

// NewSafety returns an armed latch. alert receives the shutdown message.
func NewSafety(gen PulseGenerator, out *Outputs, alert func(string)) *Safety {
	return &Safety{gen: gen, out: out, alert: alert}
}

// Trip moves to Shutdown. Only the first call acts; it reports whether this
// call caused the transition.
func (s *Safety) Trip(f Fault) bool {
	if !s.state.CompareAndSwap(uint32(Armed), uint32(Shutdown)) {
		return false
	}
	s.fault = f
	s.gen.SetOutputEnabled(false)
	if s.out != nil {
		s.out.SetStatus(false)
	}
	if s.alert != nil {
		s.alert(ShutdownMessage + " (" + f.String() + ")")
	}
	return true
}

// State returns the current safety state.
func (s *Safety) State() SafetyState {
	return SafetyState(s.state.Load())
}

// Fault returns the condition that caused the shutdown.
func (s *Safety) Fault() Fault {
	return s.fault
}

// ThermalReading is the pair of probe readings of one monitor cycle.
type ThermalReading struct {
	Resistor Temperature
	Mosfet   Temperature
}

// ThermalLimits bound both probes.
type ThermalLimits struct {
	ResistorMax float64
	MosfetMax   float64
	Min         float64
}

// Evaluate applies the decision table. Faults are checked in a fixed order
// and the first match wins.
func (l ThermalLimits) Evaluate(r ThermalReading) Fault {
	switch {
	case !r.Resistor.Valid():
		return FaultResistorSensor
	case !r.Mosfet.Valid():
		return FaultMosfetSensor
	case r.Resistor.Celsius > l.ResistorMax:
		return FaultResistorHot
	case r.Mosfet.Celsius > l.MosfetMax:
		return FaultMosfetHot
	case r.Resistor.Celsius < l.Min:
		return FaultResistorCold
	case r.Mosfet.Celsius < l.Min:
		return FaultMosfetCold
	}
	return FaultNone
}

// ThermalMonitor runs on the monitor cadence in the main loop.
type ThermalMonitor struct {
	resistor   *ThermalProbe
	mosfet     *ThermalProbe
	gen        PulseGenerator
	limits     ThermalLimits
	shortAlert uint32
	safety     *Safety
	out        *Outputs

	last ThermalReading
}

// NewThermalMonitor wires both probes to the safety latch.
func NewThermalMonitor(resistor, mosfet *ThermalProbe, gen PulseGenerator, safety *Safety, out *Outputs, cfg *Config) *ThermalMonitor {
	return &ThermalMonitor{
		resistor: resistor,
		mosfet:   mosfet,
		gen:      gen,
		limits: ThermalLimits{
			ResistorMax: cfg.ResistorMaxCelsius,
			MosfetMax:   cfg.MosfetMaxCelsius,
			Min:         cfg.MinCelsius,
		},
		shortAlert: cfg.ShortAlertPercent,
		safety:     safety,
		out:        out,
	}
}

// Check runs one monitor cycle: short alert line, raw probe reads with the
// pulse interrupt masked, conversion, then the decision table. The beta
// maths runs unmasked.
func (m *ThermalMonitor) Check(pct Percentages) (ThermalReading, Fault) {
	if m.out != nil {
		m.out.SetShortAlert(pct.Short > m.shortAlert)
	}

	m.gen.SetWrapIRQEnabled(false)
	m.resistor.Sample()
	m.mosfet.Sample()
	m.gen.SetWrapIRQEnabled(true)

	r := ThermalReading{
		Resistor: m.resistor.Convert(),
		Mosfet:   m.mosfet.Convert(),
	}
	m.last = r

	f := m.limits.Evaluate(r)
	if f != FaultNone {
		m.safety.Trip(f)
	}
	return r, f
}

// Last returns the reading of the previous cycle.
func (m *ThermalMonitor) Last() ThermalReading {
	return m.last
}

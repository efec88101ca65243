package core

// Classification of one pulse.
type Classification uint8

const (
	PulseIdle Classification = iota
	PulseSpark
	PulseShort
)

func (c Classification) String() string {
	switch c {
	case PulseIdle:
		return "idle"
	case PulseSpark:
		return "spark"
	case PulseShort:
		return "short"
	default:
		return "unknown"
	}
}

// Window counts pulses until it holds one second of output cycles.
type Window struct {
	Total uint32
	Spark uint32
	Short uint32
}

// Percentages are latched at each window reset.
type Percentages struct {
	Spark uint32
	Short uint32
}

// SmoothedCharge is an exponential average whose new-sample weight is
// 1/frequency, giving it roughly a one second horizon.
type SmoothedCharge struct {
	Value float64
}

// Update folds in one charge value.
func (s *SmoothedCharge) Update(charge float64, freq uint32) float64 {
	if freq <= 1 {
		s.Value = charge
		return s.Value
	}
	f := float64(freq)
	s.Value = s.Value*((f-1)/f) + charge*(1/f)
	return s.Value
}

// StatsEngine runs in the main loop once per handed-off sample.
type StatsEngine struct {
	mode         *PowerModeController
	side         *ThermalProbe
	idleFloor    float64
	windowMicros float64
	voltage      float64
	divisor      float64

	window   Window
	pct      Percentages
	avg      SmoothedCharge
	avgPower float64
	sideTemp Temperature
	resets   uint32
	lastSeq  uint32
}

// NewStatsEngine wires the classifier. side may be nil to skip the per-pulse
// temperature reading.
func NewStatsEngine(mode *PowerModeController, side *ThermalProbe, cfg *Config) *StatsEngine {
	return &StatsEngine{
		mode:         mode,
		side:         side,
		idleFloor:    cfg.IdleFloor,
		windowMicros: cfg.SampleWindowMicros(),
		voltage:      cfg.NominalVoltage,
		divisor:      cfg.PowerDivisor,
	}
}

// Classify sorts a charge value. At or below the idle floor the pulse found
// no gap to spark across.
func (e *StatsEngine) Classify(charge float64) Classification {
	switch {
	case charge <= e.idleFloor:
		return PulseIdle
	case charge > float64(e.mode.Threshold()):
		return PulseShort
	default:
		return PulseSpark
	}
}

// Process folds one sample into the running statistics. It returns the
// pulse classification and whether the window was reset.
func (e *StatsEngine) Process(s PulseSample) (Classification, bool) {
	freq := e.mode.Frequency()

	e.avg.Update(s.Charge, freq)
	e.avgPower = e.avg.Value / e.windowMicros * e.voltage / e.divisor

	if e.side != nil {
		state := disableInterrupts()
		e.sideTemp = e.side.Read()
		restoreInterrupts(state)
	}

	c := e.Classify(s.Charge)
	e.window.Total++
	switch c {
	case PulseSpark:
		e.window.Spark++
	case PulseShort:
		e.window.Short++
	}
	e.lastSeq = s.Seq

	if e.window.Total >= freq {
		e.pct.Spark = e.window.Spark * 100 / e.window.Total
		e.pct.Short = e.window.Short * 100 / e.window.Total
		e.window = Window{}
		e.resets++
		return c, true
	}
	return c, false
}

// Window returns the live counters.
func (e *StatsEngine) Window() Window { return e.window }

// Percentages returns the values latched at the last reset.
func (e *StatsEngine) Percentages() Percentages { return e.pct }

// AvgCharge returns the smoothed charge in µC.
func (e *StatsEngine) AvgCharge() float64 { return e.avg.Value }

// AvgPower returns the power estimate in display units.
func (e *StatsEngine) AvgPower() float64 { return e.avgPower }

// SideTemperature returns the switching-element reading taken with the
// last pulse.
func (e *StatsEngine) SideTemperature() Temperature { return e.sideTemp }

// Resets counts completed windows.
func (e *StatsEngine) Resets() uint32 { return e.resets }

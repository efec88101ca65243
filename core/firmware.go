package core

import "io"

// Board is the set of hardware capabilities the firmware runs on.
type Board struct {
	ADC      ADCDriver
	Burst    BurstADC
	Transfer BlockTransferAllocator
	Pulse    PulseGenerator
	GPIO     GPIODriver
}

// Firmware owns all control state. The pulse interrupt only touches the
// handler, the power mode controller and the pulse slot; everything else is
// main-loop state.
type Firmware struct {
	cfg   Config
	board Board

	mode    *PowerModeController
	sampler *ChargeSampler
	slot    PulseSlot
	handler *PulseHandler

	stats    *StatsEngine
	resistor *ThermalProbe
	mosfet   *ThermalProbe
	side     *ThermalProbe
	monitor  *ThermalMonitor
	safety   *Safety
	outputs  *Outputs

	telemetry *Telemetry
	commands  *CommandRegistry

	sched        Scheduler
	monitorTimer Timer
	now          uint32
	transitions  uint32
	started      bool
}

// NewFirmware validates cfg, claims the block transfer channel and
// configures every pin. Any error is fatal: the control loop must not run
// without a working sampler.
func NewFirmware(cfg Config, board Board, out io.Writer) (*Firmware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if board.ADC == nil || board.Burst == nil || board.Pulse == nil || board.GPIO == nil || out == nil {
		return nil, ErrInvalidConfig
	}
	if board.Transfer == nil {
		return nil, ErrNoBlockTransfer
	}
	xfer, err := board.Transfer.Claim()
	if err != nil || xfer == nil {
		return nil, ErrNoBlockTransfer
	}

	for _, ch := range []ADCChannel{cfg.CurrentChannel, cfg.ResistorChannel, cfg.MosfetChannel} {
		if err := board.ADC.ConfigureChannel(ch); err != nil {
			return nil, err
		}
	}
	outputs, err := NewOutputs(board.GPIO, cfg.StatusLEDPin, cfg.ShortAlertPin)
	if err != nil {
		return nil, err
	}
	if cfg.TimingProbePin != NoPin {
		if err := board.GPIO.ConfigureOutput(cfg.TimingProbePin); err != nil {
			return nil, err
		}
	}

	fw := &Firmware{
		cfg:       cfg,
		board:     board,
		outputs:   outputs,
		telemetry: NewTelemetry(out),
		commands:  NewCommandRegistry(),
	}

	thermistor := NewThermistor(cfg.Thermistor)
	fw.resistor = NewThermalProbe(board.ADC, cfg.ResistorChannel, thermistor, cfg.Thermistor.Samples)
	fw.mosfet = NewThermalProbe(board.ADC, cfg.MosfetChannel, thermistor, cfg.Thermistor.Samples)
	if cfg.PulseSideReading {
		fw.side = NewThermalProbe(board.ADC, cfg.MosfetChannel, thermistor, cfg.Thermistor.Samples)
	}

	fw.mode = NewPowerModeController(board.Pulse, &fw.cfg)
	fw.sampler = NewChargeSampler(board.Burst, xfer, cfg.CurrentChannel, cfg.BurstSamples, ChargeModelFromConfig(&fw.cfg))
	fw.handler = NewPulseHandler(board.Pulse, fw.sampler, fw.mode, &fw.slot, board.GPIO, cfg.TimingProbePin)
	fw.stats = NewStatsEngine(fw.mode, fw.side, &fw.cfg)
	fw.safety = NewSafety(board.Pulse, outputs, fw.alert)
	fw.monitor = NewThermalMonitor(fw.resistor, fw.mosfet, board.Pulse, fw.safety, outputs, &fw.cfg)

	fw.monitorTimer.Handler = fw.monitorEvent
	fw.registerCommands()
	return fw, nil
}

// Start programs normal-mode timing, enables the output and its interrupt,
// and schedules the first monitor cycle.
func (fw *Firmware) Start(now uint32) {
	if fw.started {
		return
	}
	fw.started = true
	fw.now = now

	fw.mode.Start()
	fw.transitions = fw.mode.Transitions()
	fw.board.Pulse.SetWrapIRQEnabled(true)
	fw.board.Pulse.SetOutputEnabled(true)
	fw.outputs.SetStatus(true)

	fw.monitorTimer.WakeTime = now + TimerFromUS(fw.cfg.MonitorPeriodMicros)
	fw.sched.Schedule(&fw.monitorTimer)
	DebugPrintln("powercore started at " + utoa(fw.mode.Frequency()) + " Hz")
}

// OnPulseWrap is the entry point for the per-cycle interrupt.
func (fw *Firmware) OnPulseWrap() {
	runInterrupt(fw.handler.OnWrap)
}

// Poll runs one main loop iteration: statistics for a waiting sample, then
// any due monitor cycle.
func (fw *Firmware) Poll(now uint32) {
	fw.now = now

	if s, ok := fw.slot.Take(); ok {
		if _, reset := fw.stats.Process(s); reset {
			pct := fw.stats.Percentages()
			RecordTiming(EvtWindowReset, now, pct.Spark, pct.Short)
		}
	}

	// Several changes can land between polls; record how many.
	if n := fw.mode.Transitions(); n != fw.transitions {
		changes := n - fw.transitions
		fw.transitions = n
		m := fw.mode.Mode()
		RecordTiming(EvtModeChange, now, uint32(m), changes)
		DebugPrintln("mode " + m.String() + " after " + utoa(changes) + " changes")
	}

	fw.sched.Dispatch(now)
}

// HandleLine applies one command line received from the link.
func (fw *Firmware) HandleLine(line []byte) {
	applied, err := fw.commands.Dispatch(string(line))
	if err != nil {
		RecordTiming(EvtCommandRejected, fw.now, uint32(applied), 0)
		DebugPrintln("command ignored: " + err.Error())
	}
}

func (fw *Firmware) monitorEvent(t *Timer) uint8 {
	armed := fw.safety.State() == Armed
	_, fault := fw.monitor.Check(fw.stats.Percentages())
	if armed && fw.safety.State() == Shutdown {
		RecordTiming(EvtShutdown, fw.now, uint32(fault), 0)
		DumpTimingRing()
	}

	snap := fw.Snapshot()
	fw.telemetry.Status(&snap)

	period := TimerFromUS(fw.cfg.MonitorPeriodMicros)
	t.WakeTime += period
	if timerIsBefore(t.WakeTime, fw.now) {
		t.WakeTime = fw.now + period
	}
	return SF_RESCHEDULE
}

func (fw *Firmware) alert(msg string) {
	fw.telemetry.Message(msg)
}

// Snapshot returns the live state.
func (fw *Firmware) Snapshot() Snapshot {
	return Snapshot{
		Percentages: fw.stats.Percentages(),
		Window:      fw.stats.Window(),
		AvgCharge:   fw.stats.AvgCharge(),
		AvgPower:    fw.stats.AvgPower(),
		Frequency:   fw.mode.Frequency(),
		Target:      fw.mode.Target(),
		Threshold:   fw.mode.Threshold(),
		Mode:        fw.mode.Mode(),
		Thermal:     fw.monitor.Last(),
		PulseTemp:   fw.stats.SideTemperature(),
		Safety:      fw.safety.State(),
		Fault:       fw.safety.Fault(),
		Pulses:      fw.stats.lastSeq,
		Overwritten: fw.slot.Overwritten(),
	}
}

// Commands returns the command registry.
func (fw *Firmware) Commands() *CommandRegistry {
	return fw.commands
}

// IsShutdown reports whether the safety latch has tripped.
func (fw *Firmware) IsShutdown() bool {
	return fw.safety.State() == Shutdown
}

package core

import "powercore/protocol"

// Confirmation texts echoed after a command is applied.
const (
	msgFrequencySet = "PWM frequency set to: "
	msgCeilingSet   = "Max uC per Pulse set to: "
)

func (fw *Firmware) registerCommands() {
	fw.commands.Register(protocol.CmdFrequency, fw.cmdFrequency)
	fw.commands.Register(protocol.CmdChargeCeiling, fw.cmdChargeCeiling)
}

// cmdFrequency handles pwm_frequency=<Hz>
func (fw *Firmware) cmdFrequency(value string) error {
	f, err := parseUint32(value)
	if err != nil {
		return err
	}
	if err := fw.mode.SetTarget(f); err != nil {
		return err
	}
	RecordTiming(EvtTargetChange, fw.now, f, fw.mode.Frequency())
	fw.telemetry.Message(msgFrequencySet + utoa(f))
	return nil
}

// cmdChargeCeiling handles micro_c_per_pulse=<µC>
func (fw *Firmware) cmdChargeCeiling(value string) error {
	uc, err := parseUint32(value)
	if err != nil {
		return err
	}
	if err := fw.mode.SetThreshold(uc); err != nil {
		return err
	}
	RecordTiming(EvtThresholdChange, fw.now, uc, 0)
	fw.telemetry.Message(msgCeilingSet + string(appendFixed(nil, float64(uc), 0)))
	return nil
}

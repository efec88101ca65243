package core

import (
	"io"

	"powercore/protocol"
)

// Snapshot is a consistent view of the live state, taken in the main loop.
type Snapshot struct {
	Percentages
	Window      Window
	AvgCharge   float64
	AvgPower    float64
	Frequency   uint32
	Target      uint32
	Threshold   uint32
	Mode        PowerMode
	Thermal     ThermalReading
	PulseTemp   Temperature
	Safety      SafetyState
	Fault       Fault
	Pulses      uint32
	Overwritten uint32
}

// AppendStatus formats the periodic status line, newline included.
func AppendStatus(dst []byte, s *Snapshot) []byte {
	dst = append(dst, protocol.KeySparkPercent...)
	dst = append(dst, '=')
	dst = appendUint(dst, s.Spark)
	dst = appendField(dst, protocol.KeyShortPercent)
	dst = appendUint(dst, s.Short)
	dst = appendField(dst, protocol.KeyAvgPower)
	dst = appendFixed(dst, s.AvgPower, 2)
	dst = appendField(dst, protocol.KeyAvgCharge)
	dst = appendFixed(dst, s.AvgCharge, 2)
	dst = appendField(dst, protocol.KeyPulseFreq)
	dst = appendUint(dst, s.Frequency)
	dst = appendField(dst, protocol.KeyMaxCoulomb)
	dst = appendFixed(dst, float64(s.Threshold), 0)
	dst = appendField(dst, protocol.KeyResistorTemp)
	dst = appendFixed(dst, s.Thermal.Resistor.Celsius, 0)
	dst = appendField(dst, protocol.KeyMosfetTemp)
	dst = appendFixed(dst, s.Thermal.Mosfet.Celsius, 0)
	return append(dst, '\n')
}

// AppendMessage formats an alert line. Text longer than the line buffer is
// cut short.
func AppendMessage(dst []byte, text string) []byte {
	limit := protocol.DataLength - len(protocol.KeyMessage) - 3
	if len(text) > limit {
		text = text[:limit]
	}
	dst = append(dst, protocol.KeyMessage...)
	dst = append(dst, '=')
	dst = append(dst, text...)
	return append(dst, '\n')
}

// Telemetry writes formatted lines to the link.
type Telemetry struct {
	w    io.Writer
	buf  [protocol.DataLength]byte
	errs uint32
}

// NewTelemetry writes to w.
func NewTelemetry(w io.Writer) *Telemetry {
	return &Telemetry{w: w}
}

// Status sends one status line.
func (t *Telemetry) Status(s *Snapshot) error {
	return t.send(AppendStatus(t.buf[:0], s))
}

// Message sends one alert line.
func (t *Telemetry) Message(text string) error {
	return t.send(AppendMessage(t.buf[:0], text))
}

// Errors counts lines the link refused.
func (t *Telemetry) Errors() uint32 {
	return t.errs
}

func (t *Telemetry) send(line []byte) error {
	if _, err := t.w.Write(line); err != nil {
		t.errs++
		return err
	}
	return nil
}

package core

// Timing is one fully computed output configuration.
type Timing struct {
	Frequency uint32 // requested frequency, Hz
	DivInt    uint8  // integer part of the clock divider
	DivFrac   uint8  // fractional part, 1/16 steps
	Wrap      uint16 // counter top
	Level     uint16 // compare level, sets the fixed on-time
	Achieved  float64
}

// PulseGenerator drives the high-voltage switching output. The wrap
// interrupt fires once per output cycle.
type PulseGenerator interface {
	// Apply programs divider, wrap and compare level.
	Apply(t Timing)

	// SetOutputEnabled starts or stops the output.
	SetOutputEnabled(on bool)

	// AcknowledgeWrap clears the pending wrap interrupt.
	AcknowledgeWrap()

	// SetWrapIRQEnabled masks or unmasks the per-cycle interrupt.
	SetWrapIRQEnabled(on bool)
}

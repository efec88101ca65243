//go:build rp2040

package main

// ModeConfig selects the pulse generator backend
type ModeConfig struct {
	// PIOPulse drives the output from a PIO state machine instead of a
	// PWM slice. The pulse interrupt then comes from the output pin's
	// rising edge.
	PIOPulse bool
}

// GetMode returns the current mode configuration
func GetMode() ModeConfig {
	return ModeConfig{
		PIOPulse: pioPulse,
	}
}

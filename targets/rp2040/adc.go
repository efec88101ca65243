//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"
	"powercore/core"
)

// RpAdcDriver implements core.ADCDriver and core.BurstADC on the RP2040
// converter. One-shot reads serve the thermistors; the free-running mode
// feeds the current-sense burst through DMA.
type RpAdcDriver struct {
	configured [4]bool
}

// NewRPAdcDriver initializes the converter block.
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	return &RpAdcDriver{}
}

// ConfigureChannel sets up the pad for an external channel 0-3.
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannel) error {
	var adc machine.ADC

	switch ch {
	case 0:
		adc = machine.ADC{Pin: machine.ADC0}
	case 1:
		adc = machine.ADC{Pin: machine.ADC1}
	case 2:
		adc = machine.ADC{Pin: machine.ADC2}
	case 3:
		adc = machine.ADC{Pin: machine.ADC3}
	default:
		return errors.New("unsupported ADC channel")
	}
	if d.configured[ch] {
		return nil
	}

	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.configured[ch] = true
	return nil
}

// ReadRaw returns a raw 12-bit value (0-4095). The caller keeps the pulse
// interrupt masked so the burst cannot move the multiplexer mid-conversion.
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannel) (core.ADCValue, error) {
	if int(ch) >= len(d.configured) {
		return 0, errors.New("unsupported ADC channel")
	}
	if !d.configured[ch] {
		if err := d.ConfigureChannel(ch); err != nil {
			return 0, err
		}
	}

	d.Select(ch)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	return core.ADCValue(rp.ADC.RESULT.Get() & 0xFFF), nil
}

// Stop halts free-running conversion and waits for the last one to finish.
func (d *RpAdcDriver) Stop() {
	rp.ADC.CS.ClearBits(rp.ADC_CS_START_MANY)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
}

// Select switches the input multiplexer.
func (d *RpAdcDriver) Select(ch core.ADCChannel) {
	rp.ADC.CS.ReplaceBits(uint32(ch)<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
}

// Drain empties the FIFO and clears any overflow flags.
func (d *RpAdcDriver) Drain() {
	for !rp.ADC.FCS.HasBits(rp.ADC_FCS_EMPTY) {
		_ = rp.ADC.FIFO.Get()
	}
	rp.ADC.FCS.SetBits(rp.ADC_FCS_OVER | rp.ADC_FCS_UNDER)
}

// Start enables the FIFO with byte shifting and a DMA request per sample,
// then begins free-running conversion at the full converter rate.
func (d *RpAdcDriver) Start() {
	rp.ADC.DIV.Set(0)
	rp.ADC.FCS.Set(rp.ADC_FCS_EN | rp.ADC_FCS_SHIFT | rp.ADC_FCS_DREQ_EN | 1<<rp.ADC_FCS_THRESH_Pos)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_MANY)
}

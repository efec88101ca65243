//go:build rp2040

package main

import (
	"errors"
	"machine"
	"powercore/core"
)

// RPGPIODriver implements core.GPIODriver for RP2040
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a push-pull output, driven low
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if pin > 29 {
		return errors.New("invalid GPIO pin")
	}
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machinePin.Low()
	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin sets a configured output. It is called from the pulse interrupt
// for the timing probe, so it must not allocate.
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, ok := d.configuredPins[pin]
	if !ok {
		return errors.New("GPIO pin not configured")
	}
	machinePin.Set(value)
	return nil
}

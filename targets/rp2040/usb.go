//go:build rp2040

package main

import (
	"machine"
)

// The host link is the TinyGo USB CDC console. Lines go out through the
// scratch buffer in writeUSB; bytes come in one at a time in usbReaderLoop.

// InitUSB brings up the CDC console. The UART baud rate does not apply.
func InitUSB() error {
	return machine.Serial.Configure(machine.UARTConfig{})
}

// USBAvailable reports how many received bytes are waiting.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead takes the next received byte.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWrite sends as much of a pending status or message line as the CDC
// endpoint accepts.
func USBWrite(line []byte) (int, error) {
	return machine.Serial.Write(line)
}

package serial

import (
	"io"
	"time"

	"powercore/protocol"
)

// Port is the byte stream to the supply. The tarm implementation opens a
// CDC device; the simulator in host/sim satisfies it in process.
type Port interface {
	io.ReadWriteCloser

	// Flush drops input received before the host attached, usually the
	// tail of a status line.
	Flush() error
}

// Config selects the device and read behaviour.
type Config struct {
	// Device is the CDC node, e.g. /dev/ttyACM0 or COM3.
	Device string

	// Baud is passed through for UART adapters. CDC ignores it.
	Baud int

	// ReadTimeout bounds each Read so link.Run can notice cancellation.
	// Zero blocks.
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings the firmware's console expects.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        protocol.BaudRate,
		ReadTimeout: 100 * time.Millisecond,
	}
}

package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"
)

var errNoDevice = errors.New("no serial device configured")

// cdcPort is a supply console opened through tarm/serial.
type cdcPort struct {
	*serial.Port
	device string
}

// Open connects to the supply's console described by cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, errNoDevice
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return &cdcPort{Port: p, device: cfg.Device}, nil
}

func (p *cdcPort) String() string {
	return p.device
}

// Digital outputs: status indicator and short alert line
package core

// DigitalOut flags
const (
	DF_ON = 1 << 0 // Current pin state (1=high, 0=low)
)

// DigitalOut is one configured output pin. It remembers its state so
// repeated writes of the same level do not touch the hardware.
type DigitalOut struct {
	Pin   GPIOPin
	Flags uint8
}

// Outputs groups the board's indicator pins.
type Outputs struct {
	gpio   GPIODriver
	status DigitalOut
	alert  DigitalOut
}

// NewOutputs configures both pins low. A pin set to NoPin is skipped.
func NewOutputs(gpio GPIODriver, statusPin, alertPin GPIOPin) (*Outputs, error) {
	o := &Outputs{
		gpio:   gpio,
		status: DigitalOut{Pin: statusPin},
		alert:  DigitalOut{Pin: alertPin},
	}
	for _, d := range []*DigitalOut{&o.status, &o.alert} {
		if d.Pin == NoPin {
			continue
		}
		if err := gpio.ConfigureOutput(d.Pin); err != nil {
			return nil, err
		}
		if err := gpio.SetPin(d.Pin, false); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Outputs) set(d *DigitalOut, on bool) {
	if d.Pin == NoPin {
		return
	}
	if (d.Flags&DF_ON != 0) == on {
		return
	}
	if on {
		d.Flags |= DF_ON
	} else {
		d.Flags &^= DF_ON
	}
	o.gpio.SetPin(d.Pin, on)
}

// SetStatus drives the status indicator.
func (o *Outputs) SetStatus(on bool) { o.set(&o.status, on) }

// SetShortAlert drives the short alert line.
func (o *Outputs) SetShortAlert(on bool) { o.set(&o.alert, on) }

// Status reports the status indicator level.
func (o *Outputs) Status() bool { return o.status.Flags&DF_ON != 0 }

// ShortAlert reports the short alert level.
func (o *Outputs) ShortAlert() bool { return o.alert.Flags&DF_ON != 0 }

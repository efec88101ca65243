package core

import (
	"math"

	"tinygo.org/x/drivers"
)

const kelvinOffset = 273.15

// Thermistor converts divider readings to temperature with the beta model.
type Thermistor struct {
	cfg      ThermistorConfig
	invT0    float64
	voltsPer float64
}

// NewThermistor precomputes the constant terms of the beta equation.
func NewThermistor(cfg ThermistorConfig) *Thermistor {
	return &Thermistor{
		cfg:      cfg,
		invT0:    1 / (cfg.NominalCelsius + kelvinOffset),
		voltsPer: cfg.ADCReference / cfg.ADCLevels,
	}
}

// Volts averages raw codes and scales them to the ADC input voltage.
func (t *Thermistor) Volts(raw []ADCValue) float64 {
	if len(raw) == 0 {
		return 0
	}
	var sum uint32
	for _, r := range raw {
		sum += uint32(r)
	}
	return float64(sum) / float64(len(raw)) * t.voltsPer
}

// Resistance solves the divider for the thermistor. A reading at or above
// the rail means the thermistor is open; zero means it is shorted.
func (t *Thermistor) Resistance(volts float64) (float64, error) {
	if volts <= 0 {
		return 0, ErrSensorShorted
	}
	headroom := t.cfg.RailVolts - volts
	if headroom < t.cfg.MinHeadroomVolts || headroom <= 0 {
		return math.Inf(1), ErrSensorOpen
	}
	return volts * t.cfg.PullupOhms / headroom, nil
}

// Celsius returns the temperature for a set of raw samples. On a sensor
// fault the value is NaN.
func (t *Thermistor) Celsius(raw []ADCValue) (float64, error) {
	r, err := t.Resistance(t.Volts(raw))
	if err != nil {
		return math.NaN(), err
	}
	return t.CelsiusFromOhms(r), nil
}

// CelsiusFromOhms applies the beta equation.
func (t *Thermistor) CelsiusFromOhms(ohms float64) float64 {
	inv := math.Log(ohms/t.cfg.NominalOhms)/t.cfg.Beta + t.invT0
	return 1/inv - kelvinOffset
}

// Temperature is one probe reading. Err is set when the divider is out of
// range; Celsius is NaN in that case.
type Temperature struct {
	Celsius float64
	Err     error
}

// Valid reports whether the reading can be trusted.
func (t Temperature) Valid() bool {
	return t.Err == nil
}

// ThermalProbe reads one thermistor channel.
type ThermalProbe struct {
	adc     ADCDriver
	channel ADCChannel
	model   *Thermistor
	raw     []ADCValue
	last    Temperature

	sampleErr error
}

var _ drivers.Sensor = (*ThermalProbe)(nil)

// NewThermalProbe binds a thermistor model to an ADC channel.
func NewThermalProbe(adc ADCDriver, ch ADCChannel, model *Thermistor, samples int) *ThermalProbe {
	if samples < 1 {
		samples = 1
	}
	return &ThermalProbe{
		adc:     adc,
		channel: ch,
		model:   model,
		raw:     make([]ADCValue, samples),
		last:    Temperature{Celsius: math.NaN(), Err: ErrSensorOpen},
	}
}

// Update reads the channel when a temperature measurement is requested.
func (p *ThermalProbe) Update(which drivers.Measurement) error {
	if which&drivers.Temperature == 0 {
		return nil
	}
	p.Sample()
	return p.Convert().Err
}

// Sample reads the raw codes without converting them, so a caller can keep
// the ADC access short and do the beta maths later.
func (p *ThermalProbe) Sample() error {
	p.sampleErr = nil
	for i := range p.raw {
		v, err := p.adc.ReadRaw(p.channel)
		if err != nil {
			p.sampleErr = err
			return err
		}
		p.raw[i] = v
	}
	return nil
}

// Convert turns the codes from the last Sample into a reading.
func (p *ThermalProbe) Convert() Temperature {
	if p.sampleErr != nil {
		p.last = Temperature{Celsius: math.NaN(), Err: p.sampleErr}
		return p.last
	}
	c, err := p.model.Celsius(p.raw)
	p.last = Temperature{Celsius: c, Err: err}
	return p.last
}

// Read updates the probe and returns the new reading.
func (p *ThermalProbe) Read() Temperature {
	p.Update(drivers.Temperature)
	return p.last
}

// Last returns the most recent reading.
func (p *ThermalProbe) Last() Temperature {
	return p.last
}

// Temperature returns the last reading in milli-degrees Celsius, the unit
// used by the TinyGo sensor drivers.
func (p *ThermalProbe) Temperature() int32 {
	if !p.last.Valid() {
		return math.MinInt32
	}
	return int32(p.last.Celsius * 1000)
}

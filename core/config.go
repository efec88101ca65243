package core

// ThermistorConfig describes one NTC divider: the thermistor sits between
// the ADC input and ground, the pull-up goes to the measured rail.
type ThermistorConfig struct {
	Beta             float64 `yaml:"beta"`
	NominalOhms      float64 `yaml:"nominal_ohms"`
	NominalCelsius   float64 `yaml:"nominal_celsius"`
	PullupOhms       float64 `yaml:"pullup_ohms"`
	RailVolts        float64 `yaml:"rail_volts"`
	ADCReference     float64 `yaml:"adc_reference"`
	ADCLevels        float64 `yaml:"adc_levels"`
	Samples          int     `yaml:"samples"`
	MinHeadroomVolts float64 `yaml:"min_headroom_volts"`
}

// Config holds every tuning knob of one board revision.
type Config struct {
	// Output timing
	ClockHz           uint32 `yaml:"clock_hz"`
	TargetFrequency   uint32 `yaml:"target_frequency"`
	LowPowerFrequency uint32 `yaml:"low_power_frequency"`
	MinFrequency      uint32 `yaml:"min_frequency"`
	MaxFrequency      uint32 `yaml:"max_frequency"`
	OnTimeMicros      uint32 `yaml:"on_time_us"`

	// Classification, µC per pulse
	ChargeThreshold uint32  `yaml:"charge_threshold"`
	IdleFloor       float64 `yaml:"idle_floor"`

	// Charge sampler
	CurrentChannel   ADCChannel `yaml:"current_channel"`
	BurstSamples     int        `yaml:"burst_samples"`
	ConversionMicros float64    `yaml:"conversion_us"`
	ADCReference     float64    `yaml:"adc_reference"`
	AmpGain          float64    `yaml:"amp_gain"`
	SenseOhms        float64    `yaml:"sense_ohms"`

	// Power estimate
	NominalVoltage float64 `yaml:"nominal_voltage"`
	PowerDivisor   float64 `yaml:"power_divisor"`

	// Thermal safety
	ResistorChannel     ADCChannel       `yaml:"resistor_channel"`
	MosfetChannel       ADCChannel       `yaml:"mosfet_channel"`
	Thermistor          ThermistorConfig `yaml:"thermistor"`
	ResistorMaxCelsius  float64          `yaml:"resistor_max_celsius"`
	MosfetMaxCelsius    float64          `yaml:"mosfet_max_celsius"`
	MinCelsius          float64          `yaml:"min_celsius"`
	ShortAlertPercent   uint32           `yaml:"short_alert_percent"`
	MonitorPeriodMicros uint32           `yaml:"monitor_period_us"`
	PulseSideReading    bool             `yaml:"pulse_side_reading"`

	// Digital outputs
	StatusLEDPin   GPIOPin `yaml:"status_led_pin"`
	ShortAlertPin  GPIOPin `yaml:"short_alert_pin"`
	TimingProbePin GPIOPin `yaml:"timing_probe_pin"`
}

// DefaultConfig returns the values of the reference board.
func DefaultConfig() Config {
	return Config{
		ClockHz:           125000000,
		TargetFrequency:   2000,
		LowPowerFrequency: 500,
		MinFrequency:      10,
		MaxFrequency:      20000,
		OnTimeMicros:      20,

		ChargeThreshold: 2500,
		IdleFloor:       200,

		CurrentChannel:   0,
		BurstSamples:     10,
		ConversionMicros: 2,
		ADCReference:     3.3,
		AmpGain:          50,
		SenseOhms:        0.001,

		NominalVoltage: 72,
		PowerDivisor:   1000,

		ResistorChannel: 1,
		MosfetChannel:   2,
		Thermistor: ThermistorConfig{
			Beta:             3950,
			NominalOhms:      100000,
			NominalCelsius:   25,
			PullupOhms:       10000,
			RailVolts:        3.255,
			ADCReference:     3.3,
			ADCLevels:        4096,
			Samples:          2,
			MinHeadroomVolts: 0.005,
		},
		ResistorMaxCelsius:  80,
		MosfetMaxCelsius:    80,
		MinCelsius:          0,
		ShortAlertPercent:   25,
		MonitorPeriodMicros: 200000,
		PulseSideReading:    true,

		StatusLEDPin:   25,
		ShortAlertPin:  20,
		TimingProbePin: 12,
	}
}

// Validate checks the relationships the control loop depends on.
func (c *Config) Validate() error {
	switch {
	case c.ClockHz == 0:
		return ErrInvalidConfig
	case c.MinFrequency < 2 || c.MinFrequency > c.MaxFrequency:
		return ErrInvalidConfig
	case c.MinFrequency < MinSliceFrequency(c.ClockHz):
		return ErrFrequencyRange
	case c.TargetFrequency < c.MinFrequency || c.TargetFrequency > c.MaxFrequency:
		return ErrFrequencyRange
	case c.LowPowerFrequency < c.MinFrequency || c.LowPowerFrequency > c.MaxFrequency:
		return ErrFrequencyRange
	case c.OnTimeMicros == 0 || uint64(c.OnTimeMicros)*uint64(c.MaxFrequency) >= 1000000:
		// the on-time must fit inside the shortest period
		return ErrInvalidConfig
	case c.ChargeThreshold == 0:
		return ErrThresholdRange
	case c.BurstSamples <= 0 || c.BurstSamples > MaxBurstSamples || c.ConversionMicros <= 0:
		return ErrInvalidConfig
	case c.ADCReference <= 0 || c.AmpGain <= 0 || c.SenseOhms <= 0:
		return ErrInvalidConfig
	case c.PowerDivisor == 0:
		return ErrInvalidConfig
	case c.Thermistor.Beta <= 0 || c.Thermistor.NominalOhms <= 0 || c.Thermistor.PullupOhms <= 0:
		return ErrInvalidConfig
	case c.Thermistor.RailVolts <= 0 || c.Thermistor.ADCReference <= 0 || c.Thermistor.ADCLevels <= 0:
		return ErrInvalidConfig
	case c.Thermistor.Samples <= 0:
		return ErrInvalidConfig
	case c.MinCelsius >= c.ResistorMaxCelsius || c.MinCelsius >= c.MosfetMaxCelsius:
		return ErrInvalidConfig
	case c.MonitorPeriodMicros == 0:
		return ErrInvalidConfig
	}
	return nil
}

// SampleWindowMicros is the span covered by one burst capture.
func (c *Config) SampleWindowMicros() float64 {
	return float64(c.BurstSamples) * c.ConversionMicros
}

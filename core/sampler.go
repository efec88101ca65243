package core

// ChargeModel converts a burst sum into micro-coulombs. The converter keeps
// only the top 8 bits of each sample.
type ChargeModel struct {
	ADCReference float64
	AmpGain      float64
	SenseOhms    float64
	WindowMicros float64
}

// ChargeModelFromConfig extracts the sampler constants.
func ChargeModelFromConfig(cfg *Config) ChargeModel {
	return ChargeModel{
		ADCReference: cfg.ADCReference,
		AmpGain:      cfg.AmpGain,
		SenseOhms:    cfg.SenseOhms,
		WindowMicros: cfg.SampleWindowMicros(),
	}
}

// Scale is the charge represented by one count of the burst sum.
func (m ChargeModel) Scale() float64 {
	return m.ADCReference / 256 / m.AmpGain / m.SenseOhms * m.WindowMicros
}

// ChargeFromSum is linear in sum with zero offset.
func (m ChargeModel) ChargeFromSum(sum uint32) float64 {
	return float64(sum) * m.Scale()
}

// ChargeSampler captures a short burst of current-sense samples right after
// the output pulse and reduces it to one charge value.
type ChargeSampler struct {
	adc     BurstADC
	xfer    BlockTransfer
	channel ADCChannel
	scale   float64
	n       int
}

// NewChargeSampler binds the converter and transfer channel. samples is
// clamped to MaxBurstSamples.
func NewChargeSampler(adc BurstADC, xfer BlockTransfer, ch ADCChannel, samples int, model ChargeModel) *ChargeSampler {
	if samples > MaxBurstSamples {
		samples = MaxBurstSamples
	}
	return &ChargeSampler{
		adc:     adc,
		xfer:    xfer,
		channel: ch,
		scale:   model.Scale(),
		n:       samples,
	}
}

// Sample runs one capture straight into out. It runs in interrupt context
// and does not allocate.
func (s *ChargeSampler) Sample(out *PulseSample) {
	burst := out.Burst[:s.n]

	s.adc.Stop()
	s.adc.Select(s.channel)
	s.adc.Drain()
	s.adc.Start()
	s.xfer.TransferBlocking(burst)
	// leave the converter idle so one-shot reads find it free
	s.adc.Stop()

	var sum uint32
	for _, b := range burst {
		sum += uint32(b)
	}
	out.Samples = uint8(s.n)
	out.Sum = sum
	out.Charge = float64(sum) * s.scale
}

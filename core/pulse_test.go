package core

import "testing"

func TestPulseSlotOverwrite(t *testing.T) {
	var slot PulseSlot

	if _, ok := slot.Take(); ok {
		t.Fatal("Empty slot should have nothing to take")
	}

	slot.Publish(&PulseSample{Seq: 1, Charge: 100})
	slot.Publish(&PulseSample{Seq: 2, Charge: 200})

	if !slot.Ready() {
		t.Fatal("Expected ready marker")
	}
	s, ok := slot.Take()
	if !ok || s.Seq != 2 || s.Charge != 200 {
		t.Errorf("Expected newest sample, got %+v (ok=%v)", s, ok)
	}
	if slot.Overwritten() != 1 {
		t.Errorf("Expected 1 overwritten sample, got %d", slot.Overwritten())
	}
	if _, ok := slot.Take(); ok {
		t.Error("Marker should be cleared after take")
	}
}

func TestPulseHandlerOrder(t *testing.T) {
	log := &eventLog{}
	gen := &fakeGen{log: log}
	cfg := DefaultConfig()
	pm := NewPowerModeController(gen, &cfg)
	pm.Start()

	burst := &fakeBurst{log: log}
	xfer := &fakeTransfer{log: log}
	xfer.value.Store(59) // about 3042 uC
	sampler := NewChargeSampler(burst, xfer, 0, cfg.BurstSamples, ChargeModelFromConfig(&cfg))

	gpio := newFakeGPIO()
	gpio.log = log
	var slot PulseSlot
	h := NewPulseHandler(gen, sampler, pm, &slot, gpio, cfg.TimingProbePin)

	log.events = nil
	runInterrupt(h.OnWrap)

	want := []string{"ack", "probe_high", "stop", "select", "drain", "start", "transfer", "stop", "apply", "probe_low"}
	got := log.list()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	s, ok := slot.Take()
	if !ok {
		t.Fatal("Expected a published sample")
	}
	if s.Seq != 1 || s.Sum != 590 {
		t.Errorf("Unexpected sample %+v", s)
	}
	if pm.Mode() != ModeLowPower {
		t.Errorf("Expected low power after a 3042 uC pulse, got %s", pm.Mode())
	}
}

func TestPulseHandlerWithoutProbe(t *testing.T) {
	gen := &fakeGen{}
	cfg := DefaultConfig()
	pm := NewPowerModeController(gen, &cfg)
	pm.Start()
	sampler := NewChargeSampler(&fakeBurst{}, &fakeTransfer{}, 0, cfg.BurstSamples, ChargeModelFromConfig(&cfg))

	var slot PulseSlot
	h := NewPulseHandler(gen, sampler, pm, &slot, nil, 12)
	runInterrupt(h.OnWrap)
	runInterrupt(h.OnWrap)

	s, ok := slot.Take()
	if !ok || s.Seq != 2 {
		t.Errorf("Expected second sample, got %+v (ok=%v)", s, ok)
	}
	if gen.acks.Load() != 2 {
		t.Errorf("Expected 2 acknowledgements, got %d", gen.acks.Load())
	}
}

package core

import (
	"math"
	"testing"
)

func TestComputeTiming(t *testing.T) {
	tests := []struct {
		freq     uint32
		divInt   uint8
		divFrac  uint8
		wrap     uint16
		level    uint16
		achieved float64
	}{
		{2000, 1, 0, 62499, 2499, 2000},
		{500, 3, 14, 64515, 645, 500},
		{1000, 1, 15, 64515, 1290, 1000},
		{8, 238, 7, 65529, 10, 8},
		// below the slice range the divider saturates at 255 15/16
		{5, 255, 15, 65535, 6, 7.4524},
	}

	for _, tt := range tests {
		got := ComputeTiming(125000000, tt.freq, 20)
		if got.DivInt != tt.divInt || got.DivFrac != tt.divFrac {
			t.Errorf("%d Hz: expected divider %d.%d, got %d.%d", tt.freq, tt.divInt, tt.divFrac, got.DivInt, got.DivFrac)
		}
		if got.Wrap != tt.wrap {
			t.Errorf("%d Hz: expected wrap %d, got %d", tt.freq, tt.wrap, got.Wrap)
		}
		if got.Level != tt.level {
			t.Errorf("%d Hz: expected level %d, got %d", tt.freq, tt.level, got.Level)
		}
		if math.Abs(got.Achieved-tt.achieved)/tt.achieved > 0.001 {
			t.Errorf("%d Hz: expected achieved %f, got %f", tt.freq, tt.achieved, got.Achieved)
		}
	}
}

func TestMinSliceFrequency(t *testing.T) {
	if got := MinSliceFrequency(125000000); got != 8 {
		t.Errorf("Expected 8 Hz at 125 MHz, got %d", got)
	}
	got := ComputeTiming(125000000, MinSliceFrequency(125000000), 20)
	if got.DivInt == 255 && got.DivFrac == 15 && got.Wrap == 0xFFFF {
		t.Error("Expected the slice range minimum to fit without saturating")
	}
}

func newTestController(gen *fakeGen) *PowerModeController {
	cfg := DefaultConfig()
	pm := NewPowerModeController(gen, &cfg)
	pm.Start()
	return pm
}

func TestPowerModeEntersLowPower(t *testing.T) {
	gen := &fakeGen{}
	pm := newTestController(gen)

	if pm.Frequency() != 2000 || pm.Mode() != ModeNormal {
		t.Fatalf("Expected normal mode at 2000 Hz, got %s at %d", pm.Mode(), pm.Frequency())
	}

	if m := pm.Decide(3000); m != ModeLowPower {
		t.Errorf("Expected low power after 3000 uC, got %s", m)
	}
	if pm.Frequency() != 500 {
		t.Errorf("Expected 500 Hz, got %d", pm.Frequency())
	}
	if gen.lastTiming().Frequency != 500 {
		t.Errorf("Expected generator programmed for 500 Hz, got %d", gen.lastTiming().Frequency)
	}
	if pm.Timing().Frequency != 500 {
		t.Errorf("Expected recorded timing for 500 Hz, got %d", pm.Timing().Frequency)
	}
}

func TestPowerModeEdgeTriggered(t *testing.T) {
	gen := &fakeGen{}
	pm := newTestController(gen)

	charges := []float64{100, 3000, 3000, 2600, 100, 100, 2500, 3000, 1000, 1000}
	changes := 0
	prev := pm.Mode()
	for _, c := range charges {
		m := pm.Decide(c)
		if m != prev {
			changes++
			prev = m
		}
	}

	if changes != 4 {
		t.Fatalf("Expected 4 mode changes, got %d", changes)
	}
	if got := gen.applyCount(); got != 1+changes {
		t.Errorf("Expected %d generator configurations, got %d", 1+changes, got)
	}
	if pm.Transitions() != uint32(changes) {
		t.Errorf("Expected %d transitions, got %d", changes, pm.Transitions())
	}
}

func TestPowerModeSetTarget(t *testing.T) {
	gen := &fakeGen{}
	pm := newTestController(gen)

	if err := pm.SetTarget(1000); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	if pm.Frequency() != 1000 || gen.lastTiming().Frequency != 1000 {
		t.Errorf("Expected immediate reprogram to 1000 Hz, got %d", pm.Frequency())
	}

	pm.Decide(5000)
	applied := gen.applyCount()
	if err := pm.SetTarget(1500); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	if gen.applyCount() != applied {
		t.Error("Target change in low power mode must not reprogram the output")
	}
	if pm.Frequency() != 500 || pm.Target() != 1500 {
		t.Errorf("Expected 500 Hz running with target 1500, got %d/%d", pm.Frequency(), pm.Target())
	}

	pm.Decide(100)
	if pm.Frequency() != 1500 {
		t.Errorf("Expected new target on exit from low power, got %d", pm.Frequency())
	}
}

func TestPowerModeRejectsBadValues(t *testing.T) {
	gen := &fakeGen{}
	pm := newTestController(gen)

	for _, f := range []uint32{0, 1, 9, 20001, 1000000} {
		if err := pm.SetTarget(f); err != ErrFrequencyRange {
			t.Errorf("%d Hz: expected ErrFrequencyRange, got %v", f, err)
		}
	}
	if pm.Target() != 2000 {
		t.Errorf("Target changed by rejected values: %d", pm.Target())
	}

	if err := pm.SetThreshold(0); err != ErrThresholdRange {
		t.Errorf("Expected ErrThresholdRange, got %v", err)
	}
	if err := pm.SetThreshold(1800); err != nil || pm.Threshold() != 1800 {
		t.Errorf("Expected threshold 1800, got %d (%v)", pm.Threshold(), err)
	}
}

package core

import (
	"math"
	"strings"
	"testing"
)

func TestThermalLimitsEvaluate(t *testing.T) {
	l := ThermalLimits{ResistorMax: 80, MosfetMax: 80, Min: 0}
	ok := func(c float64) Temperature { return Temperature{Celsius: c} }
	bad := Temperature{Celsius: math.NaN(), Err: ErrSensorOpen}

	tests := []struct {
		name string
		r    ThermalReading
		want Fault
	}{
		{"nominal", ThermalReading{ok(25), ok(30)}, FaultNone},
		{"at max", ThermalReading{ok(80), ok(80)}, FaultNone},
		{"at min", ThermalReading{ok(0), ok(0)}, FaultNone},
		{"resistor hot", ThermalReading{ok(85), ok(30)}, FaultResistorHot},
		{"mosfet hot", ThermalReading{ok(25), ok(81)}, FaultMosfetHot},
		{"resistor cold", ThermalReading{ok(-1), ok(30)}, FaultResistorCold},
		{"mosfet cold", ThermalReading{ok(25), ok(-5)}, FaultMosfetCold},
		{"resistor sensor", ThermalReading{bad, ok(30)}, FaultResistorSensor},
		{"mosfet sensor", ThermalReading{ok(25), bad}, FaultMosfetSensor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Evaluate(tt.r); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

type thermalRig struct {
	adc     *fakeADC
	gen     *fakeGen
	gpio    *fakeGPIO
	outputs *Outputs
	safety  *Safety
	monitor *ThermalMonitor
	alerts  []string
}

func newThermalRig(t *testing.T) *thermalRig {
	t.Helper()
	cfg := DefaultConfig()
	r := &thermalRig{
		adc:  newFakeADC(),
		gen:  &fakeGen{log: &eventLog{}},
		gpio: newFakeGPIO(),
	}
	r.adc.setCelsius(cfg.ResistorChannel, 25)
	r.adc.setCelsius(cfg.MosfetChannel, 25)

	var err error
	r.outputs, err = NewOutputs(r.gpio, cfg.StatusLEDPin, cfg.ShortAlertPin)
	if err != nil {
		t.Fatal(err)
	}
	r.outputs.SetStatus(true)
	r.gen.SetOutputEnabled(true)

	th := NewThermistor(cfg.Thermistor)
	resistor := NewThermalProbe(r.adc, cfg.ResistorChannel, th, 2)
	mosfet := NewThermalProbe(r.adc, cfg.MosfetChannel, th, 2)
	r.safety = NewSafety(r.gen, r.outputs, func(msg string) { r.alerts = append(r.alerts, msg) })
	r.monitor = NewThermalMonitor(resistor, mosfet, r.gen, r.safety, r.outputs, &cfg)
	return r
}

func TestThermalMonitorShutdown(t *testing.T) {
	r := newThermalRig(t)

	if _, f := r.monitor.Check(Percentages{}); f != FaultNone {
		t.Fatalf("Expected no fault at 25C, got %s", f)
	}

	r.adc.setCelsius(1, 85)
	reading, f := r.monitor.Check(Percentages{})
	if f != FaultResistorHot {
		t.Fatalf("Expected resistor over temperature, got %s", f)
	}
	if math.Abs(reading.Resistor.Celsius-85) > 0.5 {
		t.Errorf("Expected resistor near 85C, got %f", reading.Resistor.Celsius)
	}
	if r.safety.State() != Shutdown {
		t.Error("Expected shutdown state")
	}
	if r.gen.enabled.Load() {
		t.Error("Output must be disabled on shutdown")
	}
	if r.outputs.Status() {
		t.Error("Status indicator should be off after shutdown")
	}
	if len(r.alerts) != 1 || !strings.Contains(r.alerts[0], "Temperature Safety Shutdown") {
		t.Errorf("Expected one shutdown alert, got %q", r.alerts)
	}

	// Shutdown is terminal
	r.adc.setCelsius(1, 25)
	r.monitor.Check(Percentages{})
	r.adc.setCelsius(2, 95)
	r.monitor.Check(Percentages{})
	if r.safety.State() != Shutdown || r.gen.enabled.Load() {
		t.Error("Safety state must never return to armed")
	}
	if len(r.alerts) != 1 {
		t.Errorf("Expected the alert only once, got %d", len(r.alerts))
	}
	if r.safety.Fault() != FaultResistorHot {
		t.Errorf("Expected the first fault to be kept, got %s", r.safety.Fault())
	}
}

func TestThermalMonitorMasksPulseIRQ(t *testing.T) {
	r := newThermalRig(t)
	r.gen.log.events = nil

	r.monitor.Check(Percentages{})

	got := r.gen.log.list()
	if len(got) != 2 || got[0] != "irq_off" || got[1] != "irq_on" {
		t.Errorf("Expected irq_off then irq_on, got %v", got)
	}
	if !r.gen.irq.Load() {
		t.Error("Pulse interrupt should be enabled after the reads")
	}
}

func TestThermalMonitorMasksOnlyADCReads(t *testing.T) {
	r := newThermalRig(t)
	r.adc.log = r.gen.log
	r.gen.log.events = nil

	r.monitor.Check(Percentages{})

	want := []string{"irq_off", "adc_read", "adc_read", "adc_read", "adc_read", "irq_on"}
	got := r.gen.log.list()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if last := r.monitor.Last(); !last.Resistor.Valid() || math.Abs(last.Resistor.Celsius-25) > 0.5 {
		t.Errorf("Expected resistor near 25C after unmasking, got %+v", last.Resistor)
	}
}

func TestThermalProbeSampleDefersConversion(t *testing.T) {
	adc := newFakeADC()
	adc.setCelsius(1, 60)
	probe := NewThermalProbe(adc, 1, NewThermistor(DefaultConfig().Thermistor), 2)

	if err := probe.Sample(); err != nil {
		t.Fatal(err)
	}
	if probe.Last().Valid() {
		t.Error("Expected no reading before Convert")
	}
	got := probe.Convert()
	if !got.Valid() || math.Abs(got.Celsius-60) > 0.5 {
		t.Errorf("Expected 60C, got %+v", got)
	}
	if adc.reads != 2 {
		t.Errorf("Expected 2 reads, got %d", adc.reads)
	}

	adc.err = errFake
	if err := probe.Sample(); err != errFake {
		t.Errorf("Expected sample error, got %v", err)
	}
	if got := probe.Convert(); got.Err != errFake || !math.IsNaN(got.Celsius) {
		t.Errorf("Expected failed reading, got %+v", got)
	}
}

func TestThermalMonitorSensorFault(t *testing.T) {
	r := newThermalRig(t)
	r.adc.set(2, 4095)

	if _, f := r.monitor.Check(Percentages{}); f != FaultMosfetSensor {
		t.Errorf("Expected mosfet sensor fault, got %s", f)
	}
	if r.safety.State() != Shutdown {
		t.Error("Sensor fault must shut down")
	}
}

func TestShortAlertLine(t *testing.T) {
	r := newThermalRig(t)
	pin := DefaultConfig().ShortAlertPin

	r.monitor.Check(Percentages{Short: 25})
	if r.gpio.get(pin) {
		t.Error("Alert must stay low at exactly 25%")
	}
	r.monitor.Check(Percentages{Short: 26})
	if !r.gpio.get(pin) || !r.outputs.ShortAlert() {
		t.Error("Alert must be high above 25%")
	}
	r.monitor.Check(Percentages{Short: 3})
	if r.gpio.get(pin) {
		t.Error("Alert must drop when short rate falls")
	}
}

func TestSafetyTripOnce(t *testing.T) {
	gen := &fakeGen{}
	gen.SetOutputEnabled(true)
	count := 0
	s := NewSafety(gen, nil, func(string) { count++ })

	if !s.Trip(FaultMosfetHot) {
		t.Error("First trip should report the transition")
	}
	if s.Trip(FaultResistorHot) {
		t.Error("Second trip should be a no-op")
	}
	if count != 1 {
		t.Errorf("Expected 1 alert, got %d", count)
	}
	if s.State().String() != "shutdown" {
		t.Errorf("Unexpected state %s", s.State())
	}
}

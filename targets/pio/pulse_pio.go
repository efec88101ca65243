//go:build rp2040

package pio

// PIO pulse backend using tinygo-org/pio package
// The state machine times both edges, so the on-time stays fixed even when
// the CPU is busy in the pulse interrupt.

import (
	"machine"
	"powercore/core"
	"sync/atomic"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program for fixed on-time pulses
// Each TX word is one period: the loop count X that pads the cycle after
// the 32-cycle high phase.
//
//	0: pull block
//	1: out x, 32
//	2: set pins, 1 [31]
//	3: set pins, 0
//	4: jmp x--, 4
//
// One period is X + 36 state machine cycles. An empty FIFO stalls the
// machine at the pull with the pin low.

const (
	pulsePIOOrigin = -1 // Let PIO allocate

	// 125 MHz / 78.125 = 1.6 MHz, so the 32-cycle high phase is 20 µs.
	clkDivInt  = 78
	clkDivFrac = 32
	smClockHz  = 1600000

	fixedCycles = 36
)

func buildPulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}

	return []uint16{
		asm.Pull(false, true).Encode(),                    // 0: pull block
		asm.Out(rp2pio.OutDestX, 32).Encode(),             // 1: out x, 32
		asm.Set(rp2pio.SetDestPins, 1).Delay(31).Encode(), // 2: set pins, 1 [31]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),           // 3: set pins, 0
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),          // 4: jmp x--, 4
	}
}

// PulsePIO implements core.PulseGenerator on a PIO state machine
type PulsePIO struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
	cfg    rp2pio.StateMachineConfig
	onEdge func()

	word    atomic.Uint32
	enabled atomic.Bool
}

// NewPulsePIO creates a new PIO pulse backend
// pioNum: 0 for PIO0, 1 for PIO1
// smNum: 0-3 for state machine number
func NewPulsePIO(pioNum, smNum uint8) *PulsePIO {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PulsePIO{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
	}
}

// Init loads the program and parks the pin low. onEdge is called from the
// pin interrupt at each rising edge once the interrupt is enabled.
func (p *PulsePIO) Init(pin uint8, onEdge func()) error {
	p.pin = machine.Pin(pin)
	p.onEdge = onEdge

	p.sm.TryClaim()

	program := buildPulseProgram()
	offset, err := p.pio.AddProgram(program, pulsePIOOrigin)
	if err != nil {
		return err
	}
	p.offset = offset

	p.pin.Configure(machine.PinConfig{Mode: p.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(p.pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(clkDivInt, clkDivFrac)

	p.cfg = cfg

	p.restart()
	return nil
}

// restart puts the program counter back at the pull with the pin low.
func (p *PulsePIO) restart() {
	p.sm.Init(p.offset, p.cfg)
	p.sm.SetPindirsConsecutive(p.pin, 1, true)
	p.sm.SetPinsConsecutive(p.pin, 1, false)
}

// PeriodWord returns the loop count for one period at freq.
func PeriodWord(freq uint32) uint32 {
	if freq == 0 {
		return 0
	}
	cycles := uint32(smClockHz) / freq
	if cycles <= fixedCycles {
		return 0
	}
	return cycles - fixedCycles
}

// Apply stores the new period. Only the frequency matters here, the
// on-time is fixed by the program. Words already queued still run, so a
// change lands within a few pulses.
func (p *PulsePIO) Apply(t core.Timing) {
	p.word.Store(PeriodWord(t.Frequency))
}

// SetOutputEnabled starts the state machine with a full FIFO, or stops it
// and forces the pin low.
func (p *PulsePIO) SetOutputEnabled(on bool) {
	if on {
		p.enabled.Store(true)
		p.refill()
		p.sm.SetEnabled(true)
		return
	}
	p.enabled.Store(false)
	p.sm.SetEnabled(false)
	p.restart()
}

// AcknowledgeWrap tops up the TX FIFO. The GPIO interrupt flag is cleared
// by the machine package before the callback runs.
func (p *PulsePIO) AcknowledgeWrap() {
	if p.enabled.Load() {
		p.refill()
	}
}

// SetWrapIRQEnabled attaches or detaches the rising-edge callback. Edges
// while detached are lost, so attaching tops up the FIFO: a machine that
// ran dry waits at the pull and would never raise another edge.
func (p *PulsePIO) SetWrapIRQEnabled(on bool) {
	if on {
		p.pin.SetInterrupt(machine.PinRising, p.handleEdge)
		if p.enabled.Load() {
			p.refill()
		}
		return
	}
	p.pin.SetInterrupt(0, nil)
}

func (p *PulsePIO) handleEdge(machine.Pin) {
	if p.onEdge != nil {
		p.onEdge()
	}
}

func (p *PulsePIO) refill() {
	word := p.word.Load()
	for !p.sm.IsTxFIFOFull() {
		p.sm.TxPut(word)
	}
}

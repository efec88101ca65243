//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"powercore/core"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// RP2040 PWM peripheral memory map
const (
	pwmBase      = 0x40050000
	pwmSliceSize = 0x14
	pwmINTR      = pwmBase + 0xA4 // raw interrupts, write 1 to clear
	pwmINTE      = pwmBase + 0xA8 // interrupt enable

	pwmCSR = 0x00
	pwmDIV = 0x04
	pwmCTR = 0x08
	pwmCC  = 0x0C
	pwmTOP = 0x10

	pwmCSREnable = 1 << 0
)

var (
	pwmIntr = (*volatile.Register32)(unsafe.Pointer(uintptr(pwmINTR)))
	pwmInte = (*volatile.Register32)(unsafe.Pointer(uintptr(pwmINTE)))

	// wrapCallback is called from the PWM wrap interrupt
	wrapCallback func()
	wrapIRQ      interrupt.Interrupt
)

// PulseSlice implements core.PulseGenerator on one hardware PWM slice.
// The output starts high at counter zero and falls at the compare level,
// so the compare level alone sets the on-time.
type PulseSlice struct {
	pin     machine.Pin
	slice   uint8
	channel uint8 // 0 = A, 1 = B

	csr *volatile.Register32
	div *volatile.Register32
	ctr *volatile.Register32
	cc  *volatile.Register32
	top *volatile.Register32

	irqEnabled bool
}

// NewPulseSlice claims the slice that drives pin and routes its wrap
// interrupt to onWrap. The output stays disabled until SetOutputEnabled.
func NewPulseSlice(pin machine.Pin, onWrap func()) *PulseSlice {
	// RP2040: GPIO pin N maps to slice (N >> 1) & 7, channel N & 1
	slice := uint8((pin >> 1) & 0x7)
	base := uintptr(pwmBase) + uintptr(slice)*pwmSliceSize

	p := &PulseSlice{
		pin:     pin,
		slice:   slice,
		channel: uint8(pin & 1),
		csr:     (*volatile.Register32)(unsafe.Pointer(base + pwmCSR)),
		div:     (*volatile.Register32)(unsafe.Pointer(base + pwmDIV)),
		ctr:     (*volatile.Register32)(unsafe.Pointer(base + pwmCTR)),
		cc:      (*volatile.Register32)(unsafe.Pointer(base + pwmCC)),
		top:     (*volatile.Register32)(unsafe.Pointer(base + pwmTOP)),
	}

	p.forceLow()
	p.csr.Set(0)
	p.ctr.Set(0)

	wrapCallback = onWrap
	wrapIRQ = interrupt.New(rp.IRQ_PWM_IRQ_WRAP, handlePWMWrap)
	wrapIRQ.SetPriority(0x00)
	return p
}

func handlePWMWrap(interrupt.Interrupt) {
	if wrapCallback != nil {
		wrapCallback()
	}
}

// Apply programs divider, top and compare level. The slice latches the new
// values at the next wrap.
func (p *PulseSlice) Apply(t core.Timing) {
	p.div.Set(uint32(t.DivInt)<<4 | uint32(t.DivFrac&0xF))
	p.top.Set(uint32(t.Wrap))
	if p.channel == 0 {
		p.cc.ReplaceBits(uint32(t.Level), 0xFFFF, 0)
	} else {
		p.cc.ReplaceBits(uint32(t.Level), 0xFFFF, 16)
	}
}

// SetOutputEnabled hands the pin to the slice and starts counting, or stops
// the slice and holds the pin low as a plain GPIO.
func (p *PulseSlice) SetOutputEnabled(on bool) {
	if on {
		p.pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
		p.csr.SetBits(pwmCSREnable)
		return
	}
	p.csr.ClearBits(pwmCSREnable)
	p.forceLow()
}

// AcknowledgeWrap clears this slice's pending wrap flag.
func (p *PulseSlice) AcknowledgeWrap() {
	pwmIntr.Set(1 << p.slice)
}

// SetWrapIRQEnabled masks or unmasks this slice in the shared wrap interrupt.
func (p *PulseSlice) SetWrapIRQEnabled(on bool) {
	if on {
		pwmIntr.Set(1 << p.slice)
		pwmInte.SetBits(1 << p.slice)
		if !p.irqEnabled {
			wrapIRQ.Enable()
			p.irqEnabled = true
		}
		return
	}
	pwmInte.ClearBits(1 << p.slice)
}

func (p *PulseSlice) forceLow() {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Low()
}

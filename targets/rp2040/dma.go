//go:build rp2040

package main

import (
	"errors"
	"powercore/core"
	"runtime/volatile"
	"unsafe"
)

// RP2040 DMA peripheral memory map
const (
	dmaBase         = 0x50000000
	dmaChannelCount = 12
	dmaChannelSize  = 0x40

	dmaReadAddr   = 0x00
	dmaWriteAddr  = 0x04
	dmaTransCount = 0x08
	dmaCtrlTrig   = 0x0C

	adcFIFOAddr = 0x4004C00C
)

// CTRL register fields
const (
	dmaCtrlEN        = 1 << 0
	dmaCtrlIncrWrite = 1 << 5
	dmaCtrlChainPos  = 11
	dmaCtrlTreqPos   = 15
	dmaCtrlIRQQuiet  = 1 << 21
	dmaCtrlBusy      = 1 << 24

	dreqADC = 36
)

var errNoDMAChannel = errors.New("no free DMA channel")

// DMAAllocator hands out channels from the top down so the low channels
// stay free for anything TinyGo claims.
type DMAAllocator struct {
	claimed [dmaChannelCount]bool
}

// NewDMAAllocator creates an allocator with every channel free
func NewDMAAllocator() *DMAAllocator {
	return &DMAAllocator{}
}

// Claim implements core.BlockTransferAllocator.
func (a *DMAAllocator) Claim() (core.BlockTransfer, error) {
	for ch := dmaChannelCount - 1; ch >= 0; ch-- {
		if a.claimed[ch] {
			continue
		}
		a.claimed[ch] = true
		return newDMAChannel(uint8(ch)), nil
	}
	return nil, errNoDMAChannel
}

// DMAChannel paces byte reads from the ADC FIFO into memory.
type DMAChannel struct {
	num        uint8
	readAddr   *volatile.Register32
	writeAddr  *volatile.Register32
	transCount *volatile.Register32
	ctrlTrig   *volatile.Register32
}

func newDMAChannel(num uint8) *DMAChannel {
	base := uintptr(dmaBase) + uintptr(num)*dmaChannelSize
	return &DMAChannel{
		num:        num,
		readAddr:   (*volatile.Register32)(unsafe.Pointer(base + dmaReadAddr)),
		writeAddr:  (*volatile.Register32)(unsafe.Pointer(base + dmaWriteAddr)),
		transCount: (*volatile.Register32)(unsafe.Pointer(base + dmaTransCount)),
		ctrlTrig:   (*volatile.Register32)(unsafe.Pointer(base + dmaCtrlTrig)),
	}
}

// TransferBlocking copies len(dst) bytes from the ADC FIFO and spins until
// the channel goes idle.
func (c *DMAChannel) TransferBlocking(dst []uint8) {
	if len(dst) == 0 {
		return
	}
	c.readAddr.Set(adcFIFOAddr)
	c.writeAddr.Set(uint32(uintptr(unsafe.Pointer(&dst[0]))))
	c.transCount.Set(uint32(len(dst)))

	// Byte transfers, fixed read address, incrementing write, paced by the
	// ADC request. Chaining to itself disables chaining.
	ctrl := uint32(dmaCtrlEN|dmaCtrlIncrWrite|dmaCtrlIRQQuiet) |
		uint32(c.num)<<dmaCtrlChainPos |
		uint32(dreqADC)<<dmaCtrlTreqPos
	c.ctrlTrig.Set(ctrl)

	for c.ctrlTrig.HasBits(dmaCtrlBusy) {
	}
}

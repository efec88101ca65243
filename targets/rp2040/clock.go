//go:build rp2040

package main

import (
	"powercore/core"
	"runtime/volatile"
	"unsafe"
)

// The firmware clock is the low word of the 1 MHz system timer. Pulse
// periods and the 200 ms monitor cadence are both measured against it,
// and the scheduler compares times wrap-safely, so the high word is unused.
const timerRawLow = 0x40054000 + 0x0C

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerRawLow)))

// GetHardwareTime returns microseconds since boot, modulo 2^32.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime publishes the timer to core before each poll.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}

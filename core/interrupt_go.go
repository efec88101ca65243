//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// On the host the pulse interrupt is simulated from another goroutine, so a
// mutex stands in for the interrupt mask. Critical sections must not nest.
var irqMask sync.Mutex

// disableInterrupts holds off the simulated interrupt context
func disableInterrupts() State {
	irqMask.Lock()
	return 0
}

// restoreInterrupts releases the simulated interrupt context
func restoreInterrupts(state State) {
	irqMask.Unlock()
}

// runInterrupt runs fn as an interrupt handler: the main context cannot
// interleave with it.
func runInterrupt(fn func()) {
	irqMask.Lock()
	defer irqMask.Unlock()
	fn()
}

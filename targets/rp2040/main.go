//go:build rp2040

package main

import (
	"machine"
	"powercore/core"
	"powercore/protocol"
	"powercore/targets/pio"
	"time"
)

const (
	// outputPin carries the gate drive. GPIO 17 is PWM slice 0 channel B.
	outputPin = machine.GPIO17

	// regulatorModePin forces the on-board regulator into PWM mode,
	// which lowers ripple on the ADC reference.
	regulatorModePin = machine.GPIO23

	// lineIdleMicros flushes an unterminated command after the link has
	// been quiet this long.
	lineIdleMicros = 20000
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	framer       protocol.LineFramer

	fw *core.Firmware

	// Debug counters
	linesReceived uint32
	msgerrors     uint32

	// USB connection state tracking
	lastByteTime             uint32
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// Without the link the supply still runs; status lines are dropped
	if err := InitUSB(); err != nil {
		usbWasDisconnected = true
	}
	UpdateSystemTime()

	regulatorModePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	regulatorModePin.High()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	board := core.Board{
		Transfer: NewDMAAllocator(),
		GPIO:     NewRPGPIODriver(),
	}
	adcDriver := NewRPAdcDriver()
	board.ADC = adcDriver
	board.Burst = adcDriver

	if GetMode().PIOPulse {
		pulse := pio.NewPulsePIO(0, 0)
		if err := pulse.Init(uint8(outputPin), onPulse); err != nil {
			halt()
		}
		board.Pulse = pulse
	} else {
		board.Pulse = NewPulseSlice(outputPin, onPulse)
	}

	fw, err = core.NewFirmware(core.DefaultConfig(), board, outputBuffer)
	if err != nil {
		halt()
	}

	// Start USB reader goroutine
	go usbReaderLoop()

	UpdateSystemTime()
	fw.Start(core.GetTime())

	// Main loop - start immediately
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					// Never leave the supply running on unknown state
					board.Pulse.SetOutputEnabled(false)
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			// Update system time from hardware
			UpdateSystemTime()
			now := core.GetTime()

			// Process incoming command lines
			for {
				b, ok := inputBuffer.Shift()
				if !ok {
					break
				}
				lastByteTime = now
				if line, ok := framer.Feed(b); ok {
					linesReceived++
					fw.HandleLine(line)
				}
			}
			if framer.Pending() > 0 && now-lastByteTime > lineIdleMicros {
				if line, ok := framer.Flush(); ok {
					linesReceived++
					fw.HandleLine(line)
				}
			}

			// Statistics, mode changes and the monitor cycle
			fw.Poll(now)

			// Write outgoing USB data
			if outputBuffer.Len() > 0 {
				writeUSB()
			}
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// onPulse is the per-cycle interrupt entry
func onPulse() {
	fw.OnPulseWrap()
}

// halt blinks the status LED fast forever. Used when the firmware cannot
// start safely.
func halt() {
	led := machine.Pin(core.DefaultConfig().StatusLEDPin)
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	// Recover from panics to prevent a firmware crash
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			// Restart the reader loop
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// Reconnected: drop any half line from the previous session
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				framer.Flush()
				consecutiveWriteFailures = 0
			}

			if !inputBuffer.Push(data) {
				// Buffer full - error condition
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes available data from output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	n, err := USBWrite(result)
	if n > 0 {
		outputBuffer.Pop(n)
	}
	if err != nil || n == 0 {
		// Write error or no progress - likely disconnect
		consecutiveWriteFailures++
		// After several failures, mark as disconnected and clear stale data
		if consecutiveWriteFailures > 10 {
			usbWasDisconnected = true
			consecutiveWriteFailures = 0
			outputBuffer.Reset()
			inputBuffer.Reset()
		}
		return
	}
	consecutiveWriteFailures = 0
}

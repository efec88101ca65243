package core

// ADCChannel identifies an analog multiplexer input.
type ADCChannel uint8

// ADCValue is a raw 12-bit one-shot conversion result.
type ADCValue uint16

// ADCDriver performs the slow one-shot conversions used by the thermistors.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input.
	ConfigureChannel(ch ADCChannel) error

	// ReadRaw performs a one-shot sample from the given channel.
	ReadRaw(ch ADCChannel) (ADCValue, error)
}

// BurstADC is the free-running side of the converter that feeds the
// block transfer. Samples land in the FIFO as 8-bit values.
type BurstADC interface {
	// Stop halts free-running conversion.
	Stop()
	// Select switches the input multiplexer.
	Select(ch ADCChannel)
	// Drain discards anything left in the FIFO.
	Drain()
	// Start begins free-running conversion.
	Start()
}

// BlockTransfer copies converter samples into memory without CPU
// involvement. TransferBlocking returns once len(dst) samples are written.
type BlockTransfer interface {
	TransferBlocking(dst []uint8)
}

// BlockTransferAllocator hands out an unused transfer channel. It fails when
// every channel is claimed.
type BlockTransferAllocator interface {
	Claim() (BlockTransfer, error)
}

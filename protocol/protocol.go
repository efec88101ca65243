// Package protocol implements the powercore text link: newline-terminated
// lines of comma-separated key=value pairs.
package protocol

// Version represents the powercore firmware version
const Version = "0.1.0"

// Link constants
const (
	DataLength = 256            // receive buffer, one byte reserved
	LineMax    = DataLength - 1 // longest accepted command line
	OutputMax  = 1024           // transmit scratch buffer

	BaudRate = 115200 // host side; USB CDC ignores it
)

// Status line keys, in wire order.
const (
	KeySparkPercent = "spark%"
	KeyShortPercent = "short%"
	KeyAvgPower     = "avgPower"
	KeyAvgCharge    = "avgCharge"
	KeyPulseFreq    = "pulseFreq"
	KeyMaxCoulomb   = "maxCoulomb"
	KeyResistorTemp = "resistorTemp"
	KeyMosfetTemp   = "mosfetTemp"

	// KeyMessage prefixes a free-text alert line.
	KeyMessage = "message"
)

// Command keys accepted by the firmware.
const (
	CmdFrequency     = "pwm_frequency"
	CmdChargeCeiling = "micro_c_per_pulse"
)

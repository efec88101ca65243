// Package link talks to the powercore firmware over its text protocol.
package link

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"powercore/protocol"
)

// Kind tells what sort of line the firmware sent.
type Kind int

const (
	KindUnknown Kind = iota
	KindStatus
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// ErrIncompleteStatus is returned for a status line missing a field.
var ErrIncompleteStatus = errors.New("incomplete status line")

// Status is one decoded status line. A temperature is NaN while its sensor
// is faulted.
type Status struct {
	SparkPercent uint32
	ShortPercent uint32
	AvgPower     float64
	AvgCharge    float64
	PulseFreq    uint32
	MaxCoulomb   uint32
	ResistorTemp float64
	MosfetTemp   float64
}

// Line is one line received from the firmware.
type Line struct {
	Kind    Kind
	Status  Status
	Message string
	Raw     string
}

// ShutdownText is the prefix of the alert the firmware sends when the
// thermal monitor latches the output off.
const ShutdownText = "Temperature Safety Shutdown!!"

// IsShutdown reports whether l is the safety shutdown alert.
func (l Line) IsShutdown() bool {
	return l.Kind == KindMessage && strings.HasPrefix(l.Message, ShutdownText)
}

// Prefixes of the messages the firmware sends after applying a command.
const (
	FrequencyEchoText = "PWM frequency set to: "
	CeilingEchoText   = "Max uC per Pulse set to: "
)

// IsEcho reports whether l confirms an applied command.
func (l Line) IsEcho() bool {
	return l.Kind == KindMessage &&
		(strings.HasPrefix(l.Message, FrequencyEchoText) || strings.HasPrefix(l.Message, CeilingEchoText))
}

// ParseLine decodes one line without its terminator.
func ParseLine(raw string) (Line, error) {
	raw = strings.TrimRight(raw, "\r\n")
	line := Line{Raw: raw}

	if text, ok := protocol.MessageText(raw); ok {
		line.Kind = KindMessage
		line.Message = text
		return line, nil
	}
	if !strings.HasPrefix(raw, protocol.KeySparkPercent+"=") {
		return line, nil
	}

	st, err := parseStatus(raw)
	if err != nil {
		return line, err
	}
	line.Kind = KindStatus
	line.Status = st
	return line, nil
}

const allFields = 1<<8 - 1

func parseStatus(raw string) (Status, error) {
	var (
		st   Status
		seen uint
		err  error
	)
	protocol.EachPair(raw, func(key, value string) bool {
		switch key {
		case protocol.KeySparkPercent:
			st.SparkPercent, err = parseUint(key, value)
			seen |= 1 << 0
		case protocol.KeyShortPercent:
			st.ShortPercent, err = parseUint(key, value)
			seen |= 1 << 1
		case protocol.KeyAvgPower:
			st.AvgPower, err = parseFloat(key, value)
			seen |= 1 << 2
		case protocol.KeyAvgCharge:
			st.AvgCharge, err = parseFloat(key, value)
			seen |= 1 << 3
		case protocol.KeyPulseFreq:
			st.PulseFreq, err = parseUint(key, value)
			seen |= 1 << 4
		case protocol.KeyMaxCoulomb:
			st.MaxCoulomb, err = parseUint(key, value)
			seen |= 1 << 5
		case protocol.KeyResistorTemp:
			st.ResistorTemp, err = parseFloat(key, value)
			seen |= 1 << 6
		case protocol.KeyMosfetTemp:
			st.MosfetTemp, err = parseFloat(key, value)
			seen |= 1 << 7
		}
		return err == nil
	})
	if err != nil {
		return Status{}, err
	}
	if seen != allFields {
		return Status{}, ErrIncompleteStatus
	}
	return st, nil
}

func parseUint(key, value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return uint32(v), nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return v, nil
}

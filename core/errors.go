package core

import "errors"

var (
	ErrNoBlockTransfer = errors.New("no free block transfer channel")
	ErrFrequencyRange  = errors.New("frequency out of range")
	ErrThresholdRange  = errors.New("charge threshold out of range")
	ErrSensorOpen      = errors.New("thermistor open or divider at rail")
	ErrSensorShorted   = errors.New("thermistor shorted")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMalformedValue  = errors.New("malformed command value")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

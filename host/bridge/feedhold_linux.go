//go:build linux

package bridge

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// LineFeedHold drives feed hold from a Linux GPIO character device line.
type LineFeedHold struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewLineFeedHold requests offset on chip as an output, released.
func NewLineFeedHold(chipName string, offset int, activeLow bool) (*LineFeedHold, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("powercore-feed-hold")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := chip.RequestLine(offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request feed hold line %d: %w", offset, err)
	}

	return &LineFeedHold{chip: chip, line: line}, nil
}

// Set asserts or releases the hold.
func (h *LineFeedHold) Set(hold bool) error {
	v := 0
	if hold {
		v = 1
	}
	if err := h.line.SetValue(v); err != nil {
		return fmt.Errorf("set feed hold: %w", err)
	}
	return nil
}

// Close releases the hold and returns the line to an input.
func (h *LineFeedHold) Close() error {
	var errs []error

	if h.line != nil {
		if err := h.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure feed hold line: %w", err))
		}
		if err := h.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close feed hold line: %w", err))
		}
	}
	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
